package stdev

import (
	"context"
	"testing"
)

func BenchmarkCalculate(b *testing.B) {
	snaps := randomSnaps(1, 20, 24*30, 0.01)
	h := mustHistory(b, snaps)
	grid := mustGrid(b, 0, 24*30-1)
	calc := NewCalculator(h, 1, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := calc.Calculate(context.Background(), grid, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHistoryAt(b *testing.B) {
	h := mustHistory(b, randomSnaps(1, 1, 500, 0))
	snap := hour(400)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.At("ASEC", "mid", snap)
	}
}
