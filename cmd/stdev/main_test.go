package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecalc/internal/infrastructure"
	"pricecalc/pkg/contracts/domain"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		infrastructure.ResetLoggerForTesting()
	})
	t.Setenv("PRICECALC_LOGGING_LEVEL", "error")
	infrastructure.ResetLoggerForTesting()
	return dir
}

// writeSnaps writes 22 hourly snaps for S1 starting at midnight plus any
// extra rows
func writeSnaps(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("security_id,snap_time,bid,mid,ask\n")
	for h := 0; h < 22; h++ {
		fmt.Fprintf(&b, "S1,2021-11-20 %02d:00:00,%d,%d,%d\n", h, h, h+1, h+2)
	}
	for _, row := range extra {
		b.WriteString(row + "\n")
	}
	p := filepath.Join(dir, "snaps.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

func readResult(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "out")
	args := []string{
		"-snaps", writeSnaps(t, dir),
		"-out", out,
		"-start", "2021-11-20 18:00:00",
		"-end", "2021-11-20 21:00:00",
	}

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), args, &stdout))

	var report struct {
		RunID      string `json:"run_id"`
		GridPoints int    `json:"grid_points"`
		Summary    struct {
			Total    int                   `json:"total"`
			ByStatus map[domain.Status]int `json:"by_status"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.GridPoints)
	assert.Equal(t, 12, report.Summary.Total)
	assert.Equal(t, 9, report.Summary.ByStatus[domain.StatusOK])
	assert.Equal(t, 3, report.Summary.ByStatus[domain.StatusInsufficientData])

	rows := readResult(t, filepath.Join(out, "stdev_result.csv"))
	require.Len(t, rows, 13)
	assert.Equal(t, []string{"security_id", "snap_time", "price_type", "stdev", "status"}, rows[0])
	// ask first, 18:00 still one snap short of a full window
	assert.Equal(t, []string{"S1", "2021-11-20T18:00:00Z", "ask", "", "INSUFFICIENT_DATA"}, rows[1])
	assert.Equal(t, "2021-11-20T19:00:00Z", rows[2][1])
	assert.Equal(t, "OK", rows[2][4])
	assert.Equal(t, "bid", rows[5][2])
}

func TestRunDefaultsToSnapBounds(t *testing.T) {
	dir := isolate(t)
	var b strings.Builder
	b.WriteString("security_id,snap_time,bid,mid,ask\n")
	for h := 0; h < 22; h++ {
		fmt.Fprintf(&b, "S7,2023-03-01 %02d:00:00,%d,%d,%d\n", h, h, h+1, h+2)
	}
	snaps := filepath.Join(dir, "snaps.csv")
	require.NoError(t, os.WriteFile(snaps, []byte(b.String()), 0o644))
	out := filepath.Join(dir, "out")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-snaps", snaps, "-out", out}, &stdout))

	var report struct {
		GridPoints int `json:"grid_points"`
		Summary    struct {
			ByStatus map[domain.Status]int `json:"by_status"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, 22, report.GridPoints)
	assert.Equal(t, 9, report.Summary.ByStatus[domain.StatusOK])

	rows := readResult(t, filepath.Join(out, "stdev_result.csv"))
	require.Len(t, rows, 1+22*3)
	assert.Equal(t, "2023-03-01T00:00:00Z", rows[1][1])
	assert.Equal(t, "2023-03-01T21:00:00Z", rows[22][1])
	assert.Equal(t, "OK", rows[22][4])
}

func TestRunWideLayout(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "out")
	args := []string{
		"-snaps", writeSnaps(t, dir),
		"-out", out,
		"-layout", "wide",
		"-start", "2021-11-20 18:00:00",
		"-end", "2021-11-20 19:00:00",
	}

	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))

	rows := readResult(t, filepath.Join(out, "stdev_result.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"security_id", "snap_time", "bid_std", "mid_std", "ask_std"}, rows[0])
	assert.Equal(t, []string{"S1", "2021-11-20T18:00:00Z", "", "", ""}, rows[1])
	for _, cell := range rows[2][2:] {
		assert.NotEmpty(t, cell)
	}
}

func TestRunSecurityFilter(t *testing.T) {
	dir := isolate(t)
	args := []string{
		"-snaps", writeSnaps(t, dir),
		"-out", filepath.Join(dir, "out"),
		"-start", "2021-11-20 19:00:00",
		"-end", "2021-11-20 19:00:00",
		"-securities", "S9, ",
	}

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), args, &stdout))
	assert.Contains(t, stdout.String(), `"INSUFFICIENT_DATA": 3`)
}

func TestRunDataQualityExitCode(t *testing.T) {
	dir := isolate(t)
	args := []string{
		"-snaps", writeSnaps(t, dir, "S1,2021-11-20 03:00:00,1,2,3"),
		"-out", filepath.Join(dir, "out"),
	}

	err := run(context.Background(), args, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataQuality)
	assert.Equal(t, exitDataQuality, exitCode(err))
}

func TestRunBadArguments(t *testing.T) {
	dir := isolate(t)
	snaps := writeSnaps(t, dir)

	tests := []struct {
		name string
		args []string
	}{
		{"bad start", []string{"-snaps", snaps, "-start", "yesterday"}},
		{"bad layout", []string{"-snaps", snaps, "-layout", "tall"}},
		{"window too small", []string{"-snaps", snaps, "-window", "1"}},
		{"missing file", []string{"-snaps", filepath.Join(dir, "nope.csv")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Equal(t, exitError, exitCode(err))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"S1", "S2"}, splitList(" S1,,S2 "))
}
