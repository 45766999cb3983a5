package loader

import (
	"fmt"
	"log/slog"
	"time"

	"pricecalc/pkg/contracts/domain"
)

// RatesInput holds the three tables of the rates pipeline
type RatesInput struct {
	Pairs  []domain.CurrencyPairRule
	Prices []domain.PriceObservation
	Spots  []domain.SpotRateObservation
}

// Loader reads input files and logs what it loaded
type Loader struct {
	logger *slog.Logger
}

// New creates a loader. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadRates reads and maps the pair reference, price and spot rate files
func (l *Loader) LoadRates(pairsPath, pricesPath, spotsPath string) (*RatesInput, error) {
	in, err := l.LoadReference(pairsPath, spotsPath)
	if err != nil {
		return nil, err
	}
	pricesTable, err := l.read(pricesPath)
	if err != nil {
		return nil, err
	}
	if in.Prices, err = Prices(pricesTable); err != nil {
		return nil, fmt.Errorf("map prices: %w", err)
	}
	return in, nil
}

// LoadReference reads the pair reference and spot rate files only, for
// converting prices that arrive later
func (l *Loader) LoadReference(pairsPath, spotsPath string) (*RatesInput, error) {
	pairsTable, err := l.read(pairsPath)
	if err != nil {
		return nil, err
	}
	spotsTable, err := l.read(spotsPath)
	if err != nil {
		return nil, err
	}

	in := &RatesInput{}
	if in.Pairs, err = CurrencyPairs(pairsTable); err != nil {
		return nil, fmt.Errorf("map currency pairs: %w", err)
	}
	if in.Spots, err = SpotRates(spotsTable); err != nil {
		return nil, fmt.Errorf("map spot rates: %w", err)
	}
	return in, nil
}

// LoadSnaps reads and maps the hourly security price file
func (l *Loader) LoadSnaps(path string) ([]domain.SecuritySnap, error) {
	t, err := l.read(path)
	if err != nil {
		return nil, err
	}
	snaps, err := SecuritySnaps(t)
	if err != nil {
		return nil, fmt.Errorf("map security snaps: %w", err)
	}
	return snaps, nil
}

func (l *Loader) read(path string) (*Table, error) {
	start := time.Now()
	if err := ValidateFile(path); err != nil {
		l.logger.Error("invalid input file",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}
	t, err := ReadTable(path)
	if err != nil {
		l.logger.Error("failed to read table",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}
	l.logger.Info("loaded table",
		slog.String("table", t.Name),
		slog.String("path", path),
		slog.Int("rows", len(t.Rows)),
		slog.Int("columns", len(t.Header)),
		slog.Duration("duration", time.Since(start)))
	return t, nil
}
