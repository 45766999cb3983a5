// Package services orchestrates the pricecalc pipelines.
//
// A service loads its input tables, runs the pure calculation packages,
// records metrics and trace spans, and hands the results to a sink. The
// calculation packages (internal/rates, internal/stdev) never log, load
// files or touch the network; everything with side effects lives here.
//
// # Services
//
//	RatesService  - converts a price table into final prices (batch)
//	StdevService  - sweeps a snap grid of rolling stdevs (batch)
//	QueryService  - answers point-in-time and range queries over data
//	                loaded once at startup, with an optional cache
//
// # Errors
//
// Data quality faults in the inputs surface as *domain.DataQualityError
// and match domain.ErrDataQuality. Missing data is never an error; it is
// reported through the result status.
package services
