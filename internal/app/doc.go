// Package app wires configuration, telemetry, sinks and services together.
//
// The batch CLIs use the small constructors (RatesOptions, StdevOptions,
// NewSink, NewCache); the query server uses Application, which loads the
// datasets named in the configuration once and serves them over HTTP
// until SIGINT or SIGTERM.
//
// # Initialization Flow
//
//	1. Metrics registry and OpenTelemetry providers
//	2. Datasets: security snaps into a stdev History, pair and spot
//	   reference tables into a rates Pipeline
//	3. Query cache (Redis or in-process)
//	4. Router, middleware and HTTP server
//
// A dataset whose input file is missing is skipped and its endpoints
// answer 503. A dataset with data quality faults fails startup.
//
// # Error Handling
//
// All initialization errors are returned to the caller. The package never
// calls os.Exit.
package app
