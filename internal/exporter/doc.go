// Package exporter writes pipeline results as CSV or XLSX tables.
//
// CSVWriter and XLSXWriter write a header plus string records under an
// output directory. RatesRecords and StdevRecords render domain results
// into records; a null value is an empty cell. Stdev results have two
// layouts: long (one row per security, snap time and price type, with a
// status column) and wide (one row per security and snap time with
// bid_std, mid_std and ask_std columns).
//
// FileSink ties these together behind the Sink interface used by the
// services; MultiSink fans out to several sinks, e.g. files and Postgres.
package exporter
