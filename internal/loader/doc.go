// Package loader reads the input tables of both pipelines.
//
// Every supported format (CSV, XLSX, Parquet) is first read into a Table of
// string cells with a header row; the column mappers in columns.go then
// turn a Table into domain rows. Columns are matched by name, case
// insensitively, with aliases for the historical column names (ccy_pair,
// convert_price). Unparseable cells are reported as data quality faults.
package loader
