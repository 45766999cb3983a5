// Package config loads the pricecalc configuration.
//
// Sources, lowest precedence first:
//
//	1. Default()
//	2. a YAML file named by PRICECALC_CONFIG_FILE, or pricecalc.yaml
//	3. environment variables PRICECALC_<SECTION>_<FIELD>, e.g.
//	   PRICECALC_STDEV_WINDOW=20 or PRICECALC_POSTGRES_DSN=postgres://...
//
// A .env file in the working directory is read before the environment.
// The result is checked with validator struct tags.
package config
