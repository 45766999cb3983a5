// Package rates converts raw currency pair prices into final prices.
//
// Each price row is resolved against the currency pair reference table and,
// when the pair requires conversion, joined with the most recent FX spot
// mid rate observed for the same pair within the preceding spot window:
//
//	final_price = price / conversion_factor + spot_mid_rate
//
// The spot window is the half-open interval (t - window, t]: a rate stamped
// exactly at t is used, a rate stamped exactly at t - window is not.
//
// # Components
//
//   - resolver.go: Resolver, pair_id -> CurrencyPairRule lookup
//   - matcher.go: Matcher, time-bounded as-of lookup of spot rates
//   - converter.go: Convert, the per-row conversion rule
//   - pipeline.go: Pipeline, validation plus whole-table conversion
//
// Missing rules and missing spot rates are reported through the row status
// (NO_RULE, INSUFFICIENT_DATA). Malformed reference data is rejected up
// front with a *domain.DataQualityError.
package rates
