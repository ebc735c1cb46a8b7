// Package format provides a FormatResolver backed by a registry of time-key parsers.
//
// A parser projects one field of a Datum onto a comparable Instant. Two field
// parsers are included: Number for epoch values stored as JSON numbers and Time
// for RFC 3339 timestamps, which are projected to epoch milliseconds. Default
// returns a registry preloaded with the "utc" time-key accepting either form.
//
//	reg := format.NewRegistry()
//	reg.Register("scet", format.Number("scet"))
//	parser, ok := reg.Parser("scet")
package format
