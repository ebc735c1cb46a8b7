package types

// Datum is a single telemetry record of named fields.
//
// No schema is imposed. Only the fields selected by a time-key parser are interpreted,
// everything else is passed through to the consumer untouched. A Datum must not be
// mutated after it has been handed to a Reconciler.
type Datum map[string]any

// Instant is a comparable numeric projection of a Datum under a specific time-key,
// typically milliseconds since the Unix epoch.
//
// An undefined Instant is expressed by returning ok=false alongside it.
type Instant float64

// Parser extracts the Instant of a Datum for one time-key.
type Parser interface {
	// Parse returns the Instant of d, or ok=false when d carries no parsable value.
	Parse(d Datum) (Instant, bool)
}

// ParserFunc adapts a plain function to the Parser interface.
type ParserFunc func(d Datum) (Instant, bool)

// Parse calls f(d).
func (f ParserFunc) Parse(d Datum) (Instant, bool) {
	return f(d)
}

// FormatResolver maps a time-key to the Parser able to read it.
type FormatResolver interface {
	// Parser returns the parser registered for timeKey, or ok=false when none exists.
	Parser(timeKey string) (Parser, bool)
}

// Callback receives values emitted by a Reconciler.
type Callback func(d Datum)

// DisposeFunc tears down a started Reconciler. Calling it more than once is a no-op.
type DisposeFunc func()
