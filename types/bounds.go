package types

import "fmt"

// Bounds is an inclusive time window expressed in Instants of the active time-key.
type Bounds struct {
	Start Instant `json:"start" yaml:"start"`
	End   Instant `json:"end" yaml:"end"`
}

// Contains reports whether v lies within the window, both ends inclusive.
func (b Bounds) Contains(v Instant) bool {
	return v >= b.Start && v <= b.End
}

// Validate checks that the window is not inverted.
//
// Returns:
//   - error: ErrInvalidBounds wrapped with the offending values, nil if valid
func (b Bounds) Validate() error {
	if b.Start > b.End {
		return fmt.Errorf("%w: start %v is after end %v", ErrInvalidBounds, b.Start, b.End)
	}

	return nil
}

// String returns a compact representation of the window.
func (b Bounds) String() string {
	return fmt.Sprintf("[%v, %v]", b.Start, b.End)
}
