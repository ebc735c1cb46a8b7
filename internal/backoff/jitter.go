// Package backoff computes retry delays for long-running watchers.
package backoff

import (
	rand "math/rand/v2"
	"time"
)

// Jitter produces decorrelated jitter delays with a cap.
// See: https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
//
// Each call to Next grows the delay from the previous one:
//
//	next = min(cap, base + rand[0, prev*multiplier-base))
//
// Reset starts over from Base. A Jitter is not safe for concurrent use.
type Jitter struct {
	Base       time.Duration
	Multiplier float64
	Cap        time.Duration

	prev time.Duration
	rng  *rand.Rand
}

// NewJitter creates a Jitter. A non-zero seed makes the sequence deterministic,
// which tests rely on; seed 0 uses the package-level PRNG.
//
// Parameters:
//   - base: First delay (default 50ms when <= 0)
//   - multiplier: Growth factor (values < 1 fall back to 1)
//   - capDur: Upper bound for any delay (0 = uncapped)
//   - seed: RNG seed, 0 for non-deterministic
func NewJitter(base time.Duration, multiplier float64, capDur time.Duration, seed int64) *Jitter {
	return &Jitter{
		Base:       base,
		Multiplier: multiplier,
		Cap:        capDur,
		rng:        newRNG(seed),
	}
}

// Next returns the next delay and remembers it for the following call.
func (j *Jitter) Next() time.Duration {
	j.prev = next(j.prev, j.Base, j.Multiplier, j.Cap, j.rng)
	return j.prev
}

// Reset forgets the previous delay, so the next call returns Base again.
func (j *Jitter) Reset() {
	j.prev = 0
}

func next(prev, base time.Duration, mult float64, capDur time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	if mult < 1.0 {
		mult = 1.0
	}
	if capDur > 0 && capDur < base {
		return capDur
	}
	if prev <= 0 {
		return base
	}

	maxDuration := time.Duration(float64(prev)*mult) - base
	if maxDuration <= 0 {
		maxDuration = base
	}

	var jitter int64
	if rng != nil {
		jitter = rng.Int64N(int64(maxDuration))
	} else {
		jitter = rand.Int64N(int64(maxDuration)) //nolint:gosec // non-crypto backoff jitter
	}

	d := base + time.Duration(jitter)
	if capDur > 0 && d > capDur {
		return capDur
	}

	return d
}

//nolint:gosec
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	s1 := uint64(seed)
	s2 := s1 ^ 0x9e3779b97f4a7c15

	return rand.New(rand.NewPCG(s1, s2))
}
