package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJitter_BoundsAndCap(t *testing.T) {
	j := NewJitter(200*time.Millisecond, 1.6, 500*time.Millisecond, 42)

	first := j.Next()
	require.Equal(t, 200*time.Millisecond, first)

	for range 10 {
		d := j.Next()
		require.GreaterOrEqual(t, d, 200*time.Millisecond)
		require.LessOrEqual(t, d, 500*time.Millisecond)
	}
}

func TestJitter_CapLessThanBase(t *testing.T) {
	j := NewJitter(200*time.Millisecond, 1.6, 100*time.Millisecond, 1)

	require.Equal(t, 100*time.Millisecond, j.Next())
	require.Equal(t, 100*time.Millisecond, j.Next())
}

func TestJitter_Reset(t *testing.T) {
	j := NewJitter(100*time.Millisecond, 2, time.Second, 7)

	for range 5 {
		j.Next()
	}
	j.Reset()

	require.Equal(t, 100*time.Millisecond, j.Next())
}

func TestJitter_DefaultsAndDeterminism(t *testing.T) {
	j := NewJitter(0, 0.5, 0, 0)
	require.Equal(t, 50*time.Millisecond, j.Next())

	a := NewJitter(100*time.Millisecond, 1.6, 2*time.Second, 9)
	b := NewJitter(100*time.Millisecond, 1.6, 2*time.Second, 9)
	for range 8 {
		require.Equal(t, a.Next(), b.Next())
	}
}
