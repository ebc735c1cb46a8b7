package reconcile

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerial_RunsInline(t *testing.T) {
	var s Serial
	ran := false

	s.Do(func() { ran = true })

	require.True(t, ran, "an idle Serial runs work on the caller goroutine")
}

func TestSerial_ReentrantWorkRunsAfterCurrent(t *testing.T) {
	var s Serial
	var order []string

	s.Do(func() {
		order = append(order, "outer-start")
		s.Do(func() { order = append(order, "inner") })
		order = append(order, "outer-end")
	})

	require.Equal(t, []string{"outer-start", "outer-end", "inner"}, order)
}

func TestSerial_NoConcurrentExecution(t *testing.T) {
	var s Serial
	var (
		active  int
		maxSeen int
		total   int
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	for range 50 {
		wg.Go(func() {
			s.Do(func() {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				mu.Lock()
				active--
				total++
				mu.Unlock()
			})
		})
	}
	wg.Wait()

	// Every submission has been drained once all submitters returned and no
	// drainer is left running.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return total == 50
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, maxSeen)
}

func TestSerial_PreservesSubmissionOrder(t *testing.T) {
	var s Serial
	var got []int

	for i := range 10 {
		s.Do(func() { got = append(got, i) })
	}

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestSerial_PendingCountsQueuedWork(t *testing.T) {
	var s Serial
	release := make(chan struct{})
	running := make(chan struct{})

	go s.Do(func() {
		close(running)
		<-release
	})
	<-running
	require.Zero(t, s.Pending())

	var ran atomic.Int32
	for range 3 {
		s.Do(func() { ran.Add(1) })
	}
	require.Equal(t, 3, s.Pending(), "submitters do not wait for a blocked drainer")

	close(release)
	require.Eventually(t, func() bool { return ran.Load() == 3 }, time.Second, 5*time.Millisecond)
	require.Zero(t, s.Pending())
}
