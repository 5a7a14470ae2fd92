package hardware

import (
	"sync"
	"time"
)

// RecordingClock is a d4np2.Clock that records requested waits instead of
// sleeping.
type RecordingClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *RecordingClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
}

// Waits returns the recorded waits in order.
func (c *RecordingClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

// Total returns the sum of all recorded waits.
func (c *RecordingClock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum time.Duration
	for _, d := range c.waits {
		sum += d
	}
	return sum
}

func (c *RecordingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = nil
}
