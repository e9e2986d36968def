package mqtt

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// inbox is a fixed-capacity FIFO of inbound commands. paho's router goroutine
// pushes; the control loop drains.
type inbox struct {
	mu       sync.Mutex
	buf      []Inbound
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
}

func newInbox(capacity int) *inbox {
	if capacity < 1 {
		capacity = 1
	}
	return &inbox{
		buf:      make([]Inbound, capacity),
		capacity: capacity,
	}
}

func (r *inbox) push(msg Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == r.capacity {
		if !r.overflow {
			log.Warn().Int("capacity", r.capacity).Msg("Command inbox full, dropping oldest")
			r.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		// count stays at capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

func (r *inbox) drainAll() []Inbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	result := make([]Inbound, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *inbox) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
