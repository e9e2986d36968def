package logic

// Window is a bounded FIFO of recent valid range readings in millimetres.
// Not safe for concurrent use.
type Window struct {
	samples     []uint32
	readCount   int
	rejectAbove uint32
}

// NewWindow creates a window that is ready after readCount valid samples.
// Readings of 0 or at/above rejectAbove are treated as invalid.
func NewWindow(readCount int, rejectAbove uint32) *Window {
	if readCount < 1 {
		readCount = 1
	}
	return &Window{
		samples:     make([]uint32, 0, readCount),
		readCount:   readCount,
		rejectAbove: rejectAbove,
	}
}

// Sample feeds one raw reading. An invalid reading discards the whole window
// and returns false.
func (w *Window) Sample(raw uint32) bool {
	if raw == 0 || raw >= w.rejectAbove {
		w.Clear()
		return false
	}

	// Evict before insert so the window never exceeds capacity.
	if len(w.samples) == w.readCount {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, raw)
	return true
}

// Ready reports whether the window holds exactly readCount samples.
func (w *Window) Ready() bool {
	return len(w.samples) == w.readCount
}

// Average returns the integer mean of the current samples, or 0 when empty.
// Only meaningful once Ready returns true.
func (w *Window) Average() uint32 {
	if len(w.samples) == 0 {
		return 0
	}
	var sum uint64
	for _, s := range w.samples {
		sum += uint64(s)
	}
	return uint32(sum / uint64(len(w.samples)))
}

// Clear empties the window.
func (w *Window) Clear() {
	w.samples = w.samples[:0]
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	return len(w.samples)
}

// Cap returns the number of samples required for the window to be ready.
func (w *Window) Cap() int {
	return w.readCount
}
