package gpio

import "errors"

// FakeRanger is a test double that returns scripted distances.
type FakeRanger struct {
	// Samples contains scripted readings to return.
	// Each call to ReadDistanceMM() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Calls counts ReadDistanceMM invocations.
	Calls int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadDistanceMM()
	ReadError error
}

// Sample represents a single range reading.
type Sample struct {
	MM  uint32
	Err error // returned instead of MM when set, e.g. ErrNoEcho
}

// NewFakeRanger creates a FakeRanger with the given samples.
func NewFakeRanger(samples []Sample) *FakeRanger {
	return &FakeRanger{Samples: samples}
}

// Distances builds samples from plain millimetre values.
func Distances(mm ...uint32) []Sample {
	out := make([]Sample, len(mm))
	for i, v := range mm {
		out[i] = Sample{MM: v}
	}
	return out
}

// ReadDistanceMM returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeRanger) ReadDistanceMM() (uint32, error) {
	f.Calls++
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	if sample.Err != nil {
		return 0, sample.Err
	}
	return sample.MM, nil
}

// Close marks the ranger as closed.
func (f *FakeRanger) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the ranger to the beginning of samples.
func (f *FakeRanger) Reset() {
	f.index = 0
	f.Calls = 0
	f.Closed = false
}
