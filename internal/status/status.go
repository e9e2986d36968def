// Package status provides a thread-safe status tracker for the proximity-switch daemon.
// The control loop publishes into it; HTTP handlers and system events read from it.
package status

import (
	"sync"
	"time"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	LoopMs         int64
	HeartbeatMs    int64
	SettleMs       int64
	ReadCount      int
	HighTriggerMM  uint32
	LowTriggerMM   uint32
	RejectAboveMM  uint32
	CooldownCycles int
	Broker         string
	TopicPrefix    string
	HTTPAddr       string
}

// Counts tracks actuations and rejected samples since startup.
type Counts struct {
	LightOn  int
	LightOff int
	FanOn    int
	FanOff   int
	Auto     int // toggles fired by the range sensor
	Manual   int // toggles commanded remotely
	Rejected int // invalid samples that cleared the window
}

// Core is the control loop's view of its own state, published once per
// iteration.
type Core struct {
	Light     bool
	Fan       bool
	LastAvgMM uint32
	HasAvg    bool // false until the first trigger
	Cooldown  int
	WindowLen int
	Outcome   string
	Counts    Counts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Core
	Ready         bool // true after the first loop iteration
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the control loop state. Called from the loop every tick.
func (t *Tracker) Update(c Core) {
	t.mu.Lock()
	t.snap.Core = c
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
