package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Light         string       `json:"light"`
	Fan           string       `json:"fan"`
	SonicAvgMM    *uint32      `json:"sonic_avg_mm,omitempty"`
	Cooldown      int          `json:"cooldown"`
	WindowLen     int          `json:"window_len"`
	Outcome       string       `json:"outcome,omitempty"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of actuation counts.
type CountsJSON struct {
	LightOn  int `json:"light_on"`
	LightOff int `json:"light_off"`
	FanOn    int `json:"fan_on"`
	FanOff   int `json:"fan_off"`
	Auto     int `json:"auto"`
	Manual   int `json:"manual"`
	Rejected int `json:"rejected"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LoopMs         int64  `json:"loop_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	SettleMs       int64  `json:"settle_ms"`
	ReadCount      int    `json:"read_count"`
	HighTriggerMM  uint32 `json:"high_trigger_mm"`
	LowTriggerMM   uint32 `json:"low_trigger_mm"`
	RejectAboveMM  uint32 `json:"reject_above_mm"`
	CooldownCycles int    `json:"cooldown_cycles"`
	Broker         string `json:"broker"`
	TopicPrefix    string `json:"topic_prefix"`
	HTTPAddr       string `json:"http_addr"`
}

// OnOff renders a logical actuator state.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	light, fan := "UNKNOWN", "UNKNOWN"
	if snap.Ready {
		light = OnOff(snap.Light)
		fan = OnOff(snap.Fan)
	}

	inner := StatusInner{
		Light:         light,
		Fan:           fan,
		Cooldown:      snap.Cooldown,
		WindowLen:     snap.WindowLen,
		Outcome:       snap.Outcome,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			LightOn:  snap.Counts.LightOn,
			LightOff: snap.Counts.LightOff,
			FanOn:    snap.Counts.FanOn,
			FanOff:   snap.Counts.FanOff,
			Auto:     snap.Counts.Auto,
			Manual:   snap.Counts.Manual,
			Rejected: snap.Counts.Rejected,
		},
		Config: ConfigJSON{
			LoopMs:         snap.Config.LoopMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			SettleMs:       snap.Config.SettleMs,
			ReadCount:      snap.Config.ReadCount,
			HighTriggerMM:  snap.Config.HighTriggerMM,
			LowTriggerMM:   snap.Config.LowTriggerMM,
			RejectAboveMM:  snap.Config.RejectAboveMM,
			CooldownCycles: snap.Config.CooldownCycles,
			Broker:         snap.Config.Broker,
			TopicPrefix:    snap.Config.TopicPrefix,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}
	if snap.HasAvg {
		avg := snap.LastAvgMM
		inner.SonicAvgMM = &avg
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// ParseJSON decodes a document produced by FormatJSON.
func ParseJSON(data []byte) (StatusInner, error) {
	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return StatusInner{}, err
	}
	return sj.Status, nil
}
