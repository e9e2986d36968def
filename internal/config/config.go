// Package config loads the daemon configuration and the device secrets file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/proximity-switch/internal/gpio"
	"github.com/sweeney/proximity-switch/internal/servo"
)

// Config represents the application configuration
type Config struct {
	Sensor     SensorConfig     `yaml:"sensor"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Actuators  ActuatorsConfig  `yaml:"actuators"`
	Loop       LoopConfig       `yaml:"loop"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Secrets    SecretsConfig    `yaml:"secrets"`
	Network    NetworkConfig    `yaml:"network"`
}

// SensorConfig describes the HC-SR04 wiring and sampling
type SensorConfig struct {
	Chip       string   `yaml:"chip"`
	TriggerPin int      `yaml:"trigger_pin"`
	EchoPin    int      `yaml:"echo_pin"`
	ReadCount  int      `yaml:"read_count"` // Samples per full window
	Timeout    Duration `yaml:"timeout"`    // Echo wait before a reading counts as invalid
}

// ThresholdsConfig partitions distances into far, light and fan zones
type ThresholdsConfig struct {
	HighTriggerMM  uint32 `yaml:"high_trigger_mm"`
	LowTriggerMM   uint32 `yaml:"low_trigger_mm"`
	RejectMarginMM uint32 `yaml:"reject_margin_mm"`
	CooldownCycles int    `yaml:"cooldown_cycles"`
}

// ActuatorsConfig describes the servo linkage
type ActuatorsConfig struct {
	Settle       Duration `yaml:"settle"`
	LightPin     uint8    `yaml:"light_pin"`     // GPIO routed to PWM0 or PWM1
	FanPin       uint8    `yaml:"fan_pin"`
	LightChannel int      `yaml:"light_channel"` // PWM channel, 0 or 1
	FanChannel   int      `yaml:"fan_channel"`
	HomePosition int      `yaml:"home_position"`
	HighPosition int      `yaml:"high_position"`
	LowPosition  int      `yaml:"low_position"`
	MinPulse     Duration `yaml:"min_pulse"`
	MaxPulse     Duration `yaml:"max_pulse"`
}

// LoopConfig contains control loop timing
type LoopConfig struct {
	Interval  Duration `yaml:"interval"`
	Heartbeat Duration `yaml:"heartbeat"` // 0 = disabled
}

// MQTTConfig contains broker connection settings
type MQTTConfig struct {
	Broker         string   `yaml:"broker"`
	ClientID       string   `yaml:"client_id"` // Generated when empty
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	TopicPrefix    string   `yaml:"topic_prefix"`
	EmbeddedBroker string   `yaml:"embedded_broker"` // Listen address for an in-process broker, empty = off
	InboxSize      int      `yaml:"inbox_size"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
}

// TelemetryConfig maps logical channels to virtual pins
type TelemetryConfig struct {
	Light    uint8 `yaml:"light"`
	Fan      uint8 `yaml:"fan"`
	Signal   uint8 `yaml:"signal"`
	Address  uint8 `yaml:"address"`
	SonicAvg uint8 `yaml:"sonic_avg"`
}

// HTTPConfig contains status server settings
type HTTPConfig struct {
	Addr string `yaml:"addr"` // Empty disables the status server
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// SecretsConfig points at the device secrets file
type SecretsConfig struct {
	Path string `yaml:"path"` // Empty = no secrets file
}

// NetworkConfig selects the interface used for signal and address reads
type NetworkConfig struct {
	Interface string `yaml:"interface"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file overrides a value.
// Zero is a meaningful value for pins, channels and angles, so defaults are
// laid down before the file is decoded rather than filled in afterwards.
func Default() Config {
	return Config{
		Sensor: SensorConfig{
			Chip:       "gpiochip0",
			TriggerPin: gpio.DefaultPinTrigger,
			EchoPin:    gpio.DefaultPinEcho,
			ReadCount:  10,
			Timeout:    Duration(60 * time.Millisecond),
		},
		Thresholds: ThresholdsConfig{
			HighTriggerMM:  200,
			LowTriggerMM:   75,
			RejectMarginMM: 100,
			CooldownCycles: 2,
		},
		Actuators: ActuatorsConfig{
			Settle:       Duration(250 * time.Millisecond),
			LightPin:     servo.DefaultLightPin,
			FanPin:       servo.DefaultFanPin,
			LightChannel: 0,
			FanChannel:   1,
			HomePosition: 90,
			HighPosition: 130,
			LowPosition:  50,
			MinPulse:     Duration(500 * time.Microsecond),
			MaxPulse:     Duration(2500 * time.Microsecond),
		},
		Loop: LoopConfig{
			Interval:  Duration(100 * time.Millisecond),
			Heartbeat: Duration(15 * time.Minute),
		},
		MQTT: MQTTConfig{
			Broker:         "tcp://localhost:1883",
			TopicPrefix:    "proximity-switch",
			InboxSize:      32,
			ConnectTimeout: Duration(10 * time.Second),
		},
		Telemetry: TelemetryConfig{
			Light:    0,
			Fan:      1,
			Signal:   2,
			Address:  3,
			SonicAvg: 4,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info", Colors: true},
	}
}

// Load reads and parses the configuration file. An empty path yields the
// defaults. The secrets file, when configured, is applied on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		// Expand environment variables
		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "proximity-switch"
	}

	if cfg.Secrets.Path != "" {
		secrets, err := LoadSecrets(cfg.Secrets.Path)
		if err != nil {
			return nil, err
		}
		cfg.ApplySecrets(secrets)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks the values the control loop relies on.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	t := c.Thresholds
	switch {
	case c.Sensor.ReadCount < 1:
		return invalid("sensor.read_count must be at least 1, got %d", c.Sensor.ReadCount)
	case c.Sensor.Timeout <= 0:
		return invalid("sensor.timeout must be positive")
	case t.LowTriggerMM < 1:
		return invalid("thresholds.low_trigger_mm must be at least 1")
	case t.LowTriggerMM >= t.HighTriggerMM:
		return invalid("thresholds.low_trigger_mm (%d) must be below high_trigger_mm (%d)", t.LowTriggerMM, t.HighTriggerMM)
	case t.CooldownCycles < 0:
		return invalid("thresholds.cooldown_cycles must not be negative")
	case c.Actuators.Settle <= 0:
		return invalid("actuators.settle must be positive")
	case c.Actuators.LightChannel == c.Actuators.FanChannel:
		return invalid("actuators.light_channel and fan_channel must differ")
	case c.Actuators.LightChannel < 0 || c.Actuators.LightChannel > 1 || c.Actuators.FanChannel < 0 || c.Actuators.FanChannel > 1:
		return invalid("actuators.light_channel and fan_channel must be 0 or 1")
	case c.Actuators.LightPin == c.Actuators.FanPin:
		return invalid("actuators.light_pin and fan_pin must differ")
	case c.Actuators.MinPulse >= c.Actuators.MaxPulse:
		return invalid("actuators.min_pulse must be below max_pulse")
	case c.Loop.Interval <= 0:
		return invalid("loop.interval must be positive")
	case c.Loop.Heartbeat < 0:
		return invalid("loop.heartbeat must not be negative")
	}

	for name, angle := range map[string]int{
		"home_position": c.Actuators.HomePosition,
		"high_position": c.Actuators.HighPosition,
		"low_position":  c.Actuators.LowPosition,
	} {
		if angle < 0 || angle > 180 {
			return invalid("actuators.%s must be within 0..180, got %d", name, angle)
		}
	}

	pins := []struct {
		name string
		pin  uint8
	}{
		{"light", c.Telemetry.Light},
		{"fan", c.Telemetry.Fan},
		{"signal", c.Telemetry.Signal},
		{"address", c.Telemetry.Address},
		{"sonic_avg", c.Telemetry.SonicAvg},
	}
	seen := make(map[uint8]string, len(pins))
	for _, p := range pins {
		if other, dup := seen[p.pin]; dup {
			return invalid("telemetry.%s and telemetry.%s share pin %d", other, p.name, p.pin)
		}
		seen[p.pin] = p.name
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// RejectAboveMM returns the raw reading at or above which a sample is invalid.
func (c *Config) RejectAboveMM() uint32 {
	return c.Thresholds.HighTriggerMM + c.Thresholds.RejectMarginMM
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// Match ${VAR} or ${VAR:default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)
