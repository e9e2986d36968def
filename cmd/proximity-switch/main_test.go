package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/proximity-switch/internal/config"
	"github.com/sweeney/proximity-switch/internal/control"
	"github.com/sweeney/proximity-switch/internal/status"
)

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  syscall.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v): got %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestClientID(t *testing.T) {
	if got := clientID("kitchen"); got != "kitchen" {
		t.Errorf("configured id: got %q", got)
	}

	a, b := clientID(""), clientID("")
	if !strings.HasPrefix(a, "proximity-switch-") || len(a) != len("proximity-switch-")+8 {
		t.Errorf("generated id: got %q", a)
	}
	if a == b {
		t.Errorf("generated ids should differ, both %q", a)
	}
}

func TestBindingFromConfig(t *testing.T) {
	cfg := config.Default()
	b := binding(cfg.Telemetry)
	if err := b.Validate(); err != nil {
		t.Fatalf("default binding invalid: %v", err)
	}
	want := control.DefaultBinding()
	for ch, pin := range want {
		if b[ch] != pin {
			t.Errorf("%s: got pin %d, want %d", ch, b[ch], pin)
		}
	}
}

func TestThresholdsFromConfig(t *testing.T) {
	cfg := config.Default()
	th := thresholds(&cfg)
	if th.HighTriggerMM != 200 || th.LowTriggerMM != 75 || th.CooldownCycles != 2 {
		t.Errorf("thresholds: got %+v", th)
	}
	if th.RejectAboveMM() != cfg.RejectAboveMM() {
		t.Errorf("RejectAboveMM: got %d, want %d", th.RejectAboveMM(), cfg.RejectAboveMM())
	}
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	sc := statusConfig(&cfg, "tcp://10.0.0.1:1883")

	if sc.LoopMs != 100 || sc.SettleMs != 250 || sc.HeartbeatMs != 900000 {
		t.Errorf("timings: got %+v", sc)
	}
	if sc.RejectAboveMM != 300 {
		t.Errorf("RejectAboveMM: got %d, want 300", sc.RejectAboveMM)
	}
	if sc.Broker != "tcp://10.0.0.1:1883" {
		t.Errorf("Broker: got %q", sc.Broker)
	}
}

func TestSetupLoggingLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		setupLogging(tt.level, true, false)
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("level %q: got %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestRootRejectsBadLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--log-level", "trace"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { flagLogLevel = "" })

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestRootRejectsMissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { flagConfig = "" })

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestStatusCommand(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, status.Config{ReadCount: 10, Broker: "tcp://localhost:1883"})
	tr.Update(status.Core{Light: true, LastAvgMM: 140, HasAvg: true, Counts: status.Counts{Auto: 3, Manual: 1}})
	tr.SetMQTTConnected(true)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(status.FormatJSON(tr.Snapshot()))
	}))
	defer ts.Close()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"status", "--url", ts.URL})

	if err := root.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Light", "ON", "OFF", "140 mm", "connected", "3 / 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestStatusCommandHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"status", "--url", ts.URL})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestRenderStatusUnknown(t *testing.T) {
	out := renderStatus(status.StatusInner{Light: "UNKNOWN", Fan: "UNKNOWN"})
	if !strings.Contains(out, "UNKNOWN") || !strings.Contains(out, "n/a") {
		t.Errorf("unexpected render:\n%s", out)
	}
	if !strings.Contains(out, "disconnected") {
		t.Errorf("expected disconnected MQTT:\n%s", out)
	}
}
