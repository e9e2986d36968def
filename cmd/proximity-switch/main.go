// Command proximity-switch drives a light and a fan servo from an ultrasonic
// range sensor and exposes both to a remote MQTT application.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/proximity-switch/internal/actuator"
	"github.com/sweeney/proximity-switch/internal/broker"
	"github.com/sweeney/proximity-switch/internal/config"
	"github.com/sweeney/proximity-switch/internal/control"
	"github.com/sweeney/proximity-switch/internal/gpio"
	"github.com/sweeney/proximity-switch/internal/logic"
	"github.com/sweeney/proximity-switch/internal/mqtt"
	"github.com/sweeney/proximity-switch/internal/netinfo"
	"github.com/sweeney/proximity-switch/internal/servo"
	"github.com/sweeney/proximity-switch/internal/status"
	"github.com/sweeney/proximity-switch/internal/web"
)

var (
	flagConfig        string
	flagPrintDistance bool
	flagLogLevel      string
	flagStatusURL     string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "proximity-switch",
		Short: "Ultrasonic proximity switch for a light and a fan",
		Long: `proximity-switch samples an HC-SR04 range sensor, smooths the readings and
flips a light servo when something stays in the near band or a fan servo when it
comes closer still. Both actuators can also be driven over MQTT.`,
		SilenceUsage: true,
		RunE:         runDaemon,
	}
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML config file (defaults when empty)")
	rootCmd.Flags().BoolVar(&flagPrintDistance, "print-distance", false, "Read the sensor once, print the distance and exit")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running daemon",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	statusCmd.Flags().StringVar(&flagStatusURL, "url", "http://localhost:8080/index.json", "Status endpoint of the daemon")
	rootCmd.AddCommand(statusCmd)

	return rootCmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)

	ctx, stop := signalContext()
	defer stop(nil)

	if err := run(ctx, cfg, flagPrintDistance); err != nil {
		log.Error().Err(err).Msg("Fatal")
		return err
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, printDistance bool) error {
	ranger, err := gpio.NewRealRanger(cfg.Sensor.Chip, cfg.Sensor.TriggerPin, cfg.Sensor.EchoPin, cfg.Sensor.Timeout.Duration())
	if err != nil {
		return fmt.Errorf("init ranger: %w", err)
	}
	defer ranger.Close()

	if printDistance {
		mm, err := ranger.ReadDistanceMM()
		if err != nil {
			return fmt.Errorf("read distance: %w", err)
		}
		fmt.Printf("%d mm\n", mm)
		return nil
	}

	drive, err := servo.Open(servo.Config{
		MinPulse: cfg.Actuators.MinPulse.Duration(),
		MaxPulse: cfg.Actuators.MaxPulse.Duration(),
	}, cfg.Actuators.LightPin, cfg.Actuators.FanPin)
	if err != nil {
		return fmt.Errorf("init servo: %w", err)
	}
	defer drive.Close()

	controller := actuator.NewController(drive, cfg.Actuators.Settle.Duration(), actuator.StandardProfiles(
		actuator.Positions{
			Home: cfg.Actuators.HomePosition,
			High: cfg.Actuators.HighPosition,
			Low:  cfg.Actuators.LowPosition,
		},
		cfg.Actuators.LightChannel,
		cfg.Actuators.FanChannel,
	))
	if err := controller.Home(); err != nil {
		return fmt.Errorf("home actuators: %w", err)
	}
	log.Info().Int("angle", cfg.Actuators.HomePosition).Msg("Actuators homed")

	brokerURL := cfg.MQTT.Broker
	if cfg.MQTT.EmbeddedBroker != "" {
		embedded, err := broker.New(cfg.MQTT.EmbeddedBroker)
		if err != nil {
			return fmt.Errorf("init embedded broker: %w", err)
		}
		if err := embedded.Start(); err != nil {
			return err
		}
		defer embedded.Close()
		brokerURL = embedded.URL()
	}

	session, err := mqtt.NewRealSession(mqtt.Options{
		Broker:         brokerURL,
		ClientID:       clientID(cfg.MQTT.ClientID),
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		TopicPrefix:    cfg.MQTT.TopicPrefix,
		InboxSize:      cfg.MQTT.InboxSize,
		ConnectTimeout: cfg.MQTT.ConnectTimeout.Duration(),
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer session.Close()

	network := netinfo.New(cfg.Network.Interface)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg, brokerURL))

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP status server listening")
	}

	loop := control.NewLoop(control.Config{
		Thresholds: thresholds(cfg),
		ReadCount:  cfg.Sensor.ReadCount,
		Heartbeat:  cfg.Loop.Heartbeat.Duration(),
		Binding:    binding(cfg.Telemetry),
	}, control.Deps{
		Ranger:     ranger,
		Session:    session,
		Controller: controller,
		Network:    network,
		Tracker:    tracker,
	})

	log.Info().
		Dur("interval", cfg.Loop.Interval.Duration()).
		Int("read_count", cfg.Sensor.ReadCount).
		Uint32("high_mm", cfg.Thresholds.HighTriggerMM).
		Uint32("low_mm", cfg.Thresholds.LowTriggerMM).
		Str("broker", brokerURL).
		Msg("Started")

	ticker := time.NewTicker(cfg.Loop.Interval.Duration())
	defer ticker.Stop()

	return loop.Run(ctx, ticker.C)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM with a control.Stop cause
// naming the signal.
func signalContext() (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigCh:
			log.Info().Str("signal", signalName(s)).Msg("Received signal")
			cancel(control.Stop{Reason: signalName(s)})
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// clientID returns the configured id or a unique one per process.
func clientID(configured string) string {
	if configured != "" {
		return configured
	}
	return "proximity-switch-" + uuid.NewString()[:8]
}

func thresholds(cfg *config.Config) logic.Thresholds {
	return logic.Thresholds{
		HighTriggerMM:  cfg.Thresholds.HighTriggerMM,
		LowTriggerMM:   cfg.Thresholds.LowTriggerMM,
		RejectMarginMM: cfg.Thresholds.RejectMarginMM,
		CooldownCycles: cfg.Thresholds.CooldownCycles,
	}
}

func binding(t config.TelemetryConfig) control.Binding {
	return control.Binding{
		control.ChannelLight:    t.Light,
		control.ChannelFan:      t.Fan,
		control.ChannelSignal:   t.Signal,
		control.ChannelAddress:  t.Address,
		control.ChannelSonicAvg: t.SonicAvg,
	}
}

func statusConfig(cfg *config.Config, brokerURL string) status.Config {
	return status.Config{
		LoopMs:         cfg.Loop.Interval.Duration().Milliseconds(),
		HeartbeatMs:    cfg.Loop.Heartbeat.Duration().Milliseconds(),
		SettleMs:       cfg.Actuators.Settle.Duration().Milliseconds(),
		ReadCount:      cfg.Sensor.ReadCount,
		HighTriggerMM:  cfg.Thresholds.HighTriggerMM,
		LowTriggerMM:   cfg.Thresholds.LowTriggerMM,
		RejectAboveMM:  cfg.RejectAboveMM(),
		CooldownCycles: cfg.Thresholds.CooldownCycles,
		Broker:         brokerURL,
		TopicPrefix:    cfg.MQTT.TopicPrefix,
		HTTPAddr:       cfg.HTTP.Addr,
	}
}
