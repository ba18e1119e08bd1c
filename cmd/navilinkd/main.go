// NaviLink Core - NWP500 water heater monitor daemon
//
// This is the main entry point for the NaviLink client. It maintains a
// persistent authenticated channel to a single Navien NWP500 heat pump
// water heater through the vendor's AWS IoT broker, polls device status
// on an interval, and feeds normalized snapshots to the log and to the
// optional history and telemetry stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/navilink-core/internal/auth"
	"github.com/nerrad567/navilink-core/internal/connection"
	"github.com/nerrad567/navilink-core/internal/device"
	"github.com/nerrad567/navilink-core/internal/history"
	"github.com/nerrad567/navilink-core/internal/infrastructure/config"
	"github.com/nerrad567/navilink-core/internal/infrastructure/logging"
	"github.com/nerrad567/navilink-core/internal/status"
	"github.com/nerrad567/navilink-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// offlineMultiplier is how many missed polling intervals count as the
// device having gone quiet.
const offlineMultiplier = 3

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting NaviLink Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the credential provider from static config. Deployments that
	// refresh credentials swap in their own auth.Provider here.
	expiry, err := cfg.CredentialExpiry()
	if err != nil {
		return err
	}
	provider := auth.NewStaticProvider(auth.Credentials{
		AccessKeyID:     cfg.Credentials.AccessKeyID,
		SecretAccessKey: cfg.Credentials.SecretAccessKey,
		SessionToken:    cfg.Credentials.SessionToken,
		Expiry:          expiry,
	})

	identity, err := device.NewIdentity(
		cfg.Device.Type,
		cfg.Device.MACAddress,
		cfg.Device.GroupID,
		cfg.Device.UserID,
		cfg.Device.AdditionalValue,
	)
	if err != nil {
		return fmt.Errorf("building device identity: %w", err)
	}

	// Everything touching the device logs with its identifier attached.
	devLog := log.WithDevice(identity.DeviceID())

	// Open status history store (optional)
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer func() {
			log.Info("closing history store")
			if closeErr := store.Close(); closeErr != nil {
				log.Error("error closing history store", "error", closeErr)
			}
		}()
		log.Info("history store opened", "path", cfg.History.Path)
	} else {
		log.Info("history store disabled")
	}

	// Connect to InfluxDB (optional)
	var sink *telemetry.Sink
	if cfg.Telemetry.Enabled {
		sink, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := sink.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		sink.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// Build the connection manager
	manager, err := connection.NewManager(connection.Options{
		Identity: identity,
		Provider: provider,
		Broker:   cfg.Broker,
		Policy: connection.ReconnectPolicy{
			MaxRetries:   cfg.Reconnect.MaxRetries,
			InitialDelay: time.Duration(cfg.Reconnect.InitialDelay) * time.Second,
			MaxDelay:     time.Duration(cfg.Reconnect.MaxDelay) * time.Second,
			Multiplier:   cfg.Reconnect.BackoffMultiplier,
			Jitter:       cfg.Reconnect.Jitter,
		},
		Calibration:    status.Calibration{Offset: cfg.Status.CalibrationOffset},
		StatusBuffer:   cfg.Status.Buffer,
		CommandTimeout: cfg.GetCommandTimeout(),
		Logger:         devLog,
	})
	if err != nil {
		return fmt.Errorf("building connection manager: %w", err)
	}

	// Establish the broker session. Blocks through the retry budget.
	if err := manager.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer func() {
		devLog.Info("disconnecting from broker")
		if closeErr := manager.Disconnect(); closeErr != nil {
			devLog.Error("error disconnecting", "error", closeErr)
		}
	}()
	devLog.Info("broker session established", "endpoint", cfg.Broker.Endpoint)

	// Start status polling
	poller := connection.NewPoller(manager, devLog)
	if err := poller.Start(cfg.GetPollingInterval()); err != nil {
		return fmt.Errorf("starting poller: %w", err)
	}
	defer func() {
		devLog.Info("stopping poller")
		poller.Stop()
	}()
	devLog.Info("poller started", "interval", cfg.GetPollingInterval().String())

	// Consume the status channel until shutdown
	consumeStatus(ctx, manager, store, sink, identity.DeviceID(), cfg.GetPollingInterval(), devLog)

	log.Info("shutdown signal received, cleaning up")
	log.Info("NaviLink Core stopped")
	return nil
}

// consumeStatus drains the manager's status channel, feeding each
// snapshot to the log and the optional history/telemetry stores. It
// raises a warning when the device goes quiet for several polling
// intervals. Returns when ctx is cancelled or the channel closes.
func consumeStatus(
	ctx context.Context,
	manager *connection.Manager,
	store *history.Store,
	sink *telemetry.Sink,
	deviceID string,
	interval time.Duration,
	log *logging.Logger,
) {
	offlineAfter := interval * offlineMultiplier
	watchdog := time.NewTimer(offlineAfter)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case snapshot, ok := <-manager.Status():
			if !ok {
				return
			}
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(offlineAfter)

			log.Info("status received",
				"mode", snapshot.ModeLabel,
				"activity", snapshot.Activity,
				"dhw_temperature_f", snapshot.DHWTemperature,
				"target_f", snapshot.DHWTargetTemperatureSetting,
				"charge_percent", snapshot.ChargePercent,
				"power_watts", snapshot.PowerWatts,
			)

			if store != nil {
				if err := store.Record(ctx, deviceID, snapshot); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("recording status history", "error", err)
				}
			}
			if sink != nil {
				sink.WriteStatus(deviceID, snapshot)
			}

		case <-watchdog.C:
			log.Warn("no status received, device may be unreachable",
				"error", connection.ErrDeviceOffline,
				"quiet_for", offlineAfter.String(),
				"state", manager.State().String(),
			)
			watchdog.Reset(offlineAfter)
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses NAVILINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NAVILINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
