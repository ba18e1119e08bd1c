package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/navilink-core/internal/infrastructure/config"
	"github.com/nerrad567/navilink-core/internal/status"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// millisecondsPerSecond converts seconds to milliseconds for the
	// InfluxDB API.
	millisecondsPerSecond = 1000
)

// Sink wraps the InfluxDB v2 client for status telemetry.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Write operations are non-blocking and batched.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.TelemetryConfig

	connected bool
	mu        sync.RWMutex

	// onError is called when async write errors occur.
	onError func(err error)
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Creates the client with token authentication
//  2. Verifies connectivity with a ping
//  3. Configures the non-blocking write API with batching
//  4. Sets up the error callback for async write failures
//
// Parameters:
//   - cfg: Telemetry configuration from config.yaml
//
// Returns:
//   - *Sink: Connected sink ready for WriteStatus
//   - error: If telemetry is disabled or connection fails
func Connect(cfg config.TelemetryConfig) (*Sink, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	s := &Sink{
		client:    client,
		writeAPI:  writeAPI,
		cfg:       cfg,
		connected: true,
	}

	errorsCh := writeAPI.Errors()
	go s.handleWriteErrors(errorsCh)

	return s, nil
}

// handleWriteErrors processes async write errors from the WriteAPI.
func (s *Sink) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		s.mu.RLock()
		callback := s.onError
		s.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// WriteStatus records one normalized status snapshot.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Temperatures, power, and charge go in as fields; mode and activity
// labels as tags for cheap filtering.
//
// Parameters:
//   - deviceID: Device identifier (e.g. "navilink-04786332fca0")
//   - snapshot: Normalized status to record
func (s *Sink) WriteStatus(deviceID string, snapshot status.DeviceStatus) {
	if !s.IsConnected() {
		return
	}

	point := write.NewPoint(
		"water_heater_status",
		map[string]string{
			"device_id": deviceID,
			"mode":      snapshot.ModeLabel,
			"activity":  string(snapshot.Activity),
		},
		map[string]interface{}{
			"dhw_temperature_f":      snapshot.DHWTemperature,
			"dhw_target_f":           snapshot.DHWTargetTemperatureSetting,
			"cold_inlet_f":           snapshot.ColdInletTemperature,
			"heat_pump_ambient_f":    snapshot.HeatPumpAmbientTemperature,
			"ambient_f":              snapshot.AmbientTemperature,
			"outside_f":              snapshot.OutsideTemperature,
			"power_watts":            snapshot.PowerWatts,
			"charge_percent":         snapshot.ChargePercent,
			"dhw_in_use":             snapshot.DHWInUse,
			"electric_backup":        snapshot.ElectricBackupActive,
			"error_code":             snapshot.ErrorCode,
			"wifi_rssi":              snapshot.WifiRSSI,
			"flow_rate_gpm":          snapshot.FlowRate,
			"compressor_status_code": int(snapshot.Compressor),
			"heating_element_code":   int(snapshot.HeatingElement),
		},
		snapshot.ReceivedAt,
	)

	s.writeAPI.WritePoint(point)
}

// HealthCheck verifies the InfluxDB connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Sink) HealthCheck(ctx context.Context) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := s.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("telemetry health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("telemetry health check failed: server not healthy")
	}
	return nil
}

// IsConnected returns the last known connection state. For a live
// answer use HealthCheck, which performs an active ping.
func (s *Sink) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SetOnError sets a callback invoked when async write errors occur.
func (s *Sink) SetOnError(callback func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = callback
}

// Flush forces all pending writes to be sent. Blocks until the buffer
// drains. Safe to call after Close (no-op).
func (s *Sink) Flush() {
	if s.writeAPI == nil {
		return
	}

	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()

	if !connected {
		return
	}
	s.writeAPI.Flush()
}

// Close flushes pending writes and shuts the client down.
func (s *Sink) Close() error {
	if s.client == nil {
		return nil
	}

	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	s.writeAPI.Flush()
	s.client.Close()
	return nil
}
