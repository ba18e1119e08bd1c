// Package telemetry ships normalized status snapshots to InfluxDB.
//
// Writes are non-blocking and batched by the InfluxDB client's write
// API; failures surface through an asynchronous error callback rather
// than blocking the status consumer. The sink is optional and only
// constructed when telemetry is enabled in configuration.
package telemetry
