// Package history persists normalized status snapshots to SQLite for
// local trend inspection.
//
// Each snapshot is stored as a JSON blob keyed by device and
// timestamp. The store is optional: the daemon feeds it from the
// status channel only when history is enabled in configuration.
package history
