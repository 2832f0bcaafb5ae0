// Package store is the SQLite delivery log for scenario runs.
//
// Two tables:
//   - runs: one row per scenario execution (id, scenario, pass, errors)
//   - deliveries: one row per task result within a run
//
// Writes are idempotent (ON CONFLICT DO NOTHING). Reads order deliveries by
// start_seq, then task name, so output is stable for the same run.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: deliveries must reference a recorded run
//
// Values and message lists are stored as RFC 8785 canonical JSON.
package store
