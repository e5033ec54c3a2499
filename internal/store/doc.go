// Package store is the database handle the gateway executes against.
//
// It wraps a *sql.DB opened through lib/pq (postgres) or go-sqlite3
// (sqlite3) and exposes two calls: Query, which materializes result rows
// as column-keyed maps, and Exec, which reports rows affected.
//
// # Database Configuration
//
// SQLite connections get the same pragmas on every open:
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Enforce referential integrity
//
// Postgres connections are used as configured by the DSN.
package store
