// Package gateway is the namespaced SQL surface dapps call into.
//
// A Gateway turns descriptor requests into SQL confined to the calling
// dapp's tables ("dapp_<dappid>_<name>") and runs them:
//
//   - Query: select, insert, update and remove descriptors, parameterized
//   - Batch: chunked multi-row inserts with inlined, escaped values
//   - CreateTables / DropTables: the dapp schema lifecycle
//
// # Errors
//
// Failures detected before any statement runs come back as they are
// (see IsBuildError). Database failures are logged with the statement and
// driver error under a fresh reference, and the caller only receives a
// generic *Error naming that reference (see IsExecutionError).
//
// # Concurrency
//
// A Gateway is safe for concurrent use. Within one call, batch chunks and
// schema entries run strictly one after another; nothing is wrapped in a
// transaction, so a failure leaves earlier work applied.
package gateway
