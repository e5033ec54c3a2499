// Package queryir provides the typed query descriptor that dapps submit
// through the sandbox.
//
// Dapps send dialect-agnostic descriptors as JSON:
//
//	{"table": "accounts", "fields": ["id"], "condition": {"id": {"$gt": 5}},
//	 "join": {"balances": {"type": "left", "on": {"accounts.id": "balances.account_id"}}}}
//
// Decode turns the payload into one of the sealed Query types (Select,
// Insert, Update, Remove). Rewrite then confines every table reference in
// the tree to the calling dapp by prefixing it with "dapp_<dappid>_".
//
// # Sealed interfaces
//
// Query and Predicate use the marker method pattern so that backends can
// switch exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	case *Insert:
//	case *Update:
//	case *Remove:
//	}
//
// # Rewriting rules
//
//   - Source.Table and every Join.Table are prefixed.
//   - Join.On references ("table.column") have their table part prefixed,
//     unless the join declares an alias. Aliased joins keep their On
//     references untouched; Rewrite reports them so callers can log it.
//   - Fields, group, sort and condition columns are never rewritten.
//
// Rewrite must run exactly once per descriptor: a second pass prefixes
// the names again.
package queryir
