// Package respcache memoizes remote responses as JSON under deterministic keys.
//
// Keys come from a Pattern with {name} placeholders filled from call
// parameters. Memoize returns a stored value when one exists and otherwise
// runs the wrapped call and stores its result; Once does the same while
// holding a per-key lock so side-effecting creates (job submissions, uploads)
// happen at most once per key even across processes. Entries are never
// expired.
//
// Storage is pluggable: one JSON file per key (the default), a SQLite table,
// a Badger directory, or memory for tests.
package respcache
