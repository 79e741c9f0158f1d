// Package sqlite provides SQLite implementations of the store interfaces,
// for single-node deployments and hermetic tests. It uses the pure-Go
// modernc.org/sqlite driver, serializes access through one connection, and
// stores timestamps as Unix nanoseconds so ordering is exact.
package sqlite
