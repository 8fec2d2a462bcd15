// Package database provides SQLite-based storage for listingscan run history.
//
// RecordDB stores:
//   - One row per run with its site, target, timing and collector counts
//   - The retained records of each run, in collection order
//
// SQLite is provided by modernc.org/sqlite, a CGO-free driver, so the
// history database is a single file under the XDG data directory and the
// binary cross-compiles without a C toolchain.
package database
