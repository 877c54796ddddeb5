// Package catalog persists slice records in SQLite and supplies the queries
// the migration and transcription pipelines run against them.
//
// A slice is one unit of managed content: a migrated audio recording (or a
// manually entered text item) plus its transcription state. The store
// enforces filename uniqueness, performs atomic transcription writes, and
// carries a side table of original recording timestamps imported from the
// source tree's metadata index.
//
// The store tolerates concurrent readers; batch writers are expected to hold
// the run lock so only one mutating batch touches the database at a time.
package catalog
