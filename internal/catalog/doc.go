// Package catalog persists media acquisition results in SQLite.
//
// The catalog is a record of what has been imported. Writes are
// best-effort from the editor's point of view: the in-memory media
// library stays authoritative and nothing rolls back when a write fails.
// A file lock next to the database keeps a single writer per data
// directory.
package catalog
