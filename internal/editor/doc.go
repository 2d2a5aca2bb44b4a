// Package editor assembles the editing core into a Session.
//
// A Session owns the media library, one acquisition scheduler per
// provider, the timeline, the undo/redo history and the readiness
// manager. Every timeline and history mutation, including readiness
// callbacks arriving from acquisition goroutines, runs under the
// session lock.
package editor
