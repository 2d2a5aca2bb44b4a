// Package readiness bridges a media item's asynchronous acquisition to the
// timeline items, and optionally the history command, that depend on it.
//
// A Synchronizer watches one media item for one command. When the media
// turns ready it updates the command's canonical data and transitions every
// still-loading dependent; when acquisition fails it marks the dependents
// as errored. A Manager keeps at most one Synchronizer per (media, command)
// pair. Callbacks are delivered through an Executor so they serialize with
// editing operations.
package readiness
