// Package history implements undoable editing commands and the undo/redo
// stack that owns them.
//
// Commands keep only canonical data (timeline.ItemData, timeline.TrackData
// and original positions). Every Execute and Undo rebuilds live items from
// that data through a timeline.Rebuilder, finishing all rebuilds before the
// timeline is touched, so a failed rebuild leaves state unchanged. When a
// rebuilt item is still loading, the command arms a readiness
// synchronizer and later receives the decoded media through
// UpdateMediaData.
//
// Commands and History perform no locking; callers serialize access.
package history
