// Package timeline holds placed clips, their tracks, and the rebuild path
// that materializes a clip's rendering resource.
//
// ItemData is the canonical, serializable description of a clip. Item is
// the live instance built from it by a Rebuilder; only an Item may hold a
// Resource. TransitionToReady is the single place media properties flow
// into a clip, and only until the clip has been initialized once.
package timeline
