// Package media models imported and generated assets and their acquisition
// state machine.
//
// Key types:
//   - Item: a media asset snapshot (kind, status, duration, dimensions, source)
//   - Status: pending, processing, ready, error, cancelled, missing
//   - Source: sealed provider-specific origin (FileSource, RemoteSource)
//   - Library: the in-memory media collection with status subscriptions
//
// Only an acquisition scheduler drives status transitions; every other
// component reads snapshots or subscribes for terminal notifications.
package media
