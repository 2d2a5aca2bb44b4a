// Package acquire drives media items through their acquisition pipelines.
//
// A Scheduler owns one Provider and runs at most N tasks at a time behind
// a FIFO admission gate. The scheduler is the only writer of media status:
// it moves items to processing, then to a terminal status once the
// provider returns, and removes the task entry unconditionally.
//
// A Registry routes submissions to the scheduler that owns an item's
// provider. FileProvider imports local files (stat, kind sniffing, ffprobe);
// RemoteProvider submits and polls a remote generation service.
package acquire
