// Package ffprobe runs ffprobe and decodes the few fields the file-import
// provider needs: stream kinds, primary video dimensions and the container
// duration converted to frames.
package ffprobe
