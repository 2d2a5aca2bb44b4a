package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result holds the stream and container fields the import path reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one entry of the ffprobe stream list.
type Stream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format is the container section of the ffprobe output.
type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

const entries = "stream=codec_type,width,height:format=duration,format_name"

// Inspect runs binary against path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_entries", entries, "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

func (r Result) streams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// Frames converts the container duration to a frame count at fps,
// rounding to the nearest frame. It returns false when no duration is known.
func (r Result) Frames(fps float64) (int64, bool) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) || fps <= 0 {
		return 0, false
	}
	return int64(math.Round(seconds * fps)), true
}

// Dimensions returns the size of the first video stream that reports one.
func (r Result) Dimensions() (int, int, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, true
		}
	}
	return 0, 0, false
}

// IsStillImage reports whether the probe describes a single-frame image
// container such as png or jpeg.
func (r Result) IsStillImage() bool {
	if r.streams("video") != 1 || r.streams("audio") != 0 {
		return false
	}
	name := strings.ToLower(r.Format.FormatName)
	for _, marker := range []string{"image2", "png_pipe", "jpeg_pipe", "webp_pipe", "gif"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
