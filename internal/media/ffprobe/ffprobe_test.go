package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFramesAndDimensions(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio"},
			{CodecType: "video", Width: 1280, Height: 720},
		},
		Format: Format{Duration: "2.5"},
	}
	frames, ok := result.Frames(30)
	if !ok || frames != 75 {
		t.Fatalf("Frames(30) = %d, %v", frames, ok)
	}
	w, h, ok := result.Dimensions()
	if !ok || w != 1280 || h != 720 {
		t.Fatalf("Dimensions() = %d x %d, %v", w, h, ok)
	}
}

func TestFramesRejectsUnusableDurations(t *testing.T) {
	for _, duration := range []string{"", "nope", "0", "-3", "N/A"} {
		if _, ok := (Result{Format: Format{Duration: duration}}).Frames(30); ok {
			t.Fatalf("duration %q should not yield frames", duration)
		}
	}
	if _, ok := (Result{Format: Format{Duration: "2"}}).Frames(0); ok {
		t.Fatal("zero frame rate should not yield frames")
	}
}

func TestIsStillImage(t *testing.T) {
	png := Result{Streams: []Stream{{CodecType: "video"}}, Format: Format{FormatName: "png_pipe"}}
	if !png.IsStillImage() {
		t.Fatal("expected png to be a still image")
	}
	mp4 := Result{Streams: []Stream{{CodecType: "video"}, {CodecType: "audio"}}, Format: Format{FormatName: "mov,mp4,m4a"}}
	if mp4.IsStillImage() {
		t.Fatal("mp4 is not a still image")
	}
}

func TestInspectDecodesOutput(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	body := "#!/bin/sh\necho '{\"streams\":[{\"codec_type\":\"video\",\"width\":640,\"height\":480}],\"format\":{\"duration\":\"4.0\",\"format_name\":\"mov,mp4\"}}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	result, err := Inspect(context.Background(), script, "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if frames, ok := result.Frames(25); !ok || frames != 100 {
		t.Fatalf("Frames(25) = %d, %v", frames, ok)
	}
	if w, h, ok := result.Dimensions(); !ok || w != 640 || h != 480 {
		t.Fatalf("Dimensions() = %d x %d, %v", w, h, ok)
	}

	failing := filepath.Join(dir, "broken")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\necho 'bad input' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if _, err := Inspect(context.Background(), failing, "/tmp/clip.mp4"); err == nil {
		t.Fatal("expected error from failing binary")
	}
	if _, err := Inspect(context.Background(), script, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
