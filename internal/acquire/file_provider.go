package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/media/ffprobe"
	"cutline/internal/services"
)

// sniffLength is the header size filetype needs to match every known type.
const sniffLength = 261

// Prober inspects a media file.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, path string) (ffprobe.Result, error)

// Inspect calls f.
func (f ProberFunc) Inspect(ctx context.Context, path string) (ffprobe.Result, error) {
	return f(ctx, path)
}

// BinaryProber runs the ffprobe binary at the configured path.
func BinaryProber(binary string) Prober {
	return ProberFunc(func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, binary, path)
	})
}

// FileOptions configures a FileProvider.
type FileOptions struct {
	Prober      Prober
	FrameRate   int
	StillFrames int64
	Logger      *slog.Logger
}

// FileProvider imports local files.
type FileProvider struct {
	prober      Prober
	frameRate   int
	stillFrames int64
	logger      *slog.Logger
}

// NewFileProvider constructs a file import provider.
func NewFileProvider(opts FileOptions) *FileProvider {
	prober := opts.Prober
	if prober == nil {
		prober = BinaryProber("ffprobe")
	}
	fps := opts.FrameRate
	if fps <= 0 {
		fps = 30
	}
	still := opts.StillFrames
	if still <= 0 {
		still = int64(fps) * 5
	}
	return &FileProvider{
		prober:      prober,
		frameRate:   fps,
		stillFrames: still,
		logger:      logging.NewComponentLogger(opts.Logger, "file-provider"),
	}
}

func (p *FileProvider) Name() string { return media.ProviderFile }

func (p *FileProvider) Cancellable() bool { return true }

// Acquire stats, sniffs and probes the file. The returned handle keeps the
// file open for decoding until released.
func (p *FileProvider) Acquire(ctx context.Context, item media.Item, report PhaseFunc) (media.Result, error) {
	src, ok := item.Source.(media.FileSource)
	if !ok {
		return media.Result{}, services.Wrap(services.ErrValidation, "file-provider", "acquire", fmt.Sprintf("unsupported source %T", item.Source), nil)
	}
	path := strings.TrimSpace(src.Path)

	report("stat")
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return media.Result{}, services.Wrap(services.ErrMissing, "file-provider", "stat", path, err)
		}
		return media.Result{}, services.Wrap(services.ErrAcquisition, "file-provider", "stat", path, err)
	}
	if info.IsDir() {
		return media.Result{}, services.Wrap(services.ErrValidation, "file-provider", "stat", fmt.Sprintf("%s is a directory", path), nil)
	}

	report("sniff")
	file, err := os.Open(path)
	if err != nil {
		return media.Result{}, services.Wrap(services.ErrAcquisition, "file-provider", "open", path, err)
	}
	kind, err := sniffKind(file, path)
	if err != nil {
		_ = file.Close()
		return media.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		_ = file.Close()
		return media.Result{}, err
	}

	res := media.Result{Kind: kind, Handle: &FileHandle{File: file}}
	switch kind {
	case media.KindText:
		res.Duration, res.HasDuration = p.stillFrames, true
		return res, nil
	case media.KindUnknown:
		_ = file.Close()
		return media.Result{}, services.Wrap(services.ErrAcquisition, "file-provider", "sniff", fmt.Sprintf("unrecognised media type for %s", filepath.Base(path)), nil)
	}

	report("probe")
	probe, err := p.prober.Inspect(ctx, path)
	if err != nil {
		_ = file.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return media.Result{}, ctxErr
		}
		return media.Result{}, services.Wrap(services.ErrAcquisition, "file-provider", "probe", path, err)
	}
	if kind == media.KindVideo && probe.IsStillImage() {
		res.Kind = media.KindImage
	}
	if res.Kind.IsVisual() {
		if w, h, ok := probe.Dimensions(); ok {
			res.Width, res.Height = w, h
		}
	}
	if res.Kind.IsTimed() {
		frames, ok := probe.Frames(float64(p.frameRate))
		if !ok {
			_ = file.Close()
			return media.Result{}, services.Wrap(services.ErrAcquisition, "file-provider", "probe", fmt.Sprintf("no duration reported for %s", filepath.Base(path)), nil)
		}
		res.Duration, res.HasDuration = frames, true
	} else {
		res.Duration, res.HasDuration = p.stillFrames, true
	}

	p.logger.Debug("file probed",
		logging.String(logging.FieldMediaID, item.ID),
		logging.String("kind", string(res.Kind)),
		logging.Int64("duration_frames", res.Duration),
		logging.Int("width", res.Width),
		logging.Int("height", res.Height),
	)
	return res, nil
}

func sniffKind(file *os.File, path string) (media.Kind, error) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return media.KindUnknown, services.Wrap(services.ErrAcquisition, "file-provider", "sniff", path, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return media.KindUnknown, services.Wrap(services.ErrAcquisition, "file-provider", "sniff", path, err)
	}
	head = head[:n]
	switch {
	case filetype.IsVideo(head):
		return media.KindVideo, nil
	case filetype.IsAudio(head):
		return media.KindAudio, nil
	case filetype.IsImage(head):
		return media.KindImage, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".srt", ".vtt", ".md":
		return media.KindText, nil
	}
	return media.KindUnknown, nil
}

// FileHandle is the runtime handle of an imported file.
type FileHandle struct {
	File *os.File
}

// Release closes the underlying file.
func (h *FileHandle) Release() {
	if h == nil || h.File == nil {
		return
	}
	_ = h.File.Close()
	h.File = nil
}
