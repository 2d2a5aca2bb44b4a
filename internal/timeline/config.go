package timeline

import (
	"encoding/json"
	"fmt"

	"cutline/internal/media"
)

// Config is the kind-specific, user-editable clip configuration. The set
// of implementations is closed: VideoConfig, AudioConfig, ImageConfig and
// TextConfig.
type Config interface {
	Kind() media.Kind
	isConfig()
}

// Visual holds placement shared by every visual kind.
type Visual struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

type VideoConfig struct {
	Visual
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

type AudioConfig struct {
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

type ImageConfig struct {
	Visual
}

type TextConfig struct {
	Visual
	Content  string  `json:"content"`
	FontSize float64 `json:"font_size"`
	Color    string  `json:"color"`
}

func (VideoConfig) Kind() media.Kind { return media.KindVideo }
func (AudioConfig) Kind() media.Kind { return media.KindAudio }
func (ImageConfig) Kind() media.Kind { return media.KindImage }
func (TextConfig) Kind() media.Kind  { return media.KindText }

func (VideoConfig) isConfig() {}
func (AudioConfig) isConfig() {}
func (ImageConfig) isConfig() {}
func (TextConfig) isConfig()  {}

// Defaults seeds new clips before their media is known.
type Defaults struct {
	Width       int
	Height      int
	StillFrames int64
}

// DefaultConfig returns the starting configuration for a kind, or nil for
// media whose kind has not been detected yet.
func DefaultConfig(kind media.Kind, d Defaults) Config {
	visual := Visual{Width: d.Width, Height: d.Height, Opacity: 1}
	switch kind {
	case media.KindVideo:
		return VideoConfig{Visual: visual, Volume: 1}
	case media.KindAudio:
		return AudioConfig{Volume: 1}
	case media.KindImage:
		return ImageConfig{Visual: visual}
	case media.KindText:
		return TextConfig{Visual: visual, FontSize: 48, Color: "#ffffff"}
	default:
		return nil
	}
}

// VisualOf returns the visual placement of a config, if it has one.
func VisualOf(cfg Config) (Visual, bool) {
	switch c := cfg.(type) {
	case VideoConfig:
		return c.Visual, true
	case ImageConfig:
		return c.Visual, true
	case TextConfig:
		return c.Visual, true
	default:
		return Visual{}, false
	}
}

// WithVisual replaces the visual placement of a config. Configs without
// placement are returned unchanged.
func WithVisual(cfg Config, v Visual) Config {
	switch c := cfg.(type) {
	case VideoConfig:
		c.Visual = v
		return c
	case ImageConfig:
		c.Visual = v
		return c
	case TextConfig:
		c.Visual = v
		return c
	default:
		return cfg
	}
}

func withDimensions(cfg Config, width, height int) Config {
	v, ok := VisualOf(cfg)
	if !ok || width <= 0 || height <= 0 {
		return cfg
	}
	v.Width, v.Height = width, height
	return WithVisual(cfg, v)
}

func decodeConfig(kind media.Kind, raw json.RawMessage) (Config, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var (
		cfg Config
		err error
	)
	switch kind {
	case media.KindVideo:
		var c VideoConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case media.KindAudio:
		var c AudioConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case media.KindImage:
		var c ImageConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case media.KindText:
		var c TextConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	default:
		return nil, fmt.Errorf("decode config: kind %q carries no config", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s config: %w", kind, err)
	}
	return cfg, nil
}
