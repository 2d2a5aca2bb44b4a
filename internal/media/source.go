package media

import (
	"encoding/json"
	"fmt"
)

// Provider names route items to their acquisition scheduler.
const (
	ProviderFile   = "file"
	ProviderRemote = "remote"
)

// Origin tags how an item entered the project.
type Origin string

const (
	OriginImport    Origin = "import"
	OriginGenerated Origin = "generated"
)

// Source describes where a media item is acquired from.
type Source interface {
	Provider() string
	Origin() Origin
	isSource()
}

// FileSource is a local file imported by the user.
type FileSource struct {
	Path string `json:"path"`
}

func (FileSource) Provider() string { return ProviderFile }
func (FileSource) Origin() Origin   { return OriginImport }
func (FileSource) isSource()        {}

// RemoteSource is an asset rendered by a remote generation service.
type RemoteSource struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
}

func (RemoteSource) Provider() string { return ProviderRemote }
func (RemoteSource) Origin() Origin   { return OriginGenerated }
func (RemoteSource) isSource()        {}

type sourceEnvelope struct {
	Type   string          `json:"type"`
	Source json.RawMessage `json:"source"`
}

// EncodeSource serializes a source with its provider tag.
func EncodeSource(src Source) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("encode source: nil source")
	}
	payload, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode source: %w", err)
	}
	return json.Marshal(sourceEnvelope{Type: src.Provider(), Source: payload})
}

// DecodeSource restores a source serialized by EncodeSource.
func DecodeSource(data []byte) (Source, error) {
	var env sourceEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	switch env.Type {
	case ProviderFile:
		var src FileSource
		if err := json.Unmarshal(env.Source, &src); err != nil {
			return nil, fmt.Errorf("decode file source: %w", err)
		}
		return src, nil
	case ProviderRemote:
		var src RemoteSource
		if err := json.Unmarshal(env.Source, &src); err != nil {
			return nil, fmt.Errorf("decode remote source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("decode source: unknown provider %q", env.Type)
	}
}
