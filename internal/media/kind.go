package media

import "strings"

// Kind identifies the type of content a media item carries.
type Kind string

const (
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindImage   Kind = "image"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

// ParseKind converts a string into a Kind, defaulting to KindUnknown.
func ParseKind(value string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindVideo:
		return KindVideo
	case KindAudio:
		return KindAudio
	case KindImage:
		return KindImage
	case KindText:
		return KindText
	default:
		return KindUnknown
	}
}

// IsVisual reports whether the kind carries decoded pixel dimensions.
func (k Kind) IsVisual() bool {
	return k == KindVideo || k == KindImage
}

// IsTimed reports whether the kind carries an intrinsic duration.
func (k Kind) IsTimed() bool {
	return k == KindVideo || k == KindAudio
}
