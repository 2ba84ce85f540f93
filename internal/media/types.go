package media

import "strings"

// Kind is the delivery category of a resolved resource.
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// DefaultContentType is assumed when the resolver declares no content type.
const DefaultContentType = "application/octet-stream"

// Default upload filenames. The source filename is never known.
const (
	PhotoFilename    = "photo.jpg"
	VideoFilename    = "video.mp4"
	DocumentFilename = "file.bin"
)

// Classify maps a declared content type to a Kind. Matching is by substring
// in a fixed order: "image" wins over "video", and anything else is a
// document.
func Classify(contentType string) Kind {
	switch {
	case strings.Contains(contentType, "image"):
		return KindPhoto
	case strings.Contains(contentType, "video"):
		return KindVideo
	default:
		return KindDocument
	}
}

// Filename returns the default upload filename for k.
func (k Kind) Filename() string {
	switch k {
	case KindPhoto:
		return PhotoFilename
	case KindVideo:
		return VideoFilename
	default:
		return DocumentFilename
	}
}

func (k Kind) String() string {
	return string(k)
}

// Resource is a resolved file held in memory between resolution and delivery.
type Resource struct {
	Data        []byte
	ContentType string
}

// Kind classifies the resource by its declared content type.
func (r Resource) Kind() Kind {
	return Classify(r.ContentType)
}

// EffectiveContentType returns the declared content type, or
// DefaultContentType when none was declared.
func (r Resource) EffectiveContentType() string {
	ct := strings.TrimSpace(r.ContentType)
	if ct == "" {
		return DefaultContentType
	}
	return ct
}
