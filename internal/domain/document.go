package domain

import (
	"context"
	"path/filepath"
	"strings"
)

// FileKind is the document format an extractor understands.
type FileKind int

const (
	FileKindUnknown FileKind = iota
	FileKindPDF
	FileKindPPTX
)

func (k FileKind) String() string {
	switch k {
	case FileKindPDF:
		return "pdf"
	case FileKindPPTX:
		return "pptx"
	default:
		return "unknown"
	}
}

// FileKindFromName resolves the kind from the file extension.
func FileKindFromName(filename string) FileKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "pdf":
		return FileKindPDF
	case "pptx", "ppt":
		return FileKindPPTX
	default:
		return FileKindUnknown
	}
}

// UploadedDocument is the transient upload held only until extraction finishes.
type UploadedDocument struct {
	Data     []byte
	MIMEType string
	Filename string
}

func (d *UploadedDocument) Size() int64 {
	return int64(len(d.Data))
}

// ExtractedText is the normalized document text plus where the original was stored.
type ExtractedText struct {
	RawText   string
	SourceURL string
	Kind      FileKind
}

// ObjectStorage stores uploaded originals.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	PublicURL(path string) string
}
