// Package extractor validates uploaded documents, pulls their text layer and
// stores the original file.
package extractor

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"glauk-api/internal/domain"
	"glauk-api/internal/util"

	"go.uber.org/zap"
)

// DefaultMaxFileSize is the upload limit used when none is configured.
const DefaultMaxFileSize int64 = 32 << 20

var allowedMIMETypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-powerpoint":                                            true,
	"application/vnd.ms-powerpoint.presentation.macroEnabled.12":               true,
	"application/pptx": true,
}

var storageFolders = map[domain.FileKind]string{
	domain.FileKindPDF:  "glauk-pdfs",
	domain.FileKindPPTX: "glauk-pptx",
}

var contentTypes = map[domain.FileKind]string{
	domain.FileKindPDF:  "application/pdf",
	domain.FileKindPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// TextExtractor pulls plain text out of one document format.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// Service validates, extracts and uploads documents.
type Service struct {
	extractors map[domain.FileKind]TextExtractor
	storage    domain.ObjectStorage
	maxSize    int64
	logger     *zap.Logger
	randomCode func(n int) (string, error)
}

func NewService(storage domain.ObjectStorage, maxSize int64, logger *zap.Logger) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractors: map[domain.FileKind]TextExtractor{
			domain.FileKindPDF:  PDFExtractor{},
			domain.FileKindPPTX: PPTXExtractor{},
		},
		storage:    storage,
		maxSize:    maxSize,
		logger:     logger,
		randomCode: util.RandomHex,
	}
}

// Validate checks emptiness, size and type, in that order, and returns the file kind.
func (s *Service) Validate(doc *domain.UploadedDocument) (domain.FileKind, error) {
	if doc == nil || len(doc.Data) == 0 {
		return domain.FileKindUnknown, domain.NewBadInputError("file is empty")
	}
	if doc.Size() > s.maxSize {
		return domain.FileKindUnknown, domain.NewPayloadTooLargeError(doc.Size(), s.maxSize)
	}

	mediaType, _, err := mime.ParseMediaType(doc.MIMEType)
	if err != nil || !allowedMIMETypes[mediaType] {
		return domain.FileKindUnknown, domain.NewUnsupportedMediaTypeError(doc.MIMEType)
	}

	kind := domain.FileKindFromName(doc.Filename)
	if kind == domain.FileKindUnknown {
		return kind, domain.NewUnsupportedMediaTypeError(filepath.Ext(doc.Filename))
	}
	if (mediaType == "application/pdf") != (kind == domain.FileKindPDF) {
		return domain.FileKindUnknown, domain.NewUnsupportedMediaTypeError(doc.MIMEType).
			WithContext("filename", doc.Filename)
	}
	return kind, nil
}

// Extract returns the normalized text and the public URL of the stored
// original. The upload is attempted once.
func (s *Service) Extract(ctx context.Context, doc *domain.UploadedDocument, requester string) (*domain.ExtractedText, error) {
	kind, err := s.Validate(doc)
	if err != nil {
		return nil, err
	}

	text, err := s.extractText(kind, doc.Data)
	if err != nil {
		s.logger.Warn("Text extraction failed",
			zap.String("filename", doc.Filename),
			zap.String("kind", kind.String()),
			zap.Error(err))
		return nil, domain.NewExtractionFailedError("could not read document text", err)
	}
	text = Normalize(text)
	if text == "" {
		return nil, domain.NewExtractionFailedError("document contains no extractable text", nil)
	}

	path, err := s.objectPath(kind, doc.Filename, requester)
	if err != nil {
		return nil, domain.NewInternalError("failed to build storage path", err)
	}
	storedPath, err := s.storage.Upload(ctx, path, doc.Data, contentTypes[kind])
	if err != nil {
		s.logger.Error("Document upload failed", zap.String("path", path), zap.Error(err))
		return nil, domain.NewStorageUploadFailedError(err)
	}

	s.logger.Info("Document extracted",
		zap.String("path", storedPath),
		zap.String("kind", kind.String()),
		zap.Int("text_bytes", len(text)))

	return &domain.ExtractedText{
		RawText:   text,
		SourceURL: s.storage.PublicURL(storedPath),
		Kind:      kind,
	}, nil
}

func (s *Service) extractText(kind domain.FileKind, data []byte) (text string, err error) {
	extractor, ok := s.extractors[kind]
	if !ok {
		return "", fmt.Errorf("no extractor for %s", kind)
	}
	// the PDF reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return extractor.Extract(data)
}

func (s *Service) objectPath(kind domain.FileKind, filename, requester string) (string, error) {
	code, err := s.randomCode(5)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return fmt.Sprintf("%s/%s-%s.%s", storageFolders[kind], sanitizeName(requester), code, ext), nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
}
