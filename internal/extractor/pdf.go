package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the PDF text layer page by page. Scanned pages without a
// text layer contribute nothing.
type PDFExtractor struct{}

func (PDFExtractor) Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var b strings.Builder
	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}
