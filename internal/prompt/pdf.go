package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor turns a PDF document into per-page plain text.
type PDFExtractor interface {
	ExtractPages(data []byte, progress func(page, total int)) ([]string, error)
}

// PlainPDF is the default PDFExtractor.
type PlainPDF struct{}

// ExtractPages reads every page's plain text in order. Pages without a
// content stream yield "".
func (PlainPDF) ExtractPages(data []byte, progress func(page, total int)) (pages []string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := r.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
		if progress != nil {
			progress(i, total)
		}
	}
	return pages, nil
}
