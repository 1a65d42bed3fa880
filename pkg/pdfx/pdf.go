// Package pdfx extracts plain text from scanned-volume PDFs page by page.
package pdfx

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// FileSizeMB reports the size of a file in megabytes.
func FileSizeMB(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return float64(info.Size()) / (1024 * 1024), nil
}

// ExtractPages reads up to maxPages pages of text from a PDF. Pages that
// fail to decode become empty strings so page numbering stays aligned with
// the document. The second return value is the total page count of the file.
func ExtractPages(path string, maxPages int) ([]string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	n := total
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, total, nil
}
