// Package pdftext extracts the embedded text layer of a PDF statement,
// page by page. Statements that carry a real text layer never need to go
// through OCR; the pipeline only rasterizes when this package reports the
// text as unreadable.
package pdftext

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrNoTextLayer is returned when no readable text could be decoded from the
// document. Image-based scans and custom-font encodings both land here.
var ErrNoTextLayer = errors.New("pdf has no readable text layer")

// columnGap is the horizontal distance, in PDF units, above which two text
// fragments on the same row are treated as separate table columns.
const columnGap = 15

// ExtractPages returns the text of each page in the document. It prefers the
// library's row-grouped extraction and falls back to coordinate-based row
// reconstruction when that produces garbage.
func ExtractPages(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parsing crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, errors.New("pdf has no pages")
	}

	pages = extractByRow(r, numPages)
	if Readable(pages) {
		return pages, nil
	}

	pages = extractByPosition(r, numPages)
	if Readable(pages) {
		return pages, nil
	}

	if text := extractPlain(r); Readable([]string{text}) {
		return []string{text}, nil
	}

	return nil, ErrNoTextLayer
}

// extractByRow uses the library's built-in row grouping.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByPosition reconstructs rows from raw text fragments. Fragments are
// bucketed by Y coordinate, sorted left to right, and wide horizontal gaps
// become double spaces so downstream column splitting still works.
func extractByPosition(r *pdf.Reader, numPages int) []string {
	type fragment struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rows := make(map[int][]fragment)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], fragment{x: t.X, s: t.S})
		}

		// PDF Y runs bottom to top, so descending Y is top to bottom.
		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var lines []string
		for _, y := range ys {
			frags := rows[y]
			sort.Slice(frags, func(a, b int) bool { return frags[a].x < frags[b].x })

			var parts []string
			var prevX float64
			for j, frag := range frags {
				if j > 0 && frag.x-prevX > columnGap {
					parts = append(parts, "  ")
				}
				parts = append(parts, frag.s)
				prevX = frag.x
			}
			if line := strings.TrimSpace(strings.Join(parts, "")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func extractPlain(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Readable reports whether the extracted pages look like decoded statement
// text rather than binary garbage from an identity-encoded font. Requires a
// minimum amount of text and a high ratio of plausible characters.
func Readable(pages []string) bool {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if plausibleRune(r) {
				readable++
			}
		}
	}
	if total <= 50 {
		return false
	}
	return float64(readable)/float64(total) > 0.6
}

// plausibleRune accepts ASCII letters, digits, common statement punctuation,
// and the Arabic block. Accented Latin is deliberately excluded; it is the
// dominant symptom of garbled font encodings.
func plausibleRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	case r >= 0x0600 && r <= 0x06FF:
		return true
	}
	switch r {
	case '.', ',', '-', '/', ':', ';', '(', ')', '\'', '"',
		'$', '%', '&', '@', '#', '!', '?', '+', '=', '*', '|':
		return true
	}
	return false
}
