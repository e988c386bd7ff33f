// Package extractor turns a text-layer PDF into spatially positioned text
// fragments in normalized page coordinates, the same shape an external OCR
// service produces. It is not OCR: image-only PDFs yield nothing here and go
// through the OCR collaborator instead.
package extractor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-review/internal/models"
)

// PageLayout is one page's extracted word layout.
type PageLayout struct {
	Width     float64
	Height    float64
	Fragments []models.OcrFragment
	Text      string
}

// letterWidth/letterHeight are the US Letter fallback when a page carries no
// readable MediaBox.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// ExtractLayout reads every page of a text-layer PDF and returns positioned
// fragments normalized to [0,1], y-axis top-down. Falls back to the external
// pdftotext tool when the library yields nothing.
func ExtractLayout(filePath string) ([]PageLayout, error) {
	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil && hasFragments(pages) {
		return pages, nil
	}

	bboxPages, bboxErr := extractWithBBoxLayout(filePath)
	if bboxErr == nil && hasFragments(bboxPages) {
		return bboxPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF layout extraction failed: %w (the file may be image-based or scanned; run it through OCR instead)", libErr)
	}
	return nil, fmt.Errorf("no positioned text found in PDF; the file may be image-based or scanned")
}

func hasFragments(pages []PageLayout) bool {
	for _, p := range pages {
		if len(p.Fragments) > 0 {
			return true
		}
	}
	return false
}

// extractWithLibrary walks each page's content stream, groups glyph runs
// into words, and normalizes their boxes against the page MediaBox.
func extractWithLibrary(filePath string) (pages []PageLayout, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, PageLayout{Width: letterWidth, Height: letterHeight})
			continue
		}
		pages = append(pages, layoutFromContent(page))
	}
	return pages, nil
}

func layoutFromContent(page pdf.Page) PageLayout {
	width, height := pageSize(page)
	out := PageLayout{Width: width, Height: height}

	content := page.Content()
	if len(content.Text) == 0 {
		return out
	}

	// Group glyph runs into visual lines by rounded baseline Y.
	lines := make(map[int][]pdf.Text)
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		yKey := int(math.Round(t.Y))
		lines[yKey] = append(lines[yKey], t)
	}

	var textParts []string
	yKeys := make([]int, 0, len(lines))
	for y := range lines {
		yKeys = append(yKeys, y)
	}
	// PDF Y grows bottom-up; emit top rows first.
	sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

	for _, y := range yKeys {
		runs := lines[y]
		sort.Slice(runs, func(a, b int) bool { return runs[a].X < runs[b].X })

		for _, word := range mergeRuns(runs) {
			frag := word.normalized(width, height)
			if frag.Text == "" {
				continue
			}
			out.Fragments = append(out.Fragments, frag)
			textParts = append(textParts, frag.Text)
		}
	}

	out.Text = strings.Join(textParts, " ")
	return out
}

// wordRun is an unnormalized word in PDF point coordinates.
type wordRun struct {
	x1, x2   float64
	baseline float64
	fontSize float64
	text     string
}

func (w wordRun) normalized(pageW, pageH float64) models.OcrFragment {
	if pageW <= 0 {
		pageW = letterWidth
	}
	if pageH <= 0 {
		pageH = letterHeight
	}
	// Flip the bottom-up baseline into a top-down box; pad a quarter of the
	// font size below the baseline for descenders.
	top := pageH - w.baseline - w.fontSize
	bottom := pageH - w.baseline + w.fontSize*0.25
	box := models.NormalizedBox{
		X1: w.x1 / pageW,
		Y1: top / pageH,
		X2: w.x2 / pageW,
		Y2: bottom / pageH,
	}
	return models.OcrFragment{
		Box:  box.Normalize(),
		Text: strings.TrimSpace(w.text),
	}
}

// mergeRuns joins adjacent glyph runs on one line into words, splitting
// where the horizontal gap exceeds a third of the font size.
func mergeRuns(runs []pdf.Text) []wordRun {
	var words []wordRun
	for _, t := range runs {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		gapLimit := size / 3

		if n := len(words); n > 0 && t.X-words[n-1].x2 <= gapLimit {
			w := &words[n-1]
			w.text += t.S
			if end := t.X + t.W; end > w.x2 {
				w.x2 = end
			}
			if size > w.fontSize {
				w.fontSize = size
			}
			continue
		}
		words = append(words, wordRun{
			x1:       t.X,
			x2:       t.X + t.W,
			baseline: t.Y,
			fontSize: size,
			text:     t.S,
		})
	}

	// Drop words that collapsed to whitespace after merging.
	out := words[:0]
	for _, w := range words {
		if strings.TrimSpace(w.text) != "" {
			out = append(out, w)
		}
	}
	return out
}

func pageSize(page pdf.Page) (float64, float64) {
	mediaBox := page.V.Key("MediaBox")
	if mediaBox.Len() == 4 {
		x1 := mediaBox.Index(0).Float64()
		y1 := mediaBox.Index(1).Float64()
		x2 := mediaBox.Index(2).Float64()
		y2 := mediaBox.Index(3).Float64()
		w := math.Abs(x2 - x1)
		h := math.Abs(y2 - y1)
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return letterWidth, letterHeight
}
