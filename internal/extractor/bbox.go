package extractor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/insightdelivered/statement-review/internal/models"
)

// extractWithBBoxLayout shells out to pdftotext -bbox-layout (poppler-utils)
// and parses its per-word bounding-box XML. Used when the Go library cannot
// decode the PDF's content streams.
func extractWithBBoxLayout(filePath string) ([]PageLayout, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	out, err := exec.Command("pdftotext", "-bbox-layout", filePath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	return parseBBoxXML(out)
}

// parseBBoxXML walks the <page>/<word> elements of pdftotext's XML output.
// Word coordinates are already top-down in page points.
func parseBBoxXML(data []byte) ([]PageLayout, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var pages []PageLayout
	var cur *PageLayout
	var curWord *models.NormalizedBox
	var textBuf strings.Builder
	var textParts []string

	flushPage := func() {
		if cur != nil {
			cur.Text = strings.Join(textParts, " ")
			pages = append(pages, *cur)
			textParts = nil
			cur = nil
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "page":
				flushPage()
				cur = &PageLayout{
					Width:  attrFloat(el, "width", letterWidth),
					Height: attrFloat(el, "height", letterHeight),
				}
			case "word":
				if cur == nil {
					continue
				}
				curWord = &models.NormalizedBox{
					X1: attrFloat(el, "xMin", 0),
					Y1: attrFloat(el, "yMin", 0),
					X2: attrFloat(el, "xMax", 0),
					Y2: attrFloat(el, "yMax", 0),
				}
				textBuf.Reset()
			}
		case xml.CharData:
			if curWord != nil {
				textBuf.Write(el)
			}
		case xml.EndElement:
			if el.Name.Local == "word" && curWord != nil && cur != nil {
				text := strings.TrimSpace(textBuf.String())
				if text != "" {
					box := models.NormalizedBox{
						X1: curWord.X1 / maxf(cur.Width, 1),
						Y1: curWord.Y1 / maxf(cur.Height, 1),
						X2: curWord.X2 / maxf(cur.Width, 1),
						Y2: curWord.Y2 / maxf(cur.Height, 1),
					}
					cur.Fragments = append(cur.Fragments, models.OcrFragment{
						Box:  box.Normalize(),
						Text: text,
					})
					textParts = append(textParts, text)
				}
				curWord = nil
			}
		}
	}
	flushPage()

	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no pages")
	}
	return pages, nil
}

func attrFloat(el xml.StartElement, name string, fallback float64) float64 {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			if v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64); err == nil {
				return v
			}
		}
	}
	return fallback
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
