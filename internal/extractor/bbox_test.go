package extractor

import (
	"math"
	"testing"
)

const sampleBBoxXML = `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<body>
<doc>
<page width="612.000000" height="792.000000">
<flow>
<block xMin="72" yMin="70" xMax="540" yMax="90">
<line xMin="72" yMin="70" xMax="540" yMax="90">
<word xMin="72.0" yMin="70.0" xMax="120.0" yMax="82.0">01/15/2024</word>
<word xMin="200.0" yMin="70.0" xMax="280.0" yMax="82.0">COFFEE</word>
<word xMin="500.0" yMin="70.0" xMax="540.0" yMax="82.0">995.50</word>
</line>
</block>
</flow>
</page>
<page width="612.000000" height="792.000000">
</page>
</doc>
</body>
</html>`

func TestParseBBoxXML(t *testing.T) {
	pages, err := parseBBoxXML([]byte(sampleBBoxXML))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}

	first := pages[0]
	if len(first.Fragments) != 3 {
		t.Fatalf("got %d fragments, want 3", len(first.Fragments))
	}
	if first.Fragments[0].Text != "01/15/2024" {
		t.Errorf("first word: %q", first.Fragments[0].Text)
	}

	box := first.Fragments[0].Box
	if math.Abs(box.X1-72.0/612.0) > 1e-9 {
		t.Errorf("x1 not normalized: %f", box.X1)
	}
	if math.Abs(box.Y1-70.0/792.0) > 1e-9 {
		t.Errorf("y1 not normalized: %f", box.Y1)
	}
	if box.X2 <= box.X1 || box.Y2 <= box.Y1 {
		t.Errorf("degenerate box: %+v", box)
	}
	if first.Text != "01/15/2024 COFFEE 995.50" {
		t.Errorf("page text: %q", first.Text)
	}

	if len(pages[1].Fragments) != 0 {
		t.Errorf("empty page should have no fragments: %+v", pages[1])
	}
}

func TestParseBBoxXMLEmpty(t *testing.T) {
	if _, err := parseBBoxXML([]byte("<doc></doc>")); err == nil {
		t.Error("expected error for output without pages")
	}
}
