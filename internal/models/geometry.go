package models

// NormalizedBox is an axis-aligned rectangle in page-relative coordinates.
// All values are in [0,1] relative to the page image width/height, with
// x1 <= x2 and y1 <= y2.
type NormalizedBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Clamp01 limits v to the [0,1] range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Normalize clamps the box into [0,1] and orders its corners.
func (b NormalizedBox) Normalize() NormalizedBox {
	out := NormalizedBox{
		X1: Clamp01(b.X1),
		Y1: Clamp01(b.Y1),
		X2: Clamp01(b.X2),
		Y2: Clamp01(b.Y2),
	}
	if out.X1 > out.X2 {
		out.X1, out.X2 = out.X2, out.X1
	}
	if out.Y1 > out.Y2 {
		out.Y1, out.Y2 = out.Y2, out.Y1
	}
	return out
}

// Union returns the smallest box covering both b and other.
func (b NormalizedBox) Union(other NormalizedBox) NormalizedBox {
	out := b
	if other.X1 < out.X1 {
		out.X1 = other.X1
	}
	if other.Y1 < out.Y1 {
		out.Y1 = other.Y1
	}
	if other.X2 > out.X2 {
		out.X2 = other.X2
	}
	if other.Y2 > out.Y2 {
		out.Y2 = other.Y2
	}
	return out
}

// CenterX returns the horizontal midpoint of the box.
func (b NormalizedBox) CenterX() float64 {
	return (b.X1 + b.X2) / 2
}

// CenterY returns the vertical midpoint of the box.
func (b NormalizedBox) CenterY() float64 {
	return (b.Y1 + b.Y2) / 2
}
