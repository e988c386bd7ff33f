package layout

import (
	"math"
	"testing"

	"github.com/insightdelivered/statement-review/internal/models"
)

func widthSum(l Layout) float64 {
	sum := 0.0
	for _, col := range l {
		sum += col.Width
	}
	return sum
}

func TestDefaultLayout(t *testing.T) {
	l := Default()

	if len(l) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(l))
	}
	want := []models.ColumnRole{
		models.RoleDate, models.RoleDescription,
		models.RoleDebit, models.RoleCredit, models.RoleBalance,
	}
	for i, role := range want {
		if l[i].Key != role {
			t.Errorf("column %d: got %q, want %q", i, l[i].Key, role)
		}
	}
	if math.Abs(widthSum(l)-1.0) > 1e-9 {
		t.Errorf("widths sum to %f, want 1.0", widthSum(l))
	}
	if l[1].Width != 0.34 {
		t.Errorf("description width: got %f, want 0.34", l[1].Width)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Layout
	}{
		{"nil input", nil},
		{"partial input", Layout{{Key: models.RoleBalance, Width: 0.5}}},
		{"duplicate role", Layout{
			{Key: models.RoleDate, Width: 0.3},
			{Key: models.RoleDate, Width: 0.2},
		}},
		{"unknown role dropped", Layout{{Key: "fees", Width: 0.9}}},
		{"below floor clamped", Layout{{Key: models.RoleDate, Width: 0.01}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(tt.in)
			if len(out) != 5 {
				t.Fatalf("expected 5 columns, got %d", len(out))
			}
			if math.Abs(widthSum(out)-1.0) > 1e-9 {
				t.Errorf("widths sum to %f, want 1.0", widthSum(out))
			}
			seen := make(map[models.ColumnRole]bool)
			for _, col := range out {
				if seen[col.Key] {
					t.Errorf("duplicate role %q", col.Key)
				}
				seen[col.Key] = true
				if col.Width < MinWidth/2 {
					t.Errorf("column %q width %f below floor", col.Key, col.Width)
				}
			}
		})
	}
}

func TestNormalizeKeepsInputOrder(t *testing.T) {
	in := Layout{
		{Key: models.RoleBalance, Width: 0.2},
		{Key: models.RoleDate, Width: 0.2},
	}
	out := Normalize(in)
	if out[0].Key != models.RoleBalance || out[1].Key != models.RoleDate {
		t.Errorf("input order not preserved: %v %v", out[0].Key, out[1].Key)
	}
}

func TestVerticalLines(t *testing.T) {
	lines := VerticalLines(Default())
	want := []float64{0.16, 0.50, 0.66, 0.82}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if math.Abs(lines[i]-want[i]) > 1e-9 {
			t.Errorf("line %d: got %f, want %f", i, lines[i], want[i])
		}
	}

	if got := VerticalLines(Layout{{Key: models.RoleDate, Width: 1}}); got != nil {
		t.Errorf("single column should yield no lines, got %v", got)
	}
}

func TestReorder(t *testing.T) {
	l := Default()

	moved, ok := Reorder(l, models.RoleBalance, models.RoleDate)
	if !ok {
		t.Fatal("expected reorder to apply")
	}
	if moved[0].Key != models.RoleBalance {
		t.Errorf("balance not moved to front: %v", Keys(moved))
	}
	if moved[0].Width != 0.18 {
		t.Errorf("width not preserved across move: got %f", moved[0].Width)
	}
	if len(moved) != 5 {
		t.Errorf("column lost in reorder: %v", Keys(moved))
	}

	if _, ok := Reorder(l, models.RoleDate, models.RoleDate); ok {
		t.Error("same-key reorder should be a no-op")
	}
	if _, ok := Reorder(l, "fees", models.RoleDate); ok {
		t.Error("unknown source should be a no-op")
	}
}

func TestResizePair(t *testing.T) {
	l := Default()

	resized, ok := ResizePair(l, 0, 0.05)
	if !ok {
		t.Fatal("expected resize to apply")
	}
	if math.Abs(resized[0].Width-0.21) > 1e-9 || math.Abs(resized[1].Width-0.29) > 1e-9 {
		t.Errorf("got widths %f/%f, want 0.21/0.29", resized[0].Width, resized[1].Width)
	}
	if math.Abs(widthSum(resized)-1.0) > 1e-9 {
		t.Errorf("widths sum to %f after resize", widthSum(resized))
	}

	if _, ok := ResizePair(l, 0, 0.5); ok {
		t.Error("resize pushing neighbor below floor should be rejected")
	}
	if _, ok := ResizePair(l, -1, 0.01); ok {
		t.Error("negative index should be rejected")
	}
	if _, ok := ResizePair(l, 4, 0.01); ok {
		t.Error("index without right neighbor should be rejected")
	}
	if l[0].Width != 0.16 {
		t.Errorf("input mutated: got %f", l[0].Width)
	}
}

func TestFromVerticalLines(t *testing.T) {
	l := Default()
	lines := []float64{0.2, 0.5, 0.7, 0.85}

	out, ok := FromVerticalLines(l, lines)
	if !ok {
		t.Fatal("expected inverse to apply")
	}
	if math.Abs(widthSum(out)-1.0) > 1e-9 {
		t.Errorf("widths sum to %f", widthSum(out))
	}
	if math.Abs(out[0].Width-0.2) > 1e-9 {
		t.Errorf("first width: got %f, want 0.2", out[0].Width)
	}

	if _, ok := FromVerticalLines(l, []float64{0.5}); ok {
		t.Error("wrong boundary count should be rejected")
	}
}
