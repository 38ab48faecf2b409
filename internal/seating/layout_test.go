package seating

import (
	"testing"

	"github.com/eventhub-saas/eventhub/internal/models"
)

func TestRoundShapeContains(t *testing.T) {
	s := ShapeFor(models.EventTable{ID: 1, Name: "T", Shape: models.TableShapeRound, Seats: 8, X: 100, Y: 100}, 3)
	if s.Label != "T (3/8)" {
		t.Fatalf("unexpected label %q", s.Label)
	}
	cases := []struct {
		p    Point
		want bool
	}{
		{Point{100, 100}, true},
		{Point{140, 100}, true},
		{Point{129, 129}, false},
		{Point{141, 100}, false},
	}
	for _, tc := range cases {
		if got := s.Contains(tc.p); got != tc.want {
			t.Fatalf("Contains(%v): expected %v, got %v", tc.p, tc.want, got)
		}
	}
}

func TestRotatedRectContains(t *testing.T) {
	flat := ShapeFor(models.EventTable{Shape: models.TableShapeRectangular, X: 200, Y: 200}, 0)
	upright := ShapeFor(models.EventTable{Shape: models.TableShapeRectangular, X: 200, Y: 200, Rotation: 90}, 0)

	p := Point{X: 255, Y: 200}
	if !flat.Contains(p) {
		t.Fatalf("expected point inside unrotated width")
	}
	if upright.Contains(p) {
		t.Fatalf("expected point outside after 90 degree rotation")
	}
	if !upright.Contains(Point{X: 200, Y: 255}) {
		t.Fatalf("expected rotated rectangle to extend vertically")
	}
}

func TestHitTestPrefersTopmost(t *testing.T) {
	shapes := []Shape{
		ShapeFor(models.EventTable{ID: 1, Shape: models.TableShapeRound, X: 100, Y: 100}, 0),
		ShapeFor(models.EventTable{ID: 2, Shape: models.TableShapeSquare, X: 120, Y: 100}, 0),
	}
	got, ok := HitTest(shapes, Point{X: 110, Y: 100})
	if !ok || got.TableID != 2 {
		t.Fatalf("expected topmost table 2, got %+v ok=%v", got, ok)
	}
	if _, ok = HitTest(shapes, Point{X: 500, Y: 500}); ok {
		t.Fatalf("expected miss")
	}
}
