package seating

import (
	"fmt"
	"math"

	"github.com/eventhub-saas/eventhub/internal/models"
)

// Rendered dimensions of table shapes on the layout canvas.
const (
	RoundRadius = 40
	RectWidth   = 120
	RectHeight  = 80
)

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Highlight is the drag-over state of a table.
type Highlight string

// Drag-over states.
const (
	HighlightNone      Highlight = "none"
	HighlightAvailable Highlight = "available"
	HighlightFull      Highlight = "full"
)

// Shape is the rendered outline of one table. Shapes are derived from tables and never stored.
type Shape struct {
	TableID  uint64  `json:"table_id"`
	Kind     string  `json:"kind"`
	Center   Point   `json:"center"`
	Rotation float64 `json:"rotation"`
	Radius   float64 `json:"radius,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Label    string  `json:"label"`
	Seated   int     `json:"seated"`
	Seats    int     `json:"seats"`
}

// Full reports whether no seat is left.
func (s Shape) Full() bool { return s.Seated >= s.Seats }

// ShapeFor derives the rendered shape of a table. seated is the occupancy shown in the label.
func ShapeFor(t models.EventTable, seated int) Shape {
	center := Point{X: t.X, Y: t.Y}
	if center.X == 0 {
		center.X = DefaultX
	}
	if center.Y == 0 {
		center.Y = DefaultY
	}
	s := Shape{
		TableID:  t.ID,
		Kind:     t.Shape,
		Center:   center,
		Rotation: t.Rotation,
		Seated:   seated,
		Seats:    t.Seats,
	}
	s.Label = labelFor(t.Name, seated, t.Seats)
	if t.Shape == models.TableShapeRound || t.Shape == "" {
		s.Kind = models.TableShapeRound
		s.Radius = RoundRadius
	} else {
		s.Width = RectWidth
		s.Height = RectHeight
	}
	return s
}

// Contains reports whether p lies inside the shape, rotation included.
func (s Shape) Contains(p Point) bool {
	dx := p.X - s.Center.X
	dy := p.Y - s.Center.Y
	if s.Kind == models.TableShapeRound {
		return dx*dx+dy*dy <= s.Radius*s.Radius
	}
	// Rotate the point into the rectangle's frame.
	rad := -s.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	lx := dx*cos - dy*sin
	ly := dx*sin + dy*cos
	return math.Abs(lx) <= s.Width/2 && math.Abs(ly) <= s.Height/2
}

// HitTest returns the topmost shape containing p. Later shapes are drawn on top.
func HitTest(shapes []Shape, p Point) (Shape, bool) {
	for i := len(shapes) - 1; i >= 0; i-- {
		if shapes[i].Contains(p) {
			return shapes[i], true
		}
	}
	return Shape{}, false
}

func labelFor(name string, seated, seats int) string {
	return fmt.Sprintf("%s (%d/%d)", name, seated, seats)
}
