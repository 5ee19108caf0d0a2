package event

import (
	"fmt"
	"strings"

	"github.com/roach88/cae/internal/ir"
)

// EntityID identifies an entity of the world. IDs start at 1; zero means
// "no entity" (for example the source of trap damage).
type EntityID int

// Point is a grid position. Y grows southwards.
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Chebyshev returns the king-move distance between p and q.
func (p Point) Chebyshev(q Point) int {
	return max(abs(p.X-q.X), abs(p.Y-q.Y))
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func (p Point) value() ir.IRValue {
	return ir.IRArray{ir.IRInt(p.X), ir.IRInt(p.Y)}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var directions = map[string]Point{
	"north":     {0, -1},
	"south":     {0, 1},
	"east":      {1, 0},
	"west":      {-1, 0},
	"northeast": {1, -1},
	"northwest": {-1, -1},
	"southeast": {1, 1},
	"southwest": {-1, 1},
}

var directionAliases = map[string]string{
	"n": "north", "s": "south", "e": "east", "w": "west",
	"ne": "northeast", "nw": "northwest", "se": "southeast", "sw": "southwest",
}

// ParseDirection maps a compass direction ("north", "sw", ...) to a unit
// offset.
func ParseDirection(s string) (Point, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if full, ok := directionAliases[key]; ok {
		key = full
	}
	d, ok := directions[key]
	if !ok {
		return Point{}, fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}
