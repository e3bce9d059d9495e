package geometry

import "math"

// Kind names a shape variant. It is the "type" tag in serialized shapes.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindPolygon   Kind = "polygon"
)

// Shape is a district footprint. The set of implementations is closed:
// Rectangle, Circle and Polygon. Every shape is placed relative to its
// district's position plus its own Offset.
type Shape interface {
	Kind() Kind
	Area() float64
	Bounds(center Point) Rect
	Contains(center, p Point) bool
	shape()
}

// Rectangle is an axis-aligned block.
type Rectangle struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Offset Point   `json:"offset"`
}

func (Rectangle) shape()     {}
func (Rectangle) Kind() Kind { return KindRectangle }

func (r Rectangle) Area() float64 { return r.Width * r.Height }

func (r Rectangle) Bounds(center Point) Rect {
	return RectAround(center.Add(r.Offset), r.Width/2, r.Height/2)
}

func (r Rectangle) Contains(center, p Point) bool {
	return r.Bounds(center).Contains(p)
}

// Circle is a round plaza-style district.
type Circle struct {
	Radius float64 `json:"radius"`
	Offset Point   `json:"offset"`
}

func (Circle) shape()     {}
func (Circle) Kind() Kind { return KindCircle }

func (c Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

func (c Circle) Bounds(center Point) Rect {
	return RectAround(center.Add(c.Offset), c.Radius, c.Radius)
}

func (c Circle) Contains(center, p Point) bool {
	return center.Add(c.Offset).Distance(p) <= c.Radius
}

// Polygon is a regular polygon inscribed in a circle of Radius, with its
// first vertex at angle Rotation.
type Polygon struct {
	Sides    int     `json:"sides"`
	Radius   float64 `json:"radius"`
	Rotation float64 `json:"rotation"`
	Offset   Point   `json:"offset"`
}

func (Polygon) shape()     {}
func (Polygon) Kind() Kind { return KindPolygon }

// Area of a regular n-gon: n/2 * r^2 * sin(2pi/n).
func (p Polygon) Area() float64 {
	if p.Sides < 3 {
		return 0
	}
	n := float64(p.Sides)
	return n / 2 * p.Radius * p.Radius * math.Sin(2*math.Pi/n)
}

// Vertices returns the corners in counterclockwise order.
func (p Polygon) Vertices(center Point) []Point {
	if p.Sides < 3 {
		return nil
	}
	c := center.Add(p.Offset)
	out := make([]Point, p.Sides)
	step := 2 * math.Pi / float64(p.Sides)
	for i := range out {
		a := p.Rotation + step*float64(i)
		out[i] = Point{c.X + p.Radius*math.Cos(a), c.Y + p.Radius*math.Sin(a)}
	}
	return out
}

func (p Polygon) Bounds(center Point) Rect {
	vs := p.Vertices(center)
	if len(vs) == 0 {
		c := center.Add(p.Offset)
		return Rect{Min: c, Max: c}
	}
	b := Rect{Min: vs[0], Max: vs[0]}
	for _, v := range vs[1:] {
		b = b.Union(Rect{Min: v, Max: v})
	}
	return b
}

// Contains uses even-odd ray casting against the polygon edges.
func (p Polygon) Contains(center, pt Point) bool {
	vs := p.Vertices(center)
	inside := false
	for i, j := 0, len(vs)-1; i < len(vs); j, i = i, i+1 {
		a, b := vs[i], vs[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
