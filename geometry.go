package roiconv

// Bounding boxes and geometric transformation of shapes.

import (
	"image"
	"math"
	"slices"
)

// Box is an axis-aligned box given by its absolute x1, y1, x2, y2 offsets from the top-left
// image corner.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Width is the box width.
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height is the box height.
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// Empty reports whether b has no area.
func (b Box) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Scale scales the box coordinates by sx and sy.
func (b Box) Scale(sx, sy float64) Box {
	return Box{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	return Box{
		X1: math.Min(b.X1, o.X1),
		Y1: math.Min(b.Y1, o.Y1),
		X2: math.Max(b.X2, o.X2),
		Y2: math.Max(b.Y2, o.Y2),
	}
}

// Rect rounds b to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)))
}

// boxOf returns the bounding box of vs.
func boxOf(vs ...Vertex) (Box, bool) {
	if len(vs) == 0 {
		return Box{}, false
	}
	b := Box{X1: vs[0].X, Y1: vs[0].Y, X2: vs[0].X, Y2: vs[0].Y}
	for _, v := range vs[1:] {
		b.X1 = math.Min(b.X1, v.X)
		b.Y1 = math.Min(b.Y1, v.Y)
		b.X2 = math.Max(b.X2, v.X)
		b.Y2 = math.Max(b.Y2, v.Y)
	}
	return b, true
}

// imageBox maps the vertices to image space and returns their bounding box.
func (a attrs) imageBox(vs ...Vertex) (Box, bool) {
	for i, v := range vs {
		vs[i].X, vs[i].Y = a.toImage(v.X, v.Y)
	}
	return boxOf(vs...)
}

func (p Point) Bounds() (Box, bool) {
	return p.imageBox(Vertex{p.x, p.y})
}

func (l Line) Bounds() (Box, bool) {
	return l.imageBox(Vertex{l.x1, l.y1}, Vertex{l.x2, l.y2})
}

func (r Rectangle) Bounds() (Box, bool) {
	return r.imageBox(
		Vertex{r.x, r.y},
		Vertex{r.x + r.width, r.y},
		Vertex{r.x, r.y + r.height},
		Vertex{r.x + r.width, r.y + r.height})
}

// Bounds is exact for ellipses under any affine transform.
func (e Ellipse) Bounds() (Box, bool) {
	t := e.transform.Or(Identity())
	cx, cy := t.Apply(e.x, e.y)
	// The image of the ellipse is x(θ) = a00*rx*cosθ + a01*ry*sinθ + cx, and likewise for y.
	hw := math.Hypot(t.a00*e.radiusX, t.a01*e.radiusY)
	hh := math.Hypot(t.a10*e.radiusX, t.a11*e.radiusY)
	return Box{X1: cx - hw, Y1: cy - hh, X2: cx + hw, Y2: cy + hh}, true
}

func (p Polygon) Bounds() (Box, bool) {
	return p.imageBox(p.Points()...)
}

func (p Polyline) Bounds() (Box, bool) {
	return p.imageBox(p.Points()...)
}

// Bounds of a Label is its anchor point; the rendered text extent depends on the viewer.
func (l Label) Bounds() (Box, bool) {
	return l.imageBox(Vertex{l.x, l.y})
}

// ApplyTransform returns a copy of s mapped through m.
//
// Shapes without a transform have their geometry rewritten when m only scales and translates.
// Otherwise m is composed onto the shape's transform, so that the geometry stays as given and
// the mapping to image space changes.
func ApplyTransform(s Shape, m AffineTransform) Shape {
	if t, ok := s.Transform().Get(); ok || m.a01 != 0 || m.a10 != 0 {
		return setTransform(s, t.orIdentity(ok).Compose(m))
	}

	sx, sy := m.a00, m.a11
	mv := m.Apply
	switch s := s.(type) {
	case Point:
		s.x, s.y = mv(s.x, s.y)
		return s
	case Line:
		s.x1, s.y1 = mv(s.x1, s.y1)
		s.x2, s.y2 = mv(s.x2, s.y2)
		return s
	case Rectangle:
		s.x, s.y = mv(s.x, s.y)
		s.width *= sx
		s.height *= sy
		return s
	case Ellipse:
		s.x, s.y = mv(s.x, s.y)
		s.radiusX *= math.Abs(sx)
		s.radiusY *= math.Abs(sy)
		return s
	case Polygon:
		s.points = mapVertices(s.points, mv)
		return s
	case Polyline:
		s.points = mapVertices(s.points, mv)
		return s
	case Label:
		s.x, s.y = mv(s.x, s.y)
		return s
	}
	return s
}

// ellipseSegments is the number of vertices used to approximate an ellipse outline.
const ellipseSegments = 36

// Outline returns the vertices of s in image space, with the transform applied. Ellipses are
// approximated by a polygon and rectangles give their four corners in clockwise order.
func Outline(s Shape) []Vertex {
	var vs []Vertex
	switch s := s.(type) {
	case Point:
		vs = []Vertex{{s.x, s.y}}
	case Line:
		vs = []Vertex{{s.x1, s.y1}, {s.x2, s.y2}}
	case Rectangle:
		vs = []Vertex{
			{s.x, s.y},
			{s.x + s.width, s.y},
			{s.x + s.width, s.y + s.height},
			{s.x, s.y + s.height},
		}
	case Ellipse:
		vs = make([]Vertex, ellipseSegments)
		for i := range vs {
			sin, cos := math.Sincos(2 * math.Pi * float64(i) / ellipseSegments)
			vs[i] = Vertex{s.x + s.radiusX*cos, s.y + s.radiusY*sin}
		}
	case Polygon:
		vs = s.Points()
	case Polyline:
		vs = s.Points()
	case Label:
		vs = []Vertex{{s.x, s.y}}
	}

	a := s.base()
	for i, v := range vs {
		vs[i].X, vs[i].Y = a.toImage(v.X, v.Y)
	}
	return vs
}

// Translate returns a copy of s moved by (dx, dy).
func Translate(s Shape, dx, dy float64) Shape {
	return ApplyTransform(s, Translation(dx, dy))
}

// Scale returns a copy of s scaled by (sx, sy) about the image origin.
func Scale(s Shape, sx, sy float64) Shape {
	return ApplyTransform(s, Scaling(sx, sy))
}

func (t AffineTransform) orIdentity(ok bool) AffineTransform {
	if ok {
		return t
	}
	return Identity()
}

func mapVertices(vs []Vertex, fn func(x, y float64) (float64, float64)) []Vertex {
	out := slices.Clone(vs)
	for i := range out {
		out[i].X, out[i].Y = fn(out[i].X, out[i].Y)
	}
	return out
}

// setTransform returns a copy of s with transform t.
func setTransform(s Shape, t AffineTransform) Shape {
	return withAttrs(s, func(a *attrs) { a.transform = Some(t) })
}

// withAttrs returns a copy of s with its shared attributes modified by fn.
func withAttrs(s Shape, fn func(a *attrs)) Shape {
	switch s := s.(type) {
	case Point:
		fn(&s.attrs)
		return s
	case Line:
		fn(&s.attrs)
		return s
	case Rectangle:
		fn(&s.attrs)
		return s
	case Ellipse:
		fn(&s.attrs)
		return s
	case Polygon:
		fn(&s.attrs)
		return s
	case Polyline:
		fn(&s.attrs)
		return s
	case Label:
		fn(&s.attrs)
		return s
	}
	return s
}
