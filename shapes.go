package roiconv

// Immutable ROI shape records.
//
// All geometry is in pixel units. Shapes are values: their fields are unexported and every
// accessor returns a copy, so a shape cannot change after construction and may be shared
// between goroutines.

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownShapeKind is returned when a shape kind name is not recognised.
var ErrUnknownShapeKind = errors.New("unknown shape kind")

// Kind identifies the type of a Shape.
type Kind int

// The shape kinds.
const (
	KindPoint Kind = iota + 1
	KindLine
	KindRectangle
	KindEllipse
	KindPolygon
	KindPolyline
	KindLabel
)

var kindNames = map[Kind]string{
	KindPoint:     "point",
	KindLine:      "line",
	KindRectangle: "rectangle",
	KindEllipse:   "ellipse",
	KindPolygon:   "polygon",
	KindPolyline:  "polyline",
	KindLabel:     "label",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the Kind named s, as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShapeKind, s)
}

// Vertex is an (x, y) position in pixels.
type Vertex struct {
	X, Y float64
}

// Shape is implemented by Point, Line, Rectangle, Ellipse, Polygon, Polyline and Label.
type Shape interface {
	Kind() Kind

	// Z, C and T are the z plane, channel and time frame the shape is linked to. An absent
	// index means the shape is not linked to any plane, channel or frame.
	Z() Opt[int]
	C() Opt[int]
	T() Opt[int]

	FillColor() Opt[Color]
	StrokeColor() Opt[Color]
	StrokeWidth() Opt[float64]

	// Transform is absent when no transform applies.
	Transform() Opt[AffineTransform]

	// Bounds returns the axis-aligned bounding box in image coordinates, with the transform
	// applied. It returns false if the shape has no vertices.
	Bounds() (Box, bool)

	// Equal reports whether other is the same kind of shape with identical fields.
	Equal(other Shape) bool

	base() attrs
}

// attrs holds the attributes shared by all shapes.
type attrs struct {
	z, c, t     Opt[int]
	fill        Opt[Color]
	stroke      Opt[Color]
	strokeWidth Opt[float64]
	transform   Opt[AffineTransform]
}

func (a attrs) Z() Opt[int]                     { return a.z }
func (a attrs) C() Opt[int]                     { return a.c }
func (a attrs) T() Opt[int]                     { return a.t }
func (a attrs) FillColor() Opt[Color]           { return a.fill }
func (a attrs) StrokeColor() Opt[Color]         { return a.stroke }
func (a attrs) StrokeWidth() Opt[float64]       { return a.strokeWidth }
func (a attrs) Transform() Opt[AffineTransform] { return a.transform }
func (a attrs) base() attrs                     { return a }

// toImage maps a shape-space vertex to image space.
func (a attrs) toImage(x, y float64) (float64, float64) {
	if t, ok := a.transform.Get(); ok {
		return t.Apply(x, y)
	}
	return x, y
}

// options collects the values set by Option functions.
type options struct {
	attrs
	label       Opt[string]
	markerStart Opt[string]
	markerEnd   Opt[string]
}

// Option sets an optional shape attribute. Options that do not apply to a shape kind are
// ignored by its constructor: markers apply only to Line, and WithLabel does not apply to
// Label, whose text is mandatory.
type Option func(*options)

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithZ links the shape to z plane z.
func WithZ(z int) Option { return func(o *options) { o.z = Some(z) } }

// WithC links the shape to channel c.
func WithC(c int) Option { return func(o *options) { o.c = Some(c) } }

// WithT links the shape to time frame t.
func WithT(t int) Option { return func(o *options) { o.t = Some(t) } }

// WithPlane links the shape to the z plane, channel and time frame.
func WithPlane(z, c, t int) Option {
	return func(o *options) {
		o.z, o.c, o.t = Some(z), Some(c), Some(t)
	}
}

// WithLabel sets the shape label.
func WithLabel(label string) Option { return func(o *options) { o.label = Some(label) } }

// WithFillColor sets the fill (background) color.
func WithFillColor(c Color) Option { return func(o *options) { o.fill = Some(c) } }

// WithStrokeColor sets the stroke (perimeter) color.
func WithStrokeColor(c Color) Option { return func(o *options) { o.stroke = Some(c) } }

// WithStrokeWidth sets the stroke width.
func WithStrokeWidth(w float64) Option { return func(o *options) { o.strokeWidth = Some(w) } }

// WithTransform attaches an affine transform.
func WithTransform(t AffineTransform) Option {
	return func(o *options) { o.transform = Some(t) }
}

// WithMarkerStart sets the marker drawn at the start of a Line.
func WithMarkerStart(m string) Option { return func(o *options) { o.markerStart = Some(m) } }

// WithMarkerEnd sets the marker drawn at the end of a Line.
func WithMarkerEnd(m string) Option { return func(o *options) { o.markerEnd = Some(m) } }

// Point is a single position.
type Point struct {
	attrs
	x, y  float64
	label Opt[string]
}

// NewPoint returns a Point at (x, y).
func NewPoint(x, y float64, opts ...Option) Point {
	o := applyOptions(opts)
	return Point{attrs: o.attrs, x: x, y: y, label: o.label}
}

func (Point) Kind() Kind           { return KindPoint }
func (p Point) X() float64         { return p.x }
func (p Point) Y() float64         { return p.y }
func (p Point) Label() Opt[string] { return p.label }
func (p Point) Equal(s Shape) bool { o, ok := s.(Point); return ok && p == o }

// Line is a segment from (x1, y1) to (x2, y2).
type Line struct {
	attrs
	x1, y1, x2, y2 float64
	markerStart    Opt[string]
	markerEnd      Opt[string]
	label          Opt[string]
}

// NewLine returns a Line from (x1, y1) to (x2, y2).
func NewLine(x1, y1, x2, y2 float64, opts ...Option) Line {
	o := applyOptions(opts)
	return Line{
		attrs:       o.attrs,
		x1:          x1,
		y1:          y1,
		x2:          x2,
		y2:          y2,
		markerStart: o.markerStart,
		markerEnd:   o.markerEnd,
		label:       o.label,
	}
}

func (Line) Kind() Kind                 { return KindLine }
func (l Line) X1() float64              { return l.x1 }
func (l Line) Y1() float64              { return l.y1 }
func (l Line) X2() float64              { return l.x2 }
func (l Line) Y2() float64              { return l.y2 }
func (l Line) MarkerStart() Opt[string] { return l.markerStart }
func (l Line) MarkerEnd() Opt[string]   { return l.markerEnd }
func (l Line) Label() Opt[string]       { return l.label }
func (l Line) Equal(s Shape) bool       { o, ok := s.(Line); return ok && l == o }

// Rectangle is an axis-aligned rectangle with its top-left corner at (x, y).
type Rectangle struct {
	attrs
	x, y, width, height float64
	label               Opt[string]
}

// NewRectangle returns a Rectangle. Negative sizes are accepted as given.
func NewRectangle(x, y, width, height float64, opts ...Option) Rectangle {
	o := applyOptions(opts)
	return Rectangle{attrs: o.attrs, x: x, y: y, width: width, height: height, label: o.label}
}

func (Rectangle) Kind() Kind           { return KindRectangle }
func (r Rectangle) X() float64         { return r.x }
func (r Rectangle) Y() float64         { return r.y }
func (r Rectangle) Width() float64     { return r.width }
func (r Rectangle) Height() float64    { return r.height }
func (r Rectangle) Label() Opt[string] { return r.label }
func (r Rectangle) Equal(s Shape) bool { o, ok := s.(Rectangle); return ok && r == o }

// Ellipse is centred at (x, y) with radii radiusX and radiusY.
type Ellipse struct {
	attrs
	x, y, radiusX, radiusY float64
	label                  Opt[string]
}

// NewEllipse returns an Ellipse. Negative radii are accepted as given.
func NewEllipse(x, y, radiusX, radiusY float64, opts ...Option) Ellipse {
	o := applyOptions(opts)
	return Ellipse{attrs: o.attrs, x: x, y: y, radiusX: radiusX, radiusY: radiusY, label: o.label}
}

func (Ellipse) Kind() Kind           { return KindEllipse }
func (e Ellipse) X() float64         { return e.x }
func (e Ellipse) Y() float64         { return e.y }
func (e Ellipse) RadiusX() float64   { return e.radiusX }
func (e Ellipse) RadiusY() float64   { return e.radiusY }
func (e Ellipse) Label() Opt[string] { return e.label }
func (e Ellipse) Equal(s Shape) bool { o, ok := s.(Ellipse); return ok && e == o }

// path holds the vertex list of a Polygon or Polyline.
type path struct {
	points []Vertex
}

// Points returns a copy of the vertices.
func (p path) Points() []Vertex {
	return slices.Clone(p.points)
}

// NumPoints returns the number of vertices.
func (p path) NumPoints() int {
	return len(p.points)
}

// Polygon is a closed shape through its vertices. The vertex list may be empty.
type Polygon struct {
	attrs
	path
	label Opt[string]
}

// NewPolygon returns a Polygon with a copy of points.
func NewPolygon(points []Vertex, opts ...Option) Polygon {
	o := applyOptions(opts)
	return Polygon{attrs: o.attrs, path: path{points: slices.Clone(points)}, label: o.label}
}

func (Polygon) Kind() Kind           { return KindPolygon }
func (p Polygon) Label() Opt[string] { return p.label }

func (p Polygon) Equal(s Shape) bool {
	o, ok := s.(Polygon)
	return ok && p.attrs == o.attrs && p.label == o.label && slices.Equal(p.points, o.points)
}

// Polyline is an open path through its vertices. The vertex list may be empty.
type Polyline struct {
	attrs
	path
	label Opt[string]
}

// NewPolyline returns a Polyline with a copy of points.
func NewPolyline(points []Vertex, opts ...Option) Polyline {
	o := applyOptions(opts)
	return Polyline{attrs: o.attrs, path: path{points: slices.Clone(points)}, label: o.label}
}

func (Polyline) Kind() Kind           { return KindPolyline }
func (p Polyline) Label() Opt[string] { return p.label }

func (p Polyline) Equal(s Shape) bool {
	o, ok := s.(Polyline)
	return ok && p.attrs == o.attrs && p.label == o.label && slices.Equal(p.points, o.points)
}

// Label is a text annotation anchored at (x, y). Its text takes the place of the optional
// label carried by the other shapes.
type Label struct {
	attrs
	x, y     float64
	text     string
	fontSize float64
}

// NewLabel returns a Label with the given text and font size in points.
func NewLabel(x, y float64, text string, fontSize float64, opts ...Option) Label {
	o := applyOptions(opts)
	return Label{attrs: o.attrs, x: x, y: y, text: text, fontSize: fontSize}
}

func (Label) Kind() Kind           { return KindLabel }
func (l Label) X() float64         { return l.x }
func (l Label) Y() float64         { return l.y }
func (l Label) Text() string       { return l.text }
func (l Label) FontSize() float64  { return l.fontSize }
func (l Label) Equal(s Shape) bool { o, ok := s.(Label); return ok && l == o }

// ShapeLabel returns the label of s, or the text of a Label shape.
func ShapeLabel(s Shape) (string, bool) {
	switch s := s.(type) {
	case Label:
		return s.text, true
	case interface{ Label() Opt[string] }:
		return s.Label().Get()
	}
	return "", false
}

// withLabel returns a copy of s with its label (or Label text) replaced.
func withLabel(s Shape, label string) Shape {
	switch s := s.(type) {
	case Point:
		s.label = Some(label)
		return s
	case Line:
		s.label = Some(label)
		return s
	case Rectangle:
		s.label = Some(label)
		return s
	case Ellipse:
		s.label = Some(label)
		return s
	case Polygon:
		s.label = Some(label)
		return s
	case Polyline:
		s.label = Some(label)
		return s
	case Label:
		s.text = label
		return s
	}
	return s
}
