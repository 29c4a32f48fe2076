package roiconv

// The native ROI file format, in YAML or JSON.
//
// Each shape is a record tagged with its kind. Absent optional attributes are omitted.
//
//	images:
//	  - image: cells.tif
//	    rois:
//	      - id: 6f1c...
//	        name: nucleus
//	        shapes:
//	          - kind: ellipse
//	            x: 10
//	            y: 12
//	            xRad: 4
//	            yRad: 3
//	            z: 2
//	            strokeColor: [255, 0, 0, 255]

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ShapeRecord is the serialised form of a Shape.
type ShapeRecord struct {
	Kind string `yaml:"kind" json:"kind"`

	X        *float64     `yaml:"x,omitempty" json:"x,omitempty"`
	Y        *float64     `yaml:"y,omitempty" json:"y,omitempty"`
	X1       *float64     `yaml:"x1,omitempty" json:"x1,omitempty"`
	Y1       *float64     `yaml:"y1,omitempty" json:"y1,omitempty"`
	X2       *float64     `yaml:"x2,omitempty" json:"x2,omitempty"`
	Y2       *float64     `yaml:"y2,omitempty" json:"y2,omitempty"`
	Width    *float64     `yaml:"width,omitempty" json:"width,omitempty"`
	Height   *float64     `yaml:"height,omitempty" json:"height,omitempty"`
	RadiusX  *float64     `yaml:"xRad,omitempty" json:"xRad,omitempty"`
	RadiusY  *float64     `yaml:"yRad,omitempty" json:"yRad,omitempty"`
	Points   [][2]float64 `yaml:"points,omitempty" json:"points,omitempty"`
	Text     *string      `yaml:"text,omitempty" json:"text,omitempty"`
	FontSize *float64     `yaml:"fontSize,omitempty" json:"fontSize,omitempty"`

	Z           *int        `yaml:"z,omitempty" json:"z,omitempty"`
	C           *int        `yaml:"c,omitempty" json:"c,omitempty"`
	T           *int        `yaml:"t,omitempty" json:"t,omitempty"`
	Label       *string     `yaml:"label,omitempty" json:"label,omitempty"`
	MarkerStart *string     `yaml:"markerStart,omitempty" json:"markerStart,omitempty"`
	MarkerEnd   *string     `yaml:"markerEnd,omitempty" json:"markerEnd,omitempty"`
	FillColor   *Color      `yaml:"fillColor,omitempty" json:"fillColor,omitempty"`
	StrokeColor *Color      `yaml:"strokeColor,omitempty" json:"strokeColor,omitempty"`
	StrokeWidth *float64    `yaml:"strokeWidth,omitempty" json:"strokeWidth,omitempty"`
	Transform   *[6]float64 `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// errMissingField is wrapped by the errors for shape records lacking a mandatory field.
var errMissingField = errors.New("missing mandatory field")

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

// MarshalShape returns the record for s.
func MarshalShape(s Shape) ShapeRecord {
	a := s.base()
	rec := ShapeRecord{
		Kind:        s.Kind().String(),
		Z:           a.z.ptr(),
		C:           a.c.ptr(),
		T:           a.t.ptr(),
		FillColor:   a.fill.ptr(),
		StrokeColor: a.stroke.ptr(),
		StrokeWidth: a.strokeWidth.ptr(),
	}
	if t, ok := a.transform.Get(); ok {
		c := t.Coefficients()
		rec.Transform = &c
	}

	points := func(vs []Vertex) [][2]float64 {
		out := make([][2]float64, len(vs))
		for i, v := range vs {
			out[i] = [2]float64{v.X, v.Y}
		}
		return out
	}

	switch s := s.(type) {
	case Point:
		rec.X, rec.Y, rec.Label = f64(s.x), f64(s.y), s.label.ptr()
	case Line:
		rec.X1, rec.Y1, rec.X2, rec.Y2 = f64(s.x1), f64(s.y1), f64(s.x2), f64(s.y2)
		rec.MarkerStart, rec.MarkerEnd = s.markerStart.ptr(), s.markerEnd.ptr()
		rec.Label = s.label.ptr()
	case Rectangle:
		rec.X, rec.Y, rec.Width, rec.Height = f64(s.x), f64(s.y), f64(s.width), f64(s.height)
		rec.Label = s.label.ptr()
	case Ellipse:
		rec.X, rec.Y, rec.RadiusX, rec.RadiusY = f64(s.x), f64(s.y), f64(s.radiusX), f64(s.radiusY)
		rec.Label = s.label.ptr()
	case Polygon:
		rec.Points, rec.Label = points(s.points), s.label.ptr()
	case Polyline:
		rec.Points, rec.Label = points(s.points), s.label.ptr()
	case Label:
		rec.X, rec.Y, rec.Text, rec.FontSize = f64(s.x), f64(s.y), str(s.text), f64(s.fontSize)
	}
	return rec
}

// Shape builds the shape described by rec. Fields that do not apply to the kind are ignored.
func (rec ShapeRecord) Shape() (Shape, error) {
	kind, err := ParseKind(rec.Kind)
	if err != nil {
		return nil, err
	}

	var missing []string
	req := func(name string, p *float64) float64 {
		if p == nil {
			missing = append(missing, name)
			return 0
		}
		return *p
	}

	o := options{
		attrs: attrs{
			z:           optFromPtr(rec.Z),
			c:           optFromPtr(rec.C),
			t:           optFromPtr(rec.T),
			fill:        optFromPtr(rec.FillColor),
			stroke:      optFromPtr(rec.StrokeColor),
			strokeWidth: optFromPtr(rec.StrokeWidth),
		},
		label:       optFromPtr(rec.Label),
		markerStart: optFromPtr(rec.MarkerStart),
		markerEnd:   optFromPtr(rec.MarkerEnd),
	}
	if c := rec.Transform; c != nil {
		o.transform = Some(NewAffineTransform(c[0], c[1], c[2], c[3], c[4], c[5]))
	}
	vertices := make([]Vertex, len(rec.Points))
	for i, p := range rec.Points {
		vertices[i] = Vertex{X: p[0], Y: p[1]}
	}

	var s Shape
	switch kind {
	case KindPoint:
		s = Point{attrs: o.attrs, x: req("x", rec.X), y: req("y", rec.Y), label: o.label}
	case KindLine:
		s = Line{
			attrs:       o.attrs,
			x1:          req("x1", rec.X1),
			y1:          req("y1", rec.Y1),
			x2:          req("x2", rec.X2),
			y2:          req("y2", rec.Y2),
			markerStart: o.markerStart,
			markerEnd:   o.markerEnd,
			label:       o.label,
		}
	case KindRectangle:
		s = Rectangle{
			attrs:  o.attrs,
			x:      req("x", rec.X),
			y:      req("y", rec.Y),
			width:  req("width", rec.Width),
			height: req("height", rec.Height),
			label:  o.label,
		}
	case KindEllipse:
		s = Ellipse{
			attrs:   o.attrs,
			x:       req("x", rec.X),
			y:       req("y", rec.Y),
			radiusX: req("xRad", rec.RadiusX),
			radiusY: req("yRad", rec.RadiusY),
			label:   o.label,
		}
	case KindPolygon:
		s = Polygon{attrs: o.attrs, path: path{points: vertices}, label: o.label}
	case KindPolyline:
		s = Polyline{attrs: o.attrs, path: path{points: vertices}, label: o.label}
	case KindLabel:
		if rec.Text == nil {
			missing = append(missing, "text")
		}
		s = Label{
			attrs:    o.attrs,
			x:        req("x", rec.X),
			y:        req("y", rec.Y),
			text:     optFromPtr(rec.Text).Or(""),
			fontSize: req("fontSize", rec.FontSize),
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", kind, errMissingField, strings.Join(missing, ", "))
	}
	return s, nil
}

// ROIRecord is the serialised form of an ROI.
type ROIRecord struct {
	ID          string                 `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Attributes  map[string]interface{} `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Shapes      []ShapeRecord          `yaml:"shapes" json:"shapes"`
}

// ImageRecord is the serialised form of an AnnotatedImage.
type ImageRecord struct {
	Image string      `yaml:"image" json:"image"`
	ROIs  []ROIRecord `yaml:"rois" json:"rois"`
}

// ROIFile is the top level structure of an ROI file.
type ROIFile struct {
	Images []ImageRecord `yaml:"images" json:"images"`
}

// ToROIFile converts the intermediate representation to the ROI file structure.
func ToROIFile(data AnnotatedImages) ROIFile {
	f := ROIFile{Images: make([]ImageRecord, 0, len(data))}
	for _, img := range data {
		ir := ImageRecord{Image: img.ImagePath, ROIs: make([]ROIRecord, 0, len(img.ROIs))}
		for _, r := range img.ROIs {
			rr := ROIRecord{
				ID:          r.ID,
				Name:        r.Name,
				Description: r.Description,
				Attributes:  r.Attributes,
				Shapes:      make([]ShapeRecord, len(r.Shapes)),
			}
			for i, s := range r.Shapes {
				rr.Shapes[i] = MarshalShape(s)
			}
			ir.ROIs = append(ir.ROIs, rr)
		}
		f.Images = append(f.Images, ir)
	}
	return f
}

// FromROIFile converts the ROI file structure to the intermediate representation. ROIs without
// an ID are assigned a new UUID.
func FromROIFile(f ROIFile) (AnnotatedImages, error) {
	data := make(AnnotatedImages, 0, len(f.Images))
	for _, ir := range f.Images {
		img := AnnotatedImage{ImagePath: ir.Image, ROIs: make([]ROI, 0, len(ir.ROIs))}
		for i, rr := range ir.ROIs {
			r := ROI{
				ID:          rr.ID,
				Name:        rr.Name,
				Description: rr.Description,
				Attributes:  rr.Attributes,
				Shapes:      make([]Shape, 0, len(rr.Shapes)),
			}
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			for j, sr := range rr.Shapes {
				s, err := sr.Shape()
				if err != nil {
					return nil, fmt.Errorf("image %q, roi %d, shape %d: %w", ir.Image, i, j, err)
				}
				r.Shapes = append(r.Shapes, s)
			}
			img.ROIs = append(img.ROIs, r)
		}
		data = append(data, img)
	}
	return data, nil
}

// isJSONPath reports whether path has a .json extension. Any other extension is read as YAML.
func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// ReadROIFile reads the ROI file at path, as JSON for a .json extension and YAML otherwise.
func ReadROIFile(path string) (AnnotatedImages, error) {
	var f ROIFile
	if isJSONPath(path) {
		if err := readJSON(path, &f); err != nil {
			return nil, err
		}
	} else {
		enc, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(enc, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", path, err)
		}
	}
	return FromROIFile(f)
}

// WriteROIFile writes data to path, as JSON for a .json extension and YAML otherwise.
func WriteROIFile(path string, data AnnotatedImages) error {
	f := ToROIFile(data)
	if isJSONPath(path) {
		return writeJSON(path, f)
	}

	enc, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %w", path, err)
	}
	return nil
}
