package roiconv

// VGG Image Annotator (VIA) specific functionality.

import (
	"encoding"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// VIAShape describes the shape of a region. Which fields are set depends on Name: rect, circle,
// ellipse, polygon, polyline or point.
type VIAShape struct {
	Name       string    `json:"name"`
	X          *float64  `json:"x,omitempty"`
	Y          *float64  `json:"y,omitempty"`
	Width      *float64  `json:"width,omitempty"`
	Height     *float64  `json:"height,omitempty"`
	CX         *float64  `json:"cx,omitempty"`
	CY         *float64  `json:"cy,omitempty"`
	R          *float64  `json:"r,omitempty"`
	RX         *float64  `json:"rx,omitempty"`
	RY         *float64  `json:"ry,omitempty"`
	Theta      *float64  `json:"theta,omitempty"`
	AllPointsX []float64 `json:"all_points_x,omitempty"`
	AllPointsY []float64 `json:"all_points_y,omitempty"`
}

// VIARegionAnnotation is a single region annotation for a particular image in a VIA file.
type VIARegionAnnotation struct {
	Attributes map[string]string `json:"region_attributes"`
	Shape      VIAShape          `json:"shape_attributes"`
}

// VIAAnnotatedFile defines the VIA annotation structure for a single file.
type VIAAnnotatedFile struct {
	Annotations []VIARegionAnnotation `json:"regions"`
	Attributes  map[string]string     `json:"file_attributes"`
	FilePath    string                `json:"filename"`
	Size        int64                 `json:"size"`
}

// VIAOptionsAttribute defines attributes of type "radio" or "dropdown".
type VIAOptionsAttribute struct {
	Type           string            `json:"type"` // "radio" or "dropdown"
	Description    string            `json:"description"`
	Options        map[string]string `json:"options"`
	DefaultOptions map[string]bool   `json:"default_options"`
}

// VIATextAttribute defines attributes of type "text".
type VIATextAttribute struct {
	Type         string `json:"type"` // "text"
	Description  string `json:"description"`
	DefaultValue string `json:"default_value"`
}

// VIAAttributes defines the VIA attribute metadata.
type VIAAttributes struct {
	Region map[string]interface{} `json:"region"`
	File   map[string]interface{} `json:"file"`
}

// VIAProject defines the VIA project structure.
type VIAProject struct {
	Attributes    VIAAttributes               `json:"_via_attributes"`
	ImageMetadata map[string]VIAAnnotatedFile `json:"_via_img_metadata"`
	// Must exist for VIA to load the project. Default values will be used.
	Settings struct{} `json:"_via_settings"`
}

// Region attribute keys with a fixed meaning. A point region with a font size attribute is a
// Label shape, and the plane attributes carry the shape's z, c and t indices.
const (
	viaLabelAttribute    = "Label"
	viaFontSizeAttribute = "FontSize"
	viaZAttribute        = "Z"
	viaCAttribute        = "C"
	viaTAttribute        = "T"
)

// FromVIA reads and parses VIA annotations from the file at path. Each region becomes an ROI
// holding a single shape.
func FromVIA(path string) (AnnotatedImages, error) {
	var viaData VIAProject
	if err := readJSON(path, &viaData); err != nil {
		return nil, fmt.Errorf("failed to parse VIA input: %w", err)
	}

	// Sort by key for a stable output order.
	keys := slices.Sorted(maps.Keys(viaData.ImageMetadata))

	data := make(AnnotatedImages, 0, len(viaData.ImageMetadata))
	for _, key := range keys {
		viaFile := viaData.ImageMetadata[key]
		img := AnnotatedImage{
			ImagePath: viaFile.FilePath,
			ROIs:      make([]ROI, 0, len(viaFile.Annotations)),
		}
		for i, a := range viaFile.Annotations {
			roi, err := fromVIARegion(a)
			if err != nil {
				logger().Warn("Skipping VIA region", "file", viaFile.FilePath, "region", i, "err", err)
				continue
			}
			img.ROIs = append(img.ROIs, roi)
		}
		data = append(data, img)
	}

	return data, nil
}

// fromVIARegion converts a single region to an ROI.
func fromVIARegion(a VIARegionAnnotation) (ROI, error) {
	var opts []Option
	roi := NewROI("")
	var text string
	var fontSize Opt[float64]

	parseInt := func(k, v string) {
		i, err := strconv.Atoi(v)
		if err != nil {
			logger().Warnf("Failed to parse attribute %q as int: %v", k, err)
			return
		}
		switch k {
		case viaZAttribute:
			opts = append(opts, WithZ(i))
		case viaCAttribute:
			opts = append(opts, WithC(i))
		case viaTAttribute:
			opts = append(opts, WithT(i))
		}
	}

	for k, v := range a.Attributes {
		switch k {
		case viaLabelAttribute:
			roi.Name = v
			opts = append(opts, WithLabel(v))
		case viaZAttribute, viaCAttribute, viaTAttribute:
			parseInt(k, v)
		case viaFontSizeAttribute:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				fontSize = Some(f)
			} else {
				logger().Warnf("Failed to parse attribute %q as float: %v", k, err)
			}
		case Confidence: // float64
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				roi.setAttribute(k, f)
			} else {
				logger().Warnf("Failed to parse attribute %q as float: %v", k, err)
			}
		case DetectedText:
			text = v
			roi.setAttribute(k, v)
		default:
			roi.setAttribute(k, v)
		}
	}

	shape, err := a.Shape.toShape(text, fontSize, opts)
	if err != nil {
		return ROI{}, err
	}
	roi.Shapes = []Shape{shape}
	return roi, nil
}

// setAttribute sets an attribute, creating the map if necessary.
func (r *ROI) setAttribute(k string, v interface{}) {
	if r.Attributes == nil {
		r.Attributes = make(map[string]interface{})
	}
	r.Attributes[k] = v
}

// toShape converts the VIA shape. A point with a font size becomes a Label with the given text.
func (v VIAShape) toShape(text string, fontSize Opt[float64], opts []Option) (Shape, error) {
	var missing bool
	req := func(p *float64) float64 {
		if p == nil {
			missing = true
			return 0
		}
		return *p
	}
	vertices := func() []Vertex {
		if len(v.AllPointsX) != len(v.AllPointsY) {
			missing = true
			return nil
		}
		vs := make([]Vertex, len(v.AllPointsX))
		for i := range vs {
			vs[i] = Vertex{v.AllPointsX[i], v.AllPointsY[i]}
		}
		return vs
	}

	var s Shape
	switch v.Name {
	case "rect":
		s = NewRectangle(req(v.X), req(v.Y), req(v.Width), req(v.Height), opts...)
	case "circle":
		r := req(v.R)
		s = NewEllipse(req(v.CX), req(v.CY), r, r, opts...)
	case "ellipse":
		cx, cy := req(v.CX), req(v.CY)
		if v.Theta != nil && *v.Theta != 0 {
			opts = append(opts, WithTransform(Rotation(*v.Theta, cx, cy)))
		}
		s = NewEllipse(cx, cy, req(v.RX), req(v.RY), opts...)
	case "polygon":
		s = NewPolygon(vertices(), opts...)
	case "polyline":
		s = NewPolyline(vertices(), opts...)
	case "point":
		if fs, ok := fontSize.Get(); ok {
			s = NewLabel(req(v.CX), req(v.CY), text, fs, opts...)
		} else {
			s = NewPoint(req(v.CX), req(v.CY), opts...)
		}
	default:
		return nil, fmt.Errorf("%w: VIA shape %q", ErrUnknownShapeKind, v.Name)
	}

	if missing {
		return nil, fmt.Errorf("incomplete VIA %s shape", v.Name)
	}
	return s, nil
}

// toVIAShape converts s. Shapes with a transform are converted to their image space outline,
// as a polygon, polyline or point.
func toVIAShape(s Shape) VIAShape {
	if s.Transform().IsSet() {
		vs := Outline(s)
		v := VIAShape{Name: "polygon"}
		switch s.Kind() {
		case KindPoint, KindLabel:
			return VIAShape{Name: "point", CX: f64(vs[0].X), CY: f64(vs[0].Y)}
		case KindLine, KindPolyline:
			v.Name = "polyline"
		}
		for _, p := range vs {
			v.AllPointsX = append(v.AllPointsX, p.X)
			v.AllPointsY = append(v.AllPointsY, p.Y)
		}
		return v
	}

	switch s := s.(type) {
	case Point:
		return VIAShape{Name: "point", CX: f64(s.x), CY: f64(s.y)}
	case Label:
		return VIAShape{Name: "point", CX: f64(s.x), CY: f64(s.y)}
	case Line:
		return VIAShape{
			Name:       "polyline",
			AllPointsX: []float64{s.x1, s.x2},
			AllPointsY: []float64{s.y1, s.y2},
		}
	case Rectangle:
		return VIAShape{Name: "rect", X: f64(s.x), Y: f64(s.y), Width: f64(s.width), Height: f64(s.height)}
	case Ellipse:
		return VIAShape{Name: "ellipse", CX: f64(s.x), CY: f64(s.y), RX: f64(s.radiusX), RY: f64(s.radiusY)}
	}

	// Polygon and Polyline.
	v := VIAShape{Name: s.Kind().String()}
	for _, p := range Outline(s) {
		v.AllPointsX = append(v.AllPointsX, p.X)
		v.AllPointsY = append(v.AllPointsY, p.Y)
	}
	return v
}

// ToVIA converts the intermediate representation to VIA format. Each shape becomes a region.
func ToVIA(data AnnotatedImages) VIAProject {
	viaData := VIAProject{
		Attributes: VIAAttributes{
			Region: make(map[string]interface{}),
			File:   make(map[string]interface{}),
		},
		ImageMetadata: make(map[string]VIAAnnotatedFile, len(data)),
	}

	// Adds an option to a VIAOptionsAttribute, creating the attribute if necessary.
	addAttrOption := func(attrs map[string]interface{}, attrName, attrType, option string) {
		var attr VIAOptionsAttribute
		if a, ok := attrs[attrName]; ok {
			if v, ok := a.(VIAOptionsAttribute); ok && v.Type == attrType {
				attr = v
			} else {
				logger().Warnf("Invalid type %T, expected VIAOptionsAttribute", a)
				return
			}
		} else {
			attr = VIAOptionsAttribute{
				Type:           attrType,
				Options:        make(map[string]string),
				DefaultOptions: make(map[string]bool),
			}
		}

		attr.Options[option] = ""
		attrs[attrName] = attr
	}

	// Adds a text attribute unless present.
	addTextAttr := func(name string) {
		if _, ok := viaData.Attributes.Region[name]; !ok {
			viaData.Attributes.Region[name] = VIATextAttribute{Type: "text"}
		}
	}

	for _, img := range data {
		viaFile := VIAAnnotatedFile{
			Annotations: make([]VIARegionAnnotation, 0, len(img.ROIs)),
			Attributes:  make(map[string]string), // Must not be nil as that becomes JSON null.
			FilePath:    img.ImagePath,
		}
		for _, roi := range img.ROIs {
			// Attributes with string values or values that can be converted to string.
			roiAttrs := make(map[string]string, len(roi.Attributes))
			for k, v := range roi.Attributes {
				switch v := v.(type) {
				case int:
					roiAttrs[k] = strconv.Itoa(v)
				case float64:
					roiAttrs[k] = strconv.FormatFloat(v, 'f', -1, 64)
				case string:
					roiAttrs[k] = v
				case encoding.TextMarshaler:
					if s, err := v.MarshalText(); err == nil {
						roiAttrs[k] = string(s)
					} else {
						logger().Warnf("Failed to marshal text for %s: %v", k, v)
					}
				}
			}
			for k := range roiAttrs {
				if k == DetectedText || k == Confidence {
					addTextAttr(k)
				}
			}

			for _, s := range roi.Shapes {
				attrs := maps.Clone(roiAttrs)
				label, ok := ShapeLabel(s)
				if l, isLabel := s.(Label); isLabel {
					attrs[DetectedText] = l.text
					attrs[viaFontSizeAttribute] = strconv.FormatFloat(l.fontSize, 'f', -1, 64)
					addTextAttr(DetectedText)
					addTextAttr(viaFontSizeAttribute)
					label, ok = roi.Name, roi.Name != ""
				}
				if ok {
					attrs[viaLabelAttribute] = label
					addAttrOption(viaData.Attributes.Region, viaLabelAttribute, "radio", label)
				}
				for key, idx := range map[string]Opt[int]{
					viaZAttribute: s.Z(),
					viaCAttribute: s.C(),
					viaTAttribute: s.T(),
				} {
					if i, ok := idx.Get(); ok {
						attrs[key] = strconv.Itoa(i)
						addTextAttr(key)
					}
				}

				viaFile.Annotations = append(viaFile.Annotations, VIARegionAnnotation{
					Attributes: attrs,
					Shape:      toVIAShape(s),
				})
			}
		}
		viaData.ImageMetadata[viaFile.FilePath] = viaFile
	}

	return viaData
}

// WriteVIA writes the VIA project data to outFile.
func WriteVIA(outFile string, data VIAProject) error {
	return writeJSON(outFile, data)
}
