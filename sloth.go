package roiconv

// Sloth specific functionality.

import (
	"fmt"
	"strconv"
	"strings"
)

// SlothAnnotation is a single annotation within a Sloth file. Rectangles use X, Y, Width and
// Height, points use X and Y, and polygons list their vertices in Xn and Yn as semicolon
// separated values.
type SlothAnnotation struct {
	Class  string  `json:"class,omitempty"`
	Type   string  `json:"type,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Xn     string  `json:"xn,omitempty"`
	Yn     string  `json:"yn,omitempty"`
}

// SlothAnnotatedFile defines the Sloth annotation structure for a single file.
type SlothAnnotatedFile struct {
	Annotations []SlothAnnotation `json:"annotations"`
	Class       string            `json:"class,omitempty"`
	FilePath    string            `json:"filename,omitempty"`
}

// FromSloth reads and parses Sloth annotations from the file at path.
func FromSloth(path string) (AnnotatedImages, error) {
	var slothData []SlothAnnotatedFile
	if err := readJSON(path, &slothData); err != nil {
		return nil, fmt.Errorf("failed to parse Sloth input: %w", err)
	}

	data := make(AnnotatedImages, 0, len(slothData))
	for _, slothFile := range slothData {
		img := AnnotatedImage{
			ImagePath: slothFile.FilePath,
			ROIs:      make([]ROI, 0, len(slothFile.Annotations)),
		}
		for _, a := range slothFile.Annotations {
			s, err := a.toShape()
			if err != nil {
				logger().Warn("Skipping Sloth annotation", "file", slothFile.FilePath, "err", err)
				continue
			}
			img.ROIs = append(img.ROIs, NewROI(a.Class, s))
		}
		data = append(data, img)
	}

	return data, nil
}

func (a SlothAnnotation) toShape() (Shape, error) {
	var opts []Option
	if a.Class != "" {
		opts = append(opts, WithLabel(a.Class))
	}

	switch a.Type {
	case "rect", "":
		return NewRectangle(a.X, a.Y, a.Width, a.Height, opts...), nil
	case "point":
		return NewPoint(a.X, a.Y, opts...), nil
	case "polygon":
		xs, err := parseSlothCoords(a.Xn)
		if err != nil {
			return nil, err
		}
		ys, err := parseSlothCoords(a.Yn)
		if err != nil {
			return nil, err
		}
		if len(xs) != len(ys) {
			return nil, fmt.Errorf("polygon has %d x and %d y coordinates", len(xs), len(ys))
		}
		vs := make([]Vertex, len(xs))
		for i := range vs {
			vs[i] = Vertex{xs[i], ys[i]}
		}
		return NewPolygon(vs, opts...), nil
	}
	return nil, fmt.Errorf("%w: Sloth type %q", ErrUnknownShapeKind, a.Type)
}

func parseSlothCoords(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ";")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid Sloth coordinate %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatSlothCoords(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

// ToSloth converts the intermediate representation to Sloth format.
//
// Points and Labels become points, and untransformed Rectangles become rects. All other shapes
// are written as polygons through their image space outline. Sloth has no open path type, so
// Lines and Polylines are read back as closed Polygons.
func ToSloth(data AnnotatedImages) []SlothAnnotatedFile {
	slothData := make([]SlothAnnotatedFile, 0, len(data))
	for _, img := range data {
		slothFile := SlothAnnotatedFile{
			Annotations: make([]SlothAnnotation, 0, len(img.ROIs)),
			Class:       "image",
			FilePath:    img.ImagePath,
		}
		for _, roi := range img.ROIs {
			for _, s := range roi.Shapes {
				class, ok := ShapeLabel(s)
				if !ok || s.Kind() == KindLabel {
					class = roi.Label()
				}
				a := SlothAnnotation{Class: class}

				r, isRect := s.(Rectangle)
				switch {
				case s.Kind() == KindPoint || s.Kind() == KindLabel:
					v := Outline(s)[0]
					a.Type, a.X, a.Y = "point", v.X, v.Y
				case isRect && !r.Transform().IsSet():
					a.Type, a.X, a.Y, a.Width, a.Height = "rect", r.x, r.y, r.width, r.height
				default:
					vs := Outline(s)
					xs := make([]float64, len(vs))
					ys := make([]float64, len(vs))
					for i, v := range vs {
						xs[i], ys[i] = v.X, v.Y
					}
					a.Type, a.Xn, a.Yn = "polygon", formatSlothCoords(xs), formatSlothCoords(ys)
				}
				slothFile.Annotations = append(slothFile.Annotations, a)
			}
		}
		slothData = append(slothData, slothFile)
	}

	return slothData
}

// WriteSloth writes the Sloth annotations to outFile.
func WriteSloth(outFile string, data []SlothAnnotatedFile) error {
	return writeJSON(outFile, data)
}
