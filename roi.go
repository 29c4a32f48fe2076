package roiconv

// ROI sets: the intermediate representation shared by all formats.

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Keys for known ROI attributes.
const (
	AncestorLabels = "Ancestors"  // Ancestors in the label taxonomy. Type []string.
	Confidence     = "Confidence" // Type float64 in [0.0, 1.0].
	CropCoords     = "CropCoords" // Absolute coords (x1,y1)(x2,y2) in the source image. Type string.
	DetectedText   = "Text"       // Text that is associated with the ROI. Type string.
)

var (
	// ErrInvalidMapping is returned for a label mapping not of the form old=new.
	ErrInvalidMapping = errors.New("invalid label mapping")

	// ErrInvalidSplit is returned when split percentages do not add up to 100.
	ErrInvalidSplit = errors.New("the split percentages do not add up to 100")
)

// ROI is a named group of shapes.
type ROI struct {
	ID          string
	Name        string
	Description string
	Attributes  map[string]interface{} // Additional attributes of this ROI.
	Shapes      []Shape
}

// NewROI returns an ROI with a fresh UUID holding shapes.
func NewROI(name string, shapes ...Shape) ROI {
	return ROI{ID: uuid.NewString(), Name: name, Shapes: shapes}
}

// Bounds returns the union of the bounds of all shapes, or false if no shape has bounds.
func (r ROI) Bounds() (Box, bool) {
	var box Box
	found := false
	for _, s := range r.Shapes {
		b, ok := s.Bounds()
		if !ok {
			continue
		}
		if found {
			box = box.Union(b)
		} else {
			box, found = b, true
		}
	}
	return box, found
}

// Label returns the ROI name, or else the first shape label.
func (r ROI) Label() string {
	if r.Name != "" {
		return r.Name
	}
	for _, s := range r.Shapes {
		if l, ok := ShapeLabel(s); ok {
			return l
		}
	}
	return ""
}

// mapShapes replaces every shape with fn(shape).
func (r *ROI) mapShapes(fn func(Shape) Shape) {
	shapes := make([]Shape, len(r.Shapes))
	for i, s := range r.Shapes {
		shapes[i] = fn(s)
	}
	r.Shapes = shapes
}

// AnnotatedImage is the set of ROIs on a single image.
type AnnotatedImage struct {
	ImagePath string
	ROIs      []ROI
}

// AnnotatedImages is the ROI metadata for a list of images.
type AnnotatedImages []AnnotatedImage

// NumShapes returns the total number of shapes.
func (data AnnotatedImages) NumShapes() int {
	n := 0
	for _, img := range data {
		for _, r := range img.ROIs {
			n += len(r.Shapes)
		}
	}
	return n
}

// MapLabels replaces label (sub-)strings with substitution values, as specified in mappings.
// Both ROI names and shape labels are mapped; for Label shapes the text is mapped.
//
// The format of mappings is old=new.
func (data AnnotatedImages) MapLabels(mappings []string) error {
	if len(mappings) == 0 {
		return nil
	}

	pairs := make([]string, 0, 2*len(mappings))
	for _, v := range mappings {
		from, to, ok := strings.Cut(v, "=")
		if !ok || strings.Contains(to, "=") {
			return fmt.Errorf("%w: %q", ErrInvalidMapping, v)
		}
		pairs = append(pairs, from, to)
	}

	// Apply the replacements in order, not as a single strings.Replacer pass.
	replace := func(s string) string {
		for i := 0; i < len(pairs); i += 2 {
			s = strings.ReplaceAll(s, pairs[i], pairs[i+1])
		}
		return s
	}

	count := 0
	for i := range data {
		for j := range data[i].ROIs {
			r := &data[i].ROIs[j]
			r.Name = replace(r.Name)
			r.mapShapes(func(s Shape) Shape {
				old, ok := ShapeLabel(s)
				if !ok {
					return s
				}
				if l := replace(old); l != old {
					count++
					return withLabel(s, l)
				}
				return s
			})
		}
	}

	logger().Infof("The label mappings changed %d labels", count)
	return nil
}

// FilterOptions selects the shapes, ROIs and images kept by Filter. Zero values disable the
// respective filter.
type FilterOptions struct {
	Kinds  []Kind   // Shape kinds to keep.
	Labels []string // Shape labels to keep. Shapes without a label are dropped.

	// Plane to keep. Shapes linked to a different index are dropped; shapes not linked to any
	// index apply to all of them and are kept.
	Z, C, T Opt[int]

	MinConfidence float64 // Drops ROIs whose Confidence attribute is lower.
	MinWidth      float64 // Minimum shape bounding box width.
	MinHeight     float64 // Minimum shape bounding box height.

	// Bounding box aspect ratio (width/height) limits.
	MinAspectRatio, MaxAspectRatio float64

	Attributes    []string // ROI attributes to keep; others are deleted.
	RequiredAttrs []string // ROI attributes that must be present with a non zero value.
	RequireROI    bool     // Drop images left without ROIs.
}

// keepShape reports whether s passes the shape filters of o.
func (o FilterOptions) keepShape(s Shape) bool {
	if len(o.Kinds) > 0 && !slices.Contains(o.Kinds, s.Kind()) {
		return false
	}
	if len(o.Labels) > 0 {
		l, ok := ShapeLabel(s)
		if !ok || !slices.Contains(o.Labels, l) {
			return false
		}
	}

	onPlane := func(want, have Opt[int]) bool {
		w, filtered := want.Get()
		h, linked := have.Get()
		return !filtered || !linked || w == h
	}
	if !onPlane(o.Z, s.Z()) || !onPlane(o.C, s.C()) || !onPlane(o.T, s.T()) {
		return false
	}

	if o.MinWidth > 0 || o.MinHeight > 0 || o.MinAspectRatio > 0 || o.MaxAspectRatio > 0 {
		b, ok := s.Bounds()
		if !ok || b.Width() < o.MinWidth || b.Height() < o.MinHeight {
			return false
		}
		if o.MinAspectRatio > 0 || o.MaxAspectRatio > 0 {
			if b.Height() == 0 {
				return false
			}
			ratio := b.Width() / b.Height()
			if (o.MinAspectRatio > 0 && ratio < o.MinAspectRatio) ||
				(o.MaxAspectRatio > 0 && ratio > o.MaxAspectRatio) {
				return false
			}
		}
	}
	return true
}

// keepROI reports whether r passes the ROI filters of o.
func (o FilterOptions) keepROI(r ROI) bool {
	if c, ok := r.Attributes[Confidence].(float64); ok && c < o.MinConfidence {
		return false
	}
	for _, k := range o.RequiredAttrs {
		// Test against the zero value of the underlying type.
		if v := r.Attributes[k]; v == nil || reflect.ValueOf(v).IsZero() {
			return false
		}
	}
	return len(r.Shapes) > 0
}

// Filter removes the shapes, ROIs and images that do not pass the filters in o.
// ROIs left without shapes are always removed.
func (data *AnnotatedImages) Filter(o FilterOptions) {
	numImages := len(*data)
	numShapes := data.NumShapes()

	for i := range *data {
		img := &(*data)[i]
		for j := range img.ROIs {
			r := &img.ROIs[j]
			r.Shapes = slices.DeleteFunc(slices.Clone(r.Shapes), func(s Shape) bool {
				return !o.keepShape(s)
			})
			if len(o.Attributes) > 0 {
				for k := range r.Attributes {
					if !slices.Contains(o.Attributes, k) {
						delete(r.Attributes, k)
					}
				}
			}
		}
		img.ROIs = slices.DeleteFunc(img.ROIs, func(r ROI) bool { return !o.keepROI(r) })
	}

	if o.RequireROI {
		*data = slices.DeleteFunc(*data, func(img AnnotatedImage) bool { return len(img.ROIs) == 0 })
	}

	logger().Infof("Filtered out %d shapes and %d images",
		numShapes-data.NumShapes(), numImages-len(*data))
}

// Split randomly splits the data into multiple datasets.
//
// The cumulativeSplits specify the cumulative distribution according to which the data is split
// into the returned datasets. Its last value must be 100. A nil rng uses a time seeded source.
func (data AnnotatedImages) Split(cumulativeSplits []int, rng *rand.Rand) ([]AnnotatedImages, error) {
	datasets := make([]AnnotatedImages, len(cumulativeSplits))

	// Allocate slightly more than the expected size for each dataset.
	var sum int
	for i, s := range cumulativeSplits {
		percent := s - sum
		if percent < 0 {
			return nil, ErrInvalidSplit
		}
		datasets[i] = make(AnnotatedImages, 0, int(1.05*float64(percent)/100*float64(len(data))))
		sum = s
	}
	if sum != 100 {
		return nil, ErrInvalidSplit
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

outer:
	for _, d := range data {
		r := rng.Intn(100)
		for i, s := range cumulativeSplits {
			if r < s {
				datasets[i] = append(datasets[i], d)
				continue outer
			}
		}
	}

	return datasets, nil
}
