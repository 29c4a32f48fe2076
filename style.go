package roiconv

// Presentation defaults for absent style attributes.

// Style is a fully resolved set of presentation attributes.
type Style struct {
	Fill        Color   `yaml:"fill" json:"fill"`
	Stroke      Color   `yaml:"stroke" json:"stroke"`
	StrokeWidth float64 `yaml:"strokeWidth" json:"strokeWidth"`
}

// DefaultStyle returns the defaults substituted for absent style attributes: a transparent
// fill, a yellow stroke (the OMERO.iviewer default) and a stroke width of 1.
func DefaultStyle() Style {
	return Style{Fill: Transparent, Stroke: Yellow, StrokeWidth: 1}
}

// ResolveStyle returns the style of s, taking absent attributes from defaults.
func ResolveStyle(s Shape, defaults Style) Style {
	return Style{
		Fill:        s.FillColor().Or(defaults.Fill),
		Stroke:      s.StrokeColor().Or(defaults.Stroke),
		StrokeWidth: s.StrokeWidth().Or(defaults.StrokeWidth),
	}
}

// FillStyle sets the absent style attributes of every shape to the values in defaults, so that
// formats without a notion of defaults carry the intended presentation.
func (data AnnotatedImages) FillStyle(defaults Style) {
	for i := range data {
		for j := range data[i].ROIs {
			data[i].ROIs[j].mapShapes(func(s Shape) Shape {
				st := ResolveStyle(s, defaults)
				return withAttrs(s, func(a *attrs) {
					a.fill = Some(st.Fill)
					a.stroke = Some(st.Stroke)
					a.strokeWidth = Some(st.StrokeWidth)
				})
			})
		}
	}
}
