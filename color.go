package roiconv

import (
	"encoding/json"
	"fmt"
	"image/color"

	"gopkg.in/yaml.v3"
)

// Color is an RGBA quadruple. Components are nominally in [0, 255] but are not range checked;
// out of range values are passed through unchanged and only clamped by NRGBA.
type Color struct {
	R, G, B, A int
}

// Predefined colors used by the presentation defaults.
var (
	Transparent = Color{0, 0, 0, 0}
	Yellow      = Color{255, 255, 0, 255}
)

// RGBA returns the color with the given components.
func RGBA(r, g, b, a int) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// NRGBA converts c to a non-premultiplied image/color value, clamping each component to
// [0, 255].
func (c Color) NRGBA() color.NRGBA {
	clamp := func(v int) uint8 {
		if v < 0 {
			return 0
		} else if v > 255 {
			return 255
		}
		return uint8(v)
	}
	return color.NRGBA{R: clamp(c.R), G: clamp(c.G), B: clamp(c.B), A: clamp(c.A)}
}

// String formats c as "(r,g,b,a)".
func (c Color) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", c.R, c.G, c.B, c.A)
}

// quad and colorFromQuad convert to and from the [r, g, b, a] list form used in files.
func (c Color) quad() []int {
	return []int{c.R, c.G, c.B, c.A}
}

func colorFromQuad(q []int) (Color, error) {
	if len(q) != 4 {
		return Color{}, fmt.Errorf("color needs 4 components, got %d", len(q))
	}
	return Color{R: q[0], G: q[1], B: q[2], A: q[3]}, nil
}

// MarshalYAML encodes c as [r, g, b, a].
func (c Color) MarshalYAML() (interface{}, error) {
	return c.quad(), nil
}

// UnmarshalYAML decodes c from [r, g, b, a].
func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	var q []int
	if err := n.Decode(&q); err != nil {
		return err
	}
	v, err := colorFromQuad(q)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalJSON encodes c as [r, g, b, a].
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.quad())
}

// UnmarshalJSON decodes c from [r, g, b, a].
func (c *Color) UnmarshalJSON(data []byte) error {
	var q []int
	if err := json.Unmarshal(data, &q); err != nil {
		return err
	}
	v, err := colorFromQuad(q)
	if err != nil {
		return err
	}
	*c = v
	return nil
}
