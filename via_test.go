package roiconv

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVIARoundTrip(t *testing.T) {
	withConfidence := func(r ROI) ROI {
		r.Attributes = map[string]interface{}{Confidence: 0.75}
		return r
	}
	data := AnnotatedImages{{
		ImagePath: "a.jpg",
		ROIs: []ROI{
			withConfidence(NewROI("car", NewRectangle(1, 2, 3, 4, WithLabel("car")))),
			NewROI("cell", NewEllipse(5, 5, 2, 1, WithLabel("cell"), WithZ(3))),
			NewROI("tri", NewPolygon([]Vertex{{0, 0}, {4, 0}, {2, 3}}, WithLabel("tri"))),
			NewROI("path", NewPolyline([]Vertex{{0, 0}, {4, 4}}, WithLabel("path"), WithPlane(1, 2, 3))),
			NewROI("dot", NewPoint(7, 8, WithLabel("dot"))),
			NewROI("note", NewLabel(9, 9, "some text", 14)),
		},
	}}

	path := filepath.Join(t.TempDir(), "via.json")
	require.NoError(t, WriteVIA(path, ToVIA(data)))
	got, err := FromVIA(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.jpg", got[0].ImagePath)
	require.Len(t, got[0].ROIs, len(data[0].ROIs))

	for i, want := range data[0].ROIs {
		gr := got[0].ROIs[i]
		assert.Equal(t, want.Name, gr.Name)
		require.Len(t, gr.Shapes, 1)
		assert.True(t, want.Shapes[0].Equal(gr.Shapes[0]), "%s: got %+v", want.Name, gr.Shapes[0])
	}
	assert.Equal(t, 0.75, got[0].ROIs[0].Attributes[Confidence])
	assert.Equal(t, "some text", got[0].ROIs[5].Attributes[DetectedText])
}

func TestToVIAShape(t *testing.T) {
	v := toVIAShape(NewLine(0, 1, 2, 3))
	assert.Equal(t, "polyline", v.Name)
	assert.Equal(t, []float64{0, 2}, v.AllPointsX)
	assert.Equal(t, []float64{1, 3}, v.AllPointsY)

	v = toVIAShape(NewRectangle(0, 0, 2, 1, WithTransform(Translation(1, 1))))
	assert.Equal(t, "polygon", v.Name)
	assert.Equal(t, []float64{1, 3, 3, 1}, v.AllPointsX)
	assert.Equal(t, []float64{1, 1, 2, 2}, v.AllPointsY)

	v = toVIAShape(NewPoint(1, 1, WithTransform(Scaling(2, 2))))
	assert.Equal(t, "point", v.Name)
	assert.Equal(t, 2.0, *v.CX)
}

func TestVIAShapeToShape(t *testing.T) {
	r := 3.0
	cx, cy := 1.0, 2.0
	s, err := VIAShape{Name: "circle", CX: &cx, CY: &cy, R: &r}.toShape("", None[float64](), nil)
	require.NoError(t, err)
	assert.Equal(t, NewEllipse(1, 2, 3, 3), s)

	theta := math.Pi / 2
	s, err = VIAShape{Name: "ellipse", CX: &cx, CY: &cy, RX: &r, RY: &r, Theta: &theta}.
		toShape("", None[float64](), nil)
	require.NoError(t, err)
	assert.True(t, s.Transform().IsSet())

	_, err = VIAShape{Name: "rect", X: &cx}.toShape("", None[float64](), nil)
	assert.Error(t, err)

	_, err = VIAShape{Name: "polygon", AllPointsX: []float64{1}}.toShape("", None[float64](), nil)
	assert.Error(t, err)

	_, err = VIAShape{Name: "hexagon"}.toShape("", None[float64](), nil)
	assert.ErrorIs(t, err, ErrUnknownShapeKind)
}
