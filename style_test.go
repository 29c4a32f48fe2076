package roiconv

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStyle(t *testing.T) {
	s := DefaultStyle()
	assert.Equal(t, RGBA(0, 0, 0, 0), s.Fill)
	assert.Equal(t, RGBA(255, 255, 0, 255), s.Stroke)
	assert.Equal(t, 1.0, s.StrokeWidth)
}

func TestResolveStyle(t *testing.T) {
	red := RGBA(255, 0, 0, 255)

	got := ResolveStyle(NewPoint(0, 0), DefaultStyle())
	assert.Equal(t, DefaultStyle(), got)

	got = ResolveStyle(NewPoint(0, 0, WithStrokeColor(red), WithStrokeWidth(3)), DefaultStyle())
	assert.Equal(t, Style{Fill: Transparent, Stroke: red, StrokeWidth: 3}, got)
}

func TestFillStyle(t *testing.T) {
	red := RGBA(255, 0, 0, 255)
	data := AnnotatedImages{{
		ImagePath: "a.png",
		ROIs: []ROI{NewROI("r",
			NewRectangle(0, 0, 1, 1),
			NewPolygon([]Vertex{{0, 0}}, WithFillColor(red)))},
	}}
	data.FillStyle(DefaultStyle())

	shapes := data[0].ROIs[0].Shapes
	assert.Equal(t, Some(Yellow), shapes[0].StrokeColor())
	assert.Equal(t, Some(Transparent), shapes[0].FillColor())
	assert.Equal(t, Some(1.0), shapes[0].StrokeWidth())
	assert.Equal(t, Some(red), shapes[1].FillColor())
	assert.Equal(t, 1, shapes[1].(Polygon).NumPoints())
}

func TestColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 10, A: 255}, RGBA(300, -5, 10, 255).NRGBA())
	assert.Equal(t, "(1,2,3,4)", RGBA(1, 2, 3, 4).String())

	_, err := colorFromQuad([]int{1, 2, 3})
	assert.Error(t, err)

	var c Color
	assert.NoError(t, c.UnmarshalJSON([]byte("[1, 2, 3, 4]")))
	assert.Equal(t, RGBA(1, 2, 3, 4), c)
	enc, err := c.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, "[1,2,3,4]", string(enc))
}
