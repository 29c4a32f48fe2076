package roiconv

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewROI(t *testing.T) {
	a := NewROI("cell", NewPoint(1, 1))
	b := NewROI("cell", NewPoint(1, 1))

	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "cell", a.Label())
}

func TestROIBounds(t *testing.T) {
	r := NewROI("", NewPolygon(nil), NewRectangle(0, 0, 2, 2), NewPoint(5, -1))
	b, ok := r.Bounds()
	require.True(t, ok)
	assert.Equal(t, Box{0, -1, 5, 2}, b)

	_, ok = NewROI("", NewPolygon(nil)).Bounds()
	assert.False(t, ok)
}

func TestROILabel(t *testing.T) {
	r := NewROI("", NewLine(0, 0, 1, 1), NewPoint(0, 0, WithLabel("dot")))
	assert.Equal(t, "dot", r.Label())
	assert.Equal(t, "", NewROI("").Label())
}

func testImages() AnnotatedImages {
	withConfidence := func(r ROI, c float64) ROI {
		r.Attributes = map[string]interface{}{Confidence: c, DetectedText: "abc"}
		return r
	}
	return AnnotatedImages{
		{
			ImagePath: "a.png",
			ROIs: []ROI{
				withConfidence(NewROI("car", NewRectangle(0, 0, 10, 5, WithLabel("car"))), 0.9),
				withConfidence(NewROI("person", NewRectangle(0, 0, 2, 8, WithLabel("person"))), 0.3),
			},
		},
		{
			ImagePath: "b.png",
			ROIs: []ROI{
				NewROI("cells",
					NewEllipse(5, 5, 2, 2, WithLabel("nucleus"), WithZ(0)),
					NewEllipse(5, 5, 3, 3, WithLabel("nucleus"), WithZ(1)),
					NewPoint(1, 1, WithLabel("spot")),
					NewLabel(0, 0, "note", 10)),
			},
		},
	}
}

func TestMapLabels(t *testing.T) {
	data := testImages()
	require.NoError(t, data.MapLabels([]string{"car=vehicle", "nucleus=nuc", "note=text"}))

	assert.Equal(t, "vehicle", data[0].ROIs[0].Name)
	l, _ := ShapeLabel(data[0].ROIs[0].Shapes[0])
	assert.Equal(t, "vehicle", l)

	shapes := data[1].ROIs[0].Shapes
	l, _ = ShapeLabel(shapes[0])
	assert.Equal(t, "nuc", l)
	assert.Equal(t, "text", shapes[3].(Label).Text())

	// Geometry and planes are kept.
	assert.Equal(t, Some(1), shapes[1].Z())
	assert.Equal(t, 3.0, shapes[1].(Ellipse).RadiusX())

	assert.ErrorIs(t, data.MapLabels([]string{"novalue"}), ErrInvalidMapping)
	assert.ErrorIs(t, data.MapLabels([]string{"a=b=c"}), ErrInvalidMapping)
	assert.NoError(t, data.MapLabels(nil))
}

func TestFilter(t *testing.T) {
	t.Run("kinds", func(t *testing.T) {
		data := testImages()
		data.Filter(FilterOptions{Kinds: []Kind{KindEllipse}})
		require.Len(t, data, 2)
		assert.Empty(t, data[0].ROIs)
		assert.Len(t, data[1].ROIs[0].Shapes, 2)
	})

	t.Run("labels and require ROI", func(t *testing.T) {
		data := testImages()
		data.Filter(FilterOptions{Labels: []string{"spot"}, RequireROI: true})
		require.Len(t, data, 1)
		assert.Equal(t, "b.png", data[0].ImagePath)
		assert.Len(t, data[0].ROIs[0].Shapes, 1)
	})

	t.Run("plane keeps unlinked shapes", func(t *testing.T) {
		data := testImages()
		data.Filter(FilterOptions{Z: Some(1)})
		shapes := data[1].ROIs[0].Shapes
		require.Len(t, shapes, 3)
		assert.Equal(t, Some(1), shapes[0].Z())
		assert.Len(t, data[0].ROIs, 2)
	})

	t.Run("confidence", func(t *testing.T) {
		data := testImages()
		data.Filter(FilterOptions{MinConfidence: 0.5})
		require.Len(t, data[0].ROIs, 1)
		assert.Equal(t, "car", data[0].ROIs[0].Name)
		assert.Len(t, data[1].ROIs, 1)
	})

	t.Run("size and aspect ratio", func(t *testing.T) {
		data := testImages()
		data.Filter(FilterOptions{MinWidth: 5, MaxAspectRatio: 1.5})
		assert.Empty(t, data[0].ROIs)
		assert.Len(t, data[1].ROIs[0].Shapes, 1)

		data = testImages()
		data.Filter(FilterOptions{MinAspectRatio: 1})
		require.Len(t, data[0].ROIs, 1)
		assert.Equal(t, "car", data[0].ROIs[0].Name)
	})

	t.Run("aspect ratio drops zero height shapes", func(t *testing.T) {
		data := AnnotatedImages{{ROIs: []ROI{
			NewROI("p", NewPoint(5, 5)),
			NewROI("l", NewLine(0, 5, 10, 5)),
			NewROI("r", NewRectangle(0, 0, 10, 10)),
		}}}
		data.Filter(FilterOptions{MinAspectRatio: 0.5, MaxAspectRatio: 2})
		require.Len(t, data[0].ROIs, 1)
		assert.Equal(t, "r", data[0].ROIs[0].Name)

		data = AnnotatedImages{{ROIs: []ROI{NewROI("l", NewLine(0, 5, 10, 5))}}}
		data.Filter(FilterOptions{MaxAspectRatio: 100})
		assert.Empty(t, data[0].ROIs)
	})

	t.Run("attributes", func(t *testing.T) {
		data := testImages()
		data.Filter(FilterOptions{Attributes: []string{Confidence}, RequiredAttrs: []string{Confidence}})
		require.Len(t, data[0].ROIs, 2)
		assert.Equal(t, map[string]interface{}{Confidence: 0.9}, data[0].ROIs[0].Attributes)
		assert.Empty(t, data[1].ROIs)
	})

	t.Run("original shapes are not modified", func(t *testing.T) {
		data := testImages()
		shapes := data[1].ROIs[0].Shapes
		data.Filter(FilterOptions{Kinds: []Kind{KindPoint}})
		assert.Equal(t, KindEllipse, shapes[0].Kind())
	})
}

func TestSplit(t *testing.T) {
	data := make(AnnotatedImages, 1000)
	for i := range data {
		data[i].ImagePath = string(rune('a' + i%26))
	}

	datasets, err := data.Split([]int{70, 90, 100}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, datasets, 3)

	total := 0
	for _, ds := range datasets {
		total += len(ds)
	}
	assert.Equal(t, len(data), total)
	assert.InDelta(t, 700, len(datasets[0]), 60)
	assert.InDelta(t, 200, len(datasets[1]), 60)
	assert.InDelta(t, 100, len(datasets[2]), 60)

	again, err := data.Split([]int{70, 90, 100}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, datasets, again)

	_, err = data.Split([]int{50, 90}, nil)
	assert.ErrorIs(t, err, ErrInvalidSplit)
	_, err = data.Split([]int{50, 40, 100}, nil)
	assert.ErrorIs(t, err, ErrInvalidSplit)
}
