package roiconv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processTestData(t *testing.T) (AnnotatedImages, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writeTestImage(t, in, 200, 100)

	return AnnotatedImages{{
		ImagePath: in,
		ROIs: []ROI{
			NewROI("box", NewRectangle(20, 10, 40, 20, WithLabel("box"))),
			NewROI("spot", NewEllipse(150, 50, 10, 10)),
			NewROI("outside", NewPoint(500, 500)),
		},
	}}, dir
}

func defaultProcessOptions(outDir string) ProcessOptions {
	o := DefaultConfig().ProcessOptions()
	o.OutDir = outDir
	o.Encoding = "png"
	return o
}

func TestProcessImagesResize(t *testing.T) {
	data, dir := processTestData(t)
	outDir := t.TempDir()
	o := defaultProcessOptions(outDir)
	o.LongerSide = 100

	require.NoError(t, data.ProcessImages(o))
	require.Len(t, data, 1)
	assert.Equal(t, filepath.Join(outDir, "in.png"), data[0].ImagePath)
	assert.NotEqual(t, dir, outDir)

	cfg, format, err := decodeImageConfig(data[0].ImagePath)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	assert.True(t, NewRectangle(10, 5, 20, 10, WithLabel("box")).Equal(data[0].ROIs[0].Shapes[0]))
	assert.True(t, NewEllipse(75, 25, 5, 5).Equal(data[0].ROIs[1].Shapes[0]))
}

func TestProcessImagesCrop(t *testing.T) {
	data, _ := processTestData(t)
	outDir := t.TempDir()
	o := defaultProcessOptions(outDir)
	o.CropROIs = true

	require.NoError(t, data.ProcessImages(o))
	require.Len(t, data, 2)

	byPath := map[string]AnnotatedImage{}
	for _, img := range data {
		byPath[filepath.Base(img.ImagePath)] = img
	}
	require.Contains(t, byPath, "in_00.png")
	require.Contains(t, byPath, "in_01.png")

	box := byPath["in_00.png"]
	require.Len(t, box.ROIs, 1)
	assert.Equal(t, "(20,10)(60,30)", box.ROIs[0].Attributes[CropCoords])
	assert.True(t, NewRectangle(0, 0, 40, 20, WithLabel("box")).Equal(box.ROIs[0].Shapes[0]))

	cfg, _, err := decodeImageConfig(box.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 20, cfg.Height)

	spot := byPath["in_01.png"]
	assert.True(t, NewEllipse(10, 10, 10, 10).Equal(spot.ROIs[0].Shapes[0]))
}

func TestProcessImagesNoop(t *testing.T) {
	data, _ := processTestData(t)
	before := data[0].ImagePath
	require.NoError(t, data.ProcessImages(ProcessOptions{}))
	assert.Equal(t, before, data[0].ImagePath)
}

func TestProcessImagesErrors(t *testing.T) {
	data, _ := processTestData(t)
	o := defaultProcessOptions(t.TempDir())
	o.LongerSide = 10

	o.Encoding = "gif"
	assert.ErrorIs(t, data.ProcessImages(o), ErrUnsupportedFormat)

	o.Encoding = "jpg"
	o.DownsamplingFilter = "bicubic"
	assert.Error(t, data.ProcessImages(o))

	missing := AnnotatedImages{{ImagePath: filepath.Join(t.TempDir(), "missing.png")}}
	o = defaultProcessOptions(t.TempDir())
	o.LongerSide = 10
	assert.Error(t, missing.ProcessImages(o))
}

func TestResizeImage(t *testing.T) {
	img := imagingNew(300, 600)
	filter, err := resampleFilter("linear")
	require.NoError(t, err)

	resized, sx, sy := resizeImage(img, 0, 150, filter, filter)
	assert.Equal(t, 150, resized.Bounds().Dx())
	assert.Equal(t, 300, resized.Bounds().Dy())
	assert.Equal(t, 0.5, sx)
	assert.Equal(t, 0.5, sy)
}
