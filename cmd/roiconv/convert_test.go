package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/roiconv"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConvertSlothToROIFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.yaml")
	require.NoError(t, os.WriteFile(in, []byte(`[
  {"filename": "a.jpg", "annotations": [
    {"class": "car", "type": "rect", "x": 1, "y": 2, "width": 30, "height": 40},
    {"class": "person", "type": "rect", "x": 1, "y": 2, "width": 3, "height": 4},
    {"class": "dot", "type": "point", "x": 5, "y": 5}
  ]}
]`), 0644))

	_, err := execute(t, "convert",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--from", "sloth", "--to", "roi",
		"--labels", in, "--labels-out", out,
		"--map-labels", "car=vehicle",
		"--filter-kinds", "rectangle",
		"--min-bbox-width", "10",
		"--fill-style")
	require.NoError(t, err)

	data, err := roiconv.ReadROIFile(out)
	require.NoError(t, err)
	require.Len(t, data, 1)
	require.Len(t, data[0].ROIs, 1)
	r := data[0].ROIs[0]
	assert.Equal(t, "vehicle", r.Name)
	assert.Equal(t, roiconv.Some(roiconv.Yellow), r.Shapes[0].StrokeColor())
}

func TestConvertSplit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	var data roiconv.AnnotatedImages
	for _, name := range []string{"a", "b", "c", "d"} {
		data = append(data, roiconv.AnnotatedImage{
			ImagePath: name + ".png",
			ROIs:      []roiconv.ROI{roiconv.NewROI("x", roiconv.NewPoint(1, 1))},
		})
	}
	require.NoError(t, roiconv.WriteROIFile(in, data))

	outA, outB := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")
	_, err := execute(t, "convert", "--config", filepath.Join(dir, "missing.yaml"),
		"--from", "roi", "--to", "via", "--labels", in,
		"--labels-out", outA+","+outB, "--split", "50,50")
	require.NoError(t, err)

	a, err := roiconv.FromVIA(outA)
	require.NoError(t, err)
	b, err := roiconv.FromVIA(outB)
	require.NoError(t, err)
	assert.Equal(t, 4, len(a)+len(b))
}

func TestConvertValidation(t *testing.T) {
	base := func() *convertOptions {
		o := &convertOptions{
			from:      "sloth",
			to:        "via",
			labels:    "in.json",
			labelsOut: []string{"out.json"},
			splits:    []int{100},
		}
		o.process.JPEGQuality = 90
		return o
	}

	_, _, err := base().validate()
	require.NoError(t, err)

	tests := []struct {
		name   string
		modify func(o *convertOptions)
	}{
		{"unknown input", func(o *convertOptions) { o.from = "xml" }},
		{"write only input", func(o *convertOptions) { o.from = "tfrecord" }},
		{"read only output", func(o *convertOptions) { o.to = "aws-dl" }},
		{"missing images", func(o *convertOptions) { o.from = "kitti" }},
		{"missing labels", func(o *convertOptions) { o.labels = "" }},
		{"split count", func(o *convertOptions) { o.splits = []int{50, 50} }},
		{"split sum", func(o *convertOptions) { o.splits = []int{90} }},
		{"label map", func(o *convertOptions) { o.to = "tfrecord" }},
		{"image out", func(o *convertOptions) { o.process.CropROIs = true }},
		{"jpeg quality", func(o *convertOptions) { o.process.JPEGQuality = 0 }},
		{"confidence", func(o *convertOptions) { o.filter.MinConfidence = 1 }},
		{"same labels", func(o *convertOptions) { o.labelsOut = []string{"./in.json"} }},
		{"same images", func(o *convertOptions) {
			o.imageDir, o.imageOutDir = "img", "img/"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base()
			tt.modify(o)
			_, _, err := o.validate()
			assert.Error(t, err)
		})
	}
}

func TestFilterOptions(t *testing.T) {
	o := &convertOptions{kinds: []string{"point", "label"}, z: 2, c: -1, t: -1}
	fo, err := o.filterOptions()
	require.NoError(t, err)
	assert.Equal(t, []roiconv.Kind{roiconv.KindPoint, roiconv.KindLabel}, fo.Kinds)
	assert.Equal(t, roiconv.Some(2), fo.Z)
	assert.False(t, fo.C.IsSet())

	o.kinds = []string{"circle"}
	_, err = o.filterOptions()
	assert.ErrorIs(t, err, roiconv.ErrUnknownShapeKind)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roiconv.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := roiconv.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, roiconv.DefaultConfig(), cfg)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", "--force", path)
	assert.NoError(t, err)
}
