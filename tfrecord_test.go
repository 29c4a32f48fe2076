package roiconv

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelMap(t *testing.T) {
	m := NewLabelMap()
	assert.Equal(t, int32(1), m.ID("cat"))
	assert.Equal(t, int32(2), m.ID("dog"))
	assert.Equal(t, int32(1), m.ID("cat"))
	assert.Equal(t, 2, m.Len())

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "item {\n  name: \"cat\"\n  id: 1\n}\nitem {\n  name: \"dog\"\n  id: 2\n}\n",
		buf.String())

	parsed, err := ReadLabelMap(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
	assert.Equal(t, int32(3), parsed.ID("bird"))
}

func TestReadLabelMap(t *testing.T) {
	m, err := ReadLabelMap(strings.NewReader(`# comment
item {
  id: 5
  name: 'traffic light'
  display_name: "Traffic light"
}
item {
  name: "a \"quoted\" label"
  id: 2
}
`))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, int32(5), m.ID("traffic light"))
	assert.Equal(t, int32(2), m.ID(`a "quoted" label`))
	assert.Equal(t, int32(6), m.ID("new"))

	for _, bad := range []string{
		"item {\n  id: 1\n}\n",
		"item {\n  name: \"x\"\n  id: 0\n}\n",
		"item {\n  name: \"x\"\n  id: 1\n",
		"}\n",
		"name: \"x\"\n",
		"item {\n  id: one\n}\n",
	} {
		_, err := ReadLabelMap(strings.NewReader(bad))
		assert.Error(t, err, "%q", bad)
	}
}

func readTFRecordExamples(t *testing.T, path string) []*tensorflow.Example {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var examples []*tensorflow.Example
	for {
		rec, err := tfrecord.Read(f)
		if err != nil {
			break
		}
		var e tensorflow.Example
		require.NoError(t, proto.Unmarshal(rec, &e))
		examples = append(examples, &e)
	}
	return examples
}

func TestWriteTFRecord(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	writeTestImage(t, imgPath, 200, 100)

	data := AnnotatedImages{
		{
			ImagePath: imgPath,
			ROIs: []ROI{
				NewROI("car", NewRectangle(20, 10, 100, 50)),
				NewROI("cells", NewEllipse(100, 50, 10, 10, WithLabel("nucleus")), NewPolygon(nil)),
			},
		},
		{ImagePath: filepath.Join(dir, "missing.png")},
	}

	labelMapPath := filepath.Join(dir, "labels.pbtxt")
	require.NoError(t, os.WriteFile(labelMapPath, []byte("item {\n  name: \"nucleus\"\n  id: 7\n}\n"), 0644))
	recordPath := filepath.Join(dir, "out.record")
	require.NoError(t, WriteTFRecord(recordPath, labelMapPath, data, 1))

	examples := readTFRecordExamples(t, recordPath)
	require.Len(t, examples, 1)
	feature := examples[0].GetFeatures().GetFeature()

	assert.Equal(t, []int64{100}, feature["image/height"].GetInt64List().Value)
	assert.Equal(t, []int64{200}, feature["image/width"].GetInt64List().Value)
	assert.Equal(t, [][]byte{[]byte("png")}, feature["image/format"].GetBytesList().Value)
	assert.InDeltaSlice(t, []float32{0.1, 0.45}, feature["image/object/bbox/xmin"].GetFloatList().Value, 1e-6)
	assert.InDeltaSlice(t, []float32{0.6, 0.55}, feature["image/object/bbox/xmax"].GetFloatList().Value, 1e-6)
	assert.Equal(t, [][]byte{[]byte("car"), []byte("nucleus")},
		feature["image/object/class/text"].GetBytesList().Value)
	assert.Equal(t, []int64{8, 7}, feature["image/object/class/label"].GetInt64List().Value)

	f, err := os.Open(labelMapPath)
	require.NoError(t, err)
	defer f.Close()
	labels, err := ReadLabelMap(f)
	require.NoError(t, err)
	assert.Equal(t, 2, labels.Len())
	assert.Equal(t, int32(8), labels.ID("car"))
}

func TestWriteTFRecordShards(t *testing.T) {
	dir := t.TempDir()
	var data AnnotatedImages
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		writeTestImage(t, p, 20, 10)
		data = append(data, AnnotatedImage{ImagePath: p, ROIs: []ROI{NewROI("x", NewPoint(1, 1))}})
	}

	recordPath := filepath.Join(dir, "out.record")
	require.NoError(t, WriteTFRecord(recordPath, filepath.Join(dir, "labels.pbtxt"), data, 2))

	assert.Len(t, readTFRecordExamples(t, recordPath+"-00000-of-00002"), 2)
	assert.Len(t, readTFRecordExamples(t, recordPath+"-00001-of-00002"), 1)
	assert.NoFileExists(t, recordPath)
}
