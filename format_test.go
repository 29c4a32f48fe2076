package roiconv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{ROIFormat, AWSDetectLabels, AWSDetectText, Kitti, Sloth, TFRecord, VIA} {
		parsed, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	_, err := ParseFormat("pascal-voc")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "unknown", Unknown.String())
}

func TestFormatCapabilities(t *testing.T) {
	assert.True(t, VIA.CanRead())
	assert.True(t, VIA.CanWrite())
	assert.False(t, TFRecord.CanRead())
	assert.False(t, AWSDetectText.CanWrite())
	assert.True(t, Kitti.NeedsImageDir())
	assert.False(t, Sloth.NeedsImageDir())
}

func TestReadWriteDispatch(t *testing.T) {
	dir := t.TempDir()
	data := AnnotatedImages{{
		ImagePath: "a.png",
		ROIs:      []ROI{NewROI("car", NewRectangle(1, 2, 3, 4, WithLabel("car")))},
	}}

	for _, f := range []Format{ROIFormat, Sloth, VIA} {
		t.Run(f.String(), func(t *testing.T) {
			path := filepath.Join(dir, f.String()+".json")
			require.NoError(t, Write(f, path, data, WriteOptions{}))
			got, err := Read(f, path, "")
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Len(t, got[0].ROIs, 1)
			assert.True(t, data[0].ROIs[0].Shapes[0].Equal(got[0].ROIs[0].Shapes[0]))
		})
	}

	_, err := Read(TFRecord, dir, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, Write(AWSDetectLabels, dir, data, WriteOptions{}), ErrUnsupportedFormat)
	assert.Error(t, Write(TFRecord, filepath.Join(dir, "out.record"), data, WriteOptions{}))
	_, statErr := os.Stat(filepath.Join(dir, "out.record"))
	assert.True(t, os.IsNotExist(statErr))
}
