package roiconv

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for unknown formats or unsupported conversion directions.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format is a label file format.
type Format int

// The known label formats.
const (
	Unknown         Format = iota // If an unknown format is specified.
	ROIFormat                     // Native YAML or JSON ROI file.
	AWSDetectLabels               // AWS Rekognition detect-labels.
	AWSDetectText                 // AWS Rekognition detect-text.
	Kitti
	Sloth
	TFRecord
	VIA // VGG Image Annotator
)

var formatNames = map[Format]string{
	ROIFormat:       "roi",
	AWSDetectLabels: "aws-dl",
	AWSDetectText:   "aws-dt",
	Kitti:           "kitti",
	Sloth:           "sloth",
	TFRecord:        "tfrecord",
	VIA:             "via",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// ParseFormat returns the format with the given command line name.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// CanRead reports whether f is supported as an input format.
func (f Format) CanRead() bool {
	switch f {
	case ROIFormat, AWSDetectLabels, AWSDetectText, Kitti, Sloth, VIA:
		return true
	}
	return false
}

// CanWrite reports whether f is supported as an output format.
func (f Format) CanWrite() bool {
	switch f {
	case ROIFormat, Kitti, Sloth, TFRecord, VIA:
		return true
	}
	return false
}

// NeedsImageDir reports whether reading f requires the image directory in addition to the
// labels.
func (f Format) NeedsImageDir() bool {
	return f == AWSDetectLabels || f == AWSDetectText || f == Kitti
}

// Read parses the labels at labelPath, which is a file or a directory depending on the format.
// imageDir is only used by formats for which NeedsImageDir is true.
func Read(f Format, labelPath, imageDir string) (AnnotatedImages, error) {
	switch f {
	case ROIFormat:
		return ReadROIFile(labelPath)
	case AWSDetectLabels:
		return FromAWSDetectLabels(labelPath, imageDir)
	case AWSDetectText:
		return FromAWSDetectText(labelPath, imageDir)
	case Kitti:
		return FromKitti(labelPath, imageDir)
	case Sloth:
		return FromSloth(labelPath)
	case VIA:
		return FromVIA(labelPath)
	}
	return nil, fmt.Errorf("%w: cannot read %s", ErrUnsupportedFormat, f)
}

// WriteOptions holds the settings that only apply to some output formats.
type WriteOptions struct {
	LabelMapPath string // TFRecord label map file.
	NumShards    int    // Number of TFRecord shard files.
}

// Write writes data to outPath, which is a file or a directory depending on the format.
func Write(f Format, outPath string, data AnnotatedImages, o WriteOptions) error {
	switch f {
	case ROIFormat:
		return WriteROIFile(outPath, data)
	case Kitti:
		return WriteKitti(outPath, ToKitti(data))
	case Sloth:
		return WriteSloth(outPath, ToSloth(data))
	case TFRecord:
		if o.LabelMapPath == "" {
			return errors.New("missing TFRecord label map path")
		}
		return WriteTFRecord(outPath, o.LabelMapPath, data, o.NumShards)
	case VIA:
		return WriteVIA(outPath, ToVIA(data))
	}
	return fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, f)
}
