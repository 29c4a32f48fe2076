package roiconv

// TFRecord object detection specific functionality.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// TFRecordAnnotatedFile defines the TFRecord annotation structure for a single file.
type TFRecordAnnotatedFile struct {
	Annotations TFFeatureMap
	FilePath    string
}

// LabelMap assigns the integer class IDs used in TFRecord files to string labels. IDs start
// at 1; 0 is reserved for the background class.
type LabelMap struct {
	ids    map[string]int32
	nextID int32
}

// NewLabelMap returns an empty label map.
func NewLabelMap() *LabelMap {
	return &LabelMap{ids: make(map[string]int32), nextID: 1}
}

// ID returns the ID for label, assigning the next free one if label has no mapping yet.
func (m *LabelMap) ID(label string) int32 {
	id, ok := m.ids[label]
	if !ok {
		id = m.nextID
		m.ids[label] = id
		m.nextID++
	}
	return id
}

// Len returns the number of mapped labels.
func (m *LabelMap) Len() int {
	return len(m.ids)
}

// WriteTo writes the label map in the object detection API text format, ordered by ID:
//
//	item {
//	  name: "cat"
//	  id: 1
//	}
func (m *LabelMap) WriteTo(w io.Writer) (int64, error) {
	names := make([]string, 0, len(m.ids))
	for k := range m.ids {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return m.ids[names[i]] < m.ids[names[j]] })

	var total int64
	for _, name := range names {
		n, err := fmt.Fprintf(w, "item {\n  name: %s\n  id: %d\n}\n", strconv.Quote(name), m.ids[name])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadLabelMap parses a label map in the object detection API text format. Fields other than
// name and id are ignored.
func ReadLabelMap(r io.Reader) (*LabelMap, error) {
	m := NewLabelMap()
	var name string
	var id int32
	inItem := false

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "item") && strings.HasSuffix(line, "{"):
			inItem, name, id = true, "", 0
		case line == "}":
			if !inItem {
				return nil, fmt.Errorf("line %d: unexpected }", lineNo)
			}
			if name == "" || id <= 0 {
				return nil, fmt.Errorf("line %d: invalid entry: %s: %d", lineNo, name, id)
			}
			m.ids[name] = id
			if id >= m.nextID {
				m.nextID = id + 1
			}
			inItem = false
		default:
			key, value, ok := strings.Cut(line, ":")
			if !ok || !inItem {
				return nil, fmt.Errorf("line %d: unexpected %q", lineNo, line)
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(key) {
			case "name":
				s, err := unquoteText(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid name %s: %w", lineNo, value, err)
				}
				name = s
			case "id":
				v, err := strconv.ParseInt(value, 10, 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid id %s: %w", lineNo, value, err)
				}
				id = int32(v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inItem {
		return nil, fmt.Errorf("unterminated item")
	}
	return m, nil
}

// unquoteText unquotes a text format string, which may use single or double quotes.
func unquoteText(s string) (string, error) {
	if n := len(s); n >= 2 && s[0] == '\'' && s[n-1] == '\'' {
		s = `"` + strings.ReplaceAll(s[1:n-1], `"`, `\"`) + `"`
	}
	return strconv.Unquote(s)
}

// loadLabelMap loads the label map from path.
//
// If an error occurs because the file does not exist, then os.IsNotExist will return true for the
// error.
func loadLabelMap(path string) (m *LabelMap, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(file, &err)

	return ReadLabelMap(file)
}

// saveLabelMap writes the label map to path.
func saveLabelMap(path string, m *LabelMap) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %w", path, err)
	}
	defer closeWithErrCheck(file, &err)

	if _, err := m.WriteTo(file); err != nil {
		return fmt.Errorf("failed to write the label map %q: %w", path, err)
	}
	return nil
}

// toTFRecord converts the intermediate representation for a single image to the TFRecord format.
// Each shape with bounds becomes one object, labelled with its shape label or else the ROI
// label.
func toTFRecord(img AnnotatedImage, labels *LabelMap) (TFRecordAnnotatedFile, error) {
	// Get the image width and height.
	cfg, format, err := decodeImageConfig(img.ImagePath)
	if err != nil {
		return TFRecordAnnotatedFile{}, fmt.Errorf("failed to decode the image metadata: %w", err)
	}

	// Read the image data.
	imgData, err := os.ReadFile(img.ImagePath)
	if err != nil {
		return TFRecordAnnotatedFile{}, fmt.Errorf("failed to read the image: %w", err)
	}

	// Prepare the feature map for the per file data.
	f := make(TFFeatureMap, 16)
	f["image/height"] = cfg.Height
	f["image/width"] = cfg.Width
	f["image/filename"] = img.ImagePath
	f["image/source_id"] = img.ImagePath
	f["image/encoded"] = imgData
	f["image/format"] = format

	// Prepare the per object data.
	var xmins, ymins, xmaxs, ymaxs []float32
	var classes, kinds []string
	var classIDs []int64
	for _, roi := range img.ROIs {
		for _, s := range roi.Shapes {
			box, ok := s.Bounds()
			if !ok {
				continue
			}
			label, ok := ShapeLabel(s)
			if !ok || s.Kind() == KindLabel {
				label = roi.Label()
			}

			box = box.Scale(1/float64(cfg.Width), 1/float64(cfg.Height))
			xmins = append(xmins, float32(box.X1))
			ymins = append(ymins, float32(box.Y1))
			xmaxs = append(xmaxs, float32(box.X2))
			ymaxs = append(ymaxs, float32(box.Y2))
			classes = append(classes, label)
			classIDs = append(classIDs, int64(labels.ID(label)))
			kinds = append(kinds, s.Kind().String())
		}
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs
	f["image/object/shape/kind"] = kinds

	return TFRecordAnnotatedFile{
		Annotations: f,
		FilePath:    img.ImagePath,
	}, nil
}

// WriteCustomTFRecord works like WriteTFRecord, except that it allows for the TFFeatureMap to be
// customised.
//
// Before generating a tensorflow.Example from each AnnotatedImage and writing it to the TFRecord
// file, the source data and TFFeatureMap containing the default conversion for object records are
// passed to customiseFeature, which may modify the feature map to its liking, as long as all of its
// values can be converted to tensorflow.Feature.
func WriteCustomTFRecord(recordFilePath, labelMapPath string, data AnnotatedImages,
	numShards int, customiseFeature func(img AnnotatedImage, m TFFeatureMap)) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}
	p := newProgress()

	// Extend an existing label map. It is not an error if the file does not exist.
	labels, err := loadLabelMap(labelMapPath)
	if err == nil {
		logger().Info("Label map loaded", "path", labelMapPath, "labels", labels.Len())
	} else if os.IsNotExist(err) {
		logger().Info("Creating a new label map", "path", labelMapPath)
		labels = NewLabelMap()
	} else {
		return fmt.Errorf("failed to read the label map from %q: %w", labelMapPath, err)
	}

	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	for shardIdx := 0; shardIdx*shardSize < len(data); shardIdx++ {
		shardPath := recordFilePath
		if numShards > 1 {
			shardPath += fmt.Sprintf("-%05d-of-%05d", shardIdx, numShards)
		}
		end := min((shardIdx+1)*shardSize, len(data))
		if err := writeTFRecordShard(shardPath, data[shardIdx*shardSize:end], labels,
			customiseFeature); err != nil {
			return err
		}
	}

	if err := saveLabelMap(labelMapPath, labels); err != nil {
		return err
	}
	p.done("Wrote TFRecord", "path", recordFilePath, "images", len(data), "shards", numShards)
	return nil
}

// writeTFRecordShard converts and serialises one image at a time to the shard file at path.
// Images that fail to convert are logged and skipped.
func writeTFRecordShard(path string, data AnnotatedImages, labels *LabelMap,
	customiseFeature func(img AnnotatedImage, m TFFeatureMap)) (err error) {
	shardFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create shard at %q: %w", path, err)
	}
	defer closeWithErrCheck(shardFile, &err)

	for _, img := range data {
		tfFileData, err := toTFRecord(img, labels)
		if err != nil {
			logger().Warn("Failed to convert", "path", img.ImagePath, "err", err)
			continue
		}
		if customiseFeature != nil {
			customiseFeature(img, tfFileData.Annotations)
		}
		tfExample := example.New(tfFileData.Annotations)

		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			return fmt.Errorf("failed to write example for %q: %w", img.ImagePath, err)
		}
	}
	return nil
}

// WriteTFRecord does a streaming conversion, serialisation and file write for the annotation data
// to one or more TFRecord files stored under recordFilePath (with suffixes added when numShards>1).
//
// The label map at labelMapPath is extended with new labels, or created if missing.
func WriteTFRecord(recordFilePath, labelMapPath string, data AnnotatedImages, numShards int) error {
	return WriteCustomTFRecord(recordFilePath, labelMapPath, data, numShards, nil)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}
