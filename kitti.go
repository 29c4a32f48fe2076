package roiconv

// KITTI specific functionality. KITTI only knows bounding boxes: shapes are read as Rectangles
// and written as their image space bounds.

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// KITTIAnnotation is a single annotation within a KITTI file.
type KITTIAnnotation struct {
	Box   Box
	Label string
	Score float64 // Optional, linear confidence value. No fixed range.
}

// KITTIAnnotatedFile defines the KITTI annotation structure for a single file.
type KITTIAnnotatedFile struct {
	Annotations []KITTIAnnotation
	FilePath    string
}

// FromKitti reads and parses KITTI annotations from labelDir and matches them to the images in
// imageDir.
func FromKitti(labelDir, imageDir string) (AnnotatedImages, error) {
	return parseLabelsWithOneToOneImages(labelDir, ".txt", imageDir, parseKittiFile)
}

// parseKittiFile parses the KITTI label file at labelPath. Lines that fail to parse are logged
// and skipped.
func parseKittiFile(labelPath, imagePath string) (AnnotatedImage, error) {
	lines, err := readLines(labelPath)
	if err != nil {
		return AnnotatedImage{}, err
	}

	img := AnnotatedImage{ImagePath: imagePath, ROIs: make([]ROI, 0, len(lines))}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, err := parseKittiAnnotation(line)
		if err != nil {
			logger().Warn("Error while parsing, skipping line", "path", labelPath, "err", err)
			continue
		}

		b := a.Box
		roi := NewROI(a.Label,
			NewRectangle(b.X1, b.Y1, b.Width(), b.Height(), WithLabel(a.Label)))
		if a.Score != 0 {
			roi.setAttribute(Confidence, a.Score)
		}
		img.ROIs = append(img.ROIs, roi)
	}

	return img, nil
}

// parseKittiAnnotation parses the line of values for a single annotation.
func parseKittiAnnotation(line string) (KITTIAnnotation, error) {
	a := KITTIAnnotation{}

	tokens := strings.Fields(line)
	if len(tokens) < 8 {
		return a, fmt.Errorf("insufficient tokens in %q", line)
	}

	a.Label = tokens[0]
	var coords [4]float64
	var err error
	for i := 4; i < 8 && err == nil; i++ {
		coords[i-4], err = strconv.ParseFloat(tokens[i], 64)
	}
	if err != nil {
		return a, fmt.Errorf("unexpected values in %q: %w", line, err)
	}
	a.Box = Box{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}

	// Parse the optional confidence score.
	if len(tokens) >= 16 {
		a.Score, err = strconv.ParseFloat(tokens[15], 64)
	}
	if err != nil {
		return a, fmt.Errorf("unexpected score format in %q: %w", line, err)
	}

	return a, nil
}

// ToKitti converts the intermediate representation to KITTI format, one annotation per shape.
// Shapes without bounds are skipped.
func ToKitti(data AnnotatedImages) []KITTIAnnotatedFile {
	kittiData := make([]KITTIAnnotatedFile, 0, len(data))
	for _, img := range data {
		kittiFile := KITTIAnnotatedFile{FilePath: img.ImagePath}
		for _, roi := range img.ROIs {
			score, _ := roi.Attributes[Confidence].(float64)
			for _, s := range roi.Shapes {
				box, ok := s.Bounds()
				if !ok {
					continue
				}
				label, ok := ShapeLabel(s)
				if !ok || s.Kind() == KindLabel {
					label = roi.Label()
				}
				kittiFile.Annotations = append(kittiFile.Annotations, KITTIAnnotation{
					Box:   box,
					Label: kittiLabel(label),
					Score: score,
				})
			}
		}
		kittiData = append(kittiData, kittiFile)
	}

	return kittiData
}

// kittiLabel makes label usable as the first space separated KITTI token.
func kittiLabel(label string) string {
	if label == "" {
		return "DontCare"
	}
	return strings.Join(strings.Fields(label), "_")
}

// WriteKitti writes data to dirPath, one file per element.
func WriteKitti(dirPath string, data []KITTIAnnotatedFile) error {
	dirInfo, err := os.Stat(dirPath)
	if err != nil || !dirInfo.IsDir() {
		return fmt.Errorf("cannot access directory %q: %v", dirPath, err)
	}

	for _, fileData := range data {
		// Use the image file name with .txt extension as label file name.
		_, baseNoExt, _, err := splitPath(fileData.FilePath)
		if err != nil {
			return err
		}
		if err := writeKittiFile(filepath.Join(dirPath, baseNoExt+".txt"), fileData); err != nil {
			return err
		}
	}

	return nil
}

func writeKittiFile(path string, fileData KITTIAnnotatedFile) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(file, &err)

	for _, a := range fileData.Annotations {
		_, err = fmt.Fprintf(file,
			"%s 0.0 0 0.0 %.2f %.2f %.2f %.2f 0.0 0.0 0.0 0.0 0.0 0.0 0.0 %f\n",
			a.Label, a.Box.X1, a.Box.Y1, a.Box.X2, a.Box.Y2, a.Score)
		if err != nil {
			return err
		}
	}
	return nil
}
