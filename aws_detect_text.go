package roiconv

// AWS Rekognition detect-text specific functionality.

// AWSGeometry is the geometry of a text object annotation.
type AWSGeometry struct {
	BoundingBox AWSBoundingBox
	Polygon     []AWSPoint
}

// AWSTextDetection is a single text annotation within an AWS detect-text label file.
type AWSTextDetection struct {
	Confidence   float64 // Range [0, 100].
	DetectedText string
	Geometry     AWSGeometry
	ID           int
	ParentID     *int   // Nil when Type=="LINE".
	Type         string // LINE or WORD.
}

// AWSDTAnnotatedFile defines the AWS text detection annotation structure for a single file.
type AWSDTAnnotatedFile struct {
	Annotations []AWSTextDetection `json:"TextDetections"`
	FilePath    string             `json:"-"`
}

// FromAWSDetectText reads and parses AWS detect-text annotations from labelDir and matches them
// to the images in imageDir.
func FromAWSDetectText(labelDir, imageDir string) (AnnotatedImages, error) {
	return parseLabelsWithOneToOneImages(labelDir, ".json", imageDir, parseAWSDetectTextFile)
}

// parseAWSDetectTextFile parses the label file at labelPath and reads metadata from the
// corresponding image at imagePath to construct an AnnotatedImage.
//
// Each detection becomes an ROI named "Text_Line" or "Text_Word" (and fallback "Text"),
// according to the AWSTextDetection.Type. The shape is the detection polygon, or the bounding
// box when no polygon is given. The shape label is the detected text.
func parseAWSDetectTextFile(labelPath, imagePath string) (AnnotatedImage, error) {
	var awsFileData AWSDTAnnotatedFile
	width, height, err := readAWSFile(labelPath, imagePath, &awsFileData)
	if err != nil {
		return AnnotatedImage{}, err
	}

	img := AnnotatedImage{
		ImagePath: imagePath,
		ROIs:      make([]ROI, 0, len(awsFileData.Annotations)),
	}
	for _, a := range awsFileData.Annotations {
		name := "Text"
		if a.Type == "LINE" {
			name = "Text_Line"
		} else if a.Type == "WORD" {
			name = "Text_Word"
		}

		var s Shape
		if poly := a.Geometry.Polygon; len(poly) > 0 {
			vs := make([]Vertex, len(poly))
			for i, p := range poly {
				vs[i] = Vertex{p.X * float64(width), p.Y * float64(height)}
			}
			s = NewPolygon(vs, WithLabel(a.DetectedText))
		} else {
			s = a.Geometry.BoundingBox.toRectangle(width, height, WithLabel(a.DetectedText))
		}

		roi := NewROI(name, s)
		roi.Attributes = map[string]interface{}{
			Confidence:   a.Confidence / 100,
			DetectedText: a.DetectedText,
		}
		img.ROIs = append(img.ROIs, roi)
	}

	return img, nil
}
