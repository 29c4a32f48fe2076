package roiconv

// AWS Rekognition detect-labels specific functionality.

// AWSInstance is an object instance in an AWS label.
type AWSInstance struct {
	BoundingBox AWSBoundingBox
	Confidence  float64 // Range [0, 100].
}

// AWSLabel is a single annotation within an AWS labels file.
type AWSLabel struct {
	Confidence float64 // Range [0, 100].
	Instances  []AWSInstance
	Name       string
	Parents    []struct {
		Name string
	}
}

// AWSDLAnnotatedFile defines the AWS detect-labels annotation structure for a single file.
type AWSDLAnnotatedFile struct {
	Annotations  []AWSLabel `json:"Labels"`
	FilePath     string     `json:"-"`
	ModelVersion string     `json:"LabelModelVersion"`
}

// FromAWSDetectLabels reads and parses AWS detect-labels annotations from labelDir and matches them
// to the images in imageDir.
func FromAWSDetectLabels(labelDir, imageDir string) (AnnotatedImages, error) {
	return parseLabelsWithOneToOneImages(labelDir, ".json", imageDir, parseAWSDetectLabelsFile)
}

// parseAWSDetectLabelsFile parses the label file at labelPath and reads metadata from the
// corresponding image at imagePath to construct an AnnotatedImage.
//
// Only labels with instances are kept. Each instance becomes an ROI holding a Rectangle.
func parseAWSDetectLabelsFile(labelPath, imagePath string) (AnnotatedImage, error) {
	var awsFileData AWSDLAnnotatedFile
	width, height, err := readAWSFile(labelPath, imagePath, &awsFileData)
	if err != nil {
		return AnnotatedImage{}, err
	}

	img := AnnotatedImage{
		ImagePath: imagePath,
		ROIs:      make([]ROI, 0, 2*len(awsFileData.Annotations)),
	}
	for _, a := range awsFileData.Annotations {
		ancestors := make([]string, len(a.Parents))
		for i, p := range a.Parents {
			ancestors[i] = p.Name
		}

		for _, i := range a.Instances {
			roi := NewROI(a.Name, i.BoundingBox.toRectangle(width, height, WithLabel(a.Name)))
			roi.Attributes = map[string]interface{}{
				AncestorLabels: ancestors,
				Confidence:     i.Confidence / 100,
			}
			img.ROIs = append(img.ROIs, roi)
		}
	}

	return img, nil
}
