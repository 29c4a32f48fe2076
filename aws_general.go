package roiconv

import "fmt"

// AWSBoundingBox defines an axis-aligned rectangle with the dimensions given as normalised ratios
// of the image size.
type AWSBoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// toRectangle scales the box to an image of the given size.
func (b AWSBoundingBox) toRectangle(width, height int, opts ...Option) Rectangle {
	w, h := float64(width), float64(height)
	return NewRectangle(b.Left*w, b.Top*h, b.Width*w, b.Height*h, opts...)
}

// AWSPoint defines a point in an image. The coordinates are normalised ratios of the image size.
type AWSPoint struct {
	X float64
	Y float64
}

// readAWSFile decodes the JSON label file at labelPath into v and returns the size of the image
// at imagePath, which AWS coordinates are normalised to.
func readAWSFile(labelPath, imagePath string, v interface{}) (width, height int, err error) {
	if err := readJSON(labelPath, v); err != nil {
		return 0, 0, err
	}

	img, _, err := decodeImageConfig(imagePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode the image metadata of %q: %w", imagePath, err)
	}
	return img.Width, img.Height, nil
}
