package roiconv

// Image processing: resizing images and cropping ROIs, with the ROI geometry updated to match.

import (
	"fmt"
	"image"
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ProcessOptions configures ProcessImages.
type ProcessOptions struct {
	OutDir string // The directory the processed images are written to.

	// Target lengths of the image sides. If one is zero the aspect ratio is kept. If both are
	// zero the images are not resized.
	LongerSide, ShorterSide int

	DownsamplingFilter string // One of nearest, box, linear, gaussian, lanczos.
	UpsamplingFilter   string // One of nearest, box, linear, gaussian, lanczos.

	Encoding    string // jpg or png.
	JPEGQuality int    // In [1, 100].

	// CropROIs replaces each image with one crop per ROI, covering the ROI bounding box.
	CropROIs bool

	// Workers limits the number of images processed concurrently. Zero selects 2*NumCPU.
	Workers int
}

// ProcessImages resizes all referenced images and writes them to o.OutDir using the specified
// encoding. ROI geometry is scaled with the images.
//
// If o.CropROIs is true, the bounding box of each ROI is cropped from the images. The crops are
// resized instead of the original images in this case. The data changes accordingly, with 0 or
// more cropped images replacing the original AnnotatedImage.
func (data *AnnotatedImages) ProcessImages(o ProcessOptions) error {
	doResize := o.LongerSide > 0 || o.ShorterSide > 0
	if !doResize && !o.CropROIs {
		return nil
	}
	p := newProgress()

	downsample, err := resampleFilter(o.DownsamplingFilter)
	if err != nil {
		return err
	}
	upsample, err := resampleFilter(o.UpsamplingFilter)
	if err != nil {
		return err
	}

	// Select the output file extension based on the requested encoding.
	var fileExt string
	switch strings.ToLower(o.Encoding) {
	case "jpg", "jpeg":
		fileExt = ".jpg"
	case "png":
		fileExt = ".png"
	default:
		return fmt.Errorf("%w: image encoding %q", ErrUnsupportedFormat, o.Encoding)
	}

	// Limit the number of goroutines in flight, as they load potentially large images into memory.
	numTasks := o.Workers
	if numTasks <= 0 {
		numTasks = 2 * runtime.NumCPU()
	}
	if len(*data) < numTasks {
		numTasks = len(*data)
	}
	workQueue := make(chan *AnnotatedImage, 2*numTasks)

	var croppedData AnnotatedImages
	var croppedDataCh chan AnnotatedImage
	if o.CropROIs {
		croppedData = make(AnnotatedImages, 0, len(*data))
		croppedDataCh = make(chan AnnotatedImage, 2*numTasks)
	}

	errors := make(chan error, 1)
	w := imageWorker{
		opts:       o,
		fileExt:    fileExt,
		downsample: downsample,
		upsample:   upsample,
		doResize:   doResize,
		cropped:    croppedDataCh,
		errors:     errors,
	}

	var wg sync.WaitGroup
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for d := range workQueue {
				w.process(d)
			}
		}()
	}

	// Collect the metadata of the cropped images.
	var wgAppend sync.WaitGroup
	if o.CropROIs {
		wgAppend.Add(1)
		go func() {
			defer wgAppend.Done()
			for d := range croppedDataCh {
				croppedData = append(croppedData, d)
			}
		}()
	}

	for i := range *data {
		workQueue <- &(*data)[i]
	}
	close(workQueue)

	wg.Wait()
	if o.CropROIs {
		close(croppedDataCh)
		wgAppend.Wait()
		*data = croppedData
	}

	close(errors)
	if err := <-errors; err != nil {
		return err
	}

	p.done("Processed images", "images", len(*data))
	return nil
}

// imageWorker holds the per-run state shared by the ProcessImages goroutines.
type imageWorker struct {
	opts                 ProcessOptions
	fileExt              string
	downsample, upsample imaging.ResampleFilter
	doResize             bool
	cropped              chan<- AnnotatedImage // Receives crop metadata if opts.CropROIs.
	errors               chan<- error          // Receives the first error.
}

func (w imageWorker) trySendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// process processes the image described by data, updating data in place unless ROIs are
// cropped, in which case the crops are sent to w.cropped.
func (w imageWorker) process(data *AnnotatedImage) {
	img, err := loadImage(data.ImagePath)
	if err != nil {
		w.trySendError(err)
		return
	}

	images := []image.Image{img}
	imageData := []*AnnotatedImage{data}
	if w.opts.CropROIs {
		var crops []AnnotatedImage
		images, crops = data.cropROIs(img)
		imageData = make([]*AnnotatedImage, len(crops))
		for i := range crops {
			imageData[i] = &crops[i]
		}
	}

	for i, img := range images {
		d := imageData[i]

		if w.doResize {
			var sx, sy float64
			img, sx, sy = resizeImage(img, w.opts.LongerSide, w.opts.ShorterSide,
				w.downsample, w.upsample)
			for j := range d.ROIs {
				d.ROIs[j].mapShapes(func(s Shape) Shape { return Scale(s, sx, sy) })
			}
		}

		inName := filepath.Base(d.ImagePath)
		outName := strings.TrimSuffix(inName, filepath.Ext(inName)) + w.fileExt
		outPath := filepath.Join(w.opts.OutDir, outName)
		if err := saveImage(outPath, img, w.opts.JPEGQuality); err != nil {
			w.trySendError(err)
			return
		}
		d.ImagePath = outPath
		logger().Debug("Wrote image", "path", outPath, "rois", len(d.ROIs))

		if w.opts.CropROIs {
			w.cropped <- *d
		}
	}
}

// cropROIs returns a crop of img for each ROI with bounds at least partially contained in img.
//
// In addition it returns an AnnotatedImage for each crop, holding a copy of the ROI translated
// into the crop. The image paths are derived from f.ImagePath, with a "_xx" suffix appended
// before the file extension, where xx is the index in f.ROIs.
func (f *AnnotatedImage) cropROIs(img image.Image) ([]image.Image, []AnnotatedImage) {
	crops := make([]image.Image, 0, len(f.ROIs))
	annotated := make([]AnnotatedImage, 0, len(f.ROIs))
	bounds := img.Bounds()
	ext := filepath.Ext(f.ImagePath)

	for i, roi := range f.ROIs {
		box, ok := roi.Bounds()
		if !ok {
			continue
		}
		r := box.Rect().Intersect(bounds)
		if r.Empty() {
			continue
		}

		// Shallow clone the attributes and record the crop location.
		attrs := make(map[string]interface{}, 1+len(roi.Attributes))
		maps.Copy(attrs, roi.Attributes)
		attrs[CropCoords] = fmt.Sprintf("(%d,%d)(%d,%d)", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)

		cropped := roi
		cropped.Attributes = attrs
		cropped.mapShapes(func(s Shape) Shape {
			return Translate(s, float64(-r.Min.X), float64(-r.Min.Y))
		})

		crops = append(crops, imaging.Crop(img, r))
		annotated = append(annotated, AnnotatedImage{
			ImagePath: fmt.Sprintf("%s_%02d%s", strings.TrimSuffix(f.ImagePath, ext), i, ext),
			ROIs:      []ROI{cropped},
		})
	}

	return crops, annotated
}
