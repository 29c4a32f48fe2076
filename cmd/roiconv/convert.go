package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sensorable/roiconv"
)

// convertOptions holds the flags of the convert command.
type convertOptions struct {
	configPath string
	config     *roiconv.Config

	from, to string

	imageDir       string   // The input directory with the labeled images.
	imageOutDir    string   // The output directory for images after processing.
	labels         string   // The input label directory or file, depending on the format.
	labelsOut      []string // The output label dirs or files, one per split.
	splits         []int    // The split percentages for the output datasets.
	labelMapPath   string   // The TFRecord label map file.
	numShards      int      // The number of TFRecord shard files to create.
	labelMappings  []string // old=new label (sub-)string replacements.
	fillStyle      bool
	filter         roiconv.FilterOptions
	kinds          []string
	z, c, t        int // Plane filters, negative to disable.
	process        roiconv.ProcessOptions
	resizeRequired bool
}

// newConvertCmd creates the convert command.
func newConvertCmd() *cobra.Command {
	o := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert ROI sets between label formats",
		Long: `Convert reads ROI sets in one format, optionally maps labels, filters shapes,
processes the images, splits the data into datasets and writes them in another format.

Input formats:  roi, aws-dl, aws-dt, kitti, sloth, via
Output formats: roi, kitti, sloth, tfrecord, via

The aws-dl, aws-dt and kitti formats read label directories and need --images.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.applyConfig(cmd); err != nil {
				return err
			}
			return o.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "roiconv.yaml", "the configuration file `path`")

	f.StringVar(&o.from, "from", "", "the source `format`")
	f.StringVar(&o.to, "to", "", "the target `format`")

	f.StringVar(&o.imageDir, "images", "", "the `path` to the image input directory")
	f.StringVar(&o.imageOutDir, "images-out", "",
		"the `path` to the image output directory (only required when images are processed)")
	f.StringVar(&o.labels, "labels", "",
		"the `path` to the label input file (roi, sloth, via) or directory (kitti, aws-dl, aws-dt)")
	f.StringSliceVar(&o.labelsOut, "labels-out", nil,
		"the label output files (roi, sloth, tfrecord, via) or directories (kitti); one per --split value")
	f.IntSliceVar(&o.splits, "split", []int{100},
		"the output split percentages to divide images into; must add up to 100")
	f.StringVar(&o.labelMapPath, "tfrecord-label-map-file", "", "the TFRecord label map file `path`")
	f.IntVar(&o.numShards, "num-shards", 0, "the number of shard files to create (tfrecord only)")

	f.StringSliceVar(&o.labelMappings, "map-labels", nil, "old=new label (sub-)string replacements")
	f.BoolVar(&o.fillStyle, "fill-style", false,
		"write the configured default style for absent shape style attributes")

	f.StringSliceVar(&o.kinds, "filter-kinds", nil, "shape kinds to keep (empty keeps all)")
	f.StringSliceVar(&o.filter.Labels, "filter-labels", nil,
		"labels to keep (after map-labels; empty keeps all)")
	f.StringSliceVar(&o.filter.Attributes, "filter-attributes", nil,
		"ROI attributes to keep (empty keeps all)")
	f.StringSliceVar(&o.filter.RequiredAttrs, "filter-required-attrs", nil,
		"ROI attributes whose values must not be the Go zero value for their type")
	f.Float64Var(&o.filter.MinConfidence, "min-confidence", 0,
		"the minimum confidence value to keep an ROI; range [0.0, 1.0)")
	f.BoolVar(&o.filter.RequireROI, "require-roi", false,
		"require at least one ROI (after filters) to keep the image")
	f.Float64Var(&o.filter.MinWidth, "min-bbox-width", 0,
		"the min. shape bounding box width in `pixels` (before resizing)")
	f.Float64Var(&o.filter.MinHeight, "min-bbox-height", 0,
		"the min. shape bounding box height in `pixels` (before resizing)")
	f.Float64Var(&o.filter.MinAspectRatio, "min-bbox-aspect-ratio", 0,
		"the min. shape bounding box aspect `ratio` (width/height; zero disables the filter)")
	f.Float64Var(&o.filter.MaxAspectRatio, "max-bbox-aspect-ratio", 0,
		"the max. shape bounding box aspect `ratio` (width/height; zero disables the filter)")
	f.IntVar(&o.z, "z", -1, "keep only shapes on this z plane or on all planes (negative disables)")
	f.IntVar(&o.c, "c", -1, "keep only shapes on this channel or on all channels (negative disables)")
	f.IntVar(&o.t, "t", -1, "keep only shapes at this timepoint or at all timepoints (negative disables)")

	f.StringVar(&o.process.Encoding, "image-enc", "", "the `encoding` for output images {jpg, png}")
	f.IntVar(&o.process.LongerSide, "resize-longer", 0,
		"the target `length` for the longer side of the image (zero to keep aspect ratio)")
	f.IntVar(&o.process.ShorterSide, "resize-shorter", 0,
		"the target `length` for the shorter side of the image (zero to keep aspect ratio)")
	f.StringVar(&o.process.DownsamplingFilter, "downsample-filter", "",
		"the filter to use when downsampling {nearest, box, linear, gaussian, lanczos}")
	f.StringVar(&o.process.UpsamplingFilter, "upsample-filter", "",
		"the filter to use when upsampling {nearest, box, linear, gaussian, lanczos}")
	f.IntVar(&o.process.JPEGQuality, "jpeg-quality", 0, "the quality to use when encoding JPEGs [1, 100]")
	f.BoolVar(&o.process.CropROIs, "crop-rois", false,
		"crop and output ROIs from images (image processing flags apply to the individual crops)")

	return cmd
}

// applyConfig loads the configuration file and fills in the flags that were not set.
func (o *convertOptions) applyConfig(cmd *cobra.Command) error {
	cfg, err := roiconv.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	o.config = cfg

	changed := cmd.Flags().Changed
	defaults := cfg.ProcessOptions()
	if !changed("image-enc") {
		o.process.Encoding = defaults.Encoding
	}
	if !changed("jpeg-quality") {
		o.process.JPEGQuality = defaults.JPEGQuality
	}
	if !changed("downsample-filter") {
		o.process.DownsamplingFilter = defaults.DownsamplingFilter
	}
	if !changed("upsample-filter") {
		o.process.UpsamplingFilter = defaults.UpsamplingFilter
	}
	o.process.Workers = defaults.Workers
	if !changed("num-shards") {
		o.numShards = cfg.Output.NumShards
	}
	if !changed("fill-style") {
		o.fillStyle = cfg.Output.FillStyle
	}
	return nil
}

// validate checks the options and returns the parsed source and target formats.
func (o *convertOptions) validate() (from, to roiconv.Format, err error) {
	if from, err = roiconv.ParseFormat(o.from); err != nil || !from.CanRead() {
		return from, to, fmt.Errorf("unsupported input format %q", o.from)
	}
	if to, err = roiconv.ParseFormat(o.to); err != nil || !to.CanWrite() {
		return from, to, fmt.Errorf("unsupported output format %q", o.to)
	}

	if o.labels == "" || (from.NeedsImageDir() && o.imageDir == "") {
		return from, to, errors.New("missing label or image input path argument")
	}
	if len(o.labelsOut) != len(o.splits) {
		return from, to, errors.New("the number of output datasets defined by --split and the" +
			" number of paths in --labels-out must match")
	}
	if to == roiconv.TFRecord && o.labelMapPath == "" {
		return from, to, errors.New("missing --tfrecord-label-map-file")
	}

	sum := 0
	for _, v := range o.splits {
		if v < 0 || v > 100 {
			return from, to, fmt.Errorf("invalid value in --split: %d", v)
		}
		sum += v
	}
	if sum != 100 {
		return from, to, errors.New("the values in --split must add up to 100")
	}

	if (o.process.LongerSide > 0 || o.process.ShorterSide > 0 || o.process.CropROIs) &&
		o.imageOutDir == "" {
		return from, to, errors.New("missing image output directory path")
	}
	if o.process.JPEGQuality < 1 || o.process.JPEGQuality > 100 {
		return from, to, fmt.Errorf("invalid JPEG quality %d", o.process.JPEGQuality)
	}
	if o.filter.MinConfidence < 0 || o.filter.MinConfidence >= 1 {
		return from, to, fmt.Errorf("invalid --min-confidence %g, must be in [0.0, 1.0)",
			o.filter.MinConfidence)
	}

	if o.imageDir != "" && filepath.Clean(o.imageDir) == filepath.Clean(o.imageOutDir) {
		return from, to, errors.New("the image input and output paths cannot be identical")
	}
	for _, p := range o.labelsOut {
		if filepath.Clean(p) == filepath.Clean(o.labels) {
			return from, to, errors.New("the label input and output paths cannot be identical")
		}
	}
	return from, to, nil
}

// filterOptions returns the filters including the kind and plane flags.
func (o *convertOptions) filterOptions() (roiconv.FilterOptions, error) {
	fo := o.filter
	for _, k := range o.kinds {
		kind, err := roiconv.ParseKind(k)
		if err != nil {
			return fo, err
		}
		fo.Kinds = append(fo.Kinds, kind)
	}
	plane := func(v int) roiconv.Opt[int] {
		if v < 0 {
			return roiconv.None[int]()
		}
		return roiconv.Some(v)
	}
	fo.Z, fo.C, fo.T = plane(o.z), plane(o.c), plane(o.t)
	return fo, nil
}

// run performs the conversion.
func (o *convertOptions) run(ctx context.Context) error {
	from, to, err := o.validate()
	if err != nil {
		return err
	}
	fo, err := o.filterOptions()
	if err != nil {
		return err
	}

	data, err := roiconv.Read(from, o.labels, o.imageDir)
	if err != nil {
		return fmt.Errorf("failed to parse the input: %w", err)
	}
	logger.Info("Read input", "format", from, "images", len(data), "shapes", data.NumShapes())

	if err := data.MapLabels(o.labelMappings); err != nil {
		return fmt.Errorf("failed to map labels: %w", err)
	}
	data.Filter(fo)
	if o.fillStyle {
		data.FillStyle(o.config.Style)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	o.process.OutDir = o.imageOutDir
	if err := data.ProcessImages(o.process); err != nil {
		return fmt.Errorf("image processing failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	datasets := []roiconv.AnnotatedImages{data}
	if len(o.splits) > 1 {
		cumulative := make([]int, len(o.splits))
		sum := 0
		for i, v := range o.splits {
			sum += v
			cumulative[i] = sum
		}
		if datasets, err = data.Split(cumulative, nil); err != nil {
			return fmt.Errorf("failed to split the dataset: %w", err)
		}
	}

	wo := roiconv.WriteOptions{LabelMapPath: o.labelMapPath, NumShards: o.numShards}
	for i, ds := range datasets {
		if err := roiconv.Write(to, o.labelsOut[i], ds, wo); err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		logger.Info("Wrote labels", "format", to, "images", len(ds), "path", o.labelsOut[i])
	}

	logger.Info("Total number of labelled images", "images", len(data))
	return nil
}
