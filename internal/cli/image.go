package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/resize.cheap/internal/cli/config"
	"github.com/abdul-hamid-achik/resize.cheap/internal/cli/output"
	"github.com/abdul-hamid-achik/resize.cheap/internal/codec"
	appconfig "github.com/abdul-hamid-achik/resize.cheap/internal/config"
	"github.com/abdul-hamid-achik/resize.cheap/internal/presets"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:   "image [files...]",
	Short: "Resize and convert images",
	Long: `Resize and convert one or more images on this machine.

Files may be paths, globs or (with -r) directories. Results are written
next to each source, or into --output, as <name>_<width>x<height>.<ext>.

Examples:
  resize image photo.jpg -W 800 -H 600
  resize image photo.jpg -W 800 --keep-aspect -f webp -q 0.8
  resize image "shots/*.png" --preset og --watermark -o cards
  resize image ./gallery -r --preset md -j 8 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

var (
	imageWidth       int
	imageHeight      int
	imageKeepAspect  bool
	imageFormat      string
	imageQuality     float64
	imageCompression float64
	imageWatermark   bool
	imagePreset      string
	imageOutDir      string
	imageParallel    int
	imageRecursive   bool
	imageDryRun      bool
)

func init() {
	imageCmd.Flags().IntVarP(&imageWidth, "width", "W", 0, "Target width in pixels")
	imageCmd.Flags().IntVarP(&imageHeight, "height", "H", 0, "Target height in pixels")
	imageCmd.Flags().BoolVar(&imageKeepAspect, "keep-aspect", false, "Fit inside the target box keeping the aspect ratio")
	imageCmd.Flags().StringVarP(&imageFormat, "format", "f", "", "Output format (jpeg, png, webp, gif, bmp, tiff)")
	imageCmd.Flags().Float64VarP(&imageQuality, "quality", "q", 0, "Quality between 0 and 1")
	imageCmd.Flags().Float64Var(&imageCompression, "compression", 0, "Compression factor multiplied into quality")
	imageCmd.Flags().BoolVar(&imageWatermark, "watermark", false, "Stamp the resize.cheap watermark")
	imageCmd.Flags().StringVarP(&imagePreset, "preset", "p", "", "Named preset (see 'resize presets')")
	imageCmd.Flags().StringVarP(&imageOutDir, "output", "o", "", "Output directory")
	imageCmd.Flags().IntVarP(&imageParallel, "parallel", "j", 0, "Images converted at once")
	imageCmd.Flags().BoolVarP(&imageRecursive, "recursive", "r", false, "Descend into directories")
	imageCmd.Flags().BoolVar(&imageDryRun, "dry-run", false, "List the files that would be converted")
}

// imageOptions is the flag set of one image run.
type imageOptions struct {
	Width       int
	Height      int
	KeepAspect  bool
	Format      string
	Quality     float64
	Compression *float64
	Watermark   bool
	Preset      string
}

// request builds the transform request shared by every file of a run. Flags
// win over the preset, the preset wins over the config file.
func (o imageOptions) request(c *config.Config) (transform.Request, error) {
	req := transform.Request{
		Quality:           o.Quality,
		CompressionFactor: o.Compression,
		Watermark:         o.Watermark || c.Watermark,
	}
	if o.Format != "" {
		req.Format = codec.Normalize(o.Format)
	}

	if o.Preset != "" {
		p, ok := c.GetPreset(o.Preset)
		if !ok {
			return req, fmt.Errorf("%w: %q", presets.ErrUnknownPreset, o.Preset)
		}
		p.Apply(&req)
	}

	if o.Width > 0 {
		req.Width = o.Width
	}
	if o.Height > 0 {
		req.Height = o.Height
	}
	if o.KeepAspect {
		req.KeepAspectRatio = true
		if req.Width > 0 && req.Height == 0 {
			req.Height = presets.Unbounded
		}
		if req.Height > 0 && req.Width == 0 {
			req.Width = presets.Unbounded
		}
	}
	if req.Quality == 0 {
		req.Quality = c.Quality
	}
	if req.Format == "" {
		req.Format = c.Format
	}

	if req.Width <= 0 || req.Height <= 0 {
		return req, errors.New("set --width and --height, or pick a --preset")
	}
	if _, err := codec.Default().GetOrError(req.Format); err != nil {
		return req, err
	}

	check := req
	check.RequestID = "check"
	if err := check.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

type imageResult struct {
	Source      string `json:"source"`
	Output      string `json:"output,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int    `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
}

func currentImageOptions(cmd *cobra.Command) imageOptions {
	opts := imageOptions{
		Width:      imageWidth,
		Height:     imageHeight,
		KeepAspect: imageKeepAspect,
		Format:     imageFormat,
		Quality:    imageQuality,
		Watermark:  imageWatermark,
		Preset:     imagePreset,
	}
	if cmd.Flags().Changed("compression") {
		cf := imageCompression
		opts.Compression = &cf
	}
	return opts
}

func runImage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	files, err := collectFiles(args, imageRecursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no image files found")
	}

	tmpl, err := currentImageOptions(cmd).request(cfg)
	if err != nil {
		return err
	}

	if imageDryRun {
		return printDryRun(files, tmpl)
	}

	outDir := imageOutDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	parallel := imageParallel
	if parallel <= 0 {
		parallel = cfg.Parallel
	}
	tc := appconfig.LoadTransform()
	tc.Concurrency = parallel
	tr, err := transform.NewTransformer(tc, nil)
	if err != nil {
		return err
	}
	worker := transform.NewWorker(tr)
	defer worker.Close()

	var (
		results    []imageResult
		successful int
		failed     int
	)

	sources := make(map[string]string, len(files))
	written := make(map[string]bool, len(files))
	reqs := make([]transform.Request, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			printer.FileFailed(f, err)
			results = append(results, imageResult{Source: f, Error: err.Error()})
			failed++
			continue
		}
		req := tmpl
		req.RequestID = uuid.New().String()
		req.Source = data
		sources[req.RequestID] = f
		reqs = append(reqs, req)
	}

	progress := output.NewProgress(cmd.ErrOrStderr(), len(reqs), "Converting", printer.IsQuiet() || printer.IsJSON())

	done := worker.Dispatch(ctx, reqs...)
	for remaining := len(reqs); remaining > 0; remaining-- {
		var res transform.Result
		select {
		case res = <-done:
		case <-ctx.Done():
			progress.Finish()
			return ctx.Err()
		}
		source, ok := sources[res.RequestID]
		if !ok {
			continue
		}
		progress.Step(filepath.Base(source))

		if !res.Success {
			err := res.Err()
			printer.FileFailed(source, err)
			results = append(results, imageResult{Source: source, Error: res.Error, ErrorKind: string(res.ErrorKind)})
			failed++
			continue
		}

		dest := claimOutput(written, outputPath(outDir, source, res))
		if err := os.WriteFile(dest, res.Data, 0644); err != nil {
			printer.FileFailed(source, err)
			results = append(results, imageResult{Source: source, Error: err.Error()})
			failed++
			continue
		}

		printer.FileWritten(source, dest, fmt.Sprintf("%dx%d, %s", res.Width, res.Height, formatSize(int64(res.Size))))
		results = append(results, imageResult{
			Source:      source,
			Output:      dest,
			Width:       res.Width,
			Height:      res.Height,
			Size:        res.Size,
			ContentType: res.ContentType,
		})
		successful++
	}
	progress.Finish()

	if printer.IsJSON() {
		if err := printer.JSON(map[string]any{
			"results":    results,
			"total":      len(files),
			"successful": successful,
			"failed":     failed,
		}); err != nil {
			return err
		}
	} else {
		printer.Summary(successful, failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(files))
	}
	return nil
}

func printDryRun(files []string, req transform.Request) error {
	if printer.IsJSON() {
		return printer.JSON(map[string]any{
			"files":  files,
			"width":  req.Width,
			"height": req.Height,
			"format": req.Format,
		})
	}

	printer.Section("Dry Run - Would convert:")
	for _, f := range files {
		printer.Printf("  %s\n", filepath.Clean(f))
	}
	printer.Println()
	printer.Printf("Target: %dx%d %s (keep aspect: %v)\n", req.Width, req.Height, req.Format, req.KeepAspectRatio)
	return nil
}
