package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/resize.cheap/internal/cli/config"
	"github.com/abdul-hamid-achik/resize.cheap/internal/presets"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
	"github.com/spf13/pflag"
)

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(255 * x / width), G: uint8(255 * y / height), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// runCLI executes the root command with fresh flag values and returns
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvFormat, "")
	t.Setenv(config.EnvParallel, "")

	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	imageCmd.Flags().VisitAll(reset)
	configInitCmd.Flags().VisitAll(reset)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestRootCommand(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(out, "resize.cheap") {
		t.Error("Help output should mention resize.cheap")
	}
	if !strings.Contains(out, "image") {
		t.Error("Help output should mention image command")
	}
}

func TestImageCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	writeTestPNG(t, src, 200, 100)
	outDir := filepath.Join(dir, "out")

	out, err := runCLI(t, "image", src, "-W", "50", "-H", "50", "--keep-aspect", "-f", "png", "-o", outDir, "--json")
	if err != nil {
		t.Fatalf("image error = %v (output %s)", err, out)
	}

	var body struct {
		Results    []imageResult `json:"results"`
		Successful int           `json:"successful"`
		Failed     int           `json:"failed"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("parse output: %v (%q)", err, out)
	}
	if body.Successful != 1 || body.Failed != 0 || len(body.Results) != 1 {
		t.Fatalf("body = %+v", body)
	}

	res := body.Results[0]
	if res.Width != 50 || res.Height != 25 {
		t.Errorf("output = %dx%d, want 50x25", res.Width, res.Height)
	}
	if want := filepath.Join(outDir, "wide_50x25.png"); res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}

	f, err := os.Open(res.Output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer func() { _ = f.Close() }()
	cfgImg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfgImg.Width != 50 || cfgImg.Height != 25 {
		t.Errorf("file = %dx%d, want 50x25", cfgImg.Width, cfgImg.Height)
	}
}

func TestImageCommand_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeTestPNG(t, good, 20, 20)
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "image", good, bad, "--preset", "thumbnail", "--json")
	if err == nil {
		t.Fatal("expected an error for the undecodable file")
	}

	var body struct {
		Results    []imageResult `json:"results"`
		Successful int           `json:"successful"`
		Failed     int           `json:"failed"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("parse output: %v (%q)", err, out)
	}
	if body.Successful != 1 || body.Failed != 1 {
		t.Errorf("successful = %d, failed = %d", body.Successful, body.Failed)
	}
	for _, r := range body.Results {
		if r.Source == bad && r.ErrorKind != string(transform.KindDecode) {
			t.Errorf("bad.png ErrorKind = %q", r.ErrorKind)
		}
	}
}

func TestImageCommand_SameNameIntoOneDir(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, "in", sub), 0755); err != nil {
			t.Fatal(err)
		}
		writeTestPNG(t, filepath.Join(dir, "in", sub, "x.png"), 30, 30)
	}
	outDir := filepath.Join(dir, "out")

	out, err := runCLI(t, "image", filepath.Join(dir, "in"), "-r", "-W", "10", "-H", "10", "-f", "png", "-o", outDir, "--json")
	if err != nil {
		t.Fatalf("image error = %v (output %s)", err, out)
	}

	var body struct {
		Results    []imageResult `json:"results"`
		Successful int           `json:"successful"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("parse output: %v (%q)", err, out)
	}
	if body.Successful != 2 || len(body.Results) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Results[0].Output == body.Results[1].Output {
		t.Fatalf("both sources written to %s", body.Results[0].Output)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"x_10x10.png", "x_10x10_2.png"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("output dir = %v, want %v", names, want)
	}
}

func TestImageCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writeTestPNG(t, src, 10, 10)

	out, err := runCLI(t, "image", src, "--preset", "og", "--dry-run")
	if err != nil {
		t.Fatalf("dry run error = %v", err)
	}
	if !strings.Contains(out, "1200x630") {
		t.Errorf("dry run output = %q", out)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dry run wrote files: %v", entries)
	}
}

func TestImageCommand_MissingSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writeTestPNG(t, src, 10, 10)

	if _, err := runCLI(t, "image", src); err == nil {
		t.Error("expected an error without a target size")
	}
}

func TestPresetsCommand(t *testing.T) {
	out, err := runCLI(t, "presets", "--json")
	if err != nil {
		t.Fatalf("presets error = %v", err)
	}

	var body struct {
		Presets []presetRow `json:"presets"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(body.Presets) != len(presets.All) {
		t.Errorf("got %d presets, want %d", len(body.Presets), len(presets.All))
	}
}

func TestImageOptions_Request(t *testing.T) {
	cf := 0.5
	tests := []struct {
		name    string
		opts    imageOptions
		want    transform.Request
		wantErr bool
	}{
		{
			name: "config defaults",
			opts: imageOptions{Width: 100, Height: 80},
			want: transform.Request{Width: 100, Height: 80, Quality: config.DefaultQuality, Format: config.DefaultFormat},
		},
		{
			name: "preset with overrides",
			opts: imageOptions{Preset: "og", Width: 600, Format: "webp", Compression: &cf},
			want: transform.Request{Width: 600, Height: 630, Quality: 0.9, Format: "image/webp", CompressionFactor: &cf},
		},
		{
			name: "width only keeps aspect",
			opts: imageOptions{Width: 640, KeepAspect: true},
			want: transform.Request{Width: 640, Height: presets.Unbounded, KeepAspectRatio: true, Quality: config.DefaultQuality, Format: config.DefaultFormat},
		},
		{
			name:    "missing size",
			opts:    imageOptions{},
			wantErr: true,
		},
		{
			name:    "unknown preset",
			opts:    imageOptions{Preset: "poster"},
			wantErr: true,
		},
		{
			name:    "unsupported format",
			opts:    imageOptions{Width: 10, Height: 10, Format: "heic"},
			wantErr: true,
		},
		{
			name:    "quality out of range",
			opts:    imageOptions{Width: 10, Height: 10, Quality: 1.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.request(config.Default())
			if (err != nil) != tt.wantErr {
				t.Fatalf("request() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Width != tt.want.Width || got.Height != tt.want.Height ||
				got.KeepAspectRatio != tt.want.KeepAspectRatio ||
				got.Quality != tt.want.Quality || got.Format != tt.want.Format {
				t.Errorf("request() = %+v, want %+v", got, tt.want)
			}
			if (got.CompressionFactor == nil) != (tt.want.CompressionFactor == nil) {
				t.Errorf("CompressionFactor = %v, want %v", got.CompressionFactor, tt.want.CompressionFactor)
			}
		})
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.png", "b.jpg", "notes.txt", filepath.Join("nested", "c.webp")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		args      []string
		recursive bool
		want      int
		wantErr   bool
	}{
		{name: "nonexistent file", args: []string{"nonexistent-file-xyz.jpg"}, wantErr: true},
		{name: "glob", args: []string{filepath.Join(dir, "*")}, want: 2},
		{name: "directory without recursion", args: []string{dir}, want: 0},
		{name: "recursive directory", args: []string{dir}, recursive: true, want: 3},
		{name: "duplicates collapse", args: []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "a.png")}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectFiles(tt.args, tt.recursive)
			if (err != nil) != tt.wantErr {
				t.Fatalf("collectFiles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("collectFiles() = %v, want %d files", got, tt.want)
			}
		})
	}
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"photo.png", true},
		{"photo.gif", true},
		{"photo.webp", true},
		{"photo.bmp", true},
		{"photo.tif", true},
		{"photo.svg", false},
		{"photo.txt", false},
		{"photo", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isImageFile(tt.path); got != tt.want {
				t.Errorf("isImageFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	res := transform.Result{Width: 320, Height: 180, Extension: "webp"}

	if got, want := outputPath("", filepath.Join("in", "cat.photo.png"), res), filepath.Join("in", "cat.photo_320x180.webp"); got != want {
		t.Errorf("outputPath() = %q, want %q", got, want)
	}
	if got, want := outputPath("out", filepath.Join("in", "cat.png"), res), filepath.Join("out", "cat_320x180.webp"); got != want {
		t.Errorf("outputPath() = %q, want %q", got, want)
	}
}

func TestClaimOutput(t *testing.T) {
	taken := make(map[string]bool)
	dest := filepath.Join("out", "x_10x10.png")

	for _, want := range []string{
		dest,
		filepath.Join("out", "x_10x10_2.png"),
		filepath.Join("out", "x_10x10_3.png"),
	} {
		if got := claimOutput(taken, dest); got != want {
			t.Errorf("claimOutput() = %q, want %q", got, want)
		}
	}
	if got, want := claimOutput(taken, filepath.Join("out", "y.png")), filepath.Join("out", "y.png"); got != want {
		t.Errorf("claimOutput() = %q, want %q", got, want)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatSize(tt.bytes); got != tt.want {
				t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
