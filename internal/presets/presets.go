package presets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

var ErrUnknownPreset = errors.New("presets: unknown preset")

// Unbounded stands in for "no limit" on one axis. It is only meaningful
// with KeepAspectRatio, where the other axis decides the scale. It is the
// largest dimension a request may carry, so it only binds for sources more
// than Unbounded/width times taller than wide (about 1600:1 under sm),
// and those outputs exceed the pixel budget anyway.
const Unbounded = transform.MaxDimension

type Preset struct {
	Name            string  `json:"name" yaml:"name"`
	Width           int     `json:"width" yaml:"width"`
	Height          int     `json:"height" yaml:"height"`
	Quality         float64 `json:"quality" yaml:"quality"`
	KeepAspectRatio bool    `json:"keep_aspect_ratio" yaml:"keep_aspect_ratio"`
	Format          string  `json:"format,omitempty" yaml:"format,omitempty"`
}

// Apply copies the preset's geometry onto req. Quality and format are only
// filled in when req leaves them unset.
func (p Preset) Apply(req *transform.Request) {
	req.Width = p.Width
	req.Height = p.Height
	req.KeepAspectRatio = p.KeepAspectRatio
	if req.Quality == 0 {
		req.Quality = p.Quality
	}
	if req.Format == "" {
		req.Format = p.Format
	}
}

var Thumbnail = Preset{Name: "thumbnail", Width: 300, Height: 300, Quality: 0.85, KeepAspectRatio: true}

var Responsive = map[string]Preset{
	"sm": {Name: "sm", Width: 640, Height: Unbounded, Quality: 0.85, KeepAspectRatio: true},
	"md": {Name: "md", Width: 1024, Height: Unbounded, Quality: 0.85, KeepAspectRatio: true},
	"lg": {Name: "lg", Width: 1920, Height: Unbounded, Quality: 0.85, KeepAspectRatio: true},
	"xl": {Name: "xl", Width: 2560, Height: Unbounded, Quality: 0.85, KeepAspectRatio: true},
}

// Social presets produce the exact card sizes the platforms expect.
var Social = map[string]Preset{
	"og":                 {Name: "og", Width: 1200, Height: 630, Quality: 0.9},
	"twitter":            {Name: "twitter", Width: 1200, Height: 675, Quality: 0.9},
	"instagram_square":   {Name: "instagram_square", Width: 1080, Height: 1080, Quality: 0.9},
	"instagram_portrait": {Name: "instagram_portrait", Width: 1080, Height: 1350, Quality: 0.9},
	"instagram_story":    {Name: "instagram_story", Width: 1080, Height: 1920, Quality: 0.9},
}

var All = map[string]Preset{
	"thumbnail":          Thumbnail,
	"sm":                 Responsive["sm"],
	"md":                 Responsive["md"],
	"lg":                 Responsive["lg"],
	"xl":                 Responsive["xl"],
	"og":                 Social["og"],
	"twitter":            Social["twitter"],
	"instagram_square":   Social["instagram_square"],
	"instagram_portrait": Social["instagram_portrait"],
	"instagram_story":    Social["instagram_story"],
}

func Get(name string) (Preset, bool) {
	p, ok := All[name]
	return p, ok
}

// Apply looks up name and applies it to req.
func Apply(name string, req *transform.Request) error {
	p, ok := Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	p.Apply(req)
	return nil
}

// List returns every preset sorted by name.
func List() []Preset {
	out := make([]Preset, 0, len(All))
	for _, p := range All {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func IsSocialPreset(name string) bool {
	_, ok := Social[name]
	return ok
}

func IsResponsivePreset(name string) bool {
	_, ok := Responsive[name]
	return ok
}
