package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

func collectFiles(args []string, recursive bool) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", arg, err)
		}

		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}

			if info.IsDir() {
				if !recursive {
					continue
				}
				err := filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return nil
					}
					if !info.IsDir() && isImageFile(path) {
						add(path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			} else if isImageFile(match) {
				add(match)
			}
		}
	}

	return files, nil
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif":
		return true
	}
	return false
}

// outputPath names the converted file after its source and final size so a
// run never overwrites its own input.
func outputPath(dir, source string, res transform.Result) string {
	if dir == "" {
		dir = filepath.Dir(source)
	}
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, fmt.Sprintf("%s_%dx%d.%s", stem, res.Width, res.Height, res.Extension))
}

// claimOutput reserves dest for this run. Sources sharing a basename (a/x.png
// and b/x.png into one --output) get _2, _3 ... ahead of the extension.
func claimOutput(taken map[string]bool, dest string) string {
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	candidate := dest
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	taken[candidate] = true
	return candidate
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
