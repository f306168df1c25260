package api

import (
	"path/filepath"
	"strings"
)

// allowedSourceTypes are the upload content types accepted as transform
// sources. Unknown types fall through to the decoder, which sniffs the bytes.
var allowedSourceTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"image/gif":                true,
	"image/webp":               true,
	"image/bmp":                true,
	"image/tiff":               true,
	"application/octet-stream": true,
}

func IsAllowedSourceType(mimeType string) bool {
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return allowedSourceTypes[strings.ToLower(mimeType)]
}

// SanitizeFilename removes potentially dangerous characters and path components
// from a filename to prevent path traversal attacks.
func SanitizeFilename(filename string) string {
	if idx := strings.LastIndex(filename, "\\"); idx != -1 {
		filename = filename[idx+1:]
	}
	filename = filepath.Base(filename)

	var sanitized strings.Builder
	for _, r := range filename {
		if r >= 32 && r != 127 && !strings.ContainsRune(`/\:*?"<>|`, r) {
			sanitized.WriteRune(r)
		}
	}

	result := strings.Trim(sanitized.String(), ". ")
	if len(result) > 255 {
		ext := filepath.Ext(result)
		if len(ext) >= 255 {
			ext = ""
		}
		result = result[:255-len(ext)] + ext
	}
	if result == "" {
		return "unnamed_file"
	}
	return result
}

// OutputFilename swaps the extension of the uploaded name for ext. Without
// an uploaded name the request id is used.
func OutputFilename(uploaded, requestID, ext string) string {
	base := requestID
	if uploaded != "" {
		name := SanitizeFilename(uploaded)
		if stem := strings.TrimSuffix(name, filepath.Ext(name)); stem != "" {
			base = stem
		}
	}
	return base + "." + ext
}
