package publish

import (
	"mime"
	"path/filepath"
	"strings"
)

var extensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"audio/mpeg":      ".mp3",
	"audio/wav":       ".wav",
	"audio/ogg":       ".ogg",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
}

// Extension maps a MIME type onto a file extension, ".bin" when unknown
func Extension(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if ext, ok := extensions[base]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func contentTypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	for ct, e := range extensions {
		if e == ext {
			return ct
		}
	}
	base, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	return base
}
