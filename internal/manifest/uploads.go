package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const UploadsPrefix = "/uploads/"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Uploads stores files under <public>/uploads with collision-free names
type Uploads struct {
	dir string
}

func NewUploads(publicDir string) *Uploads {
	return &Uploads{dir: filepath.Join(publicDir, "uploads")}
}

// Save copies r to disk and returns the server-relative URL
func (u *Uploads) Save(originalName string, r io.Reader) (string, int64, error) {
	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return "", 0, fmt.Errorf("create uploads directory: %w", err)
	}

	name := UniqueName(originalName)
	f, err := os.OpenFile(filepath.Join(u.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	return UploadsPrefix + name, n, nil
}

// UniqueName turns "My Poster (final).PNG" into "My-Poster-final-1a2b3c4d.png"
func UniqueName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	stem = strings.Trim(unsafeChars.ReplaceAllString(stem, "-"), "-.")
	if stem == "" {
		stem = "file"
	}
	if len(stem) > 64 {
		stem = stem[:64]
	}
	ext = unsafeChars.ReplaceAllString(ext, "")
	if ext == "." {
		ext = ""
	}
	return fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], ext)
}
