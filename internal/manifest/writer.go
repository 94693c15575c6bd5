package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ms-events/internal/models"
)

var ErrNotPublished = errors.New("manifest not published yet")

// Writer owns <public>/data/manifest.json. Writes go to a temp file in the
// same directory and are renamed into place, so readers never see a partial file.
type Writer struct {
	path string
	mu   sync.RWMutex
}

func NewWriter(publicDir string) *Writer {
	return &Writer{path: filepath.Join(publicDir, filepath.FromSlash(models.ManifestPath))}
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) Write(m models.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// Read returns the currently published manifest
func (w *Writer) Read() (*models.Manifest, error) {
	w.mu.RLock()
	data, err := os.ReadFile(w.path)
	w.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotPublished
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
