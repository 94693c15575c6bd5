package manifest

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"ms-events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReplacesManifestAtomically(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	_, err := w.Read()
	assert.ErrorIs(t, err, ErrNotPublished)

	first := models.NewManifest([]models.Event{{ID: "e1", Title: "Gala"}}, models.DefaultSettings(), time.Unix(0, 0))
	require.NoError(t, w.Write(first))
	second := models.NewManifest([]models.Event{{ID: "e2", Title: "Meetup"}}, models.DefaultSettings(), time.Unix(60, 0))
	require.NoError(t, w.Write(second))

	got, err := w.Read()
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "e2", got.Events[0].ID)
	assert.Equal(t, "1970-01-01T00:01:00Z", got.LastUpdated)
	assert.Equal(t, filepath.Join(dir, "data", "manifest.json"), w.Path())

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestManifestHasExactlyThreeFields(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	require.NoError(t, w.Write(models.NewManifest(nil, models.DefaultSettings(), time.Now())))

	raw, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `"lastUpdated"`)
	assert.Contains(t, body, `"events": []`)
	assert.Contains(t, body, `"settings"`)
}

func TestUploadsSave(t *testing.T) {
	dir := t.TempDir()
	u := NewUploads(dir)

	url1, n, err := u.Save("poster.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	url2, _, err := u.Save("poster.png", strings.NewReader("png2"))
	require.NoError(t, err)

	assert.NotEqual(t, url1, url2)
	assert.True(t, strings.HasPrefix(url1, UploadsPrefix))

	data, err := os.ReadFile(filepath.Join(dir, "uploads", strings.TrimPrefix(url2, UploadsPrefix)))
	require.NoError(t, err)
	assert.Equal(t, "png2", string(data))
}

func TestUniqueName(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-zA-Z0-9._-]+-[0-9a-f]{8}(\.[a-z0-9]+)?$`)
	tests := []struct {
		in     string
		prefix string
		ext    string
	}{
		{"My Poster (final).PNG", "My-Poster-final-", ".png"},
		{"../../etc/passwd", "passwd-", ""},
		{`C:\Users\me\slides.pdf`, "slides-", ".pdf"},
		{"", "file-", ""},
		{"....", "file-", ""},
	}
	for _, tt := range tests {
		name := UniqueName(tt.in)
		assert.True(t, pattern.MatchString(name), name)
		assert.True(t, strings.HasPrefix(name, tt.prefix), name)
		assert.True(t, strings.HasSuffix(name, tt.ext), name)
		assert.NotContains(t, name, "/")
	}
}
