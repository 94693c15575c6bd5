package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchManifest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, models.ManifestPath, r.URL.Path)
		json.NewEncoder(w).Encode(models.Manifest{
			LastUpdated: "2026-01-01T00:00:00Z",
			Events:      []models.Event{{ID: "e1", Title: "Gala"}},
			Settings:    models.DefaultSettings(),
		})
	}))
	defer ts.Close()

	c := NewServerClient(ts.URL+"/", "", ts.Client(), logger.NewNop())
	m, err := c.FetchManifest(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Events, 1)
	assert.Equal(t, "Gala", m.Events[0].Title)
}

func TestFetchManifestFailuresAreNoManifest(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"malformed", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()
			_, err := NewServerClient(ts.URL, "", ts.Client(), logger.NewNop()).FetchManifest(context.Background())
			assert.ErrorIs(t, err, ErrNoManifest)
		})
	}

	_, err := NewServerClient("http://127.0.0.1:1", "", nil, logger.NewNop()).FetchManifest(context.Background())
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestUploadSendsMultipartWithBearer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "cover.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("png"), data)
		json.NewEncoder(w).Encode(models.UploadResponse{URL: "/uploads/cover-1a2b3c4d.png"})
	}))
	defer ts.Close()

	url, err := NewServerClient(ts.URL, "secret", ts.Client(), logger.NewNop()).
		Upload(context.Background(), "cover.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/cover-1a2b3c4d.png", url)
}

func TestPublishErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, "", func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnauthorized) }},
		{"conflict", http.StatusConflict, "", func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrConflict) }},
		{"bad request", http.StatusBadRequest, `{"success":false,"error":"duplicate event id e1"}`, func(t *testing.T, err error) {
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusBadRequest, se.StatusCode)
			assert.Equal(t, "duplicate event id e1", se.Message)
		}},
		{"rejected", http.StatusOK, `{"success":false,"error":"nope"}`, func(t *testing.T, err error) { assert.ErrorContains(t, err, "nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()
			_, err := NewServerClient(ts.URL, "t", ts.Client(), logger.NewNop()).
				Publish(context.Background(), models.PublishRequest{Events: []models.Event{{ID: "e1"}}})
			tt.check(t, err)
		})
	}
}
