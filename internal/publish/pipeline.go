package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ms-events/internal/blob"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

var ErrInFlight = errors.New("publish already in flight")

// Server is the part of the manifest server the pipeline talks to
type Server interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
	Publish(ctx context.Context, payload models.PublishRequest) (*models.PublishResponse, error)
}

// Result is what a publish produced
type Result struct {
	// Events is the new source of truth: the server's canonical list when it
	// returned one, otherwise the list that was submitted.
	Events []models.Event
	// Unresolved lists transient references that could not be dereferenced
	// and were published unchanged.
	Unresolved []string
	Uploaded   int
}

type Pipeline struct {
	server Server
	blobs  *blob.Registry
	logger *logger.Logger

	mu       sync.Mutex
	inFlight bool
}

func NewPipeline(server Server, blobs *blob.Registry, log *logger.Logger) *Pipeline {
	return &Pipeline{server: server, blobs: blobs, logger: log}
}

// Publish resolves transient media references, uploads them and submits the
// manifest. The caller's events are never modified.
func (p *Pipeline) Publish(ctx context.Context, events []models.Event, settings models.Settings, library []models.Asset) (Result, error) {
	if !p.acquire() {
		return Result{}, ErrInFlight
	}
	defer p.release()

	out := models.CloneEvents(events)
	if out == nil {
		out = []models.Event{}
	}
	byID, byURL := indexPayloads(library)
	r := &resolver{
		pipeline:     p,
		library:      byID,
		libraryByURL: byURL,
		uploaded:     make(map[string]string),
	}

	for i := range out {
		ev := &out[i]
		if blob.IsTransient(ev.Image) {
			url, err := r.resolve(ctx, ev.Image, "", fmt.Sprintf("%s-cover", ev.ID))
			if err != nil {
				return Result{}, err
			}
			ev.Image = url
		}
		for j := range ev.Assets {
			asset := &ev.Assets[j]
			ref := asset.URL
			if ref == "" {
				lib, ok := r.library[asset.ID]
				if !ok {
					continue
				}
				// referenced by library id only
				ref = libraryRef(asset.ID)
				if asset.Kind == "" {
					asset.Kind = lib.Kind
				}
				if asset.Name == "" {
					asset.Name = lib.Name
				}
			} else if !blob.IsTransient(ref) {
				continue
			}
			url, err := r.resolve(ctx, ref, asset.ID, asset.Name)
			if err != nil {
				return Result{}, err
			}
			asset.URL = url
		}
	}

	p.logger.LogPublish("submit", fmt.Sprintf("Submitting %d events (%d uploads, %d unresolved)", len(out), len(r.uploaded), len(r.unresolved)))
	resp, err := p.server.Publish(ctx, models.PublishRequest{Events: out, Settings: &settings})
	if err != nil {
		p.logger.Error("PUBLISH", fmt.Sprintf("Publish failed: %v", err))
		return Result{}, fmt.Errorf("submit manifest: %w", err)
	}

	result := Result{Events: out, Unresolved: r.unresolved, Uploaded: len(r.uploaded)}
	if resp.Events != nil {
		result.Events = resp.Events
	}
	p.logger.LogPublish("done", fmt.Sprintf("Published %d events", len(result.Events)))
	return result, nil
}

func (p *Pipeline) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return false
	}
	p.inFlight = true
	return true
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
}

type resolver struct {
	pipeline     *Pipeline
	library      map[string]models.Asset
	libraryByURL map[string]models.Asset
	uploaded     map[string]string
	unresolved   []string
}

// resolve returns the durable URL for ref. An unresolvable ref comes back
// unchanged and is recorded; only upload failures are returned as errors.
func (r *resolver) resolve(ctx context.Context, ref, assetID, name string) (string, error) {
	if url, ok := r.uploaded[ref]; ok {
		return url, nil
	}

	data, contentType, err := r.payload(ref, assetID)
	if err != nil {
		r.pipeline.logger.Warn("PUBLISH", fmt.Sprintf("Leaving unresolved reference %s in place: %v", shorten(ref), err))
		r.unresolved = append(r.unresolved, ref)
		return ref, nil
	}

	url, err := r.pipeline.server.Upload(ctx, FileName(name, contentType), contentType, data)
	if err != nil {
		r.pipeline.logger.Error("PUBLISH", fmt.Sprintf("Upload of %s failed: %v", name, err))
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	r.uploaded[ref] = url
	return url, nil
}

// payload prefers the library copy of an asset, then the blob registry, then inline data
func (r *resolver) payload(ref, assetID string) ([]byte, string, error) {
	if assetID != "" {
		if a, ok := r.library[assetID]; ok {
			return a.Data, contentTypeOr(a.ContentType, a.Name), nil
		}
	}
	if a, ok := r.libraryByURL[ref]; ok {
		return a.Data, contentTypeOr(a.ContentType, a.Name), nil
	}
	if blob.IsDataURI(ref) {
		return blob.DecodeDataURI(ref)
	}
	if r.pipeline.blobs == nil {
		return nil, "", blob.ErrNotFound
	}
	data, contentType, err := r.pipeline.blobs.Fetch(ref)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// indexPayloads keys the library assets that carry a payload by id and by
// their materialized URL
func indexPayloads(library []models.Asset) (map[string]models.Asset, map[string]models.Asset) {
	byID := make(map[string]models.Asset, len(library))
	byURL := make(map[string]models.Asset, len(library))
	for _, a := range library {
		if !a.HasPayload() {
			continue
		}
		byID[a.ID] = a
		if a.URL != "" {
			byURL[a.URL] = a
		}
	}
	return byID, byURL
}

func libraryRef(assetID string) string {
	return "library:" + assetID
}

func shorten(ref string) string {
	if len(ref) > 48 {
		return ref[:48] + "..."
	}
	return ref
}

func contentTypeOr(contentType, name string) string {
	if contentType != "" {
		return contentType
	}
	if ct := contentTypeFromName(name); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// FileName builds an upload file name that keeps the original base name
func FileName(name, contentType string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "upload"
	}
	if strings.Contains(name, ".") && contentTypeFromName(name) != "" {
		return name
	}
	return name + Extension(contentType)
}
