package bootstrap

import (
	"context"
	"fmt"

	"ms-events/internal/blob"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// LocalStore is the subset of the store the resolver reads and seeds
type LocalStore interface {
	GetAllEvents(ctx context.Context) ([]models.Event, error)
	GetAllAssets(ctx context.Context) ([]models.Asset, error)
	GetSettings(ctx context.Context) (*models.Settings, error)
	PutEvent(ctx context.Context, ev models.Event) error
	PutSettings(ctx context.Context, settings models.Settings) error
}

// ManifestSource returns the published manifest or an error when none is reachable
type ManifestSource interface {
	FetchManifest(ctx context.Context) (*models.Manifest, error)
}

type Result struct {
	Mode     models.Mode
	Events   []models.Event
	Assets   []models.Asset
	Settings models.Settings
	// Seeded is true when the demo dataset was written to the store
	Seeded bool
}

type Resolver struct {
	store    LocalStore
	manifest ManifestSource
	blobs    *blob.Registry
	logger   *logger.Logger
}

func NewResolver(store LocalStore, manifest ManifestSource, blobs *blob.Registry, log *logger.Logger) *Resolver {
	return &Resolver{store: store, manifest: manifest, blobs: blobs, logger: log}
}

// Resolve decides between owner and visitor mode. Local data wins, then a
// published manifest, then the demo dataset.
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	res, found, err := r.readLocal(ctx)
	if err != nil {
		return Result{}, err
	}
	if found {
		r.logger.Info("BOOTSTRAP", fmt.Sprintf("Owner mode: %d events, %d assets from local store", len(res.Events), len(res.Assets)))
		return r.materialize(res), nil
	}

	if r.manifest != nil {
		m, err := r.manifest.FetchManifest(ctx)
		if err == nil {
			r.logger.Info("BOOTSTRAP", fmt.Sprintf("Visitor mode: %d events from manifest (%s)", len(m.Events), m.LastUpdated))
			events := m.Events
			if events == nil {
				events = []models.Event{}
			}
			return Result{Mode: models.ModeVisitor, Events: events, Settings: m.Settings}, nil
		}
		r.logger.Info("BOOTSTRAP", fmt.Sprintf("No published manifest: %v", err))
	}

	if err := r.seed(ctx); err != nil {
		return Result{}, err
	}
	res, _, err = r.readLocal(ctx)
	if err != nil {
		return Result{}, err
	}
	res.Seeded = true
	r.logger.Info("BOOTSTRAP", fmt.Sprintf("Owner mode: seeded %d demo events", len(res.Events)))
	return r.materialize(res), nil
}

func (r *Resolver) readLocal(ctx context.Context) (Result, bool, error) {
	events, err := r.store.GetAllEvents(ctx)
	if err != nil {
		return Result{}, false, fmt.Errorf("read events: %w", err)
	}
	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return Result{}, false, fmt.Errorf("read settings: %w", err)
	}
	assets, err := r.store.GetAllAssets(ctx)
	if err != nil {
		return Result{}, false, fmt.Errorf("read assets: %w", err)
	}

	found := len(events) > 0 || settings != nil
	res := Result{Mode: models.ModeOwner, Events: events, Assets: assets, Settings: models.DefaultSettings()}
	if settings != nil {
		res.Settings = *settings
	}
	return res, found, nil
}

func (r *Resolver) seed(ctx context.Context) error {
	for _, ev := range DemoEvents() {
		if err := r.store.PutEvent(ctx, ev); err != nil {
			return fmt.Errorf("seed demo event %s: %w", ev.ID, err)
		}
	}
	if err := r.store.PutSettings(ctx, DemoSettings()); err != nil {
		return fmt.Errorf("seed demo settings: %w", err)
	}
	return nil
}

// materialize gives every asset that carries a payload a dereferenceable blob: URL
func (r *Resolver) materialize(res Result) Result {
	if r.blobs == nil {
		return res
	}
	for i := range res.Assets {
		a := &res.Assets[i]
		if a.HasPayload() {
			a.URL = r.blobs.Create(a.Data, contentTypeOf(*a))
		}
	}
	return res
}

func contentTypeOf(a models.Asset) string {
	if a.ContentType != "" {
		return a.ContentType
	}
	return "application/octet-stream"
}
