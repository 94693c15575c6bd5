package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-events/internal/blob"
	"ms-events/internal/bootstrap"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/publish"
	"ms-events/internal/state"
	"ms-events/internal/store"

	"github.com/google/uuid"
)

// Publisher runs one publish of the given state
type Publisher interface {
	Publish(ctx context.Context, events []models.Event, settings models.Settings, library []models.Asset) (publish.Result, error)
}

// Loader resolves the initial state
type Loader interface {
	Resolve(ctx context.Context) (bootstrap.Result, error)
}

// Console is the owner's view of the data. Every mutation is persisted to the
// store first and then applied to the state container.
type Console struct {
	store     store.Store
	loader    Loader
	publisher Publisher
	blobs     *blob.Registry
	state     *state.Container
	logger    *logger.Logger
	now       func() time.Time
}

func NewConsole(st store.Store, loader Loader, publisher Publisher, blobs *blob.Registry, log *logger.Logger) *Console {
	return &Console{
		store:     st,
		loader:    loader,
		publisher: publisher,
		blobs:     blobs,
		state:     state.NewContainer(),
		logger:    log,
		now:       time.Now,
	}
}

func (c *Console) Close() {
	c.state.Close()
	if c.blobs != nil {
		c.blobs.RevokeAll()
	}
}

// Load resolves the initial state. A failing resolver leaves the console
// loaded but empty; the error is recorded in the state, not returned.
func (c *Console) Load(ctx context.Context) (state.State, error) {
	res, err := c.loader.Resolve(ctx)
	if err != nil {
		c.logger.Error("CONSOLE", fmt.Sprintf("Load failed, starting empty: %v", err))
		return c.state.Dispatch(ctx, state.LoadFailed{Err: err})
	}
	return c.state.Dispatch(ctx, state.Loaded{
		Mode:     res.Mode,
		Events:   res.Events,
		Assets:   res.Assets,
		Settings: res.Settings,
	})
}

func (c *Console) State(ctx context.Context) (state.State, error) {
	return c.state.Snapshot(ctx)
}

// writable rejects mutations before anything touches the store
func (c *Console) writable(ctx context.Context) (state.State, error) {
	s, err := c.state.Snapshot(ctx)
	if err != nil {
		return s, err
	}
	if !s.Loaded {
		return s, state.ErrNotLoaded
	}
	if s.Mode == models.ModeVisitor {
		return s, state.ErrReadOnly
	}
	return s, nil
}

// SaveEvent persists ev, assigning an id when it has none
func (c *Console) SaveEvent(ctx context.Context, ev models.Event) (models.Event, error) {
	if _, err := c.writable(ctx); err != nil {
		return ev, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Status == "" {
		ev.Status = models.EventStatusDraft
	}
	if err := c.store.PutEvent(ctx, ev); err != nil {
		return ev, err
	}
	if _, err := c.state.Dispatch(ctx, state.EventSaved{Event: ev}); err != nil {
		return ev, err
	}
	c.logger.Info("CONSOLE", fmt.Sprintf("Saved event %s", ev.ID))
	return ev, nil
}

func (c *Console) DeleteEvent(ctx context.Context, id string) error {
	if _, err := c.writable(ctx); err != nil {
		return err
	}
	if err := c.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	_, err := c.state.Dispatch(ctx, state.EventDeleted{ID: id})
	return err
}

// AddAsset stores a payload in the library and gives it a transient URL for display
func (c *Console) AddAsset(ctx context.Context, name, contentType string, data []byte) (models.Asset, error) {
	return c.AddAssetOfKind(ctx, models.KindFromContentType(contentType), name, contentType, data)
}

func (c *Console) AddAssetOfKind(ctx context.Context, kind models.AssetKind, name, contentType string, data []byte) (models.Asset, error) {
	if _, err := c.writable(ctx); err != nil {
		return models.Asset{}, err
	}
	asset := models.Asset{
		ID:          uuid.NewString(),
		Kind:        kind,
		Name:        name,
		ContentType: contentType,
		Data:        data,
	}
	// blob URLs die with the process, so the stored record has only the
	// payload and events reference it by id
	if err := c.store.PutAsset(ctx, asset); err != nil {
		return models.Asset{}, err
	}
	if c.blobs != nil {
		asset.URL = c.blobs.Create(data, contentType)
	}
	if _, err := c.state.Dispatch(ctx, state.AssetSaved{Asset: asset}); err != nil {
		return asset, err
	}
	return asset, nil
}

func (c *Console) DeleteAsset(ctx context.Context, id string) error {
	s, err := c.writable(ctx)
	if err != nil {
		return err
	}
	if err := c.store.DeleteAsset(ctx, id); err != nil {
		return err
	}
	for _, a := range s.Assets {
		if a.ID == id && c.blobs != nil && blob.IsTransient(a.URL) {
			c.blobs.Revoke(a.URL)
		}
	}
	_, err = c.state.Dispatch(ctx, state.AssetDeleted{ID: id})
	return err
}

func (c *Console) SaveSettings(ctx context.Context, settings models.Settings) error {
	if _, err := c.writable(ctx); err != nil {
		return err
	}
	settings.ID = models.SettingsID
	if settings.PaymentConfig == nil {
		settings.PaymentConfig = models.NoneConfig{}
	}
	if err := c.store.PutSettings(ctx, settings); err != nil {
		return err
	}
	_, err := c.state.Dispatch(ctx, state.SettingsSaved{Settings: settings})
	return err
}

// Publish pushes the current state to the manifest server. A pending edit is
// saved and spliced into the outgoing list first; it stays saved even when the
// publish fails. In visitor mode this is a no-op.
func (c *Console) Publish(ctx context.Context, pending *models.Event) (publish.Result, error) {
	s, err := c.state.Snapshot(ctx)
	if err != nil {
		return publish.Result{}, err
	}
	if s.Mode == models.ModeVisitor {
		c.logger.Info("CONSOLE", "Publish ignored in visitor mode")
		return publish.Result{Events: s.Events}, nil
	}

	if pending != nil {
		if _, err := c.SaveEvent(ctx, *pending); err != nil {
			return publish.Result{}, fmt.Errorf("save pending event: %w", err)
		}
	}

	s, err = c.state.Dispatch(ctx, state.PublishStarted{})
	if err != nil {
		return publish.Result{}, err
	}

	res, err := c.publisher.Publish(ctx, s.Events, s.Settings, s.Assets)
	if err != nil {
		if _, derr := c.state.Dispatch(ctx, state.PublishFailed{Err: err}); derr != nil {
			c.logger.Error("CONSOLE", fmt.Sprintf("Failed to record publish failure: %v", derr))
		}
		return publish.Result{}, err
	}

	var persistErr error
	for _, ev := range res.Events {
		if err := c.store.PutEvent(ctx, ev); err != nil {
			persistErr = errors.Join(persistErr, err)
		}
	}
	if _, err := c.state.Dispatch(ctx, state.PublishSucceeded{Events: res.Events, At: c.now().UTC()}); err != nil {
		return res, err
	}
	if persistErr != nil {
		c.logger.Error("CONSOLE", fmt.Sprintf("Published but failed to persist returned events: %v", persistErr))
		return res, fmt.Errorf("persist published events: %w", persistErr)
	}
	if len(res.Unresolved) > 0 {
		c.logger.Warn("CONSOLE", fmt.Sprintf("Published with %d unresolved media references", len(res.Unresolved)))
	}
	c.logger.Info("CONSOLE", fmt.Sprintf("Published %d events", len(res.Events)))
	return res, nil
}
