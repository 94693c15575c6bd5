package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-events/internal/blob"
	"ms-events/internal/models"
	"ms-events/internal/state"
)

var ErrInvalidBackup = errors.New("invalid backup file")

// ExportBackup writes the current events, assets and settings as JSON.
// Asset payloads and transient URLs are left out.
func (c *Console) ExportBackup(ctx context.Context, w io.Writer) error {
	s, err := c.state.Snapshot(ctx)
	if err != nil {
		return err
	}

	assets := make([]models.Asset, 0, len(s.Assets))
	for _, a := range s.Assets {
		a.Data = nil
		if blob.IsTransient(a.URL) {
			a.URL = ""
		}
		assets = append(assets, a)
	}
	events := s.Events
	if events == nil {
		events = []models.Event{}
	}
	settings := s.Settings

	backup := models.Backup{
		Version:    models.BackupVersion,
		ExportedAt: c.now().UTC().Format(time.RFC3339),
		Events:     events,
		Assets:     assets,
		Settings:   &settings,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	c.logger.Info("CONSOLE", fmt.Sprintf("Exported backup with %d events and %d assets", len(events), len(assets)))
	return nil
}

// RestoreBackup replaces events and settings with the contents of a backup.
// A backup that fails to parse or validate is discarded and the store is left untouched.
func (c *Console) RestoreBackup(ctx context.Context, r io.Reader) error {
	if _, err := c.writable(ctx); err != nil {
		return err
	}

	backup, err := decodeBackup(r)
	if err != nil {
		c.logger.Warn("CONSOLE", fmt.Sprintf("Discarding backup: %v", err))
		return err
	}

	var assets []models.Asset
	for _, a := range backup.Assets {
		if a.URL == "" || blob.IsTransient(a.URL) {
			continue
		}
		a.Data = nil
		if err := a.Validate(); err != nil {
			c.logger.Warn("CONSOLE", fmt.Sprintf("Discarding backup: %v", err))
			return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		assets = append(assets, a)
	}

	if err := c.store.Replace(ctx, backup.Events, assets, backup.Settings); err != nil {
		return err
	}
	if err := c.reloadFromStore(ctx); err != nil {
		return err
	}
	c.logger.Info("CONSOLE", fmt.Sprintf("Restored %d events and %d assets", len(backup.Events), len(assets)))
	return nil
}

func decodeBackup(r io.Reader) (*models.Backup, error) {
	var backup models.Backup
	dec := json.NewDecoder(r)
	if err := dec.Decode(&backup); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if backup.Version < 1 || backup.Version > models.BackupVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, backup.Version)
	}
	if backup.Events == nil {
		return nil, fmt.Errorf("%w: events missing", ErrInvalidBackup)
	}
	for _, ev := range backup.Events {
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
	}
	if id := models.DuplicateEventID(backup.Events); id != "" {
		return nil, fmt.Errorf("%w: duplicate event id %s", ErrInvalidBackup, id)
	}
	return &backup, nil
}

func (c *Console) reloadFromStore(ctx context.Context) error {
	events, err := c.store.GetAllEvents(ctx)
	if err != nil {
		return err
	}
	assets, err := c.store.GetAllAssets(ctx)
	if err != nil {
		return err
	}
	settings, err := c.store.GetSettings(ctx)
	if err != nil {
		return err
	}

	loaded := state.Loaded{Mode: models.ModeOwner, Events: events, Assets: assets, Settings: models.DefaultSettings()}
	if settings != nil {
		loaded.Settings = *settings
	}
	for i := range loaded.Assets {
		a := &loaded.Assets[i]
		if a.HasPayload() && c.blobs != nil {
			a.URL = c.blobs.Create(a.Data, a.ContentType)
		}
	}
	_, err = c.state.Dispatch(ctx, loaded)
	return err
}
