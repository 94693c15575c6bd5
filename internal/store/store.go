package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Store is the owner's persistent key/value store with three collections
type Store interface {
	GetAllEvents(ctx context.Context) ([]models.Event, error)
	PutEvent(ctx context.Context, ev models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	ClearEvents(ctx context.Context) error

	GetAllAssets(ctx context.Context) ([]models.Asset, error)
	PutAsset(ctx context.Context, asset models.Asset) error
	DeleteAsset(ctx context.Context, id string) error
	ClearAssets(ctx context.Context) error

	GetSettings(ctx context.Context) (*models.Settings, error)
	PutSettings(ctx context.Context, settings models.Settings) error
	ClearSettings(ctx context.Context) error

	Replace(ctx context.Context, events []models.Event, assets []models.Asset, settings *models.Settings) error
}

type eventRow struct {
	bun.BaseModel `bun:"table:events"`

	ID        string    `bun:"id,pk"`
	Doc       string    `bun:"doc,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type assetRow struct {
	bun.BaseModel `bun:"table:assets"`

	ID        string    `bun:"id,pk"`
	Doc       string    `bun:"doc,notnull"`
	Data      []byte    `bun:"data"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type settingsRow struct {
	bun.BaseModel `bun:"table:settings"`

	ID        string    `bun:"id,pk"`
	Doc       string    `bun:"doc,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type DB struct {
	Bun    *bun.DB
	Logger *logger.Logger
}

// Open connects to the store. postgres:// DSNs use lib/pq, anything else is
// handed to the sqlite shim.
func Open(dsn string) (*bun.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := sqldb.Ping(); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases coherent
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// New creates the collection tables when missing
func New(ctx context.Context, db *bun.DB, log *logger.Logger) (*DB, error) {
	for _, model := range []interface{}{(*eventRow)(nil), (*assetRow)(nil), (*settingsRow)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return nil, fmt.Errorf("create table: %w", err)
		}
	}
	return &DB{Bun: db, Logger: log}, nil
}

// ---------------- EVENTS ----------------

func (d *DB) GetAllEvents(ctx context.Context) ([]models.Event, error) {
	var rows []eventRow
	if err := d.Bun.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		var ev models.Event
		if err := json.Unmarshal([]byte(row.Doc), &ev); err != nil {
			d.Logger.Warn("STORE", fmt.Sprintf("Skipping unreadable event %s: %v", row.ID, err))
			continue
		}
		events = append(events, ev)
	}
	d.Logger.LogStore("get_all", "events", fmt.Sprintf("%d records", len(events)))
	return events, nil
}

func (d *DB) PutEvent(ctx context.Context, ev models.Event) error {
	return putEvent(ctx, d.Bun, ev)
}

func putEvent(ctx context.Context, db bun.IDB, ev models.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	row := &eventRow{ID: ev.ID, Doc: string(doc), UpdatedAt: time.Now().UTC()}
	_, err = db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("doc = EXCLUDED.doc").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put event %s: %w", ev.ID, err)
	}
	return nil
}

func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*eventRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) ClearEvents(ctx context.Context) error {
	return clearTable(ctx, d.Bun, (*eventRow)(nil))
}

// ---------------- ASSETS ----------------

func (d *DB) GetAllAssets(ctx context.Context) ([]models.Asset, error) {
	var rows []assetRow
	if err := d.Bun.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select assets: %w", err)
	}

	assets := make([]models.Asset, 0, len(rows))
	for _, row := range rows {
		var a models.Asset
		if err := json.Unmarshal([]byte(row.Doc), &a); err != nil {
			d.Logger.Warn("STORE", fmt.Sprintf("Skipping unreadable asset %s: %v", row.ID, err))
			continue
		}
		a.Data = row.Data
		assets = append(assets, a)
	}
	d.Logger.LogStore("get_all", "assets", fmt.Sprintf("%d records", len(assets)))
	return assets, nil
}

// PutAsset rejects assets that carry neither a payload nor a URL
func (d *DB) PutAsset(ctx context.Context, asset models.Asset) error {
	return putAsset(ctx, d.Bun, asset)
}

func putAsset(ctx context.Context, db bun.IDB, asset models.Asset) error {
	if err := asset.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	row := &assetRow{ID: asset.ID, Doc: string(doc), Data: asset.Data, UpdatedAt: time.Now().UTC()}
	_, err = db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("doc = EXCLUDED.doc").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put asset %s: %w", asset.ID, err)
	}
	return nil
}

func (d *DB) DeleteAsset(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*assetRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) ClearAssets(ctx context.Context) error {
	return clearTable(ctx, d.Bun, (*assetRow)(nil))
}

// ---------------- SETTINGS ----------------

// GetSettings returns nil when no settings were ever saved
func (d *DB) GetSettings(ctx context.Context) (*models.Settings, error) {
	var row settingsRow
	err := d.Bun.NewSelect().
		Model(&row).
		Where("id = ?", models.SettingsID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}

	var s models.Settings
	if err := json.Unmarshal([]byte(row.Doc), &s); err != nil {
		d.Logger.Warn("STORE", fmt.Sprintf("Ignoring unreadable settings: %v", err))
		return nil, nil
	}
	return &s, nil
}

func (d *DB) PutSettings(ctx context.Context, settings models.Settings) error {
	return putSettings(ctx, d.Bun, settings)
}

func putSettings(ctx context.Context, db bun.IDB, settings models.Settings) error {
	settings.ID = models.SettingsID
	doc, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	row := &settingsRow{ID: settings.ID, Doc: string(doc), UpdatedAt: time.Now().UTC()}
	_, err = db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("doc = EXCLUDED.doc").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

func (d *DB) ClearSettings(ctx context.Context) error {
	return clearTable(ctx, d.Bun, (*settingsRow)(nil))
}

// Replace swaps the events (and the given assets and settings) in one transaction.
// A nil settings keeps the stored settings.
func (d *DB) Replace(ctx context.Context, events []models.Event, assets []models.Asset, settings *models.Settings) error {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := clearTable(ctx, tx, (*eventRow)(nil)); err != nil {
			return err
		}
		for _, ev := range events {
			if err := putEvent(ctx, tx, ev); err != nil {
				return err
			}
		}
		for _, a := range assets {
			if err := putAsset(ctx, tx, a); err != nil {
				return err
			}
		}
		if settings != nil {
			return putSettings(ctx, tx, *settings)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace store contents: %w", err)
	}
	d.Logger.LogStore("replace", "events", fmt.Sprintf("%d events, %d assets", len(events), len(assets)))
	return nil
}

func clearTable(ctx context.Context, db bun.IDB, model interface{}) error {
	_, err := db.NewDelete().Model(model).Where("1 = 1").Exec(ctx)
	return err
}
