package manifest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-events/internal/blob"
	"ms-events/internal/lock"
	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
)

var (
	ErrDuplicateEventID = errors.New("duplicate event id")
	ErrPublishLocked    = errors.New("another publish is in progress")
)

// CatalogSyncer assigns payment provider ids to priced events
type CatalogSyncer interface {
	Sync(ctx context.Context, events []models.Event, currency string) []models.Event
}

type EventPublisher interface {
	PublishManifest(ctx context.Context, m models.Manifest) error
}

// Publisher turns a publish request into the new manifest
type Publisher struct {
	Writer          *Writer
	Locker          lock.Locker
	Catalog         CatalogSyncer // nil when payments are disabled
	Events          EventPublisher
	DefaultCurrency string
	Logger          *logger.Logger
	Now             func() time.Time
}

func (p *Publisher) Publish(ctx context.Context, req models.PublishRequest) (models.Manifest, error) {
	events := req.Events
	if events == nil {
		events = []models.Event{}
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return models.Manifest{}, err
		}
		for _, a := range ev.Assets {
			if err := a.Validate(); err != nil {
				return models.Manifest{}, fmt.Errorf("%w: event %s: %v", models.ErrInvalidEvent, ev.ID, err)
			}
		}
	}
	if id := models.DuplicateEventID(events); id != "" {
		return models.Manifest{}, fmt.Errorf("%w: %s", ErrDuplicateEventID, id)
	}

	release, err := p.Locker.Acquire(ctx, lock.PublishKey)
	if errors.Is(err, lock.ErrHeld) {
		return models.Manifest{}, ErrPublishLocked
	}
	if err != nil {
		return models.Manifest{}, err
	}
	defer release()

	start := time.Now()
	defer func() { metrics.PublishDuration.Observe(time.Since(start).Seconds()) }()

	p.countTransient(events)
	settings := p.settings(req.Settings)

	if p.Catalog != nil && settings.PaymentProvider() == models.ProviderStripe {
		currency := settings.Currency()
		if currency == "" {
			currency = p.DefaultCurrency
		}
		events = p.Catalog.Sync(ctx, events, currency)
	}

	m := models.NewManifest(events, settings, p.now())
	if err := p.Writer.Write(m); err != nil {
		return models.Manifest{}, err
	}
	metrics.ManifestEvents.Set(float64(len(events)))
	p.Logger.LogPublish("MANIFEST", fmt.Sprintf("Published manifest with %d events at %s", len(events), m.LastUpdated))

	if p.Events != nil {
		if err := p.Events.PublishManifest(ctx, m); err != nil {
			p.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish manifest event: %v", err))
		}
	}
	return m, nil
}

// settings falls back to the published settings, then to the defaults
func (p *Publisher) settings(s *models.Settings) models.Settings {
	if s != nil {
		out := *s
		out.ID = models.SettingsID
		if out.PaymentConfig == nil {
			out.PaymentConfig = models.NoneConfig{}
		}
		return out
	}
	if current, err := p.Writer.Read(); err == nil {
		return current.Settings
	}
	return models.DefaultSettings()
}

func (p *Publisher) countTransient(events []models.Event) {
	n := 0
	for _, ev := range events {
		if blob.IsTransient(ev.Image) {
			n++
		}
		for _, a := range ev.Assets {
			if blob.IsTransient(a.URL) {
				n++
			}
		}
	}
	if n > 0 {
		metrics.TransientReferences.Add(float64(n))
		p.Logger.Warn("MANIFEST", fmt.Sprintf("Publishing %d unresolved blob/data references", n))
	}
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
