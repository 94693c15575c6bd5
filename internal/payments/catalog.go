package payments

import (
	"context"
	"fmt"
	"strings"

	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
)

// Catalog keeps one provider product per priced event
type Catalog struct {
	provider  Provider
	publicURL string
	log       *logger.Logger
}

func NewCatalog(provider Provider, publicURL string, log *logger.Logger) *Catalog {
	return &Catalog{provider: provider, publicURL: strings.TrimRight(publicURL, "/"), log: log}
}

// Sync returns events with provider ids assigned. Free events pass through.
// A provider failure leaves that event as it came in.
func (c *Catalog) Sync(ctx context.Context, events []models.Event, currency string) []models.Event {
	out := make([]models.Event, len(events))
	for i, ev := range events {
		out[i] = ev
		if ev.Price <= 0 {
			continue
		}
		synced, action, err := c.syncEvent(ctx, ev, currency)
		if err != nil {
			metrics.CatalogSync.WithLabelValues(action, "error").Inc()
			c.log.Error("STRIPE", fmt.Sprintf("Catalog sync failed for event %s (%s): %v", ev.ID, action, err))
			continue
		}
		metrics.CatalogSync.WithLabelValues(action, "success").Inc()
		out[i] = synced
	}
	return out
}

func (c *Catalog) syncEvent(ctx context.Context, ev models.Event, currency string) (models.Event, string, error) {
	spec := c.productSpec(ev, currency)

	if ev.StripeProductID == "" {
		ref, err := c.provider.CreateProduct(ctx, spec)
		if err != nil {
			return ev, "create", err
		}
		ev.StripeProductID = ref.ProductID
		ev.StripePriceID = ref.PriceID
		c.log.Info("STRIPE", fmt.Sprintf("Created product %s with price %s for event %s", ref.ProductID, ref.PriceID, ev.ID))
		return ev, "create", nil
	}

	if err := c.provider.UpdateProduct(ctx, ev.StripeProductID, spec); err != nil {
		return ev, "update", err
	}

	if ev.StripePriceID != "" {
		amount, cur, err := c.provider.GetPrice(ctx, ev.StripePriceID)
		if err != nil {
			return ev, "update", err
		}
		if amount == spec.UnitAmount && cur == spec.Currency {
			c.log.Debug("STRIPE", fmt.Sprintf("Reusing price %s for event %s", ev.StripePriceID, ev.ID))
			return ev, "update", nil
		}
	}

	priceID, err := c.provider.CreatePrice(ctx, ev.StripeProductID, spec.UnitAmount, spec.Currency)
	if err != nil {
		return ev, "reprice", err
	}
	if err := c.provider.SetDefaultPrice(ctx, ev.StripeProductID, priceID); err != nil {
		return ev, "reprice", err
	}
	c.log.Info("STRIPE", fmt.Sprintf("Replaced price of event %s: %s -> %s", ev.ID, ev.StripePriceID, priceID))
	ev.StripePriceID = priceID
	return ev, "reprice", nil
}

func (c *Catalog) productSpec(ev models.Event, currency string) models.ProductSpec {
	currency = strings.ToLower(currency)
	spec := models.ProductSpec{
		EventID:     ev.ID,
		Name:        ev.Title,
		Description: ev.Description,
		UnitAmount:  ToMinorUnits(ev.Price, currency),
		Currency:    currency,
	}
	if spec.Name == "" {
		spec.Name = ev.ID
	}
	if img := c.absoluteURL(ev.Image); img != "" {
		spec.Images = []string{img}
	}
	return spec
}

// absoluteURL keeps http(s) images and resolves server-relative paths against the public origin
func (c *Catalog) absoluteURL(ref string) string {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "/") && strings.HasPrefix(c.publicURL, "http"):
		return c.publicURL + ref
	}
	return ""
}
