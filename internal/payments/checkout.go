package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
)

type Checkout struct {
	provider  Provider
	publicURL string
	log       *logger.Logger
}

func NewCheckout(provider Provider, publicURL string, log *logger.Logger) *Checkout {
	return &Checkout{provider: provider, publicURL: strings.TrimRight(publicURL, "/"), log: log}
}

// CreateSession starts a one-ticket checkout for a published price
func (c *Checkout) CreateSession(ctx context.Context, req models.CheckoutRequest) (string, error) {
	if strings.TrimSpace(req.PriceID) == "" {
		return "", ErrMissingPriceID
	}
	if c.provider == nil {
		return "", ErrPaymentsDisabled
	}

	q := url.Values{}
	if req.EventID != "" {
		q.Set("event", req.EventID)
	}
	q.Set("checkout", "success")
	// Stripe substitutes the placeholder, it must stay unescaped
	success := c.publicURL + "/?" + q.Encode() + "&session_id={CHECKOUT_SESSION_ID}"
	q.Set("checkout", "cancelled")
	cancel := c.publicURL + "/?" + q.Encode()

	u, err := c.provider.CreateCheckoutSession(ctx, CheckoutParams{
		PriceID:    req.PriceID,
		EventID:    req.EventID,
		SuccessURL: success,
		CancelURL:  cancel,
	})
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("error").Inc()
		c.log.Error("CHECKOUT", fmt.Sprintf("Failed to create checkout session for price %s: %v", req.PriceID, err))
		return "", err
	}
	metrics.CheckoutSessions.WithLabelValues("success").Inc()
	return u, nil
}
