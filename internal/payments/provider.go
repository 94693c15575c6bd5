package payments

import (
	"context"
	"errors"

	"ms-events/internal/models"
)

var (
	ErrProviderAPI        = errors.New("payment provider API error")
	ErrClientInitFailed   = errors.New("failed to initialize payment client")
	ErrPaymentsDisabled   = errors.New("payments are not configured")
	ErrMissingPriceID     = errors.New("priceId is required")
	ErrMissingCheckoutURL = errors.New("checkout session has no url")
)

// Provider is the subset of the payment provider API the catalog sync and checkout need
type Provider interface {
	// CreateProduct creates a product together with its default price
	CreateProduct(ctx context.Context, spec models.ProductSpec) (models.ProductRef, error)
	UpdateProduct(ctx context.Context, productID string, spec models.ProductSpec) error
	// GetPrice returns the unit amount and currency of an existing price
	GetPrice(ctx context.Context, priceID string) (int64, string, error)
	CreatePrice(ctx context.Context, productID string, unitAmount int64, currency string) (string, error)
	SetDefaultPrice(ctx context.Context, productID, priceID string) error
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
}

type CheckoutParams struct {
	PriceID    string
	EventID    string
	SuccessURL string
	CancelURL  string
}
