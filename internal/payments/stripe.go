package payments

import (
	"context"
	"fmt"
	"strings"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeProvider talks to Stripe products, prices and checkout sessions
type StripeProvider struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeProvider(secretKey string, log *logger.Logger) (*StripeProvider, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrClientInitFailed
	}

	sc := client.New(secretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeProvider{client: sc, log: log}, nil
}

func productParams(ctx context.Context, spec models.ProductSpec) *stripe.ProductParams {
	params := &stripe.ProductParams{
		Name: stripe.String(spec.Name),
	}
	params.Context = ctx
	if spec.Description != "" {
		params.Description = stripe.String(spec.Description)
	}
	if len(spec.Images) > 0 {
		params.Images = stripe.StringSlice(spec.Images)
	}
	params.AddMetadata("eventId", spec.EventID)
	return params
}

func (s *StripeProvider) CreateProduct(ctx context.Context, spec models.ProductSpec) (models.ProductRef, error) {
	params := productParams(ctx, spec)
	params.DefaultPriceData = &stripe.ProductDefaultPriceDataParams{
		Currency:   stripe.String(spec.Currency),
		UnitAmount: stripe.Int64(spec.UnitAmount),
	}

	p, err := s.client.Products.New(params)
	if err != nil {
		return models.ProductRef{}, fmt.Errorf("%w: create product for %s: %v", ErrProviderAPI, spec.EventID, err)
	}
	if p.DefaultPrice == nil || p.DefaultPrice.ID == "" {
		return models.ProductRef{}, fmt.Errorf("%w: product %s was created without a default price", ErrProviderAPI, p.ID)
	}
	return models.ProductRef{ProductID: p.ID, PriceID: p.DefaultPrice.ID}, nil
}

func (s *StripeProvider) UpdateProduct(ctx context.Context, productID string, spec models.ProductSpec) error {
	if _, err := s.client.Products.Update(productID, productParams(ctx, spec)); err != nil {
		return fmt.Errorf("%w: update product %s: %v", ErrProviderAPI, productID, err)
	}
	return nil
}

func (s *StripeProvider) GetPrice(ctx context.Context, priceID string) (int64, string, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	p, err := s.client.Prices.Get(priceID, params)
	if err != nil {
		return 0, "", fmt.Errorf("%w: get price %s: %v", ErrProviderAPI, priceID, err)
	}
	return p.UnitAmount, strings.ToLower(string(p.Currency)), nil
}

func (s *StripeProvider) CreatePrice(ctx context.Context, productID string, unitAmount int64, currency string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(currency),
	}
	params.Context = ctx
	p, err := s.client.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create price for %s: %v", ErrProviderAPI, productID, err)
	}
	return p.ID, nil
}

func (s *StripeProvider) SetDefaultPrice(ctx context.Context, productID, priceID string) error {
	params := &stripe.ProductParams{DefaultPrice: stripe.String(priceID)}
	params.Context = ctx
	if _, err := s.client.Products.Update(productID, params); err != nil {
		return fmt.Errorf("%w: set default price of %s: %v", ErrProviderAPI, productID, err)
	}
	return nil
}

func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, cp CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(cp.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(cp.SuccessURL),
		CancelURL:  stripe.String(cp.CancelURL),
	}
	params.Context = ctx
	if cp.EventID != "" {
		params.AddMetadata("eventId", cp.EventID)
	}

	sess, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create checkout session: %v", ErrProviderAPI, err)
	}
	if sess.URL == "" {
		return "", ErrMissingCheckoutURL
	}
	s.log.Info("STRIPE", fmt.Sprintf("Created checkout session %s for price %s", sess.ID, cp.PriceID))
	return sess.URL, nil
}
