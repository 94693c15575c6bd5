package models

import "time"

// CheckoutRequest is the body of POST /api/checkout
type CheckoutRequest struct {
	PriceID string `json:"priceId"`
	EventID string `json:"eventId"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

// Booking is the confirmation derived from a completed checkout session
type Booking struct {
	Reference     string    `json:"reference"`
	EventID       string    `json:"eventId"`
	EventTitle    string    `json:"eventTitle"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerName  string    `json:"customerName,omitempty"`
	AmountTotal   int64     `json:"amountTotal"`
	Currency      string    `json:"currency"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
}

// ManifestPublishedEvent is emitted after the manifest has been replaced
type ManifestPublishedEvent struct {
	Type        string    `json:"type"`
	LastUpdated string    `json:"lastUpdated"`
	EventIDs    []string  `json:"eventIds"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingConfirmedEvent is emitted after a payment confirmation was processed
type BookingConfirmedEvent struct {
	Type      string    `json:"type"`
	Booking   Booking   `json:"booking"`
	Timestamp time.Time `json:"timestamp"`
}
