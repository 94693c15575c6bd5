package models

// ProductSpec is what the catalog sync sends to the payment provider for one event
type ProductSpec struct {
	EventID     string
	Name        string
	Description string
	Images      []string
	UnitAmount  int64
	Currency    string
}

// ProductRef identifies a synced product and its active price
type ProductRef struct {
	ProductID string
	PriceID   string
}
