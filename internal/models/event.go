package models

import (
	"errors"
	"fmt"
	"strings"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusPast      EventStatus = "past"
)

var ErrInvalidEvent = errors.New("invalid event")

// AgendaItem is one slot of an event's running order
type AgendaItem struct {
	Time        string `json:"time"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Event struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	Location    string       `json:"location"`
	Capacity    int          `json:"capacity"`
	Bookings    int          `json:"bookings"`
	Price       float64      `json:"price"`
	Image       string       `json:"image"`
	Status      EventStatus  `json:"status"`
	Tags        []string     `json:"tags"`
	Agenda      []AgendaItem `json:"agenda"`
	Assets      []Asset      `json:"assets"`

	// Set by the manifest server after the event has been synced to Stripe
	StripeProductID string `json:"stripeProductId,omitempty"`
	StripePriceID   string `json:"stripePriceId,omitempty"`
}

// Clone returns a deep copy. Asset payloads are shared since they are never mutated in place.
func (e Event) Clone() Event {
	c := e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.Agenda != nil {
		c.Agenda = append([]AgendaItem(nil), e.Agenda...)
	}
	if e.Assets != nil {
		c.Assets = append([]Asset(nil), e.Assets...)
	}
	return c
}

// HasPaymentIDs reports whether the event was already synced with the payment provider
func (e Event) HasPaymentIDs() bool {
	return e.StripeProductID != "" && e.StripePriceID != ""
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEvent)
	}
	if e.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidEvent)
	}
	if e.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidEvent)
	}
	switch e.Status {
	case EventStatusDraft, EventStatusPublished, EventStatusPast, "":
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, e.Status)
	}
	return nil
}

// CloneEvents deep-copies a slice of events
func CloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

// UpsertEvent replaces the event with the same id or prepends it when it is new
func UpsertEvent(events []Event, ev Event) []Event {
	for i := range events {
		if events[i].ID == ev.ID {
			out := append([]Event(nil), events...)
			out[i] = ev
			return out
		}
	}
	return append([]Event{ev}, events...)
}

// DuplicateEventID returns the first id that appears more than once, or "".
func DuplicateEventID(events []Event) string {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if _, ok := seen[e.ID]; ok {
			return e.ID
		}
		seen[e.ID] = struct{}{}
	}
	return ""
}
