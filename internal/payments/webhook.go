package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
	"ms-events/internal/utils"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookError represents an error that occurred during webhook processing
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int    // HTTP status code
	PublicError   string // Safe to expose to clients
	InternalError string // Detailed error for logs only
	OriginalErr   error  // Underlying error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error {
	return e.OriginalErr
}

type ManifestReader interface {
	Read() (*models.Manifest, error)
}

type Mailer interface {
	SendBookingConfirmation(ctx context.Context, booking models.Booking) error
}

type BookingPublisher interface {
	PublishBooking(ctx context.Context, booking models.Booking) error
}

// Webhooks turns signed provider notifications into booking confirmations
type Webhooks struct {
	secret    string
	manifests ManifestReader
	mailer    Mailer
	events    BookingPublisher
	log       *logger.Logger
	now       func() time.Time
}

func NewWebhooks(secret string, manifests ManifestReader, mailer Mailer, events BookingPublisher, log *logger.Logger) *Webhooks {
	return &Webhooks{
		secret:    secret,
		manifests: manifests,
		mailer:    mailer,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Handle verifies and processes one delivery. Every failure is a *WebhookError.
func (h *Webhooks) Handle(ctx context.Context, payload []byte, signature string) error {
	if h.secret == "" {
		h.log.Error("WEBHOOK", "Stripe webhook secret is not configured")
		return &WebhookError{
			Category:      "configuration",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.secret, opts)
	if err != nil {
		errorMessage := "Invalid webhook signature"
		if errors.Is(err, webhook.ErrInvalidHeader) || errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrNotSigned) {
			errorMessage = "Webhook signature verification failed"
		}
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		h.log.LogSecurity("WEBHOOK_SIGNATURE", fmt.Sprintf("%s: %v", errorMessage, err))
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   errorMessage,
			InternalError: fmt.Sprintf("%s: %v", errorMessage, err),
			OriginalErr:   err,
		}
	}

	h.log.Info("WEBHOOK", fmt.Sprintf("Processing Stripe webhook event: %s", event.Type))

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		err = h.checkoutCompleted(ctx, event)
	default:
		h.log.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "ignored").Inc()
		return nil
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.WebhookEvents.WithLabelValues(string(event.Type), result).Inc()
	return err
}

func (h *Webhooks) checkoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.log.Error("WEBHOOK", fmt.Sprintf("Failed to unmarshal checkout session: %v", err))
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid event data",
			InternalError: fmt.Sprintf("Failed to unmarshal checkout session: %v", err),
			OriginalErr:   err,
		}
	}

	eventID := sess.Metadata["eventId"]
	if eventID == "" {
		h.log.Error("WEBHOOK", fmt.Sprintf("Checkout session %s has no eventId in metadata", sess.ID))
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid checkout session data",
			InternalError: fmt.Sprintf("Checkout session %s has no eventId in metadata", sess.ID),
		}
	}

	manifest, err := h.manifests.Read()
	if err != nil {
		h.log.Error("WEBHOOK", fmt.Sprintf("Failed to read manifest for session %s: %v", sess.ID, err))
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to process payment",
			InternalError: fmt.Sprintf("Failed to read manifest: %v", err),
			OriginalErr:   err,
		}
	}
	ev, ok := manifest.FindEvent(eventID)
	if !ok {
		// acknowledged so the provider stops redelivering
		h.log.Warn("WEBHOOK", fmt.Sprintf("Checkout session %s refers to unknown event %s", sess.ID, eventID))
		return nil
	}

	booking := models.Booking{
		Reference:   utils.GenerateBookingReference(h.now()),
		EventID:     ev.ID,
		EventTitle:  ev.Title,
		AmountTotal: sess.AmountTotal,
		Currency:    strings.ToLower(string(sess.Currency)),
		ConfirmedAt: utils.UnixTimeToTime(sess.Created),
	}
	if sess.CustomerDetails != nil {
		booking.CustomerEmail = sess.CustomerDetails.Email
		booking.CustomerName = sess.CustomerDetails.Name
	}
	if booking.CustomerEmail == "" {
		booking.CustomerEmail = sess.CustomerEmail
	}

	if booking.CustomerEmail == "" {
		h.log.Warn("WEBHOOK", fmt.Sprintf("Checkout session %s has no payer email, skipping confirmation", sess.ID))
	} else if h.mailer != nil {
		if err := h.mailer.SendBookingConfirmation(ctx, booking); err != nil {
			h.log.Error("WEBHOOK", fmt.Sprintf("Failed to send confirmation for session %s: %v", sess.ID, err))
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to send confirmation",
				InternalError: fmt.Sprintf("Failed to send confirmation for session %s: %v", sess.ID, err),
				OriginalErr:   err,
			}
		}
	}

	if h.events != nil {
		if err := h.events.PublishBooking(ctx, booking); err != nil {
			// the payer already has the confirmation, a lost event must not trigger a redelivery
			h.log.Error("KAFKA", fmt.Sprintf("Failed to publish booking %s: %v", booking.Reference, err))
		}
	}

	h.log.Info("WEBHOOK", fmt.Sprintf("Confirmed booking %s for event %s", booking.Reference, ev.ID))
	return nil
}
