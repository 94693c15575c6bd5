package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ms-events/internal/ai"
	"ms-events/internal/logger"
	"ms-events/internal/manifest"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
	"ms-events/internal/payments"
	"ms-events/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxWebhookBytes = 65536

type ManifestPublisher interface {
	Publish(ctx context.Context, req models.PublishRequest) (models.Manifest, error)
}

type CheckoutCreator interface {
	CreateSession(ctx context.Context, req models.CheckoutRequest) (string, error)
}

type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type ContentGenerator interface {
	Generate(ctx context.Context, kind string, req models.GenerateRequest) (interface{}, error)
}

type Handler struct {
	Publisher      ManifestPublisher
	Uploads        *manifest.Uploads
	Manifest       *manifest.Writer
	Payments       CheckoutCreator
	Webhooks       WebhookProcessor
	Generator      ContentGenerator
	MaxUploadBytes int64
	Logger         *logger.Logger
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req models.PublishRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.PublishRequests.WithLabelValues("invalid").Inc()
		h.Logger.Warn("API", fmt.Sprintf("Publish: invalid body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, models.PublishResponse{Error: "Invalid publish payload: " + err.Error()})
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Publish: %d events", len(req.Events)))

	m, err := h.Publisher.Publish(r.Context(), req)
	switch {
	case errors.Is(err, manifest.ErrPublishLocked):
		metrics.PublishRequests.WithLabelValues("conflict").Inc()
		h.Logger.Warn("API", "Publish: rejected, another publish holds the lock")
		h.writeJSON(w, http.StatusConflict, models.PublishResponse{Error: err.Error()})
		return
	case errors.Is(err, manifest.ErrDuplicateEventID), errors.Is(err, models.ErrInvalidEvent):
		metrics.PublishRequests.WithLabelValues("invalid").Inc()
		h.Logger.Warn("API", fmt.Sprintf("Publish: %v", err))
		h.writeJSON(w, http.StatusBadRequest, models.PublishResponse{Error: err.Error()})
		return
	case err != nil:
		metrics.PublishRequests.WithLabelValues("error").Inc()
		h.Logger.Error("API", fmt.Sprintf("Publish: failed: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, models.PublishResponse{Error: "Failed to publish manifest"})
		return
	}

	metrics.PublishRequests.WithLabelValues("success").Inc()
	h.writeJSON(w, http.StatusOK, models.PublishResponse{Success: true, Events: m.Events})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.Uploads.WithLabelValues("too_large").Inc()
			h.writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", fmt.Sprintf("limit is %d bytes", h.MaxUploadBytes))
			return
		}
		metrics.Uploads.WithLabelValues("invalid").Inc()
		h.Logger.Warn("API", fmt.Sprintf("Upload: missing file field: %v", err))
		h.writeError(w, http.StatusBadRequest, "Invalid upload", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	url, n, err := h.Uploads.Save(header.Filename, file)
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		h.Logger.Error("API", fmt.Sprintf("Upload: failed to store %s: %v", header.Filename, err))
		h.writeError(w, http.StatusInternalServerError, "Upload failed", "could not store file")
		return
	}

	metrics.Uploads.WithLabelValues("success").Inc()
	metrics.UploadBytes.Add(float64(n))
	h.Logger.Info("API", fmt.Sprintf("Upload: stored %s (%d bytes) at %s", header.Filename, n, url))
	h.writeJSON(w, http.StatusOK, models.UploadResponse{URL: url})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	url, err := h.Payments.CreateSession(r.Context(), req)
	switch {
	case errors.Is(err, payments.ErrMissingPriceID):
		h.writeError(w, http.StatusBadRequest, "Event is not purchasable", "This event has no price yet. Publish it with payments enabled first.")
		return
	case errors.Is(err, payments.ErrPaymentsDisabled):
		h.writeError(w, http.StatusServiceUnavailable, "Payments unavailable", err.Error())
		return
	case err != nil:
		h.writeError(w, http.StatusBadGateway, "Checkout failed", "could not create checkout session")
		return
	}
	h.writeJSON(w, http.StatusOK, models.CheckoutResponse{URL: url})
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to read webhook payload: %v", err))
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	if err := h.Webhooks.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		var webhookErr *payments.WebhookError
		if errors.As(err, &webhookErr) {
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}
		http.Error(w, "Webhook processing error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	out, err := h.Generator.Generate(r.Context(), kind, req)
	switch {
	case errors.Is(err, ai.ErrUnknownKind):
		h.writeError(w, http.StatusNotFound, "Unknown generator", kind)
		return
	case errors.Is(err, ai.ErrNotConfigured):
		h.writeError(w, http.StatusServiceUnavailable, "AI helper unavailable", err.Error())
		return
	case err != nil:
		h.writeError(w, http.StatusBadGateway, "Generation failed", "the AI provider did not answer")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"manifest": false}
	if m, err := h.Manifest.Read(); err == nil {
		status["manifest"] = true
		status["lastUpdated"] = m.LastUpdated
		status["events"] = len(m.Events)
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ok", status))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	if err := utils.WriteJSON(w, status, v); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Failed to write %d response: %v", status, err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, detail string) {
	if err := utils.WriteError(w, status, message, detail); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Failed to write %d response: %v", status, err))
	}
}
