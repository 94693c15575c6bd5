package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type unencodableGenerator struct{}

func (unencodableGenerator) Generate(context.Context, string, models.GenerateRequest) (interface{}, error) {
	return map[string]interface{}{"draft": make(chan int)}, nil
}

func TestEncodeFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	h := &Handler{Generator: unencodableGenerator{}, Logger: logger.NewWithWriter(&logs)}
	r := chi.NewRouter()
	r.Post("/api/ai/{kind}", h.Generate)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/tags", strings.NewReader(`{"title":"Gala"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "Failed to write 200 response")
}
