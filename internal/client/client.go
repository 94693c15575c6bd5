package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

var (
	ErrUnauthorized = errors.New("manifest server rejected the admin token")
	ErrConflict     = errors.New("manifest server is busy with another publish")
	ErrNoManifest   = errors.New("no published manifest")
)

// StatusError is a non-2xx answer from the manifest server
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("manifest server returned status: %d", e.StatusCode)
	}
	return fmt.Sprintf("manifest server returned status: %d: %s", e.StatusCode, e.Message)
}

// ServerClient talks to the manifest server on behalf of the owner console
type ServerClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logger.Logger
}

func NewServerClient(baseURL, token string, client *http.Client, log *logger.Logger) *ServerClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		logger:  log,
	}
}

// FetchManifest reads the published manifest. Any transport failure, non-2xx
// answer or unparseable body is reported as ErrNoManifest.
func (c *ServerClient) FetchManifest(ctx context.Context) (*models.Manifest, error) {
	url := c.baseURL + models.ManifestPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("CLIENT", fmt.Sprintf("Manifest fetch failed: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrNoManifest, err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("CLIENT", fmt.Sprintf("Manifest fetch returned status: %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrNoManifest, resp.StatusCode)
	}

	var manifest models.Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		c.logger.Warn("CLIENT", fmt.Sprintf("Discarding malformed manifest: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrNoManifest, err)
	}
	return &manifest, nil
}

// Upload sends one file as multipart field "file" and returns the server-relative URL
func (c *ServerClient) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write upload part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload body: %w", err)
	}

	var out models.UploadResponse
	if err := c.do(ctx, "/api/upload", mw.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("manifest server returned an empty upload url")
	}
	c.logger.Debug("CLIENT", fmt.Sprintf("Uploaded %s (%d bytes) to %s", filename, len(data), out.URL))
	return out.URL, nil
}

// Publish submits the manifest payload
func (c *ServerClient) Publish(ctx context.Context, payload models.PublishRequest) (*models.PublishResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode publish request: %w", err)
	}

	var out models.PublishResponse
	if err := c.do(ctx, "/api/publish", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("publish rejected: %s", out.Error)
	}
	return &out, nil
}

// Generate calls one of the AI helper endpoints (description, agenda, tags)
func (c *ServerClient) Generate(ctx context.Context, kind string, payload models.GenerateRequest, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode generate request: %w", err)
	}
	return c.do(ctx, "/api/ai/"+kind, "application/json", bytes.NewReader(body), out)
}

func (c *ServerClient) do(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("CLIENT", fmt.Sprintf("POST %s failed: %v", path, err))
		return fmt.Errorf("manifest server error: %w", err)
	}
	defer c.closeBody(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("CLIENT", fmt.Sprintf("POST %s returned status: %d", path, resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, Message: extractMessage(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *ServerClient) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Error("CLIENT", fmt.Sprintf("Failed to close response body: %v", err))
	}
}

// extractMessage pulls a readable message out of an error body
func extractMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return strings.TrimSpace(string(body))
}
