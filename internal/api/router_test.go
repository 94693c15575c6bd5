package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ms-events/internal/ai"
	"ms-events/internal/blob"
	"ms-events/internal/client"
	"ms-events/internal/lock"
	"ms-events/internal/logger"
	"ms-events/internal/manifest"
	"ms-events/internal/models"
	"ms-events/internal/payments"
	"ms-events/internal/publish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	testToken  = "admin-secret"
	testSecret = "whsec_test"
)

// fakeProvider is an in-memory product catalog
type fakeProvider struct {
	mu       sync.Mutex
	products map[string]string // product id -> default price id
	prices   map[string]int64
	created  int
	updated  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{products: map[string]string{}, prices: map[string]int64{}}
}

func (f *fakeProvider) CreateProduct(_ context.Context, spec models.ProductSpec) (models.ProductRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	prod := "prod_X"
	if f.created > 1 {
		prod = fmt.Sprintf("prod_X%d", f.created)
	}
	price := "price_Y"
	if len(f.prices) > 0 {
		price = fmt.Sprintf("price_Y%d", len(f.prices)+1)
	}
	f.products[prod] = price
	f.prices[price] = spec.UnitAmount
	return models.ProductRef{ProductID: prod, PriceID: price}, nil
}

func (f *fakeProvider) UpdateProduct(_ context.Context, productID string, _ models.ProductSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[productID]; !ok {
		return fmt.Errorf("no such product %s", productID)
	}
	f.updated++
	return nil
}

func (f *fakeProvider) GetPrice(_ context.Context, priceID string) (int64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	amount, ok := f.prices[priceID]
	if !ok {
		return 0, "", fmt.Errorf("no such price %s", priceID)
	}
	return amount, "usd", nil
}

func (f *fakeProvider) CreatePrice(_ context.Context, productID string, unitAmount int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("price_Y%d", len(f.prices)+1)
	f.prices[id] = unitAmount
	return id, nil
}

func (f *fakeProvider) SetDefaultPrice(_ context.Context, productID, priceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[productID] = priceID
	return nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, cp payments.CheckoutParams) (string, error) {
	return "https://checkout.example.com/" + cp.PriceID, nil
}

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, nil
}

type testServer struct {
	*httptest.Server
	dir      string
	provider *fakeProvider
	locker   *lock.LocalLocker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNop()
	provider := newFakeProvider()
	writer := manifest.NewWriter(dir)
	locker := lock.NewLocalLocker(time.Minute)

	h := &Handler{
		Publisher: &manifest.Publisher{
			Writer:          writer,
			Locker:          locker,
			Catalog:         payments.NewCatalog(provider, "", log),
			DefaultCurrency: "usd",
			Logger:          log,
		},
		Uploads:        manifest.NewUploads(dir),
		Manifest:       writer,
		Payments:       payments.NewCheckout(provider, "https://tickets.example.com", log),
		Webhooks:       payments.NewWebhooks(testSecret, writer, nil, nil, log),
		Generator:      ai.NewGenerator(stubCompleter{reply: `["jazz"]`}, log),
		MaxUploadBytes: 1 << 20,
		Logger:         log,
	}
	ts := httptest.NewServer(NewRouter(h, testToken, dir, log))
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, dir: dir, provider: provider, locker: locker}
}

func (ts *testServer) client() *client.ServerClient {
	return client.NewServerClient(ts.URL, testToken, ts.Client(), logger.NewNop())
}

func stripeSettings() models.Settings {
	return models.Settings{ID: models.SettingsID, BrandColor: "#000", PaymentConfig: models.StripeConfig{Currency: "usd"}}
}

func TestSecondPublishUpdatesExistingProduct(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := ts.client()
	settings := stripeSettings()

	first, err := c.Publish(ctx, models.PublishRequest{Events: []models.Event{{ID: "e1", Title: "Gala", Price: 50}}, Settings: &settings})
	require.NoError(t, err)
	require.Len(t, first.Events, 1)
	assert.Equal(t, "prod_X", first.Events[0].StripeProductID)
	assert.Equal(t, "price_Y", first.Events[0].StripePriceID)

	second, err := c.Publish(ctx, models.PublishRequest{Events: first.Events, Settings: &settings})
	require.NoError(t, err)
	assert.Equal(t, "prod_X", second.Events[0].StripeProductID)
	assert.Equal(t, "price_Y", second.Events[0].StripePriceID)
	assert.Equal(t, 1, ts.provider.created)
	assert.Equal(t, 1, ts.provider.updated)

	m, err := c.FetchManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "prod_X", m.Events[0].StripeProductID)
}

func TestPublishPipelineUploadsBlobCover(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	blobs := blob.NewRegistry()
	cover := blobs.Create([]byte("png-bytes"), "image/png")

	p := publish.NewPipeline(ts.client(), blobs, logger.NewNop())
	res, err := p.Publish(ctx, []models.Event{{ID: "e1", Title: "Gala", Image: cover}}, models.DefaultSettings(), nil)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.True(t, strings.HasPrefix(res.Events[0].Image, manifest.UploadsPrefix), res.Events[0].Image)
	assert.Empty(t, res.Unresolved)

	resp, err := ts.Client().Get(ts.URL + res.Events[0].Image)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "png-bytes", string(body))
}

func TestPublishRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	c := client.NewServerClient(ts.URL, "wrong", ts.Client(), logger.NewNop())
	_, err := c.Publish(context.Background(), models.PublishRequest{})
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestPublishDuplicateIDs(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.client().Publish(context.Background(), models.PublishRequest{Events: []models.Event{{ID: "a"}, {ID: "a"}}})

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Message, "duplicate event id")
}

func TestPublishConflictWhileLocked(t *testing.T) {
	ts := newTestServer(t)
	release, err := ts.locker.Acquire(context.Background(), lock.PublishKey)
	require.NoError(t, err)
	defer release()

	_, err = ts.client().Publish(context.Background(), models.PublishRequest{})
	assert.ErrorIs(t, err, client.ErrConflict)
}

func TestUploadRequiresFileField(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadStoresFile(t *testing.T) {
	ts := newTestServer(t)
	url, err := ts.client().Upload(context.Background(), "My Poster.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/My-Poster-[0-9a-f]{8}\.png$`, url)

	data, err := os.ReadFile(filepath.Join(ts.dir, filepath.FromSlash(url)))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func postJSON(t *testing.T, ts *testServer, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCheckout(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/checkout", models.CheckoutRequest{PriceID: "price_Y", EventID: "e1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.CheckoutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "https://checkout.example.com/price_Y", out.URL)

	missing := postJSON(t, ts, "/api/checkout", models.CheckoutRequest{EventID: "e1"})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestWebhookEndpoint(t *testing.T) {
	ts := newTestServer(t)
	settings := models.DefaultSettings()
	_, err := ts.client().Publish(context.Background(), models.PublishRequest{Events: []models.Event{{ID: "e1", Title: "Gala"}}, Settings: &settings})
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","object":"checkout.session","metadata":{"eventId":"e1"}}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: testSecret})

	send := func(sig string) int {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/webhook", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", sig)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, send(signed.Header))
	assert.Equal(t, http.StatusBadRequest, send("t=1,v1=bad"))
}

func TestGenerateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	var out models.TagsResponse
	require.NoError(t, ts.client().Generate(context.Background(), "tags", models.GenerateRequest{Title: "Jazz"}, &out))
	assert.Equal(t, []string{"jazz"}, out.Tags)

	err := ts.client().Generate(context.Background(), "poem", models.GenerateRequest{Title: "Jazz"}, &out)
	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestStaticFilesAndHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/uploads/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = ts.client().FetchManifest(context.Background())
	assert.ErrorIs(t, err, client.ErrNoManifest)

	health, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	metricsResp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, _ := io.ReadAll(metricsResp.Body)
	assert.Contains(t, string(body), "http_request_duration_seconds")
}
