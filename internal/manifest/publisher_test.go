package manifest

import (
	"context"
	"testing"
	"time"

	"ms-events/internal/lock"
	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Sync(ctx context.Context, events []models.Event, currency string) []models.Event {
	return m.Called(ctx, events, currency).Get(0).([]models.Event)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishManifest(ctx context.Context, mf models.Manifest) error {
	return m.Called(ctx, mf).Error(0)
}

func testPublisher(t *testing.T, catalog CatalogSyncer) *Publisher {
	t.Helper()
	return &Publisher{
		Writer:          NewWriter(t.TempDir()),
		Locker:          lock.NewLocalLocker(time.Minute),
		Catalog:         catalog,
		DefaultCurrency: "usd",
		Logger:          logger.NewNop(),
		Now:             func() time.Time { return time.Unix(0, 0) },
	}
}

func stripeSettings() *models.Settings {
	return &models.Settings{BrandColor: "#000", PaymentConfig: models.StripeConfig{Currency: "eur"}}
}

func TestPublishSyncsCatalogAndWritesManifest(t *testing.T) {
	catalog := new(MockCatalog)
	in := []models.Event{{ID: "e1", Price: 50}}
	synced := []models.Event{{ID: "e1", Price: 50, StripeProductID: "prod_X", StripePriceID: "price_Y"}}
	catalog.On("Sync", mock.Anything, in, "eur").Return(synced).Once()

	events := new(MockEvents)
	events.On("PublishManifest", mock.Anything, mock.Anything).Return(nil).Once()

	p := testPublisher(t, catalog)
	p.Events = events
	m, err := p.Publish(context.Background(), models.PublishRequest{Events: in, Settings: stripeSettings()})
	require.NoError(t, err)
	assert.Equal(t, synced, m.Events)
	assert.Equal(t, models.SettingsID, m.Settings.ID)

	stored, err := p.Writer.Read()
	require.NoError(t, err)
	assert.Equal(t, "prod_X", stored.Events[0].StripeProductID)
	catalog.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestPublishSkipsCatalogForOtherProviders(t *testing.T) {
	catalog := new(MockCatalog)
	p := testPublisher(t, catalog)

	settings := &models.Settings{PaymentConfig: models.PayPalConfig{AccountEmail: "a@b.c"}}
	_, err := p.Publish(context.Background(), models.PublishRequest{Events: []models.Event{{ID: "e1", Price: 5}}, Settings: settings})
	require.NoError(t, err)
	catalog.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishRejectsDuplicateIDs(t *testing.T) {
	p := testPublisher(t, nil)
	_, err := p.Publish(context.Background(), models.PublishRequest{Events: []models.Event{{ID: "a"}, {ID: "a"}}})
	assert.ErrorIs(t, err, ErrDuplicateEventID)

	_, err = p.Writer.Read()
	assert.ErrorIs(t, err, ErrNotPublished)
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	p := testPublisher(t, nil)
	_, err := p.Publish(context.Background(), models.PublishRequest{Events: []models.Event{{ID: "a", Price: -1}}})
	assert.ErrorIs(t, err, models.ErrInvalidEvent)
}

func TestPublishRejectsAssetWithoutURL(t *testing.T) {
	p := testPublisher(t, nil)
	req := models.PublishRequest{Events: []models.Event{{
		ID:     "e1",
		Assets: []models.Asset{{ID: "a1", Kind: models.AssetImage, Name: "poster.png"}},
	}}}

	_, err := p.Publish(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrInvalidEvent)

	_, err = p.Writer.Read()
	assert.ErrorIs(t, err, ErrNotPublished)
}

func TestPublishWhileLocked(t *testing.T) {
	p := testPublisher(t, nil)
	release, err := p.Locker.Acquire(context.Background(), lock.PublishKey)
	require.NoError(t, err)
	defer release()

	_, err = p.Publish(context.Background(), models.PublishRequest{})
	assert.ErrorIs(t, err, ErrPublishLocked)
}

func TestPublishWithoutSettingsKeepsPublishedSettings(t *testing.T) {
	p := testPublisher(t, nil)
	ctx := context.Background()

	_, err := p.Publish(ctx, models.PublishRequest{Settings: &models.Settings{BrandColor: "#abcdef", PaymentConfig: models.VenmoConfig{Handle: "@club"}}})
	require.NoError(t, err)

	m, err := p.Publish(ctx, models.PublishRequest{Events: []models.Event{{ID: "e1"}}})
	require.NoError(t, err)
	assert.Equal(t, "#abcdef", m.Settings.BrandColor)
	assert.Equal(t, models.ProviderVenmo, m.Settings.PaymentProvider())
}

func TestPublishReplayIsIdempotent(t *testing.T) {
	p := testPublisher(t, nil)
	ctx := context.Background()
	req := models.PublishRequest{Events: []models.Event{{ID: "e1", Title: "Gala"}}, Settings: stripeSettings()}

	first, err := p.Publish(ctx, req)
	require.NoError(t, err)
	second, err := p.Publish(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
