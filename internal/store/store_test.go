package store_test

import (
	"context"
	"testing"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.DB {
	t.Helper()
	bunDB, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	db, err := store.New(context.Background(), bunDB, logger.NewNop())
	require.NoError(t, err)
	return db
}

func TestEventsPutGetDelete(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	gala := models.Event{ID: "e1", Title: "Gala", Price: 50, Status: models.EventStatusDraft, Tags: []string{"music"}}
	require.NoError(t, db.PutEvent(ctx, gala))
	require.NoError(t, db.PutEvent(ctx, models.Event{ID: "e2", Title: "Meetup"}))

	gala.Title = "Winter Gala"
	gala.StripeProductID = "prod_X"
	require.NoError(t, db.PutEvent(ctx, gala))

	events, err := db.GetAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Winter Gala", events[0].Title)
	assert.Equal(t, "prod_X", events[0].StripeProductID)
	assert.Equal(t, []string{"music"}, events[0].Tags)

	require.NoError(t, db.DeleteEvent(ctx, "e2"))
	events, err = db.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.NoError(t, db.ClearEvents(ctx))
	events, err = db.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPutEventRejectsInvalid(t *testing.T) {
	db := setupTestStore(t)
	err := db.PutEvent(context.Background(), models.Event{ID: "", Title: "No id"})
	assert.ErrorIs(t, err, models.ErrInvalidEvent)
}

func TestAssetsKeepPayload(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.PutAsset(ctx, models.Asset{
		ID: "a1", Kind: models.AssetImage, Name: "cover.png", ContentType: "image/png", Data: []byte{1, 2, 3},
	}))
	require.NoError(t, db.PutAsset(ctx, models.Asset{
		ID: "a2", Kind: models.AssetDocument, Name: "terms.pdf", URL: "/uploads/terms-1a2b3c4d.pdf",
	}))

	assets, err := db.GetAllAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, []byte{1, 2, 3}, assets[0].Data)
	assert.Equal(t, "image/png", assets[0].ContentType)
	assert.Empty(t, assets[1].Data)
	assert.Equal(t, "/uploads/terms-1a2b3c4d.pdf", assets[1].URL)
}

func TestPutAssetRequiresPayloadOrURL(t *testing.T) {
	db := setupTestStore(t)
	err := db.PutAsset(context.Background(), models.Asset{ID: "a1", Kind: models.AssetImage, Name: "empty"})
	assert.ErrorIs(t, err, models.ErrInvalidAsset)
}

func TestSettingsRoundTrip(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	s, err := db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	want := models.Settings{
		BrandColor:    "#ff0066",
		PaymentConfig: models.StripeConfig{PublishableKey: "pk_test_1", Currency: "usd"},
	}
	require.NoError(t, db.PutSettings(ctx, want))

	s, err = db.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, models.SettingsID, s.ID)
	assert.Equal(t, "#ff0066", s.BrandColor)
	assert.Equal(t, models.StripeConfig{PublishableKey: "pk_test_1", Currency: "usd"}, s.PaymentConfig)

	require.NoError(t, db.ClearSettings(ctx))
	s, err = db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestReplaceIsAtomic(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, db.PutEvent(ctx, models.Event{ID: "old"}))

	err := db.Replace(ctx, []models.Event{{ID: "new"}, {ID: ""}}, nil, nil)
	require.Error(t, err)

	events, err := db.GetAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "old", events[0].ID)

	settings := models.DefaultSettings()
	require.NoError(t, db.Replace(ctx, []models.Event{{ID: "new"}}, nil, &settings))
	events, err = db.GetAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].ID)

	s, err := db.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, models.ProviderNone, s.PaymentProvider())
}
