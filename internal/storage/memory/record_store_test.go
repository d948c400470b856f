package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nichelabs/discovery-engine/internal/dedup"
	"github.com/nichelabs/discovery-engine/internal/discovery"
)

func TestRecordStoreLookupKeys(t *testing.T) {
	t.Parallel()

	store := NewRecordStore()
	ctx := context.Background()

	rec := discovery.BusinessRecord{
		ID:         "rec-1",
		Name:       "Bright Smile Dental, LLC",
		Address:    "123 Main Street",
		City:       "Atlanta",
		Region:     "GA",
		PostalCode: "30303-1234",
		Phone:      "(404) 555-0134",
		Lat:        33.749,
		Lng:        -84.388,
	}
	require.NoError(t, store.Insert(ctx, rec))
	require.Equal(t, 1, store.Len())

	got, ok, err := store.FindByNamePostal(ctx, dedup.NameKey(rec.Name), "30303")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "rec-1", got.ID)

	got, ok, err = store.FindByAddress(ctx, dedup.AddressKey("123 Main St"), "atlanta", "ga")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "rec-1", got.ID)

	got, ok, err = store.FindByPhone(ctx, dedup.PhoneKey("404-555-0134"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "rec-1", got.ID)

	_, ok, err = store.FindByPhone(ctx, dedup.PhoneKey("404-555-9999"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecordStoreFindNear(t *testing.T) {
	t.Parallel()

	store := NewRecordStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, discovery.BusinessRecord{ID: "near", Name: "Near", Lat: 33.7490, Lng: -84.3880}))
	require.NoError(t, store.Insert(ctx, discovery.BusinessRecord{ID: "far", Name: "Far", Lat: 33.8000, Lng: -84.3880}))

	got, err := store.FindNear(ctx, 33.7490, -84.3880, 1.0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "near", got[0].ID)
}

func TestRecordStoreUpdate(t *testing.T) {
	t.Parallel()

	store := NewRecordStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, discovery.BusinessRecord{ID: "rec-1", Name: "Old Name"}))
	require.NoError(t, store.Update(ctx, discovery.BusinessRecord{ID: "rec-1", Name: "New Name"}))

	got, ok, err := store.FindByNamePostal(ctx, dedup.NameKey("New Name"), "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "New Name", got.Name)

	err = store.Update(ctx, discovery.BusinessRecord{ID: "missing"})
	require.ErrorIs(t, err, discovery.ErrRecordNotFound)
}
