package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

func sampleRecord() discovery.BusinessRecord {
	now := time.Unix(1700000000, 0).UTC()
	return discovery.BusinessRecord{
		ID:         "rec-0001",
		Name:       "Bright Smile Dental LLC",
		Address:    "123 Main Street",
		City:       "Atlanta",
		Region:     "GA",
		PostalCode: "30303-1234",
		Phone:      "(404) 555-0134",
		Lat:        33.749,
		Lng:        -84.388,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInsertWritesDedupKeys(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	doc, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO business_records").
		WithArgs(
			rec.ID,
			"bright smile dental",
			"30303",
			"123 main st",
			"atlanta",
			"ga",
			"4045550134",
			rec.Lat,
			rec.Lng,
			doc,
			rec.CreatedAt,
			rec.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Insert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByNamePostal(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	doc, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM business_records").
		WithArgs("bright smile dental", "30303").
		WillReturnRows(pgxmock.NewRows([]string{"id", "document"}).AddRow(rec.ID, doc))

	got, found, err := s.FindByNamePostal(context.Background(), "bright smile dental", "30303")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, rec.Name, got.Name)

	mock.ExpectQuery("SELECT (.+) FROM business_records").
		WithArgs("no such place", "00000").
		WillReturnRows(pgxmock.NewRows([]string{"id", "document"}))

	_, found, err = s.FindByNamePostal(context.Background(), "no such place", "00000")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNearFiltersByGreatCircle(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	near := sampleRecord()
	// A record inside the bounding box but outside the circle, at the corner.
	corner := sampleRecord()
	corner.ID = "rec-0002"
	corner.Lat = near.Lat + 0.0043
	corner.Lng = near.Lng + 0.0052
	nearDoc, err := json.Marshal(near)
	require.NoError(t, err)
	cornerDoc, err := json.Marshal(corner)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM business_records").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "document"}).
			AddRow(near.ID, nearDoc).
			AddRow(corner.ID, cornerDoc))

	got, err := s.FindNear(context.Background(), near.Lat, near.Lng, 0.5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, near.ID, got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	mock.ExpectExec("UPDATE business_records").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), rec.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = s.Update(context.Background(), rec)
	require.ErrorIs(t, err, discovery.ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
