package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/nichelabs/discovery-engine/internal/dedup"
	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// RecordStore persists canonical business records with indexed dedup-key
// columns for the exact-match lookups and a lat/lng pair for proximity
// queries.
type RecordStore struct {
	pool querier
}

// NewRecordStoreWithPool constructs a store from an existing pool.
func NewRecordStoreWithPool(pool querier) (*RecordStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &RecordStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const recordColumns = `id, document`

// FindByNamePostal looks up a record by normalized name key and ZIP5.
func (s *RecordStore) FindByNamePostal(ctx context.Context, nameKey, postalCode string) (discovery.BusinessRecord, bool, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM business_records
		WHERE name_key = $1 AND postal_key = $2
		LIMIT 1;
	`
	return s.findOne(ctx, query, nameKey, postalCode)
}

// FindByAddress looks up a record by normalized address, city, and region.
func (s *RecordStore) FindByAddress(ctx context.Context, addressKey, cityKey, regionKey string) (discovery.BusinessRecord, bool, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM business_records
		WHERE address_key = $1 AND city_key = $2 AND region_key = $3
		LIMIT 1;
	`
	return s.findOne(ctx, query, addressKey, cityKey, regionKey)
}

// FindByPhone looks up a record by normalized phone digits.
func (s *RecordStore) FindByPhone(ctx context.Context, phoneKey string) (discovery.BusinessRecord, bool, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM business_records
		WHERE phone_key = $1
		LIMIT 1;
	`
	return s.findOne(ctx, query, phoneKey)
}

func (s *RecordStore) findOne(ctx context.Context, query string, args ...any) (discovery.BusinessRecord, bool, error) {
	var (
		id  string
		doc []byte
	)
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return discovery.BusinessRecord{}, false, nil
	}
	if err != nil {
		return discovery.BusinessRecord{}, false, fmt.Errorf("query record: %w", err)
	}
	rec, err := unmarshalRecord(id, doc)
	if err != nil {
		return discovery.BusinessRecord{}, false, err
	}
	return rec, true, nil
}

// FindNear returns records whose coordinates fall within radiusKm of the
// point. The SQL applies a cheap bounding box; the exact great-circle check
// happens here.
func (s *RecordStore) FindNear(ctx context.Context, lat, lng, radiusKm float64) ([]discovery.BusinessRecord, error) {
	latDelta := radiusKm / 110.574
	lngDelta := radiusKm / (111.320 * math.Cos(lat*math.Pi/180))
	if lngDelta < 0 {
		lngDelta = -lngDelta
	}
	query := `
		SELECT ` + recordColumns + `
		FROM business_records
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4;
	`
	rows, err := s.pool.Query(ctx, query, lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta)
	if err != nil {
		return nil, fmt.Errorf("query nearby records: %w", err)
	}
	defer rows.Close()

	var out []discovery.BusinessRecord
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec, err := unmarshalRecord(id, doc)
		if err != nil {
			return nil, err
		}
		if discovery.HaversineKm(lat, lng, rec.Lat, rec.Lng) <= radiusKm {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return out, nil
}

// Insert writes a new record along with its computed dedup keys.
func (s *RecordStore) Insert(ctx context.Context, rec discovery.BusinessRecord) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	query := `
		INSERT INTO business_records
			(id, name_key, postal_key, address_key, city_key, region_key, phone_key, lat, lng, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	args := append([]any{rec.ID}, keyArgs(rec)...)
	args = append(args, doc, rec.CreatedAt, rec.UpdatedAt)
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Update rewrites an existing record and its dedup keys.
func (s *RecordStore) Update(ctx context.Context, rec discovery.BusinessRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	query := `
		UPDATE business_records
		SET name_key = $1, postal_key = $2, address_key = $3, city_key = $4,
			region_key = $5, phone_key = $6, lat = $7, lng = $8,
			document = $9, updated_at = $10
		WHERE id = $11;
	`
	args := append(keyArgs(rec), doc, rec.UpdatedAt, rec.ID)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return discovery.ErrRecordNotFound
	}
	return nil
}

func keyArgs(rec discovery.BusinessRecord) []any {
	return []any{
		dedup.NameKey(rec.Name),
		dedup.PostalKey(rec.PostalCode),
		dedup.AddressKey(rec.Address),
		dedup.CityKey(rec.City),
		dedup.CityKey(rec.Region),
		dedup.PhoneKey(rec.Phone),
		rec.Lat,
		rec.Lng,
	}
}

func unmarshalRecord(id string, doc []byte) (discovery.BusinessRecord, error) {
	var rec discovery.BusinessRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return discovery.BusinessRecord{}, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	rec.ID = id
	return rec, nil
}
