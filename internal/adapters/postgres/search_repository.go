package postgres

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type searchRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.SearchRepository = (*searchRepository)(nil)

func NewSearchRepository(db *DB, baseLogger *zerolog.Logger) ports.SearchRepository {
	return &searchRepository{
		db:  db,
		log: baseLogger.With().Str("component", "search_repo").Logger(),
	}
}

// Prepend inserts a record; List orders by insertion, newest first.
func (r *searchRepository) Prepend(ctx context.Context, search *domain.ImeiSearch) error {
	id, err := uuid.Parse(search.ID)
	if err != nil {
		return fmt.Errorf("search id %q: %w", search.ID, err)
	}

	var brand, model, typ *string
	if info := search.DeviceInfo; info != nil {
		t := string(info.Type)
		brand, model, typ = &info.Brand, &info.Model, &t
	}

	query := `
		INSERT INTO imei_searches (id, imei, search_date, result, device_brand, device_model, device_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.pool.Exec(ctx, query, id, search.IMEI, search.Date, search.Result, brand, model, typ); err != nil {
		r.log.Error().Err(err).Str("imei", search.IMEI).Msg("Failed to insert search record")
		return err
	}
	return nil
}

func (r *searchRepository) List(ctx context.Context) ([]*domain.ImeiSearch, error) {
	query := `
		SELECT id, imei, search_date, result, device_brand, device_model, device_type
		FROM imei_searches ORDER BY seq DESC
	`
	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list search history")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ImeiSearch
	for rows.Next() {
		var s domain.ImeiSearch
		var id uuid.UUID
		var brand, model, typ *string
		if err := rows.Scan(&id, &s.IMEI, &s.Date, &s.Result, &brand, &model, &typ); err != nil {
			r.log.Error().Err(err).Msg("Failed to scan search row")
			return nil, err
		}
		s.ID = id.String()
		if brand != nil {
			s.DeviceInfo = &domain.DeviceSummary{Brand: *brand}
			if model != nil {
				s.DeviceInfo.Model = *model
			}
			if typ != nil {
				s.DeviceInfo.Type = domain.DeviceType(*typ)
			}
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
