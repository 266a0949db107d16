package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
)

// UpsertVehicleByCode inserts or refreshes a vehicle keyed by its
// business code and returns the mirror row id.
func (s *Store) UpsertVehicleByCode(ctx context.Context, v *models.Vehicle) (int64, error) {
	query := `INSERT INTO vehicles (code, description, category, company, unit, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(code) DO UPDATE SET
                  description = excluded.description,
                  category = excluded.category,
                  company = excluded.company,
                  unit = excluded.unit,
                  updated_at = excluded.updated_at`
	now := time.Now()
	if _, err := s.db.ExecContext(ctx, query, v.Code, v.Description, v.Category, v.Company, v.Unit, now, now); err != nil {
		return 0, fmt.Errorf("failed to upsert vehicle %s: %w", v.Code, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM vehicles WHERE code = ?`, v.Code).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve vehicle id for %s: %w", v.Code, err)
	}
	v.ID = id
	return id, nil
}

// VehicleByCode returns the mirror row for a business code.
func (s *Store) VehicleByCode(ctx context.Context, code string) (*models.Vehicle, error) {
	query := `SELECT id, code, description, category, company, unit, created_at, updated_at
              FROM vehicles WHERE code = ?`

	var v models.Vehicle
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&v.ID, &v.Code, &v.Description, &v.Category, &v.Company, &v.Unit, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// AllVehicles returns the full vehicle mirror ordered by code.
func (s *Store) AllVehicles(ctx context.Context) ([]models.Vehicle, error) {
	query := `SELECT id, code, description, category, company, unit, created_at, updated_at
              FROM vehicles ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.Code, &v.Description, &v.Category, &v.Company, &v.Unit, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
