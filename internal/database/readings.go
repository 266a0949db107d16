package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
)

const readingColumns = `id, vehicle_id, reading_date, horimeter_current, horimeter_previous,
               odometer_current, odometer_previous, operator, observation, source, created_at, updated_at`

// ReadingByVehicleAndDate looks a reading up by its composite natural key.
func (s *Store) ReadingByVehicleAndDate(ctx context.Context, vehicleID int64, date time.Time) (*models.HorimeterReading, error) {
	query := `SELECT ` + readingColumns + `
              FROM horimeter_readings
              WHERE vehicle_id = ? AND date(reading_date) = date(?)`

	var r models.HorimeterReading
	err := s.db.QueryRowContext(ctx, query, vehicleID, date.Format("2006-01-02")).Scan(
		&r.ID, &r.VehicleID, &r.ReadingDate, &r.HorimeterCurrent, &r.HorimeterPrevious,
		&r.OdometerCurrent, &r.OdometerPrevious, &r.Operator, &r.Observation, &r.Source,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reading for vehicle %d on %s", ErrNotFound, vehicleID, date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReading inserts a new reading row.
func (s *Store) CreateReading(ctx context.Context, r *models.HorimeterReading) error {
	query := `INSERT INTO horimeter_readings
              (vehicle_id, reading_date, horimeter_current, horimeter_previous, odometer_current, odometer_previous, operator, observation, source, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		r.VehicleID, r.ReadingDate, r.HorimeterCurrent, r.HorimeterPrevious,
		r.OdometerCurrent, r.OdometerPrevious, r.Operator, r.Observation, r.Source, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// UpdateReading replaces the measured fields of an existing reading.
func (s *Store) UpdateReading(ctx context.Context, r *models.HorimeterReading) error {
	query := `UPDATE horimeter_readings SET
                  reading_date = ?,
                  horimeter_current = ?, horimeter_previous = ?,
                  odometer_current = ?, odometer_previous = ?,
                  operator = ?, observation = ?, source = ?, updated_at = ?
              WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query,
		r.ReadingDate, r.HorimeterCurrent, r.HorimeterPrevious,
		r.OdometerCurrent, r.OdometerPrevious, r.Operator, r.Observation, r.Source,
		time.Now(), r.ID,
	); err != nil {
		return fmt.Errorf("failed to update reading %d: %w", r.ID, err)
	}
	return nil
}

// DeleteReading removes a reading row by id.
func (s *Store) DeleteReading(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM horimeter_readings WHERE id = ?`, id)
	return err
}

// ReadingKey identifies a reading by its natural key.
type ReadingKey struct {
	VehicleID int64
	Date      string // formatted 2006-01-02
}

// AllReadingKeys scans every mirror reading and returns its natural keys.
func (s *Store) AllReadingKeys(ctx context.Context) ([]ReadingKey, []int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vehicle_id, date(reading_date) FROM horimeter_readings`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var keys []ReadingKey
	var ids []int64
	for rows.Next() {
		var id int64
		var key ReadingKey
		if err := rows.Scan(&id, &key.VehicleID, &key.Date); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		ids = append(ids, id)
	}
	return keys, ids, rows.Err()
}

// DeleteReadingsByID removes the given mirror rows, returning how many
// were actually deleted.
func (s *Store) DeleteReadingsByID(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM horimeter_readings WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan readings: %w", err)
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

// ReadingsByDateRange returns readings within [start, end] joined with
// the vehicle code, ordered by date then vehicle.
func (s *Store) ReadingsByDateRange(ctx context.Context, start, end time.Time) ([]models.HorimeterReading, map[int64]string, error) {
	query := `SELECT r.id, r.vehicle_id, r.reading_date, r.horimeter_current, r.horimeter_previous,
                     r.odometer_current, r.odometer_previous, r.operator, r.observation, r.source,
                     r.created_at, r.updated_at, v.code
              FROM horimeter_readings r
              JOIN vehicles v ON v.id = r.vehicle_id
              WHERE date(r.reading_date) BETWEEN ? AND ?
              ORDER BY r.reading_date, v.code`

	rows, err := s.db.QueryContext(ctx, query, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var readings []models.HorimeterReading
	codes := make(map[int64]string)
	for rows.Next() {
		var r models.HorimeterReading
		var code string
		if err := rows.Scan(
			&r.ID, &r.VehicleID, &r.ReadingDate, &r.HorimeterCurrent, &r.HorimeterPrevious,
			&r.OdometerCurrent, &r.OdometerPrevious, &r.Operator, &r.Observation, &r.Source,
			&r.CreatedAt, &r.UpdatedAt, &code,
		); err != nil {
			return nil, nil, err
		}
		readings = append(readings, r)
		codes[r.VehicleID] = code
	}
	return readings, codes, rows.Err()
}
