package database

import (
	"context"
	"fmt"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
)

// CreateFuelRecord inserts a fuel supply entry into the mirror.
func (s *Store) CreateFuelRecord(ctx context.Context, r *models.FuelRecord) error {
	query := `INSERT INTO fuel_records
              (vehicle_id, supply_date, liters, fuel_type, unit_price, horimeter, odometer, operator, observation, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		r.VehicleID, r.SupplyDate, r.Liters, r.FuelType, r.UnitPrice,
		r.Horimeter, r.Odometer, r.Operator, r.Observation, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create fuel record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// FuelRecordsByDateRange returns fuel entries within [start, end].
func (s *Store) FuelRecordsByDateRange(ctx context.Context, start, end time.Time) ([]models.FuelRecord, error) {
	query := `SELECT id, vehicle_id, supply_date, liters, fuel_type, unit_price, horimeter, odometer, operator, observation, created_at, updated_at
              FROM fuel_records
              WHERE date(supply_date) BETWEEN ? AND ?
              ORDER BY supply_date`

	rows, err := s.db.QueryContext(ctx, query, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.FuelRecord
	for rows.Next() {
		var r models.FuelRecord
		if err := rows.Scan(
			&r.ID, &r.VehicleID, &r.SupplyDate, &r.Liters, &r.FuelType, &r.UnitPrice,
			&r.Horimeter, &r.Odometer, &r.Operator, &r.Observation, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CreateServiceOrder inserts a maintenance order into the mirror.
func (s *Store) CreateServiceOrder(ctx context.Context, o *models.ServiceOrder) error {
	if o.Status == "" {
		o.Status = models.OrderStatusOpen
	}

	query := `INSERT INTO service_orders
              (vehicle_id, opened_at, scheduled_for, status, description, responsible, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		o.VehicleID, o.OpenedAt, o.ScheduledFor, o.Status, o.Description, o.Responsible, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create service order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	o.ID = id
	o.CreatedAt = now
	return nil
}

// UpdateServiceOrderStatus moves an order through its lifecycle.
func (s *Store) UpdateServiceOrderStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE service_orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	return err
}

// ServiceOrdersByStatus lists orders filtered by lifecycle state.
func (s *Store) ServiceOrdersByStatus(ctx context.Context, status string) ([]models.ServiceOrder, error) {
	query := `SELECT id, vehicle_id, opened_at, scheduled_for, status, description, responsible, created_at, updated_at
              FROM service_orders WHERE status = ? ORDER BY opened_at`

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.ServiceOrder
	for rows.Next() {
		var o models.ServiceOrder
		if err := rows.Scan(&o.ID, &o.VehicleID, &o.OpenedAt, &o.ScheduledFor, &o.Status, &o.Description, &o.Responsible, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
