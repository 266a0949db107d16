package models

import "time"

// FuelRecord is one fuel supply entry recorded in the field.
type FuelRecord struct {
	ID          int64     `json:"id"`
	VehicleID   int64     `json:"vehicle_id"`
	SupplyDate  time.Time `json:"supply_date"`
	Liters      float64   `json:"liters"`
	FuelType    string    `json:"fuel_type"`
	UnitPrice   float64   `json:"unit_price"`
	Horimeter   float64   `json:"horimeter"`
	Odometer    float64   `json:"odometer"`
	Operator    string    `json:"operator"`
	Observation string    `json:"observation"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service order statuses.
const (
	OrderStatusOpen       = "open"
	OrderStatusInProgress = "in_progress"
	OrderStatusDone       = "done"
	OrderStatusCancelled  = "cancelled"
)

// ServiceOrder is a maintenance order for a vehicle.
type ServiceOrder struct {
	ID           int64      `json:"id"`
	VehicleID    int64      `json:"vehicle_id"`
	OpenedAt     time.Time  `json:"opened_at"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Status       string     `json:"status"`
	Description  string     `json:"description"`
	Responsible  string     `json:"responsible"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ImportStats aggregates the outcome of one reconciliation pass.
type ImportStats struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Errors   int `json:"errors"`
}
