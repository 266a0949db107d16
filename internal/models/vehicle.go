package models

import "time"

// Vehicle mirrors one row of the vehicles reference sheet. Code is the
// natural business key used to match sheet rows against the mirror.
type Vehicle struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Company     string    `json:"company"`
	Unit        string    `json:"unit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HorimeterReading mirrors one reading row. The composite natural key is
// (vehicle, reading date); the spreadsheet remains the authority for it.
type HorimeterReading struct {
	ID                int64     `json:"id"`
	VehicleID         int64     `json:"vehicle_id"`
	ReadingDate       time.Time `json:"reading_date"`
	HorimeterCurrent  float64   `json:"horimeter_current"`
	HorimeterPrevious float64   `json:"horimeter_previous"`
	OdometerCurrent   float64   `json:"odometer_current"`
	OdometerPrevious  float64   `json:"odometer_previous"`
	Operator          string    `json:"operator"`
	Observation       string    `json:"observation"`
	Source            string    `json:"source"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Reading provenance values.
const (
	SourceSheet = "sheet"
	SourceField = "field"
)
