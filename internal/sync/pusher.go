package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/metrics"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/sheets"

	"github.com/rs/zerolog"
)

// TableSink writes rows to a named sheet subject.
type TableSink interface {
	Append(ctx context.Context, sheetName string, values []interface{}) error
	UpdateRow(ctx context.Context, sheetName string, rowIdx int, values []interface{}) error
	DeleteRow(ctx context.Context, sheetName string, rowIdx int) error
	FindRow(ctx context.Context, sheetName string, match func(sheets.Row) bool) (int, sheets.Row, error)
}

// PusherConfig carries the sheet names of the subjects pushed back out.
type PusherConfig struct {
	ReadingsSheet string
	FuelSheet     string
	OrdersSheet   string
}

// Pusher propagates single local mutations back to the spreadsheet. The
// mirror write is the authoritative one; these pushes are best-effort
// and their failures are logged by the caller, never shown to the user.
type Pusher struct {
	sink   TableSink
	cfg    PusherConfig
	logger zerolog.Logger
}

func NewPusher(sink TableSink, cfg PusherConfig, logger *zerolog.Logger) *Pusher {
	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "pusher").Logger()
	}
	return &Pusher{sink: sink, cfg: cfg, logger: l}
}

const sheetDateLayout = "02/01/2006"

func readingRowValues(vehicleCode string, r *models.HorimeterReading) []interface{} {
	return []interface{}{
		vehicleCode,
		r.ReadingDate.Format(sheetDateLayout),
		r.HorimeterCurrent,
		r.HorimeterPrevious,
		r.OdometerCurrent,
		r.OdometerPrevious,
		r.Operator,
		r.Observation,
	}
}

// matchReadingRow matches a sheet row by the (vehicle code, date)
// composite natural key.
func matchReadingRow(vehicleCode string, date time.Time) func(sheets.Row) bool {
	want := date.Format("2006-01-02")
	return func(row sheets.Row) bool {
		code, _ := CellValue(row, FieldVehicle)
		if code != vehicleCode {
			return false
		}
		raw, _ := CellValue(row, FieldDate)
		parsed, err := ParseDate(raw)
		if err != nil {
			return false
		}
		return parsed.Format("2006-01-02") == want
	}
}

// PushReadingCreate appends a new reading row.
func (p *Pusher) PushReadingCreate(ctx context.Context, vehicleCode string, r *models.HorimeterReading) error {
	err := p.sink.Append(ctx, p.cfg.ReadingsSheet, readingRowValues(vehicleCode, r))
	p.observe("create", err)
	return err
}

// PushReadingUpdate locates the previous row by (vehicle code, previous
// date) — the date itself may have been edited — and overwrites it.
// A missing row falls open to append: losing the change silently would
// be worse than duplicating the intent.
func (p *Pusher) PushReadingUpdate(ctx context.Context, vehicleCode string, previousDate time.Time, r *models.HorimeterReading) error {
	rowIdx, _, err := p.sink.FindRow(ctx, p.cfg.ReadingsSheet, matchReadingRow(vehicleCode, previousDate))
	if errors.Is(err, sheets.ErrRowNotFound) {
		p.logger.Warn().
			Str("vehicle", vehicleCode).
			Str("previous_date", previousDate.Format("2006-01-02")).
			Msg("Row to update not found in sheet, appending as new")
		return p.PushReadingCreate(ctx, vehicleCode, r)
	}
	if err != nil {
		p.observe("update", err)
		return fmt.Errorf("locate reading row: %w", err)
	}

	err = p.sink.UpdateRow(ctx, p.cfg.ReadingsSheet, rowIdx, readingRowValues(vehicleCode, r))
	p.observe("update", err)
	return err
}

// PushReadingDelete removes the row for (vehicle code, date). An absent
// row means the sheet is already in the desired state.
func (p *Pusher) PushReadingDelete(ctx context.Context, vehicleCode string, date time.Time) error {
	rowIdx, _, err := p.sink.FindRow(ctx, p.cfg.ReadingsSheet, matchReadingRow(vehicleCode, date))
	if errors.Is(err, sheets.ErrRowNotFound) {
		return nil
	}
	if err != nil {
		p.observe("delete", err)
		return fmt.Errorf("locate reading row: %w", err)
	}

	err = p.sink.DeleteRow(ctx, p.cfg.ReadingsSheet, rowIdx)
	p.observe("delete", err)
	return err
}

// PushFuelCreate appends a fuel supply row.
func (p *Pusher) PushFuelCreate(ctx context.Context, vehicleCode string, r *models.FuelRecord) error {
	values := []interface{}{
		vehicleCode,
		r.SupplyDate.Format(sheetDateLayout),
		r.Liters,
		r.FuelType,
		r.UnitPrice,
		r.Horimeter,
		r.Odometer,
		r.Operator,
		r.Observation,
	}
	err := p.sink.Append(ctx, p.cfg.FuelSheet, values)
	p.observe("create", err)
	return err
}

// PushOrderCreate appends a maintenance order row.
func (p *Pusher) PushOrderCreate(ctx context.Context, vehicleCode string, o *models.ServiceOrder) error {
	scheduled := ""
	if o.ScheduledFor != nil {
		scheduled = o.ScheduledFor.Format(sheetDateLayout)
	}
	values := []interface{}{
		vehicleCode,
		o.OpenedAt.Format(sheetDateLayout),
		scheduled,
		o.Status,
		o.Description,
		o.Responsible,
	}
	err := p.sink.Append(ctx, p.cfg.OrdersSheet, values)
	p.observe("create", err)
	return err
}

func (p *Pusher) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.IncPush(op, result)
}
