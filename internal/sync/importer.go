package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/events"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/metrics"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/sheets"

	"github.com/rs/zerolog"
)

// TableSource reads rows for a named sheet subject.
type TableSource interface {
	Rows(ctx context.Context, sheetName string) ([]sheets.Row, error)
}

// SnapshotCache stores recently fetched reference-sheet snapshots so an
// import run does not refetch them. Implementations may be remote
// (Redis) or in-memory; nil is allowed and means no caching.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// ProgressFunc is invoked after each processed row.
type ProgressFunc func(subject string, processed, total int)

// ImporterConfig carries the sheet names and the orphan-deletion guard.
type ImporterConfig struct {
	VehiclesSheet string
	ReadingsSheet string

	// MinSourceRows: quando o snapshot da origem tem menos linhas que
	// isso, a remoção de órfãos é pulada — protege o espelho contra um
	// fetch parcial ou vazio.
	MinSourceRows int
}

// Importer pulls the authoritative sheet rows and converges the mirror:
// upsert what the source has, delete what it no longer has.
type Importer struct {
	store  *database.Store
	source TableSource
	cache  SnapshotCache
	bus    *events.EventBus
	cfg    ImporterConfig
	logger zerolog.Logger
}

func NewImporter(store *database.Store, source TableSource, cache SnapshotCache, bus *events.EventBus, cfg ImporterConfig, logger *zerolog.Logger) *Importer {
	if cfg.MinSourceRows <= 0 {
		cfg.MinSourceRows = models.DefaultMinSourceRows
	}

	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "importer").Logger()
	}

	return &Importer{
		store:  store,
		source: source,
		cache:  cache,
		bus:    bus,
		cfg:    cfg,
		logger: l,
	}
}

// Run executes one full reconciliation pass: vehicles first (reference
// subject), then readings (transactional subject), then orphan removal.
// Row-level failures increment the error count and never abort the pass.
func (imp *Importer) Run(ctx context.Context, onProgress ProgressFunc) (models.ImportStats, error) {
	var stats models.ImportStats

	lookup, err := imp.importVehicles(ctx, &stats, onProgress)
	if err != nil {
		return stats, err
	}

	if err := imp.importReadings(ctx, lookup, &stats, onProgress); err != nil {
		return stats, err
	}

	imp.logger.Info().
		Int("imported", stats.Imported).
		Int("updated", stats.Updated).
		Int("deleted", stats.Deleted).
		Int("errors", stats.Errors).
		Msg("Import finished")

	metrics.AddSyncRows("imported", stats.Imported)
	metrics.AddSyncRows("updated", stats.Updated)
	metrics.AddSyncRows("deleted", stats.Deleted)
	metrics.AddSyncRows("errors", stats.Errors)

	if imp.bus != nil {
		_ = imp.bus.PublishJSON(events.EventSyncCompleted, stats)
	}

	return stats, nil
}

// importVehicles upserts the vehicle reference sheet into the mirror and
// returns the business-code → mirror-id lookup used by the transactional
// subjects.
func (imp *Importer) importVehicles(ctx context.Context, stats *models.ImportStats, onProgress ProgressFunc) (map[string]int64, error) {
	rows, err := imp.vehicleRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicles sheet: %w", err)
	}

	lookup := make(map[string]int64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return lookup, err
		}

		code, _ := CellValue(row, FieldVehicle)
		if code == "" {
			stats.Errors++
			continue
		}

		description, _ := CellValue(row, FieldDescription)
		category, _ := CellValue(row, FieldCategory)
		company, _ := CellValue(row, FieldCompany)
		unit, _ := CellValue(row, FieldUnit)

		vehicle := models.Vehicle{
			Code:        code,
			Description: description,
			Category:    category,
			Company:     company,
			Unit:        unit,
		}

		id, err := imp.store.UpsertVehicleByCode(ctx, &vehicle)
		if err != nil {
			imp.logger.Error().Err(err).Str("code", code).Msg("Failed to upsert vehicle")
			stats.Errors++
			continue
		}
		lookup[code] = id

		if onProgress != nil {
			onProgress("vehicles", i+1, len(rows))
		}
	}

	return lookup, nil
}

// vehicleRows consults the snapshot cache before hitting the source.
func (imp *Importer) vehicleRows(ctx context.Context) ([]sheets.Row, error) {
	cacheKey := "sheet_snapshot:" + imp.cfg.VehiclesSheet

	if imp.cache != nil {
		if raw, err := imp.cache.Get(ctx, cacheKey); err == nil && raw != nil {
			var rows []sheets.Row
			if err := json.Unmarshal(raw, &rows); err == nil {
				return rows, nil
			}
		}
	}

	rows, err := imp.source.Rows(ctx, imp.cfg.VehiclesSheet)
	if err != nil {
		return nil, err
	}

	if imp.cache != nil {
		if raw, err := json.Marshal(rows); err == nil {
			if err := imp.cache.Set(ctx, cacheKey, raw); err != nil {
				imp.logger.Warn().Err(err).Msg("Failed to cache vehicles snapshot")
			}
		}
	}

	return rows, nil
}

func (imp *Importer) importReadings(ctx context.Context, lookup map[string]int64, stats *models.ImportStats, onProgress ProgressFunc) error {
	rows, err := imp.source.Rows(ctx, imp.cfg.ReadingsSheet)
	if err != nil {
		return fmt.Errorf("fetch readings sheet: %w", err)
	}

	// Natural keys present in the source; used for orphan removal.
	sourceKeys := make(map[database.ReadingKey]bool, len(rows))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		if key, ok := imp.importReadingRow(ctx, row, lookup, stats); ok {
			sourceKeys[key] = true
		}

		if onProgress != nil {
			onProgress("readings", i+1, len(rows))
		}
	}

	imp.deleteOrphans(ctx, len(rows), sourceKeys, stats)
	return nil
}

// importReadingRow converges one source row. Returns the natural key and
// whether the row was accepted.
func (imp *Importer) importReadingRow(ctx context.Context, row sheets.Row, lookup map[string]int64, stats *models.ImportStats) (database.ReadingKey, bool) {
	code, _ := CellValue(row, FieldVehicle)
	vehicleID, ok := lookup[code]
	if !ok {
		imp.logger.Debug().Str("code", code).Msg("Reading row references unknown vehicle")
		stats.Errors++
		return database.ReadingKey{}, false
	}

	dateStr, _ := CellValue(row, FieldDate)
	date, err := ParseDate(dateStr)
	if err != nil {
		imp.logger.Debug().Str("code", code).Str("date", dateStr).Msg("Reading row has unparsable date")
		stats.Errors++
		return database.ReadingKey{}, false
	}

	horCur := imp.numericField(row, FieldHorimeterCurrent)
	horPrev := imp.numericField(row, FieldHorimeterPrevious)
	odoCur := imp.numericField(row, FieldOdometerCurrent)
	odoPrev := imp.numericField(row, FieldOdometerPrevious)

	// A row counts as empty only when every meaningful measurement is
	// zero; partial readings (only odometer, only hour-meter) are valid.
	if horCur == 0 && odoCur == 0 {
		stats.Errors++
		return database.ReadingKey{}, false
	}

	operator, _ := CellValue(row, FieldOperator)
	observation, _ := CellValue(row, FieldObservation)

	reading := models.HorimeterReading{
		VehicleID:         vehicleID,
		ReadingDate:       date,
		HorimeterCurrent:  horCur,
		HorimeterPrevious: horPrev,
		OdometerCurrent:   odoCur,
		OdometerPrevious:  odoPrev,
		Operator:          operator,
		Observation:       observation,
		Source:            models.SourceSheet,
	}

	existing, err := imp.store.ReadingByVehicleAndDate(ctx, vehicleID, date)
	switch {
	case err == nil:
		reading.ID = existing.ID
		if err := imp.store.UpdateReading(ctx, &reading); err != nil {
			imp.logger.Error().Err(err).Int64("vehicle_id", vehicleID).Msg("Failed to update reading")
			stats.Errors++
			return database.ReadingKey{}, false
		}
		stats.Updated++
	case isNotFound(err):
		if err := imp.store.CreateReading(ctx, &reading); err != nil {
			imp.logger.Error().Err(err).Int64("vehicle_id", vehicleID).Msg("Failed to insert reading")
			stats.Errors++
			return database.ReadingKey{}, false
		}
		stats.Imported++
	default:
		imp.logger.Error().Err(err).Int64("vehicle_id", vehicleID).Msg("Failed to look up reading")
		stats.Errors++
		return database.ReadingKey{}, false
	}

	return database.ReadingKey{VehicleID: vehicleID, Date: date.Format("2006-01-02")}, true
}

func (imp *Importer) numericField(row sheets.Row, field string) float64 {
	raw, _ := CellValue(row, field)
	v, err := ParseDecimal(raw)
	if err != nil {
		imp.logger.Debug().Str("field", field).Str("value", raw).Msg("Unparsable numeric cell, treated as zero")
		return 0
	}
	return v
}

// deleteOrphans removes mirror readings whose natural key is absent from
// the source snapshot. The spreadsheet is the authority — but an empty
// or truncated snapshot must not wipe the mirror, hence the guard.
func (imp *Importer) deleteOrphans(ctx context.Context, sourceRowCount int, sourceKeys map[database.ReadingKey]bool, stats *models.ImportStats) {
	if sourceRowCount < imp.cfg.MinSourceRows {
		imp.logger.Warn().
			Int("source_rows", sourceRowCount).
			Int("min_source_rows", imp.cfg.MinSourceRows).
			Msg("Source snapshot below safety threshold, skipping orphan deletion")
		return
	}

	keys, ids, err := imp.store.AllReadingKeys(ctx)
	if err != nil {
		imp.logger.Error().Err(err).Msg("Failed to scan mirror readings for orphan check")
		stats.Errors++
		return
	}

	var orphanIDs []int64
	for i, key := range keys {
		if !sourceKeys[key] {
			orphanIDs = append(orphanIDs, ids[i])
		}
	}

	deleted, err := imp.store.DeleteReadingsByID(ctx, orphanIDs)
	if err != nil {
		imp.logger.Error().Err(err).Msg("Failed to delete orphan readings")
		stats.Errors++
		return
	}
	stats.Deleted += deleted
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
