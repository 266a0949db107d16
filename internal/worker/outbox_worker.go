package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RecordApplier writes one decoded pending record to the relational
// mirror and pushes it to the remote sheet. The mirror write is the
// authoritative one; a push failure must not fail the apply.
type RecordApplier interface {
	Apply(ctx context.Context, rec *models.PendingRecord) error
}

// OutboxWorker drains the pending-records queue: each queued field
// operation is applied through the RecordApplier, removed on success,
// and rescheduled with exponential backoff on failure. Records that
// exhaust the retry budget land on a Redis dead-letter list and are no
// longer attempted; they stay in the table for operator inspection.
type OutboxWorker struct {
	store         *database.Store
	applier       RecordApplier
	redis         *redis.Client
	retryPolicy   RetryPolicy
	deadLetterKey string
	pollInterval  time.Duration
	logger        zerolog.Logger

	mu           sync.Mutex
	deadlettered map[string]bool
}

// NewOutboxWorker builds a worker with sane defaults.
func NewOutboxWorker(store *database.Store, applier RecordApplier, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *OutboxWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "outbox-worker").Logger()
	}

	return &OutboxWorker{
		store:         store,
		applier:       applier,
		redis:         redisClient,
		retryPolicy:   retry,
		deadLetterKey: "abastech:deadletter",
		pollInterval:  2 * time.Second,
		logger:        l,
		deadlettered:  make(map[string]bool),
	}
}

// Start launches the drain loop; stops when ctx is done.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("outbox worker started")
	defer w.logger.Info().Msg("outbox worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce processes every currently eligible pending record.
func (w *OutboxWorker) DrainOnce(ctx context.Context) {
	records, err := w.store.AllPending(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("fetch pending records")
		return
	}

	now := time.Now()
	for i := range records {
		if ctx.Err() != nil {
			return
		}
		rec := &records[i]
		if !w.eligible(rec, now) {
			continue
		}
		w.processRecord(ctx, rec)
	}
}

// eligible applies the backoff schedule: a record waits
// NextDelay(attempts) after its last failed attempt, and a record past
// the retry budget is dead-lettered instead of retried.
func (w *OutboxWorker) eligible(rec *models.PendingRecord, now time.Time) bool {
	if rec.SyncAttempts >= w.retryPolicy.MaxRetries {
		w.pushDeadLetter(context.Background(), rec)
		return false
	}
	if rec.SyncAttempts == 0 || rec.LastSyncAttempt == nil {
		return true
	}
	return !now.Before(rec.LastSyncAttempt.Add(w.retryPolicy.NextDelay(rec.SyncAttempts)))
}

func (w *OutboxWorker) processRecord(ctx context.Context, rec *models.PendingRecord) {
	if err := w.applier.Apply(ctx, rec); err != nil {
		w.logger.Warn().
			Err(err).
			Str("record_id", rec.ID).
			Str("record_type", rec.Type).
			Int("attempts", rec.SyncAttempts+1).
			Msg("apply pending record failed")
		if err := w.store.MarkSyncFailed(ctx, rec.ID, time.Now()); err != nil {
			w.logger.Error().Err(err).Str("record_id", rec.ID).Msg("mark sync failed")
		}
		return
	}

	if err := w.store.DeletePending(ctx, rec.ID); err != nil {
		w.logger.Error().Err(err).Str("record_id", rec.ID).Msg("remove synced record")
		return
	}
	w.logger.Info().Str("record_id", rec.ID).Str("record_type", rec.Type).Msg("record synced")
}

// pushDeadLetter parks an exhausted record on the Redis dead-letter
// list, once per process lifetime.
func (w *OutboxWorker) pushDeadLetter(ctx context.Context, rec *models.PendingRecord) {
	w.mu.Lock()
	seen := w.deadlettered[rec.ID]
	w.deadlettered[rec.ID] = true
	w.mu.Unlock()
	if seen {
		return
	}

	w.logger.Error().
		Str("record_id", rec.ID).
		Int("attempts", rec.SyncAttempts).
		Msg("record exhausted retry budget")

	if w.redis == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		w.logger.Error().Err(err).Str("record_id", rec.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Str("record_id", rec.ID).Msg("deadletter push")
	}
}

// MirrorApplier is the production RecordApplier: it decodes the payload
// by record type, writes the relational mirror (the success condition)
// and then pushes the row to the sheet best-effort.
type MirrorApplier struct {
	store  *database.Store
	pusher SheetPusher
	logger zerolog.Logger
}

// SheetPusher is the slice of the reconciler's push surface the worker
// needs.
type SheetPusher interface {
	PushReadingCreate(ctx context.Context, vehicleCode string, r *models.HorimeterReading) error
	PushFuelCreate(ctx context.Context, vehicleCode string, r *models.FuelRecord) error
	PushOrderCreate(ctx context.Context, vehicleCode string, o *models.ServiceOrder) error
}

func NewMirrorApplier(store *database.Store, pusher SheetPusher, logger *zerolog.Logger) *MirrorApplier {
	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "mirror-applier").Logger()
	}
	return &MirrorApplier{store: store, pusher: pusher, logger: l}
}

func (a *MirrorApplier) Apply(ctx context.Context, rec *models.PendingRecord) error {
	code := rec.Data.GetString("vehicle")
	if code == "" {
		return errors.New("payload missing vehicle code")
	}

	vehicle, err := a.store.VehicleByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("resolve vehicle %q: %w", code, err)
	}

	switch rec.Type {
	case models.RecordTypeHorimeter:
		return a.applyReading(ctx, vehicle, rec)
	case models.RecordTypeFuel:
		return a.applyFuel(ctx, vehicle, rec)
	case models.RecordTypeService:
		return a.applyOrder(ctx, vehicle, rec)
	default:
		return fmt.Errorf("%w: %q", models.ErrInvalidType, rec.Type)
	}
}

func (a *MirrorApplier) applyReading(ctx context.Context, vehicle *models.Vehicle, rec *models.PendingRecord) error {
	date := rec.Data.GetTime("date")
	if date.IsZero() {
		date = rec.CreatedAt
	}

	reading := models.HorimeterReading{
		VehicleID:         vehicle.ID,
		ReadingDate:       date,
		HorimeterCurrent:  rec.Data.GetFloat("horimeter_current"),
		HorimeterPrevious: rec.Data.GetFloat("horimeter_previous"),
		OdometerCurrent:   rec.Data.GetFloat("odometer_current"),
		OdometerPrevious:  rec.Data.GetFloat("odometer_previous"),
		Operator:          rec.Data.GetString("operator"),
		Observation:       rec.Data.GetString("observation"),
		Source:            models.SourceField,
	}

	// Upsert by natural key keeps a retried apply idempotent.
	existing, err := a.store.ReadingByVehicleAndDate(ctx, vehicle.ID, date)
	switch {
	case err == nil:
		reading.ID = existing.ID
		if err := a.store.UpdateReading(ctx, &reading); err != nil {
			return err
		}
	case errors.Is(err, database.ErrNotFound):
		if err := a.store.CreateReading(ctx, &reading); err != nil {
			return err
		}
	default:
		return err
	}

	if err := a.pusher.PushReadingCreate(ctx, vehicle.Code, &reading); err != nil {
		a.logger.Warn().Err(err).Str("vehicle", vehicle.Code).Msg("sheet push failed for reading")
	}
	return nil
}

func (a *MirrorApplier) applyFuel(ctx context.Context, vehicle *models.Vehicle, rec *models.PendingRecord) error {
	date := rec.Data.GetTime("date")
	if date.IsZero() {
		date = rec.CreatedAt
	}

	fuel := models.FuelRecord{
		VehicleID:   vehicle.ID,
		SupplyDate:  date,
		Liters:      rec.Data.GetFloat("liters"),
		FuelType:    rec.Data.GetString("fuel_type"),
		UnitPrice:   rec.Data.GetFloat("unit_price"),
		Horimeter:   rec.Data.GetFloat("horimeter"),
		Odometer:    rec.Data.GetFloat("odometer"),
		Operator:    rec.Data.GetString("operator"),
		Observation: rec.Data.GetString("observation"),
	}

	if err := a.store.CreateFuelRecord(ctx, &fuel); err != nil {
		return err
	}

	if err := a.pusher.PushFuelCreate(ctx, vehicle.Code, &fuel); err != nil {
		a.logger.Warn().Err(err).Str("vehicle", vehicle.Code).Msg("sheet push failed for fuel record")
	}
	return nil
}

func (a *MirrorApplier) applyOrder(ctx context.Context, vehicle *models.Vehicle, rec *models.PendingRecord) error {
	openedAt := rec.Data.GetTime("opened_at")
	if openedAt.IsZero() {
		openedAt = rec.CreatedAt
	}

	order := models.ServiceOrder{
		VehicleID:   vehicle.ID,
		OpenedAt:    openedAt,
		Status:      models.OrderStatusOpen,
		Description: rec.Data.GetString("description"),
		Responsible: rec.Data.GetString("responsible"),
	}
	if scheduled := rec.Data.GetTime("scheduled_for"); !scheduled.IsZero() {
		order.ScheduledFor = &scheduled
	}

	if err := a.store.CreateServiceOrder(ctx, &order); err != nil {
		return err
	}

	if err := a.pusher.PushOrderCreate(ctx, vehicle.Code, &order); err != nil {
		a.logger.Warn().Err(err).Str("vehicle", vehicle.Code).Msg("sheet push failed for service order")
	}
	return nil
}
