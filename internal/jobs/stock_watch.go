package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/pkg/logger"
)

// Stock watch defaults.
const (
	DefaultStockWatchInterval = time.Hour
	DefaultONegFloor          = 3
)

// StockWatchArgs is a periodic job that checks the emergency O- stock level.
type StockWatchArgs struct{}

// Kind returns the job kind identifier for the stock watch.
func (StockWatchArgs) Kind() string { return "stock_watch" }

// InsertOpts ensures at most one stock check is enqueued per period.
func (StockWatchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 15 * time.Minute,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// stockCounter is the slice of the inventory the worker needs.
type stockCounter interface {
	CountAvailable(ctx context.Context, t domain.BloodType) (int, error)
}

// StockWatchWorker warns when the O- emergency stock falls below the floor
// and raises a SHORTAGE_DETECTED domain event for downstream consumers.
type StockWatchWorker struct {
	river.WorkerDefaults[StockWatchArgs]
	units  stockCounter
	events *domain.EventDispatcher
	floor  int
}

// NewStockWatchWorker creates a stock watch worker. A non-positive floor
// falls back to the default.
func NewStockWatchWorker(units stockCounter, events *domain.EventDispatcher, floor int) *StockWatchWorker {
	if floor <= 0 {
		floor = DefaultONegFloor
	}
	return &StockWatchWorker{units: units, events: events, floor: floor}
}

// Work checks the O- stock level against the floor.
func (w *StockWatchWorker) Work(ctx context.Context, _ *river.Job[StockWatchArgs]) error {
	if w == nil || w.units == nil {
		return fmt.Errorf("stock watch worker is not initialized")
	}

	available, err := w.units.CountAvailable(ctx, domain.ONeg)
	if err != nil {
		return fmt.Errorf("count O- stock: %w", err)
	}

	if available >= w.floor {
		logger.Debug("Emergency stock level ok",
			zap.Int("available", available),
			zap.Int("floor", w.floor),
		)
		return nil
	}

	logger.Warn("Emergency O- stock below floor",
		zap.Int("available", available),
		zap.Int("floor", w.floor),
	)

	if w.events != nil {
		payload, _ := domain.ShortagePayload{
			BloodType: domain.ONeg.String(),
			Available: available,
			Floor:     w.floor,
		}.ToJSON()
		_ = w.events.Dispatch(ctx, &domain.DomainEvent{
			EventID:       uuid.Must(uuid.NewV7()).String(),
			EventType:     domain.EventShortageDetected,
			AggregateType: "blood_type",
			AggregateID:   domain.ONeg.String(),
			Payload:       payload,
			CreatedAt:     time.Now().UTC(),
		})
	}
	return nil
}
