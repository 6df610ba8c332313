package worker

import (
	"context"

	"marketplace-service/internal/broker"
	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource delivers broker messages to a handler until ctx is done
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// AuditStore persists the reservation audit trail
type AuditStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	RecordReservationEvent(ctx context.Context, rec *models.ReservationEventRecord) error
}

// AuditWorker consumes reservation events and appends them to the audit
// trail. Redelivered events are recorded once.
type AuditWorker struct {
	source       MessageSource
	store        AuditStore
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(source MessageSource, store AuditStore) *AuditWorker {
	w := &AuditWorker{
		source:       source,
		store:        store,
		eventHandler: broker.NewEventHandler(),
		logger:       util.ComponentLogger("audit-worker"),
	}

	w.eventHandler.OnReservationCreated(w.handleCreated)
	w.eventHandler.OnReservationStatusChanged(w.handleStatusChanged)

	return w
}

// Start consumes events until ctx is cancelled
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting audit worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping audit worker")
	return w.source.Close()
}

func (w *AuditWorker) handleCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	return w.record(ctx, &models.ReservationEventRecord{
		EventID:       event.EventID,
		ReservationID: event.ReservationID,
		EventType:     event.EventType,
		ToStatus:      string(models.ReservationStatusReserved),
		Actor:         event.UserID,
		OccurredAt:    event.Timestamp,
	})
}

func (w *AuditWorker) handleStatusChanged(ctx context.Context, event *models.ReservationStatusChangedEvent) error {
	return w.record(ctx, &models.ReservationEventRecord{
		EventID:       event.EventID,
		ReservationID: event.ReservationID,
		EventType:     event.EventType,
		FromStatus:    string(event.FromStatus),
		ToStatus:      string(event.ToStatus),
		Actor:         event.Actor,
		OccurredAt:    event.Timestamp,
	})
}

func (w *AuditWorker) record(ctx context.Context, rec *models.ReservationEventRecord) error {
	processed, err := w.store.IsEventProcessed(ctx, rec.EventID)
	if err != nil {
		util.AuditEventsProcessed.WithLabelValues("error").Inc()
		return err
	}
	if processed {
		util.AuditEventsProcessed.WithLabelValues("duplicate").Inc()
		w.logger.Debug("Event already recorded", zap.String("event_id", rec.EventID))
		return nil
	}

	if err := w.store.RecordReservationEvent(ctx, rec); err != nil {
		util.AuditEventsProcessed.WithLabelValues("error").Inc()
		w.logger.Error("Failed to record reservation event",
			zap.String("event_id", rec.EventID),
			zap.String("reservation_id", rec.ReservationID),
			zap.Error(err))
		return err
	}

	util.AuditEventsProcessed.WithLabelValues("recorded").Inc()
	w.logger.Info("Recorded reservation event",
		zap.String("event_id", rec.EventID),
		zap.String("type", rec.EventType),
		zap.String("reservation_id", rec.ReservationID))
	return nil
}
