package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenda_portal_backend/internal/booking/repository"
	"agenda_portal_backend/internal/events"
	"agenda_portal_backend/platform/apperr"
	"agenda_portal_backend/platform/config"
	"agenda_portal_backend/platform/logger"
)

type Worker struct {
	server         *asynq.Server
	mux            *asynq.ServeMux
	repo           *repository.Repository
	bus            events.Bus
	sweepBatchSize int
	log            *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bookingCfg config.BookingConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	batchSize := bookingCfg.GetLockSweepBatchSize()
	if batchSize < 1 {
		batchSize = 100
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:         server,
		mux:            mux,
		repo:           repository.New(pool),
		bus:            bus,
		sweepBatchSize: batchSize,
		log:            log,
	}

	mux.HandleFunc(TaskAppointmentReminder, w.handleAppointmentReminder)
	mux.HandleFunc(TaskLockSweep, w.handleLockSweep)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLockSweep(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseLockSweepPayload(task); err != nil {
		return err
	}

	removed, err := w.repo.DeleteExpiredLocks(ctx, time.Now().UTC(), w.sweepBatchSize)
	if err != nil {
		return err
	}
	w.log.Info("expired lock sweep finished", "removed", removed)
	return nil
}

func (w *Worker) handleAppointmentReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAppointmentReminderPayload(task)
	if err != nil {
		return err
	}

	apptID, err := uuid.Parse(payload.AppointmentID)
	if err != nil {
		return err
	}

	scheduledFor, err := time.Parse(time.RFC3339, payload.StartAt)
	if err != nil {
		return err
	}

	appt, err := w.repo.GetByID(ctx, apptID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	// Stale reminders from before a reschedule or cancellation fizzle out.
	if appt.Status != "CONFIRMED" || !appt.StartAt.Equal(scheduledFor) {
		return nil
	}

	if w.bus == nil {
		return nil
	}

	clientEmail := ""
	if appt.ClientEmail != nil {
		clientEmail = *appt.ClientEmail
	}

	w.bus.Publish(ctx, events.AppointmentReminderDue{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		CompanyID:     appt.CompanyID,
		ClientName:    appt.ClientName,
		ClientEmail:   clientEmail,
		StartAt:       appt.StartAt,
	})
	return nil
}
