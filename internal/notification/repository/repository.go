// Package repository persists the notification delivery log used for
// at-most-once dispatch.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenda_portal_backend/platform/apperr"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

type Record struct {
	EventID       uuid.UUID
	AppointmentID uuid.UUID
	CompanyID     uuid.UUID
	Status        Status
	Recipients    int
	Error         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Claim records that this process is handling the event. It returns false
// when another delivery already claimed the same event id, which is what
// keeps dispatch at most once.
func (r *Repository) Claim(ctx context.Context, eventID, appointmentID, companyID uuid.UUID) (bool, error) {
	const op = "notification.repository.Claim"
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notification_log (event_id, appointment_id, company_id, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, appointmentID, companyID, StatusProcessing)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "claim notification event", err).WithOp(op)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkResult finalizes the log entry for a claimed event.
func (r *Repository) MarkResult(ctx context.Context, eventID uuid.UUID, status Status, recipients int, deliveryErr error) error {
	const op = "notification.repository.MarkResult"
	var errText *string
	if deliveryErr != nil {
		msg := deliveryErr.Error()
		errText = &msg
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_log
		SET status = $2, recipients = $3, error = $4, updated_at = now()
		WHERE event_id = $1`,
		eventID, status, recipients, errText)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update notification log", err).WithOp(op)
	}
	return nil
}
