package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenda_portal_backend/platform/apperr"
)

// Appointment is the persisted booking record. The slot lock, not this row,
// is what enforces mutual exclusion on a slot.
type Appointment struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	ClientName     string
	ClientPhone    string
	ClientEmail    *string
	Notes          *string
	StartAt        time.Time
	EndAt          time.Time
	Status         string
	Source         string
	LockKey        string
	CancelledAt    *time.Time
	RescheduledAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ListFilter struct {
	From           *time.Time
	To             *time.Time
	ProfessionalID *uuid.UUID
	Status         *string
	Limit          int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn inside a single database transaction. The booking coordinator
// relies on this to make the lock read, lock write and appointment write
// atomic.
func (r *Repository) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, fn)
}

const appointmentColumns = `id, company_id, professional_id, service_id, client_name, client_phone,
		client_email, notes, start_at, end_at, status, source, lock_key,
		cancelled_at, rescheduled_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.ProfessionalID, &a.ServiceID, &a.ClientName, &a.ClientPhone,
		&a.ClientEmail, &a.Notes, &a.StartAt, &a.EndAt, &a.Status, &a.Source, &a.LockKey,
		&a.CancelledAt, &a.RescheduledAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, a *Appointment) error {
	const op = "booking.repository.CreateTx"
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments (
			id, company_id, professional_id, service_id, client_name, client_phone,
			client_email, notes, start_at, end_at, status, source, lock_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.CompanyID, a.ProfessionalID, a.ServiceID, a.ClientName, a.ClientPhone,
		a.ClientEmail, a.Notes, a.StartAt, a.EndAt, a.Status, a.Source, a.LockKey,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert appointment", err).WithOp(op)
	}
	return nil
}

// GetByIDTx fetches an appointment without tenant filtering. Callers must
// compare the company themselves so a cross-tenant id resolves to a
// permission error instead of a not-found.
func (r *Repository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Appointment, error) {
	const op = "booking.repository.GetByIDTx"
	row := tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment not found").WithOp(op)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "read appointment", err).WithOp(op)
	}
	return a, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	const op = "booking.repository.GetByID"
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment not found").WithOp(op)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "read appointment", err).WithOp(op)
	}
	return a, nil
}

func (r *Repository) CancelTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	const op = "booking.repository.CancelTx"
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED', cancelled_at = $2, updated_at = now()
		WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "cancel appointment", err).WithOp(op)
	}
	return nil
}

func (r *Repository) RescheduleTx(ctx context.Context, tx pgx.Tx, a *Appointment) error {
	const op = "booking.repository.RescheduleTx"
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET professional_id = $2, start_at = $3, end_at = $4, status = $5,
			lock_key = $6, rescheduled_at = $7, cancelled_at = NULL, updated_at = now()
		WHERE id = $1`,
		a.ID, a.ProfessionalID, a.StartAt, a.EndAt, a.Status, a.LockKey, a.RescheduledAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "reschedule appointment", err).WithOp(op)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	const op = "booking.repository.List"

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE company_id = $1`
	args := []any{companyID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND start_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND start_at < $%d", len(args))
	}
	if filter.ProfessionalID != nil {
		args = append(args, *filter.ProfessionalID)
		query += fmt.Sprintf(" AND professional_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY start_at ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list appointments", err).WithOp(op)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan appointment", err).WithOp(op)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate appointments", err).WithOp(op)
	}
	return out, nil
}
