package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"agenda_portal_backend/platform/apperr"
)

// SlotLock is the mutual exclusion record for one bookable minute. Its
// presence means the slot is taken, regardless of appointment state.
type SlotLock struct {
	LockKey        string
	CompanyID      uuid.UUID
	ProfessionalID uuid.UUID
	AppointmentID  uuid.UUID
	StartAt        time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

const uniqueViolation = "23505"

// ErrSlotTaken is returned when the lock row for a slot already exists,
// whether detected by the pre-read or by the primary key at commit time.
var ErrSlotTaken = apperr.Conflict("slot is already taken")

func (r *Repository) GetLockTx(ctx context.Context, tx pgx.Tx, key string) (*SlotLock, error) {
	const op = "booking.repository.GetLockTx"
	row := tx.QueryRow(ctx, `
		SELECT lock_key, company_id, professional_id, appointment_id, start_at, expires_at, created_at
		FROM slot_locks WHERE lock_key = $1 FOR UPDATE`, key)

	var l SlotLock
	err := row.Scan(&l.LockKey, &l.CompanyID, &l.ProfessionalID, &l.AppointmentID, &l.StartAt, &l.ExpiresAt, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "read slot lock", err).WithOp(op)
	}
	return &l, nil
}

// PutLockTx inserts the lock row. A concurrent writer that slipped past the
// pre-read loses here on the primary key and gets the same conflict error.
func (r *Repository) PutLockTx(ctx context.Context, tx pgx.Tx, l *SlotLock) error {
	const op = "booking.repository.PutLockTx"
	_, err := tx.Exec(ctx, `
		INSERT INTO slot_locks (lock_key, company_id, professional_id, appointment_id, start_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.LockKey, l.CompanyID, l.ProfessionalID, l.AppointmentID, l.StartAt, l.ExpiresAt,
	)
	if err != nil {
		if slotConflict(err) {
			return ErrSlotTaken
		}
		return apperr.Wrap(apperr.KindInternal, "write slot lock", err).WithOp(op)
	}
	return nil
}

// slotConflict reports whether err is the primary key violation raised when
// two transactions race the same lock key to commit.
func slotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// DeleteLockTx releases a lock. Deleting an absent key is a no-op.
func (r *Repository) DeleteLockTx(ctx context.Context, tx pgx.Tx, key string) error {
	const op = "booking.repository.DeleteLockTx"
	if _, err := tx.Exec(ctx, `DELETE FROM slot_locks WHERE lock_key = $1`, key); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete slot lock", err).WithOp(op)
	}
	return nil
}

// DeleteExpiredLocks removes up to limit locks whose expiry is strictly in
// the past and reports how many went away. Safe to run repeatedly.
func (r *Repository) DeleteExpiredLocks(ctx context.Context, now time.Time, limit int) (int64, error) {
	const op = "booking.repository.DeleteExpiredLocks"
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slot_locks
		WHERE lock_key IN (
			SELECT lock_key FROM slot_locks WHERE expires_at < $1 ORDER BY expires_at ASC LIMIT $2
		)`, now, limit)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "sweep expired locks", err).WithOp(op)
	}
	return tag.RowsAffected(), nil
}
