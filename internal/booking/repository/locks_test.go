package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"agenda_portal_backend/platform/apperr"
)

func TestSlotConflictDetectsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "slot_locks_pkey"}
	if !slotConflict(dup) {
		t.Error("a 23505 unique violation is a slot conflict")
	}
	if !slotConflict(fmt.Errorf("exec insert: %w", dup)) {
		t.Error("a wrapped unique violation is still a slot conflict")
	}
}

func TestSlotConflictIgnoresOtherErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"other pg error", &pgconn.PgError{Code: "23503"}},
		{"plain error", errors.New("connection reset")},
		{"nil", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if slotConflict(tc.err) {
				t.Errorf("slotConflict(%v) = true, want false", tc.err)
			}
		})
	}
}

func TestErrSlotTakenIsConflict(t *testing.T) {
	// The pre-read branch and the commit-time 23505 branch both hand callers
	// this exact value, so racing and sequential bookers see one error.
	if !apperr.Is(ErrSlotTaken, apperr.KindConflict) {
		t.Error("ErrSlotTaken must carry the conflict kind")
	}
	if apperr.Is(ErrSlotTaken, apperr.KindInternal) {
		t.Error("ErrSlotTaken must not read as an internal failure")
	}
}
