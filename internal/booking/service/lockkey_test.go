package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFormatLockKeyUsesUTCWallClockDigits(t *testing.T) {
	companyID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	professionalID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	santiago, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 14:30 in Santiago during winter (UTC-4) is 18:30 UTC.
	startAt := time.Date(2026, 6, 15, 14, 30, 0, 0, santiago)

	got := FormatLockKey(companyID, professionalID, startAt)
	want := fmt.Sprintf("%s_%s_202606151830", companyID, professionalID)
	if got != want {
		t.Errorf("FormatLockKey() = %q, want %q", got, want)
	}
}

func TestFormatLockKeyTruncatesToMinute(t *testing.T) {
	companyID := uuid.New()
	professionalID := uuid.New()

	withSeconds := time.Date(2026, 3, 1, 9, 15, 42, 999, time.UTC)
	exact := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)

	if FormatLockKey(companyID, professionalID, withSeconds) != FormatLockKey(companyID, professionalID, exact) {
		t.Error("keys for the same minute should match regardless of seconds")
	}
}

func TestFormatLockKeyCollidesForSameSlot(t *testing.T) {
	companyID := uuid.New()
	professionalID := uuid.New()
	startAt := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

	// The same instant expressed in different zones must produce one key.
	santiago, _ := time.LoadLocation("America/Santiago")
	same := startAt.In(santiago)

	if FormatLockKey(companyID, professionalID, startAt) != FormatLockKey(companyID, professionalID, same) {
		t.Error("same instant in different zones should collide on one key")
	}

	other := startAt.Add(time.Minute)
	if FormatLockKey(companyID, professionalID, startAt) == FormatLockKey(companyID, professionalID, other) {
		t.Error("different minutes should produce different keys")
	}
}
