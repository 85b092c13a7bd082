package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FormatLockKey builds the deterministic slot lock key: company, professional
// and the slot start rendered as UTC wall-clock digits down to the minute.
// Two requests for the same minute always collide on this key no matter which
// timezone their clients sent.
func FormatLockKey(companyID, professionalID uuid.UUID, startAt time.Time) string {
	return fmt.Sprintf("%s_%s_%s", companyID, professionalID, startAt.UTC().Format("200601021504"))
}
