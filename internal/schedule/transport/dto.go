package transport

import (
	"time"

	"github.com/google/uuid"
)

// Window is one bookable interval inside a weekday, HH:MM, half open.
type Window struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// PutTemplateRequest replaces a professional's weekly document. Keys are
// weekday indexes, "0" Sunday through "6" Saturday. An empty list closes
// the day; a missing key also closes it.
type PutTemplateRequest struct {
	Rules map[string][]Window `json:"rules" binding:"required"`
}

type TemplateResponse struct {
	ProfessionalID uuid.UUID           `json:"professionalId"`
	Rules          map[string][]Window `json:"rules"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

type CreateExceptionRequest struct {
	ProfessionalID uuid.UUID `json:"professionalId" binding:"required"`
	Type           string    `json:"type" binding:"required,oneof=BLOCK OVERRIDE"`
	StartAt        time.Time `json:"startAt" binding:"required"`
	EndAt          time.Time `json:"endAt" binding:"required"`
}

type ExceptionResponse struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	Type           string    `json:"type"`
	StartAt        time.Time `json:"startAt"`
	EndAt          time.Time `json:"endAt"`
	CreatedAt      time.Time `json:"createdAt"`
}
