// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"agenda_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Booking Domain Events
// =============================================================================

// AppointmentRequested is published when a booking is created in REQUESTED
// status. EventID is the unique creation-event id the notification
// dispatcher dedupes on: the appointment is created exactly once, so the
// id is minted inside the booking transaction and rides along with the event.
type AppointmentRequested struct {
	BaseEvent
	EventID          uuid.UUID `json:"eventId"`
	AppointmentID    uuid.UUID `json:"appointmentId"`
	CompanyID        uuid.UUID `json:"companyId"`
	ProfessionalID   uuid.UUID `json:"professionalId"`
	ServiceID        uuid.UUID `json:"serviceId"`
	ClientName       string    `json:"clientName"`
	ClientPhone      string    `json:"clientPhone"`
	ClientEmail      string    `json:"clientEmail,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	Status           string    `json:"status"`
	StartAt          time.Time `json:"startAt"`
	EndAt            time.Time `json:"endAt"`
	CompanyName      string    `json:"companyName"`
	CompanyTimezone  string    `json:"companyTimezone"`
	ServiceName      string    `json:"serviceName"`
	ProfessionalName string    `json:"professionalName"`
}

func (e AppointmentRequested) EventName() string { return "booking.appointment.requested" }

// AppointmentCancelled is published after a cancellation commits.
type AppointmentCancelled struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	CompanyID     uuid.UUID `json:"companyId"`
	ClientName    string    `json:"clientName"`
	ClientEmail   string    `json:"clientEmail,omitempty"`
	StartAt       time.Time `json:"startAt"`
}

func (e AppointmentCancelled) EventName() string { return "booking.appointment.cancelled" }

// AppointmentRescheduled is published after a reschedule commits.
type AppointmentRescheduled struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	CompanyID      uuid.UUID `json:"companyId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	OldStartAt     time.Time `json:"oldStartAt"`
	NewStartAt     time.Time `json:"newStartAt"`
	Reactivated    bool      `json:"reactivated"`
}

func (e AppointmentRescheduled) EventName() string { return "booking.appointment.rescheduled" }

// AppointmentReminderDue is published by the scheduler worker when a
// reminder task fires and the appointment is still live at its original
// start minute.
type AppointmentReminderDue struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	CompanyID     uuid.UUID `json:"companyId"`
	ClientName    string    `json:"clientName"`
	ClientEmail   string    `json:"clientEmail,omitempty"`
	StartAt       time.Time `json:"startAt"`
}

func (e AppointmentReminderDue) EventName() string { return "booking.appointment.reminder_due" }
