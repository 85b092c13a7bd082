package transport

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusRequested AppointmentStatus = "REQUESTED"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// AppointmentSource records which surface created the appointment.
type AppointmentSource string

const (
	SourcePublic    AppointmentSource = "PUBLIC"
	SourceDashboard AppointmentSource = "DASHBOARD"
)

type CreateAppointmentRequest struct {
	CompanyID      uuid.UUID  `json:"companyId" binding:"required"`
	ProfessionalID uuid.UUID  `json:"professionalId" binding:"required"`
	ServiceID      uuid.UUID  `json:"serviceId" binding:"required"`
	ClientName     string     `json:"clientName" binding:"required,max=200"`
	ClientPhone    string     `json:"clientPhone" binding:"required,max=32"`
	ClientEmail    *string    `json:"clientEmail" binding:"omitempty,email"`
	Notes          *string    `json:"notes" binding:"omitempty,max=2000"`
	StartAt        time.Time  `json:"startAt" binding:"required"`
	EndAt          *time.Time `json:"endAt"`
	SlotMinutes    int        `json:"slotMinutes" binding:"omitempty,min=5,max=240"`
	// Status is honored for dashboard callers only; public requests always
	// land as REQUESTED.
	Status *AppointmentStatus `json:"status" binding:"omitempty,oneof=REQUESTED CONFIRMED"`
}

type CreateAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	LockID        string    `json:"lockId"`
	Status        string    `json:"status"`
}

type CancelAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	Status        string    `json:"status"`
}

type RescheduleAppointmentRequest struct {
	ProfessionalID *uuid.UUID `json:"professionalId"`
	StartAt        time.Time  `json:"startAt" binding:"required"`
	EndAt          *time.Time `json:"endAt"`
	SlotMinutes    int        `json:"slotMinutes" binding:"omitempty,min=5,max=240"`
}

type RescheduleAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	LockID        string    `json:"lockId"`
	Status        string    `json:"status"`
}

type ListAppointmentsRequest struct {
	From           *time.Time `form:"from" time_format:"2006-01-02"`
	To             *time.Time `form:"to" time_format:"2006-01-02"`
	ProfessionalID *uuid.UUID `form:"professionalId"`
	Status         *string    `form:"status" binding:"omitempty,oneof=REQUESTED CONFIRMED CANCELLED"`
	Limit          int        `form:"limit" binding:"omitempty,min=1,max=200"`
}

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	CompanyID      uuid.UUID  `json:"companyId"`
	ProfessionalID uuid.UUID  `json:"professionalId"`
	ServiceID      uuid.UUID  `json:"serviceId"`
	ClientName     string     `json:"clientName"`
	ClientPhone    string     `json:"clientPhone"`
	ClientEmail    *string    `json:"clientEmail,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	StartAt        time.Time  `json:"startAt"`
	EndAt          time.Time  `json:"endAt"`
	Status         string     `json:"status"`
	Source         string     `json:"source"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	RescheduledAt  *time.Time `json:"rescheduledAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
