package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"agenda_portal_backend/internal/booking/repository"
	"agenda_portal_backend/internal/booking/transport"
	"agenda_portal_backend/internal/events"
	"agenda_portal_backend/platform/apperr"
	"agenda_portal_backend/platform/logger"
	"agenda_portal_backend/platform/phone"
	"agenda_portal_backend/platform/sanitize"
)

const (
	defaultSlotMinutes = 15
	minSlotMinutes     = 5
	maxSlotMinutes     = 240
	// pastTolerance absorbs client clock skew on public bookings.
	pastTolerance = 5 * time.Minute
	reminderLead  = 24 * time.Hour
)

// ReminderScheduler enqueues the pre-appointment reminder task. Enqueue
// failures never fail the booking.
type ReminderScheduler interface {
	ScheduleAppointmentReminder(ctx context.Context, appointmentID uuid.UUID, startAt time.Time) error
}

// Caller identifies who is executing an operation. Public bookings arrive
// unauthenticated; dashboard calls carry a user id and usually a company
// claim that scopes every operation to that tenant.
type Caller struct {
	Authenticated bool
	UserID        uuid.UUID
	CompanyID     *uuid.UUID
}

func (c Caller) mayAccessCompany(companyID uuid.UUID) bool {
	return c.CompanyID == nil || *c.CompanyID == companyID
}

// Service coordinates booking writes. Every mutation that touches a slot
// runs the lock read and both writes in one transaction so concurrent
// bookings for the same minute cannot interleave.
type Service struct {
	repo      *repository.Repository
	resolver  *Resolver
	companies CompanyReader
	bus       events.Bus
	reminders ReminderScheduler
	log       *logger.Logger
}

func New(repo *repository.Repository, resolver *Resolver, companies CompanyReader, bus events.Bus, reminders ReminderScheduler, log *logger.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, companies: companies, bus: bus, reminders: reminders, log: log}
}

type createPlan struct {
	startAt     time.Time
	endAt       time.Time
	lockExpiry  time.Time
	status      transport.AppointmentStatus
	source      transport.AppointmentSource
	clientName  string
	clientPhone string
}

// planCreate validates timing and normalizes client input before anything
// touches the database.
func planCreate(req transport.CreateAppointmentRequest, caller Caller, now time.Time) (createPlan, error) {
	slotMinutes := req.SlotMinutes
	if slotMinutes == 0 {
		slotMinutes = defaultSlotMinutes
	}
	if slotMinutes < minSlotMinutes || slotMinutes > maxSlotMinutes {
		return createPlan{}, apperr.Validation("slotMinutes must be between 5 and 240")
	}

	startAt := req.StartAt.UTC()
	if startAt.Before(now.Add(-pastTolerance)) {
		return createPlan{}, apperr.FailedPrecondition("slot is in the past")
	}

	endAt := startAt.Add(time.Duration(slotMinutes) * time.Minute)
	if req.EndAt != nil {
		endAt = req.EndAt.UTC()
	}
	if !endAt.After(startAt) {
		return createPlan{}, apperr.Validation("endAt must be after startAt")
	}

	clientName := sanitize.Text(req.ClientName)
	if clientName == "" {
		return createPlan{}, apperr.Validation("clientName is required")
	}
	if !phone.IsPlausible(req.ClientPhone) {
		return createPlan{}, apperr.Validation("clientPhone is not a valid phone number")
	}
	clientPhone := phone.NormalizeE164(req.ClientPhone)

	status := transport.StatusRequested
	if caller.Authenticated && req.Status != nil && *req.Status == transport.StatusConfirmed {
		status = transport.StatusConfirmed
	}
	source := transport.SourcePublic
	if caller.Authenticated {
		source = transport.SourceDashboard
	}

	return createPlan{
		startAt:     startAt,
		endAt:       endAt,
		lockExpiry:  startAt.Add(time.Duration(slotMinutes) * time.Minute),
		status:      status,
		source:      source,
		clientName:  clientName,
		clientPhone: clientPhone,
	}, nil
}

// rescheduleStatus is the status transition a reschedule applies. Moving a
// cancelled appointment reactivates it as confirmed; any other status rides
// along unchanged.
func rescheduleStatus(current string) (next string, reactivated bool) {
	if current == string(transport.StatusCancelled) {
		return string(transport.StatusConfirmed), true
	}
	return current, false
}

// cancelIsRepeat reports whether the appointment was already cancelled. The
// database writes stay idempotent either way; only the first cancellation
// announces itself.
func cancelIsRepeat(current string) bool {
	return current == string(transport.StatusCancelled)
}

func (s *Service) Create(ctx context.Context, caller Caller, req transport.CreateAppointmentRequest) (*transport.CreateAppointmentResponse, error) {
	if !caller.mayAccessCompany(req.CompanyID) {
		return nil, apperr.Forbidden("not authorized for this company")
	}

	plan, err := planCreate(req, caller, time.Now())
	if err != nil {
		return nil, err
	}

	decision, err := s.resolver.Resolve(ctx, req.CompanyID, req.ProfessionalID, plan.startAt, plan.endAt)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperr.FailedPrecondition(decision.Reason)
	}

	lockKey := FormatLockKey(req.CompanyID, req.ProfessionalID, plan.startAt)
	appt := &repository.Appointment{
		ID:             uuid.New(),
		CompanyID:      req.CompanyID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		ClientName:     plan.clientName,
		ClientPhone:    plan.clientPhone,
		ClientEmail:    req.ClientEmail,
		Notes:          sanitize.TextPtr(req.Notes),
		StartAt:        plan.startAt,
		EndAt:          plan.endAt,
		Status:         string(plan.status),
		Source:         string(plan.source),
		LockKey:        lockKey,
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.repo.GetLockTx(ctx, tx, lockKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.ErrSlotTaken
		}
		lock := &repository.SlotLock{
			LockKey:        lockKey,
			CompanyID:      req.CompanyID,
			ProfessionalID: req.ProfessionalID,
			AppointmentID:  appt.ID,
			StartAt:        plan.startAt,
			ExpiresAt:      plan.lockExpiry,
		}
		if err := s.repo.PutLockTx(ctx, tx, lock); err != nil {
			return err
		}
		return s.repo.CreateTx(ctx, tx, appt)
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.log.BookingConflict(lockKey)
		}
		return nil, err
	}

	// Only pending requests alert the company; dashboard creates that are
	// confirmed on the spot stay quiet.
	if appt.Status == string(transport.StatusRequested) {
		s.publishRequested(ctx, appt)
	}
	s.maybeScheduleReminder(ctx, appt)

	return &transport.CreateAppointmentResponse{
		AppointmentID: appt.ID,
		LockID:        lockKey,
		Status:        appt.Status,
	}, nil
}

func (s *Service) Cancel(ctx context.Context, caller Caller, companyID, appointmentID uuid.UUID) (*transport.CancelAppointmentResponse, error) {
	if !caller.mayAccessCompany(companyID) {
		return nil, apperr.Forbidden("not authorized for this company")
	}

	var cancelled *repository.Appointment
	var repeat bool
	err := s.repo.InTx(ctx, func(tx pgx.Tx) error {
		appt, err := s.repo.GetByIDTx(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		if appt.CompanyID != companyID {
			return apperr.Forbidden("appointment belongs to another company")
		}
		repeat = cancelIsRepeat(appt.Status)
		if err := s.repo.CancelTx(ctx, tx, appt.ID, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.DeleteLockTx(ctx, tx, appt.LockKey); err != nil {
			return err
		}
		cancelled = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !repeat {
		s.bus.Publish(ctx, events.AppointmentCancelled{
			BaseEvent:     events.NewBaseEvent(),
			AppointmentID: cancelled.ID,
			CompanyID:     cancelled.CompanyID,
			ClientName:    cancelled.ClientName,
			ClientEmail:   strOrEmpty(cancelled.ClientEmail),
			StartAt:       cancelled.StartAt,
		})
	}

	return &transport.CancelAppointmentResponse{
		AppointmentID: cancelled.ID,
		Status:        string(transport.StatusCancelled),
	}, nil
}

func (s *Service) Reschedule(ctx context.Context, caller Caller, companyID, appointmentID uuid.UUID, req transport.RescheduleAppointmentRequest) (*transport.RescheduleAppointmentResponse, error) {
	if !caller.mayAccessCompany(companyID) {
		return nil, apperr.Forbidden("not authorized for this company")
	}

	slotMinutes := req.SlotMinutes
	if slotMinutes == 0 {
		slotMinutes = defaultSlotMinutes
	}
	if slotMinutes < minSlotMinutes || slotMinutes > maxSlotMinutes {
		return nil, apperr.Validation("slotMinutes must be between 5 and 240")
	}

	newStartAt := req.StartAt.UTC()
	if newStartAt.Before(time.Now().Add(-pastTolerance)) {
		return nil, apperr.FailedPrecondition("slot is in the past")
	}
	newEndAt := newStartAt.Add(time.Duration(slotMinutes) * time.Minute)
	if req.EndAt != nil {
		newEndAt = req.EndAt.UTC()
	}
	if !newEndAt.After(newStartAt) {
		return nil, apperr.Validation("endAt must be after startAt")
	}

	current, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if current.CompanyID != companyID {
		return nil, apperr.Forbidden("appointment belongs to another company")
	}

	professionalID := current.ProfessionalID
	if req.ProfessionalID != nil {
		professionalID = *req.ProfessionalID
	}

	decision, err := s.resolver.Resolve(ctx, companyID, professionalID, newStartAt, newEndAt)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperr.FailedPrecondition(decision.Reason)
	}

	newLockKey := FormatLockKey(companyID, professionalID, newStartAt)

	var moved *repository.Appointment
	var reactivated bool
	var oldStartAt time.Time
	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		appt, err := s.repo.GetByIDTx(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		if appt.CompanyID != companyID {
			return apperr.Forbidden("appointment belongs to another company")
		}

		existing, err := s.repo.GetLockTx(ctx, tx, newLockKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.ErrSlotTaken
		}

		if err := s.repo.DeleteLockTx(ctx, tx, appt.LockKey); err != nil {
			return err
		}
		if err := s.repo.PutLockTx(ctx, tx, &repository.SlotLock{
			LockKey:        newLockKey,
			CompanyID:      companyID,
			ProfessionalID: professionalID,
			AppointmentID:  appt.ID,
			StartAt:        newStartAt,
			ExpiresAt:      newStartAt.Add(time.Duration(slotMinutes) * time.Minute),
		}); err != nil {
			return err
		}

		oldStartAt = appt.StartAt
		next, wasCancelled := rescheduleStatus(appt.Status)
		reactivated = wasCancelled

		now := time.Now().UTC()
		appt.ProfessionalID = professionalID
		appt.StartAt = newStartAt
		appt.EndAt = newEndAt
		appt.Status = next
		appt.LockKey = newLockKey
		appt.RescheduledAt = &now
		moved = appt
		return s.repo.RescheduleTx(ctx, tx, appt)
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.log.BookingConflict(newLockKey)
		}
		return nil, err
	}

	s.bus.Publish(ctx, events.AppointmentRescheduled{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  moved.ID,
		CompanyID:      moved.CompanyID,
		ProfessionalID: moved.ProfessionalID,
		OldStartAt:     oldStartAt,
		NewStartAt:     moved.StartAt,
		Reactivated:    reactivated,
	})
	s.maybeScheduleReminder(ctx, moved)

	return &transport.RescheduleAppointmentResponse{
		AppointmentID: moved.ID,
		LockID:        newLockKey,
		Status:        moved.Status,
	}, nil
}

func (s *Service) Get(ctx context.Context, caller Caller, companyID, appointmentID uuid.UUID) (*transport.AppointmentResponse, error) {
	if !caller.mayAccessCompany(companyID) {
		return nil, apperr.Forbidden("not authorized for this company")
	}
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.CompanyID != companyID {
		return nil, apperr.Forbidden("appointment belongs to another company")
	}
	return toResponse(appt), nil
}

func (s *Service) List(ctx context.Context, caller Caller, companyID uuid.UUID, req transport.ListAppointmentsRequest) ([]transport.AppointmentResponse, error) {
	if !caller.mayAccessCompany(companyID) {
		return nil, apperr.Forbidden("not authorized for this company")
	}
	items, err := s.repo.List(ctx, companyID, repository.ListFilter{
		From:           req.From,
		To:             req.To,
		ProfessionalID: req.ProfessionalID,
		Status:         req.Status,
		Limit:          req.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]transport.AppointmentResponse, 0, len(items))
	for i := range items {
		out = append(out, *toResponse(&items[i]))
	}
	return out, nil
}

// SweepExpiredLocks is the hourly cleanup entry point used by the scheduler.
func (s *Service) SweepExpiredLocks(ctx context.Context, batchSize int) (int64, error) {
	removed, err := s.repo.DeleteExpiredLocks(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("expired slot locks removed", "count", removed)
	}
	return removed, nil
}

// publishRequested gathers the denormalized display fields the notification
// email needs. Lookups that fail leave their field empty; notification must
// not break booking.
func (s *Service) publishRequested(ctx context.Context, appt *repository.Appointment) {
	evt := events.AppointmentRequested{
		BaseEvent:      events.NewBaseEvent(),
		EventID:        uuid.New(),
		AppointmentID:  appt.ID,
		CompanyID:      appt.CompanyID,
		ProfessionalID: appt.ProfessionalID,
		ServiceID:      appt.ServiceID,
		ClientName:     appt.ClientName,
		ClientPhone:    appt.ClientPhone,
		ClientEmail:    strOrEmpty(appt.ClientEmail),
		Notes:          strOrEmpty(appt.Notes),
		Status:         appt.Status,
		StartAt:        appt.StartAt,
		EndAt:          appt.EndAt,
	}
	if profile, err := s.companies.GetProfile(ctx, appt.CompanyID); err == nil {
		evt.CompanyName = profile.Name
		evt.CompanyTimezone = profile.Timezone
	}
	if name, err := s.companies.ProfessionalName(ctx, appt.CompanyID, appt.ProfessionalID); err == nil {
		evt.ProfessionalName = name
	}
	if name, err := s.companies.ServiceName(ctx, appt.CompanyID, appt.ServiceID); err == nil {
		evt.ServiceName = name
	}
	s.bus.Publish(ctx, evt)
}

func (s *Service) maybeScheduleReminder(ctx context.Context, appt *repository.Appointment) {
	if s.reminders == nil || appt.Status != string(transport.StatusConfirmed) {
		return
	}
	if !appt.StartAt.After(time.Now().Add(reminderLead)) {
		return
	}
	if err := s.reminders.ScheduleAppointmentReminder(ctx, appt.ID, appt.StartAt); err != nil {
		s.log.Warn("could not schedule appointment reminder", "appointment_id", appt.ID, "error", err)
	}
}

func toResponse(a *repository.Appointment) *transport.AppointmentResponse {
	return &transport.AppointmentResponse{
		ID:             a.ID,
		CompanyID:      a.CompanyID,
		ProfessionalID: a.ProfessionalID,
		ServiceID:      a.ServiceID,
		ClientName:     a.ClientName,
		ClientPhone:    a.ClientPhone,
		ClientEmail:    a.ClientEmail,
		Notes:          a.Notes,
		StartAt:        a.StartAt,
		EndAt:          a.EndAt,
		Status:         a.Status,
		Source:         a.Source,
		CancelledAt:    a.CancelledAt,
		RescheduledAt:  a.RescheduledAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
