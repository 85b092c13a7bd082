// Package notification turns booking domain events into emails. Delivery of
// the new-booking alert is at most once, keyed on the creation event id.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	companyrepo "agenda_portal_backend/internal/companies/repository"
	"agenda_portal_backend/internal/email"
	"agenda_portal_backend/internal/events"
	"agenda_portal_backend/internal/notification/repository"
	"agenda_portal_backend/platform/config"
	"agenda_portal_backend/platform/logger"
)

const startLocalLayout = "02-01-2006 15:04"

// statusRequested mirrors the booking status the alert cares about;
// appointments confirmed on creation never alert the company.
const statusRequested = "REQUESTED"

// DedupeStore is the delivery log behind at-most-once dispatch.
type DedupeStore interface {
	Claim(ctx context.Context, eventID, appointmentID, companyID uuid.UUID) (bool, error)
	MarkResult(ctx context.Context, eventID uuid.UUID, status repository.Status, recipients int, deliveryErr error) error
}

// CompanyDirectory resolves tenant display data and alert recipients.
type CompanyDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*companyrepo.Profile, error)
	NotificationEmails(ctx context.Context, companyID uuid.UUID) ([]string, error)
}

type Module struct {
	dedupe    DedupeStore
	companies CompanyDirectory
	sender    email.Sender
	cfg       config.NotificationConfig
	log       *logger.Logger
}

func New(dedupe DedupeStore, companies CompanyDirectory, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{dedupe: dedupe, companies: companies, sender: sender, cfg: cfg, log: log}
}

// RegisterHandlers subscribes the module to the booking events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AppointmentRequested{}.EventName(), events.HandlerFunc(m.handleAppointmentRequested))
	bus.Subscribe(events.AppointmentCancelled{}.EventName(), events.HandlerFunc(m.handleAppointmentCancelled))
	bus.Subscribe(events.AppointmentReminderDue{}.EventName(), events.HandlerFunc(m.handleReminderDue))
}

func (m *Module) handleAppointmentRequested(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.AppointmentRequested)
	if !ok {
		return nil
	}
	if evt.Status != statusRequested {
		return nil
	}

	claimed, err := m.dedupe.Claim(ctx, evt.EventID, evt.AppointmentID, evt.CompanyID)
	if err != nil {
		return err
	}
	if !claimed {
		m.log.Debug("booking alert already dispatched", "event_id", evt.EventID)
		return nil
	}

	recipients, err := m.companies.NotificationEmails(ctx, evt.CompanyID)
	if err != nil {
		return errors.Join(err, m.dedupe.MarkResult(ctx, evt.EventID, repository.StatusFailed, 0, err))
	}
	if len(recipients) == 0 {
		m.log.Info("no booking alert recipients configured", "company_id", evt.CompanyID)
		return m.dedupe.MarkResult(ctx, evt.EventID, repository.StatusSkipped, 0, nil)
	}

	data := email.BookingAlertData{
		CompanyName:      evt.CompanyName,
		ClientName:       evt.ClientName,
		ClientPhone:      evt.ClientPhone,
		ClientEmail:      evt.ClientEmail,
		ServiceName:      evt.ServiceName,
		ProfessionalName: evt.ProfessionalName,
		StartLocal:       formatLocal(evt.StartAt, evt.CompanyTimezone),
		Notes:            evt.Notes,
		DashboardURL:     m.cfg.GetDashboardURL(),
	}

	var deliveryErr error
	sent := 0
	for _, to := range recipients {
		if err := m.sender.SendBookingAlertEmail(ctx, to, data); err != nil {
			m.log.Error("booking alert delivery failed", "recipient", to, "error", err)
			if deliveryErr == nil {
				deliveryErr = err
			}
			continue
		}
		sent++
	}

	status := repository.StatusSent
	if sent == 0 {
		status = repository.StatusFailed
	}
	return m.dedupe.MarkResult(ctx, evt.EventID, status, sent, deliveryErr)
}

func (m *Module) handleAppointmentCancelled(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.AppointmentCancelled)
	if !ok || evt.ClientEmail == "" {
		return nil
	}

	name, tz := m.companyDisplay(ctx, evt.CompanyID)
	return m.sender.SendCancellationEmail(ctx, evt.ClientEmail, evt.ClientName, name, formatLocal(evt.StartAt, tz))
}

func (m *Module) handleReminderDue(ctx context.Context, event events.Event) error {
	evt, ok := event.(events.AppointmentReminderDue)
	if !ok || evt.ClientEmail == "" {
		return nil
	}

	name, tz := m.companyDisplay(ctx, evt.CompanyID)
	return m.sender.SendReminderEmail(ctx, evt.ClientEmail, evt.ClientName, name, formatLocal(evt.StartAt, tz))
}

func (m *Module) companyDisplay(ctx context.Context, companyID uuid.UUID) (name, timezone string) {
	profile, err := m.companies.GetProfile(ctx, companyID)
	if err != nil {
		m.log.Warn("company lookup failed for notification", "company_id", companyID, "error", err)
		return "", ""
	}
	return profile.Name, profile.Timezone
}

func formatLocal(t time.Time, tz string) string {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return t.In(loc).Format(startLocalLayout)
		}
	}
	return t.UTC().Format(startLocalLayout)
}
