package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	companyrepo "agenda_portal_backend/internal/companies/repository"
	"agenda_portal_backend/internal/email"
	"agenda_portal_backend/internal/events"
	"agenda_portal_backend/internal/notification/repository"
	"agenda_portal_backend/platform/logger"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetDashboardURL() string { return "https://app.example.com/agenda" }

type testDedupeStore struct {
	claimed    map[uuid.UUID]bool
	lastStatus repository.Status
	lastCount  int
	markCalls  int
}

func newTestDedupeStore() *testDedupeStore {
	return &testDedupeStore{claimed: map[uuid.UUID]bool{}}
}

func (s *testDedupeStore) Claim(_ context.Context, eventID, _, _ uuid.UUID) (bool, error) {
	if s.claimed[eventID] {
		return false, nil
	}
	s.claimed[eventID] = true
	return true, nil
}

func (s *testDedupeStore) MarkResult(_ context.Context, _ uuid.UUID, status repository.Status, recipients int, _ error) error {
	s.markCalls++
	s.lastStatus = status
	s.lastCount = recipients
	return nil
}

type testDirectory struct {
	recipients []string
	profileErr error
}

func (d testDirectory) GetProfile(_ context.Context, id uuid.UUID) (*companyrepo.Profile, error) {
	if d.profileErr != nil {
		return nil, d.profileErr
	}
	return &companyrepo.Profile{ID: id, Name: "Barbería Central", Timezone: "America/Santiago"}, nil
}

func (d testDirectory) NotificationEmails(context.Context, uuid.UUID) ([]string, error) {
	return d.recipients, nil
}

type testSender struct {
	alertCalls        int
	alertRecipients   []string
	cancellationCalls int
	reminderCalls     int
	failFor           string
}

func (s *testSender) SendBookingAlertEmail(_ context.Context, to string, _ email.BookingAlertData) error {
	if to == s.failFor {
		return errors.New("smtp unavailable")
	}
	s.alertCalls++
	s.alertRecipients = append(s.alertRecipients, to)
	return nil
}

func (s *testSender) SendCancellationEmail(context.Context, string, string, string, string) error {
	s.cancellationCalls++
	return nil
}

func (s *testSender) SendReminderEmail(context.Context, string, string, string, string) error {
	s.reminderCalls++
	return nil
}

func requestedEvent() events.AppointmentRequested {
	return events.AppointmentRequested{
		BaseEvent:     events.NewBaseEvent(),
		EventID:       uuid.New(),
		AppointmentID: uuid.New(),
		CompanyID:     uuid.New(),
		ClientName:    "Ana Rojas",
		ClientPhone:   "+56961234567",
		Status:        "REQUESTED",
		StartAt:       time.Date(2026, 9, 7, 14, 0, 0, 0, time.UTC),
		EndAt:         time.Date(2026, 9, 7, 14, 15, 0, 0, time.UTC),
		CompanyName:   "Barbería Central",
	}
}

func TestHandleAppointmentRequestedSendsToAllRecipients(t *testing.T) {
	dedupe := newTestDedupeStore()
	sender := &testSender{}
	m := New(dedupe, testDirectory{recipients: []string{"a@example.com", "b@example.com"}}, sender, testNotificationConfig{}, logger.New("development"))

	if err := m.handleAppointmentRequested(context.Background(), requestedEvent()); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if sender.alertCalls != 2 {
		t.Errorf("alert calls = %d, want 2", sender.alertCalls)
	}
	if dedupe.lastStatus != repository.StatusSent || dedupe.lastCount != 2 {
		t.Errorf("log = (%s, %d), want (sent, 2)", dedupe.lastStatus, dedupe.lastCount)
	}
}

func TestHandleAppointmentRequestedIgnoresConfirmedCreation(t *testing.T) {
	dedupe := newTestDedupeStore()
	sender := &testSender{}
	m := New(dedupe, testDirectory{recipients: []string{"a@example.com"}}, sender, testNotificationConfig{}, logger.New("development"))

	evt := requestedEvent()
	evt.Status = "CONFIRMED"
	if err := m.handleAppointmentRequested(context.Background(), evt); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if sender.alertCalls != 0 {
		t.Errorf("alert calls = %d, want 0 for a confirmed creation", sender.alertCalls)
	}
	if len(dedupe.claimed) != 0 {
		t.Errorf("claimed %d events, want 0; a filtered event must not consume its dedupe slot", len(dedupe.claimed))
	}
}

func TestHandleAppointmentRequestedIsAtMostOnce(t *testing.T) {
	dedupe := newTestDedupeStore()
	sender := &testSender{}
	m := New(dedupe, testDirectory{recipients: []string{"a@example.com"}}, sender, testNotificationConfig{}, logger.New("development"))

	evt := requestedEvent()
	if err := m.handleAppointmentRequested(context.Background(), evt); err != nil {
		t.Fatalf("first delivery error: %v", err)
	}
	if err := m.handleAppointmentRequested(context.Background(), evt); err != nil {
		t.Fatalf("second delivery error: %v", err)
	}
	if sender.alertCalls != 1 {
		t.Errorf("alert calls = %d, want exactly 1 for a duplicated event", sender.alertCalls)
	}
	if dedupe.markCalls != 1 {
		t.Errorf("mark calls = %d, want 1", dedupe.markCalls)
	}
}

func TestHandleAppointmentRequestedNoRecipientsIsSkipped(t *testing.T) {
	dedupe := newTestDedupeStore()
	sender := &testSender{}
	m := New(dedupe, testDirectory{}, sender, testNotificationConfig{}, logger.New("development"))

	if err := m.handleAppointmentRequested(context.Background(), requestedEvent()); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if sender.alertCalls != 0 {
		t.Errorf("alert calls = %d, want 0", sender.alertCalls)
	}
	if dedupe.lastStatus != repository.StatusSkipped {
		t.Errorf("status = %s, want skipped", dedupe.lastStatus)
	}
}

func TestHandleAppointmentRequestedPartialFailureStillSent(t *testing.T) {
	dedupe := newTestDedupeStore()
	sender := &testSender{failFor: "broken@example.com"}
	m := New(dedupe, testDirectory{recipients: []string{"broken@example.com", "ok@example.com"}}, sender, testNotificationConfig{}, logger.New("development"))

	if err := m.handleAppointmentRequested(context.Background(), requestedEvent()); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if sender.alertCalls != 1 {
		t.Errorf("alert calls = %d, want 1", sender.alertCalls)
	}
	if dedupe.lastStatus != repository.StatusSent || dedupe.lastCount != 1 {
		t.Errorf("log = (%s, %d), want (sent, 1)", dedupe.lastStatus, dedupe.lastCount)
	}
}

func TestHandleCancelledWithoutEmailDoesNothing(t *testing.T) {
	sender := &testSender{}
	m := New(newTestDedupeStore(), testDirectory{}, sender, testNotificationConfig{}, logger.New("development"))

	evt := events.AppointmentCancelled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: uuid.New(),
		CompanyID:     uuid.New(),
		ClientName:    "Ana Rojas",
		StartAt:       time.Now(),
	}
	if err := m.handleAppointmentCancelled(context.Background(), evt); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if sender.cancellationCalls != 0 {
		t.Errorf("cancellation calls = %d, want 0 without a client email", sender.cancellationCalls)
	}
}

func TestHandleReminderDueSendsEmail(t *testing.T) {
	sender := &testSender{}
	m := New(newTestDedupeStore(), testDirectory{}, sender, testNotificationConfig{}, logger.New("development"))

	evt := events.AppointmentReminderDue{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: uuid.New(),
		CompanyID:     uuid.New(),
		ClientName:    "Ana Rojas",
		ClientEmail:   "ana@example.com",
		StartAt:       time.Now().Add(24 * time.Hour),
	}
	if err := m.handleReminderDue(context.Background(), evt); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if sender.reminderCalls != 1 {
		t.Errorf("reminder calls = %d, want 1", sender.reminderCalls)
	}
}

func TestFormatLocalFallsBackToUTC(t *testing.T) {
	ts := time.Date(2026, 9, 7, 14, 0, 0, 0, time.UTC)
	if got := formatLocal(ts, "Not/AZone"); got != "07-09-2026 14:00" {
		t.Errorf("formatLocal() = %q, want UTC rendering", got)
	}
}
