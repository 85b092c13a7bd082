package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppointmentReminderTaskRoundTrip(t *testing.T) {
	payload := AppointmentReminderPayload{
		AppointmentID: uuid.New().String(),
		StartAt:       time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}

	task, err := NewAppointmentReminderTask(payload)
	if err != nil {
		t.Fatalf("NewAppointmentReminderTask() error: %v", err)
	}
	if task.Type() != TaskAppointmentReminder {
		t.Errorf("task type = %q, want %q", task.Type(), TaskAppointmentReminder)
	}

	got, err := ParseAppointmentReminderPayload(task)
	if err != nil {
		t.Fatalf("ParseAppointmentReminderPayload() error: %v", err)
	}
	if got != payload {
		t.Errorf("payload = %+v, want %+v", got, payload)
	}
}

func TestLockSweepTaskRoundTrip(t *testing.T) {
	payload := LockSweepPayload{RequestedAt: time.Now().UTC().Format(time.RFC3339)}

	task, err := NewLockSweepTask(payload)
	if err != nil {
		t.Fatalf("NewLockSweepTask() error: %v", err)
	}
	if task.Type() != TaskLockSweep {
		t.Errorf("task type = %q, want %q", task.Type(), TaskLockSweep)
	}

	got, err := ParseLockSweepPayload(task)
	if err != nil {
		t.Fatalf("ParseLockSweepPayload() error: %v", err)
	}
	if got != payload {
		t.Errorf("payload = %+v, want %+v", got, payload)
	}
}
