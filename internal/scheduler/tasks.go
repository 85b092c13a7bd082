package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAppointmentReminder = "booking.appointment.reminder"

const TaskLockSweep = "booking.locks.sweep"

type AppointmentReminderPayload struct {
	AppointmentID string `json:"appointmentId"`
	// StartAt pins the reminder to the slot it was scheduled for; a
	// rescheduled appointment silently drops stale reminders.
	StartAt string `json:"startAt"`
}

type LockSweepPayload struct {
	RequestedAt string `json:"requestedAt"`
}

func NewAppointmentReminderTask(payload AppointmentReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAppointmentReminder, data), nil
}

func ParseAppointmentReminderPayload(task *asynq.Task) (AppointmentReminderPayload, error) {
	var payload AppointmentReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AppointmentReminderPayload{}, err
	}
	return payload, nil
}

func NewLockSweepTask(payload LockSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLockSweep, data), nil
}

func ParseLockSweepPayload(task *asynq.Task) (LockSweepPayload, error) {
	var payload LockSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LockSweepPayload{}, err
	}
	return payload, nil
}
