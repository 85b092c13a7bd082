package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string      { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "test" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("NewClient() should fail without a redis url")
	}
}

func TestScheduleAppointmentReminderEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	defer client.Close()

	startAt := time.Now().Add(48 * time.Hour)
	if err := client.ScheduleAppointmentReminder(context.Background(), uuid.New(), startAt); err != nil {
		t.Fatalf("ScheduleAppointmentReminder() error: %v", err)
	}

	if len(mr.Keys()) == 0 {
		t.Error("expected the reminder task to be written to redis")
	}
}

func TestEnqueueLockSweep(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueLockSweep(context.Background()); err != nil {
		t.Fatalf("EnqueueLockSweep() error: %v", err)
	}

	if len(mr.Keys()) == 0 {
		t.Error("expected the sweep task to be written to redis")
	}
}
