package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"agenda_portal_backend/internal/booking/transport"
	"agenda_portal_backend/platform/apperr"
)

const testPhone = "+56 9 6123 4567"

func validCreateRequest(startAt time.Time) transport.CreateAppointmentRequest {
	return transport.CreateAppointmentRequest{
		CompanyID:      uuid.New(),
		ProfessionalID: uuid.New(),
		ServiceID:      uuid.New(),
		ClientName:     "Ana Rojas",
		ClientPhone:    testPhone,
		StartAt:        startAt,
	}
}

func TestPlanCreateDefaultsSlotMinutes(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	req := validCreateRequest(now.Add(time.Hour))

	plan, err := planCreate(req, Caller{}, now)
	if err != nil {
		t.Fatalf("planCreate() error: %v", err)
	}
	if got := plan.endAt.Sub(plan.startAt); got != 15*time.Minute {
		t.Errorf("default slot length = %v, want 15m", got)
	}
	if !plan.lockExpiry.Equal(plan.startAt.Add(15 * time.Minute)) {
		t.Errorf("lock expiry = %v, want start+15m", plan.lockExpiry)
	}
}

func TestPlanCreateHonorsExplicitEnd(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	startAt := now.Add(time.Hour)
	endAt := startAt.Add(45 * time.Minute)

	req := validCreateRequest(startAt)
	req.EndAt = &endAt
	req.SlotMinutes = 30

	plan, err := planCreate(req, Caller{}, now)
	if err != nil {
		t.Fatalf("planCreate() error: %v", err)
	}
	if !plan.endAt.Equal(endAt) {
		t.Errorf("endAt = %v, want %v", plan.endAt, endAt)
	}
	// The lock still expires by slot length, matching the key granularity.
	if !plan.lockExpiry.Equal(startAt.Add(30 * time.Minute)) {
		t.Errorf("lock expiry = %v, want start+30m", plan.lockExpiry)
	}
}

func TestPlanCreateSlotMinutesBounds(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for _, minutes := range []int{4, 241, -1} {
		req := validCreateRequest(now.Add(time.Hour))
		req.SlotMinutes = minutes
		if _, err := planCreate(req, Caller{}, now); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("slotMinutes=%d: error = %v, want validation error", minutes, err)
		}
	}

	for _, minutes := range []int{5, 240} {
		req := validCreateRequest(now.Add(time.Hour))
		req.SlotMinutes = minutes
		if _, err := planCreate(req, Caller{}, now); err != nil {
			t.Errorf("slotMinutes=%d: unexpected error %v", minutes, err)
		}
	}
}

func TestPlanCreatePastSlotTolerance(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// Three minutes ago is within clock-skew tolerance.
	req := validCreateRequest(now.Add(-3 * time.Minute))
	if _, err := planCreate(req, Caller{}, now); err != nil {
		t.Errorf("slot within tolerance rejected: %v", err)
	}

	req = validCreateRequest(now.Add(-6 * time.Minute))
	if _, err := planCreate(req, Caller{}, now); !apperr.Is(err, apperr.KindFailedPrecondition) {
		t.Errorf("stale slot: error = %v, want failed precondition", err)
	}
}

func TestPlanCreateStatusAndSource(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	confirmed := transport.StatusConfirmed

	cases := []struct {
		name       string
		caller     Caller
		reqStatus  *transport.AppointmentStatus
		wantStatus transport.AppointmentStatus
		wantSource transport.AppointmentSource
	}{
		{"public default", Caller{}, nil, transport.StatusRequested, transport.SourcePublic},
		{"public cannot confirm", Caller{}, &confirmed, transport.StatusRequested, transport.SourcePublic},
		{"dashboard default", Caller{Authenticated: true, UserID: uuid.New()}, nil, transport.StatusRequested, transport.SourceDashboard},
		{"dashboard confirmed", Caller{Authenticated: true, UserID: uuid.New()}, &confirmed, transport.StatusConfirmed, transport.SourceDashboard},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest(now.Add(time.Hour))
			req.Status = tc.reqStatus

			plan, err := planCreate(req, tc.caller, now)
			if err != nil {
				t.Fatalf("planCreate() error: %v", err)
			}
			if plan.status != tc.wantStatus {
				t.Errorf("status = %s, want %s", plan.status, tc.wantStatus)
			}
			if plan.source != tc.wantSource {
				t.Errorf("source = %s, want %s", plan.source, tc.wantSource)
			}
		})
	}
}

func TestPlanCreateNormalizesPhone(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	req := validCreateRequest(now.Add(time.Hour))

	plan, err := planCreate(req, Caller{}, now)
	if err != nil {
		t.Fatalf("planCreate() error: %v", err)
	}
	if plan.clientPhone != "+56961234567" {
		t.Errorf("clientPhone = %q, want E.164 form", plan.clientPhone)
	}

	req.ClientPhone = "abc"
	if _, err := planCreate(req, Caller{}, now); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad phone: error = %v, want validation error", err)
	}
}

func TestPlanCreateRejectsInvertedRange(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	startAt := now.Add(time.Hour)
	endAt := startAt.Add(-time.Minute)

	req := validCreateRequest(startAt)
	req.EndAt = &endAt
	if _, err := planCreate(req, Caller{}, now); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("inverted range: error = %v, want validation error", err)
	}
}

func TestCallerCompanyScope(t *testing.T) {
	companyID := uuid.New()
	other := uuid.New()

	if !(Caller{}).mayAccessCompany(companyID) {
		t.Error("a caller without a company claim may target any company")
	}
	if !(Caller{CompanyID: &companyID}).mayAccessCompany(companyID) {
		t.Error("matching claim should pass")
	}
	if (Caller{CompanyID: &other}).mayAccessCompany(companyID) {
		t.Error("mismatched claim must be rejected")
	}
}

func TestRescheduleStatusTransitions(t *testing.T) {
	cases := []struct {
		current     string
		next        string
		reactivated bool
	}{
		{"REQUESTED", "REQUESTED", false},
		{"CONFIRMED", "CONFIRMED", false},
		{"CANCELLED", "CONFIRMED", true},
	}
	for _, tc := range cases {
		t.Run(tc.current, func(t *testing.T) {
			next, reactivated := rescheduleStatus(tc.current)
			if next != tc.next {
				t.Errorf("status = %s, want %s", next, tc.next)
			}
			if reactivated != tc.reactivated {
				t.Errorf("reactivated = %v, want %v", reactivated, tc.reactivated)
			}
		})
	}
}

func TestCancelRepeatDetection(t *testing.T) {
	if !cancelIsRepeat("CANCELLED") {
		t.Error("cancelling twice is a repeat")
	}
	if cancelIsRepeat("REQUESTED") || cancelIsRepeat("CONFIRMED") {
		t.Error("live appointments cancel for the first time")
	}
}
