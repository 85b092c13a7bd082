package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	companyrepo "agenda_portal_backend/internal/companies/repository"
	schedulerepo "agenda_portal_backend/internal/schedule/repository"
	"agenda_portal_backend/platform/logger"
)

type fakeScheduleReader struct {
	template   *schedulerepo.TemplateRecord
	exceptions []schedulerepo.ExceptionRecord
}

func (f fakeScheduleReader) GetTemplate(context.Context, uuid.UUID, uuid.UUID) (*schedulerepo.TemplateRecord, error) {
	return f.template, nil
}

func (f fakeScheduleReader) ListExceptions(context.Context, uuid.UUID, uuid.UUID, int) ([]schedulerepo.ExceptionRecord, error) {
	return f.exceptions, nil
}

type fakeCompanyReader struct {
	timezone string
}

func (f fakeCompanyReader) GetProfile(_ context.Context, id uuid.UUID) (*companyrepo.Profile, error) {
	return &companyrepo.Profile{ID: id, Name: "Test Co", Timezone: f.timezone}, nil
}

func (f fakeCompanyReader) NotificationEmails(context.Context, uuid.UUID) ([]string, error) {
	return nil, nil
}

func (f fakeCompanyReader) ProfessionalName(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return "", nil
}

func (f fakeCompanyReader) ServiceName(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return "", nil
}

func newTestResolver(schedules fakeScheduleReader, tz string) *Resolver {
	return NewResolver(schedules, fakeCompanyReader{timezone: tz}, "America/Santiago", logger.New("development"))
}

func weeklyTemplate(t *testing.T, rules string) *schedulerepo.TemplateRecord {
	t.Helper()
	return &schedulerepo.TemplateRecord{Rules: json.RawMessage(rules)}
}

func exception(excType, rangeDoc string) schedulerepo.ExceptionRecord {
	return schedulerepo.ExceptionRecord{
		ID:        uuid.New(),
		Type:      excType,
		DateRange: json.RawMessage(rangeDoc),
	}
}

func rfc3339Range(key1, key2 string, start, end time.Time) string {
	return fmt.Sprintf(`{"%s":%q,"%s":%q}`, key1, start.Format(time.RFC3339), key2, end.Format(time.RFC3339))
}

func TestResolveUnrestrictedWithoutTemplate(t *testing.T) {
	r := newTestResolver(fakeScheduleReader{}, "UTC")

	startAt := time.Date(2026, 9, 7, 3, 0, 0, 0, time.UTC)
	decision, err := r.Resolve(context.Background(), uuid.New(), uuid.New(), startAt, startAt.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("a professional without a template should be unrestricted, got reason %q", decision.Reason)
	}
}

func TestResolveBlockBeatsOverride(t *testing.T) {
	startAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	endAt := startAt.Add(15 * time.Minute)
	dayStart := startAt.Add(-2 * time.Hour)
	dayEnd := startAt.Add(8 * time.Hour)

	schedules := fakeScheduleReader{
		exceptions: []schedulerepo.ExceptionRecord{
			exception(schedulerepo.ExceptionOverride, rfc3339Range("startAt", "endAt", dayStart, dayEnd)),
			exception(schedulerepo.ExceptionBlock, rfc3339Range("startAt", "endAt", dayStart, dayEnd)),
		},
	}

	decision, err := newTestResolver(schedules, "UTC").Resolve(context.Background(), uuid.New(), uuid.New(), startAt, endAt)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("a containing BLOCK must win over an OVERRIDE")
	}
	if decision.Reason != ReasonSlotBlocked {
		t.Errorf("reason = %q, want %q", decision.Reason, ReasonSlotBlocked)
	}
}

func TestResolveOverrideOpensClosedDay(t *testing.T) {
	// Monday, but the weekly template has no Monday windows at all.
	startAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	endAt := startAt.Add(15 * time.Minute)

	schedules := fakeScheduleReader{
		template: weeklyTemplate(t, `{"2":[{"start":"09:00","end":"17:00"}]}`),
		exceptions: []schedulerepo.ExceptionRecord{
			exception(schedulerepo.ExceptionOverride, rfc3339Range("startAt", "endAt", startAt.Add(-time.Hour), endAt.Add(time.Hour))),
		},
	}

	decision, err := newTestResolver(schedules, "UTC").Resolve(context.Background(), uuid.New(), uuid.New(), startAt, endAt)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("an OVERRIDE containing the slot should allow it, got reason %q", decision.Reason)
	}
}

func TestResolvePartialOverrideDoesNotApply(t *testing.T) {
	startAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	endAt := startAt.Add(30 * time.Minute)

	// Override covers only the first half of the slot.
	schedules := fakeScheduleReader{
		template: weeklyTemplate(t, `{"1":[]}`),
		exceptions: []schedulerepo.ExceptionRecord{
			exception(schedulerepo.ExceptionOverride, rfc3339Range("startAt", "endAt", startAt, startAt.Add(15*time.Minute))),
		},
	}

	decision, err := newTestResolver(schedules, "UTC").Resolve(context.Background(), uuid.New(), uuid.New(), startAt, endAt)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if decision.Allowed {
		t.Error("an OVERRIDE that does not fully contain the slot must not apply")
	}
	if decision.Reason != ReasonOutOfSchedule {
		t.Errorf("reason = %q, want %q", decision.Reason, ReasonOutOfSchedule)
	}
}

func TestResolveWeeklyWindowBoundary(t *testing.T) {
	// Monday 2026-09-07; window 09:00-17:00 in UTC.
	template := weeklyTemplate(t, `{"1":[{"start":"09:00","end":"17:00"}]}`)

	cases := []struct {
		name    string
		hour    int
		minute  int
		allowed bool
	}{
		{"at open", 9, 0, true},
		{"one minute before close", 16, 59, true},
		{"exactly at close", 17, 0, false},
		{"before open", 8, 59, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			startAt := time.Date(2026, 9, 7, tc.hour, tc.minute, 0, 0, time.UTC)
			decision, err := newTestResolver(fakeScheduleReader{template: template}, "UTC").
				Resolve(context.Background(), uuid.New(), uuid.New(), startAt, startAt.Add(15*time.Minute))
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if decision.Allowed != tc.allowed {
				t.Errorf("allowed = %v, want %v", decision.Allowed, tc.allowed)
			}
		})
	}
}

func TestResolveEmptyDayIsClosed(t *testing.T) {
	template := weeklyTemplate(t, `{"1":[]}`)
	startAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)

	decision, err := newTestResolver(fakeScheduleReader{template: template}, "UTC").
		Resolve(context.Background(), uuid.New(), uuid.New(), startAt, startAt.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if decision.Allowed {
		t.Error("a weekday with an empty window list is closed")
	}
	if decision.Reason != ReasonOutOfSchedule {
		t.Errorf("reason = %q, want %q", decision.Reason, ReasonOutOfSchedule)
	}
}

func TestResolveUsesCompanyTimezone(t *testing.T) {
	// 01:30 UTC on Tuesday is still Monday evening in Santiago (UTC-3 in
	// September). The Monday windows must apply.
	template := weeklyTemplate(t, `{"1":[{"start":"18:00","end":"23:00"}]}`)
	startAt := time.Date(2026, 9, 8, 1, 30, 0, 0, time.UTC)

	decision, err := newTestResolver(fakeScheduleReader{template: template}, "America/Santiago").
		Resolve(context.Background(), uuid.New(), uuid.New(), startAt, startAt.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("slot inside Monday evening local window should be allowed, got %q", decision.Reason)
	}
}

func TestResolveSkipsMalformedExceptions(t *testing.T) {
	startAt := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	endAt := startAt.Add(15 * time.Minute)

	schedules := fakeScheduleReader{
		exceptions: []schedulerepo.ExceptionRecord{
			exception(schedulerepo.ExceptionBlock, `{"startAt":"not a date"}`),
			exception(schedulerepo.ExceptionBlock, `{}`),
			exception(schedulerepo.ExceptionBlock, `null`),
		},
	}

	decision, err := newTestResolver(schedules, "UTC").Resolve(context.Background(), uuid.New(), uuid.New(), startAt, endAt)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("malformed exceptions must be skipped, got reason %q", decision.Reason)
	}
}

func TestNormalizeDateRangeVariants(t *testing.T) {
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		doc  string
	}{
		{"startAt endAt", rfc3339Range("startAt", "endAt", start, end)},
		{"start end", rfc3339Range("start", "end", start, end)},
		{"from to", rfc3339Range("from", "to", start, end)},
		{"epoch millis", fmt.Sprintf(`{"from":%d,"to":%d}`, start.UnixMilli(), end.UnixMilli())},
		{"nested dateRange", fmt.Sprintf(`{"dateRange":%s}`, rfc3339Range("startAt", "endAt", start, end))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			win, ok := normalizeDateRange(json.RawMessage(tc.doc))
			if !ok {
				t.Fatal("normalizeDateRange() rejected a valid document")
			}
			if !win.start.Equal(start) || !win.end.Equal(end) {
				t.Errorf("window = [%v, %v], want [%v, %v]", win.start, win.end, start, end)
			}
		})
	}
}

func TestWeeklyRulesAllowFromToVariant(t *testing.T) {
	rules := json.RawMessage(`{"3":[{"from":"10:00","to":"12:00"}]}`)
	if !weeklyRulesAllow(rules, 3, 10*60) {
		t.Error("from/to window fields should be honored")
	}
	if weeklyRulesAllow(rules, 3, 12*60) {
		t.Error("window end is exclusive")
	}
}

func TestWeeklyRulesSkipMalformedWindows(t *testing.T) {
	rules := json.RawMessage(`{"3":[{"start":"nope","end":"12:00"},{"start":"10:00","end":"12:00"}]}`)
	if !weeklyRulesAllow(rules, 3, 11*60) {
		t.Error("a malformed window should be skipped, not fail the day")
	}
}
