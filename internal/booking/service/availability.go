package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	companyrepo "agenda_portal_backend/internal/companies/repository"
	schedulerepo "agenda_portal_backend/internal/schedule/repository"
	"agenda_portal_backend/platform/logger"
)

// Decision is the availability verdict for a slot.
type Decision struct {
	Allowed bool
	Reason  string
}

const (
	ReasonSlotBlocked   = "SLOT_BLOCKED"
	ReasonOutOfSchedule = "OUT_OF_SCHEDULE"
)

// exceptionFetchLimit bounds how many exceptions are consulted per check.
const exceptionFetchLimit = 20

type ScheduleReader interface {
	GetTemplate(ctx context.Context, companyID, professionalID uuid.UUID) (*schedulerepo.TemplateRecord, error)
	ListExceptions(ctx context.Context, companyID, professionalID uuid.UUID, limit int) ([]schedulerepo.ExceptionRecord, error)
}

type CompanyReader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*companyrepo.Profile, error)
	NotificationEmails(ctx context.Context, companyID uuid.UUID) ([]string, error)
	ProfessionalName(ctx context.Context, companyID, professionalID uuid.UUID) (string, error)
	ServiceName(ctx context.Context, companyID, serviceID uuid.UUID) (string, error)
}

// Resolver answers whether a slot may be booked for a professional.
// Exceptions are consulted first, then the weekly template; a professional
// with no template is unrestricted.
type Resolver struct {
	schedules ScheduleReader
	companies CompanyReader
	defaultTZ string
	log       *logger.Logger
}

func NewResolver(schedules ScheduleReader, companies CompanyReader, defaultTZ string, log *logger.Logger) *Resolver {
	return &Resolver{schedules: schedules, companies: companies, defaultTZ: defaultTZ, log: log}
}

func (r *Resolver) Resolve(ctx context.Context, companyID, professionalID uuid.UUID, startAt, endAt time.Time) (Decision, error) {
	loc := r.location(ctx, companyID)

	exceptions, err := r.schedules.ListExceptions(ctx, companyID, professionalID, exceptionFetchLimit)
	if err != nil {
		return Decision{}, err
	}

	hasOverride := false
	for _, exc := range exceptions {
		win, ok := normalizeDateRange(exc.DateRange)
		if !ok {
			r.log.Warn("skipping malformed availability exception", "exception_id", exc.ID)
			continue
		}
		if !win.contains(startAt, endAt) {
			continue
		}
		switch exc.Type {
		case schedulerepo.ExceptionBlock:
			return Decision{Allowed: false, Reason: ReasonSlotBlocked}, nil
		case schedulerepo.ExceptionOverride:
			hasOverride = true
		}
	}
	if hasOverride {
		return Decision{Allowed: true}, nil
	}

	template, err := r.schedules.GetTemplate(ctx, companyID, professionalID)
	if err != nil {
		return Decision{}, err
	}
	if template == nil {
		return Decision{Allowed: true}, nil
	}

	local := startAt.In(loc)
	weekday := int(local.Weekday())
	minutesOfDay := local.Hour()*60 + local.Minute()

	if weeklyRulesAllow(template.Rules, weekday, minutesOfDay) {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, Reason: ReasonOutOfSchedule}, nil
}

// location resolves the company timezone, falling back to the configured
// default and finally UTC when a stored zone name does not load.
func (r *Resolver) location(ctx context.Context, companyID uuid.UUID) *time.Location {
	tz := ""
	if profile, err := r.companies.GetProfile(ctx, companyID); err == nil && profile.Timezone != "" {
		tz = profile.Timezone
	}
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
		r.log.Warn("company timezone did not load, using default", "company_id", companyID, "timezone", tz)
	}
	if loc, err := time.LoadLocation(r.defaultTZ); err == nil {
		return loc
	}
	return time.UTC
}

// dateWindow is a normalized exception range.
type dateWindow struct {
	start time.Time
	end   time.Time
}

// contains reports whether the slot sits fully inside the window, bounds
// inclusive.
func (w dateWindow) contains(startAt, endAt time.Time) bool {
	return !startAt.Before(w.start) && !endAt.After(w.end)
}

// normalizeDateRange accepts the field name variants historical exception
// rows carry: startAt/endAt, start/end and from/to, flat or nested under a
// "dateRange" wrapper, with values as RFC 3339 strings or epoch
// milliseconds. Rows missing either bound are rejected.
func normalizeDateRange(raw json.RawMessage) (dateWindow, bool) {
	if len(raw) == 0 {
		return dateWindow{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return dateWindow{}, false
	}

	// Oldest rows wrap the bounds one level down.
	if nested, ok := fields["dateRange"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			fields = inner
		}
	}

	start, okStart := firstTimestamp(fields, "startAt", "start", "from")
	end, okEnd := firstTimestamp(fields, "endAt", "end", "to")
	if !okStart || !okEnd {
		return dateWindow{}, false
	}
	return dateWindow{start: start, end: end}, true
}

func firstTimestamp(fields map[string]json.RawMessage, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if ts, ok := parseTimestamp(raw); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts, true
		}
		return time.Time{}, false
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC(), true
	}
	return time.Time{}, false
}

// weeklyRulesAllow checks the slot start against the windows configured for
// its local weekday. Windows are half open: a slot starting exactly at a
// window's end does not fit. A weekday with no windows means the day is
// closed.
func weeklyRulesAllow(rules json.RawMessage, weekday, minutesOfDay int) bool {
	if len(rules) == 0 {
		return false
	}
	var doc map[string][]ruleWindow
	if err := json.Unmarshal(rules, &doc); err != nil {
		return false
	}
	windows := doc[strconv.Itoa(weekday)]
	if len(windows) == 0 {
		return false
	}
	for _, w := range windows {
		start, okStart := parseHHMM(firstNonEmpty(w.Start, w.From))
		end, okEnd := parseHHMM(firstNonEmpty(w.End, w.To))
		if !okStart || !okEnd {
			continue
		}
		if minutesOfDay >= start && minutesOfDay < end {
			return true
		}
	}
	return false
}

type ruleWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseHHMM converts "09:30" into minutes of day.
func parseHHMM(value string) (int, bool) {
	if len(value) < 3 {
		return 0, false
	}
	sep := -1
	for i, c := range value {
		if c == ':' {
			sep = i
			break
		}
	}
	if sep <= 0 || sep == len(value)-1 {
		return 0, false
	}
	hh, err := strconv.Atoi(value[:sep])
	if err != nil {
		return 0, false
	}
	mm, err := strconv.Atoi(value[sep+1:])
	if err != nil {
		return 0, false
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}
