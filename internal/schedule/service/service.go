// Package service validates and persists availability templates and
// exceptions. New writes are stored in canonical form so the booking
// resolver only deals with field variants on historical rows.
package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"agenda_portal_backend/internal/schedule/repository"
	"agenda_portal_backend/internal/schedule/transport"
	"agenda_portal_backend/platform/apperr"
	"agenda_portal_backend/platform/logger"
)

type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) GetTemplate(ctx context.Context, companyID, professionalID uuid.UUID) (*transport.TemplateResponse, error) {
	record, err := s.repo.GetTemplate(ctx, companyID, professionalID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("weekly template not found")
	}

	var rules map[string][]transport.Window
	if err := json.Unmarshal(record.Rules, &rules); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "stored template is unreadable", err)
	}
	return &transport.TemplateResponse{
		ProfessionalID: professionalID,
		Rules:          rules,
		UpdatedAt:      record.UpdatedAt,
	}, nil
}

func (s *Service) PutTemplate(ctx context.Context, companyID, professionalID uuid.UUID, req transport.PutTemplateRequest) (*transport.TemplateResponse, error) {
	if err := validateRules(req.Rules); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(req.Rules)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode template", err)
	}
	if err := s.repo.UpsertTemplate(ctx, companyID, professionalID, raw); err != nil {
		return nil, err
	}
	return &transport.TemplateResponse{
		ProfessionalID: professionalID,
		Rules:          req.Rules,
		UpdatedAt:      time.Now().UTC(),
	}, nil
}

func (s *Service) CreateException(ctx context.Context, companyID uuid.UUID, req transport.CreateExceptionRequest) (*transport.ExceptionResponse, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, apperr.Validation("endAt must be after startAt")
	}

	rangeDoc, err := json.Marshal(map[string]string{
		"startAt": req.StartAt.UTC().Format(time.RFC3339),
		"endAt":   req.EndAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode exception range", err)
	}

	record := &repository.ExceptionRecord{
		ID:             uuid.New(),
		CompanyID:      companyID,
		ProfessionalID: req.ProfessionalID,
		Type:           req.Type,
		DateRange:      rangeDoc,
	}
	if err := s.repo.CreateException(ctx, record); err != nil {
		return nil, err
	}
	return &transport.ExceptionResponse{
		ID:             record.ID,
		ProfessionalID: record.ProfessionalID,
		Type:           record.Type,
		StartAt:        req.StartAt.UTC(),
		EndAt:          req.EndAt.UTC(),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (s *Service) ListExceptions(ctx context.Context, companyID, professionalID uuid.UUID, limit int) ([]transport.ExceptionResponse, error) {
	records, err := s.repo.ListExceptions(ctx, companyID, professionalID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ExceptionResponse, 0, len(records))
	for _, rec := range records {
		resp := transport.ExceptionResponse{
			ID:             rec.ID,
			ProfessionalID: rec.ProfessionalID,
			Type:           rec.Type,
			CreatedAt:      rec.CreatedAt,
		}
		// Historical rows may carry variant field names; surface what parses
		// and leave the rest zero instead of failing the listing.
		var rangeDoc struct {
			StartAt time.Time `json:"startAt"`
			EndAt   time.Time `json:"endAt"`
		}
		if err := json.Unmarshal(rec.DateRange, &rangeDoc); err == nil {
			resp.StartAt = rangeDoc.StartAt
			resp.EndAt = rangeDoc.EndAt
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *Service) DeleteException(ctx context.Context, companyID, id uuid.UUID) error {
	return s.repo.DeleteException(ctx, companyID, id)
}

func validateRules(rules map[string][]transport.Window) error {
	for day, windows := range rules {
		idx, err := strconv.Atoi(day)
		if err != nil || idx < 0 || idx > 6 {
			return apperr.Validation("weekday keys must be 0 through 6")
		}
		for _, w := range windows {
			start, okStart := parseHHMM(w.Start)
			end, okEnd := parseHHMM(w.End)
			if !okStart || !okEnd {
				return apperr.Validation("windows must use HH:MM times")
			}
			if end <= start {
				return apperr.Validation("window end must be after start")
			}
		}
	}
	return nil
}

func parseHHMM(value string) (int, bool) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
