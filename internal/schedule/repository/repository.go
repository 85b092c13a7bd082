package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenda_portal_backend/platform/apperr"
)

// TemplateRecord is one professional's weekly availability document. Rules is
// a JSON object keyed by weekday index ("0" Sunday through "6" Saturday),
// each value a list of time windows.
type TemplateRecord struct {
	CompanyID      uuid.UUID
	ProfessionalID uuid.UUID
	Rules          json.RawMessage
	UpdatedAt      time.Time
}

// ExceptionRecord is a date-range deviation from the weekly template.
// DateRange is kept raw because historical rows use several field name
// variants; readers normalize at the boundary.
type ExceptionRecord struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	ProfessionalID uuid.UUID
	Type           string
	DateRange      json.RawMessage
	CreatedAt      time.Time
}

const (
	ExceptionBlock    = "BLOCK"
	ExceptionOverride = "OVERRIDE"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetTemplate returns the weekly template, or nil when the professional has
// none configured.
func (r *Repository) GetTemplate(ctx context.Context, companyID, professionalID uuid.UUID) (*TemplateRecord, error) {
	const op = "schedule.repository.GetTemplate"
	row := r.pool.QueryRow(ctx, `
		SELECT company_id, professional_id, rules, updated_at
		FROM availability_templates
		WHERE company_id = $1 AND professional_id = $2`,
		companyID, professionalID)

	var t TemplateRecord
	if err := row.Scan(&t.CompanyID, &t.ProfessionalID, &t.Rules, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "read weekly template", err).WithOp(op)
	}
	return &t, nil
}

// UpsertTemplate replaces the whole weekly document for a professional.
func (r *Repository) UpsertTemplate(ctx context.Context, companyID, professionalID uuid.UUID, rules json.RawMessage) error {
	const op = "schedule.repository.UpsertTemplate"
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_templates (company_id, professional_id, rules)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, professional_id)
		DO UPDATE SET rules = EXCLUDED.rules, updated_at = now()`,
		companyID, professionalID, rules)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "upsert weekly template", err).WithOp(op)
	}
	return nil
}

// ListExceptions returns up to limit exceptions for the professional, newest
// first.
func (r *Repository) ListExceptions(ctx context.Context, companyID, professionalID uuid.UUID, limit int) ([]ExceptionRecord, error) {
	const op = "schedule.repository.ListExceptions"
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, professional_id, type, date_range, created_at
		FROM availability_exceptions
		WHERE company_id = $1 AND professional_id = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		companyID, professionalID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list exceptions", err).WithOp(op)
	}
	defer rows.Close()

	var out []ExceptionRecord
	for rows.Next() {
		var e ExceptionRecord
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ProfessionalID, &e.Type, &e.DateRange, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan exception", err).WithOp(op)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate exceptions", err).WithOp(op)
	}
	return out, nil
}

func (r *Repository) CreateException(ctx context.Context, e *ExceptionRecord) error {
	const op = "schedule.repository.CreateException"
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_exceptions (id, company_id, professional_id, type, date_range)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.CompanyID, e.ProfessionalID, e.Type, e.DateRange)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert exception", err).WithOp(op)
	}
	return nil
}

func (r *Repository) DeleteException(ctx context.Context, companyID, id uuid.UUID) error {
	const op = "schedule.repository.DeleteException"
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_exceptions WHERE id = $1 AND company_id = $2`,
		id, companyID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete exception", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("exception not found").WithOp(op)
	}
	return nil
}
