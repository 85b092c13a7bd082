package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenda_portal_backend/platform/apperr"
)

// Profile carries the tenant reference data booking and notification need.
type Profile struct {
	ID       uuid.UUID
	Name     string
	Timezone string
	// LegacyNotifications is the old per-company notification blob some
	// tenants still carry. Newer tenants use notification_settings rows.
	LegacyNotifications json.RawMessage
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	const op = "companies.repository.GetProfile"
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(timezone, ''), notifications
		FROM companies WHERE id = $1`, id)

	var p Profile
	if err := row.Scan(&p.ID, &p.Name, &p.Timezone, &p.LegacyNotifications); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("company not found").WithOp(op)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "read company", err).WithOp(op)
	}
	return &p, nil
}

// NotificationEmails resolves the booking alert recipients for a company.
// Explicit notification_settings rows win; the legacy company blob is the
// fallback for tenants that never migrated.
func (r *Repository) NotificationEmails(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	const op = "companies.repository.NotificationEmails"
	rows, err := r.pool.Query(ctx, `
		SELECT notification_email FROM notification_settings
		WHERE company_id = $1 AND email_enabled`, companyID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "read notification settings", err).WithOp(op)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan notification setting", err).WithOp(op)
		}
		if email != "" {
			out = append(out, email)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate notification settings", err).WithOp(op)
	}
	if len(out) > 0 {
		return out, nil
	}

	profile, err := r.GetProfile(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return legacyEmails(profile.LegacyNotifications), nil
}

// legacyEmails pulls addresses out of the old company notification blob,
// which stores either {"emails": [...]} or {"email": "..."}.
func legacyEmails(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var blob struct {
		Email  string   `json:"email"`
		Emails []string `json:"emails"`
	}
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil
	}
	var out []string
	for _, e := range blob.Emails {
		if e != "" {
			out = append(out, e)
		}
	}
	if len(out) == 0 && blob.Email != "" {
		out = append(out, blob.Email)
	}
	return out
}

// ProfessionalName returns the display name, or empty when unknown.
func (r *Repository) ProfessionalName(ctx context.Context, companyID, professionalID uuid.UUID) (string, error) {
	const op = "companies.repository.ProfessionalName"
	row := r.pool.QueryRow(ctx, `
		SELECT name FROM professionals WHERE id = $1 AND company_id = $2`,
		professionalID, companyID)
	var name string
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperr.Wrap(apperr.KindInternal, "read professional", err).WithOp(op)
	}
	return name, nil
}

// ServiceName returns the display name, or empty when unknown.
func (r *Repository) ServiceName(ctx context.Context, companyID, serviceID uuid.UUID) (string, error) {
	const op = "companies.repository.ServiceName"
	row := r.pool.QueryRow(ctx, `
		SELECT name FROM services WHERE id = $1 AND company_id = $2`,
		serviceID, companyID)
	var name string
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperr.Wrap(apperr.KindInternal, "read service", err).WithOp(op)
	}
	return name, nil
}
