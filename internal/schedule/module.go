// Package schedule manages weekly availability templates and date-range
// exceptions for professionals.
package schedule

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "agenda_portal_backend/internal/http"
	"agenda_portal_backend/internal/schedule/handler"
	"agenda_portal_backend/internal/schedule/repository"
	"agenda_portal_backend/internal/schedule/service"
	"agenda_portal_backend/platform/logger"
)

type Module struct {
	repo    *repository.Repository
	handler *handler.Handler
}

func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		repo:    repo,
		handler: handler.New(svc),
	}
}

func (m *Module) Name() string { return "schedule" }

// Repository exposes the schedule reads the booking resolver depends on.
func (m *Module) Repository() *repository.Repository { return m.repo }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Protected)
}
