// Package booking implements appointment creation, cancellation and
// rescheduling with slot-level mutual exclusion.
package booking

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"agenda_portal_backend/internal/booking/handler"
	"agenda_portal_backend/internal/booking/repository"
	"agenda_portal_backend/internal/booking/service"
	"agenda_portal_backend/internal/events"
	apphttp "agenda_portal_backend/internal/http"
	"agenda_portal_backend/platform/config"
	"agenda_portal_backend/platform/logger"
)

type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

func New(
	pool *pgxpool.Pool,
	schedules service.ScheduleReader,
	companies service.CompanyReader,
	bus events.Bus,
	reminders service.ReminderScheduler,
	cfg config.BookingConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	resolver := service.NewResolver(schedules, companies, cfg.GetDefaultTimezone(), log)
	svc := service.New(repo, resolver, companies, bus, reminders, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc),
	}
}

func (m *Module) Name() string { return "booking" }

// Service exposes the booking coordinator for the scheduler worker.
func (m *Module) Service() *service.Service { return m.svc }

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(rc.Public)
	m.handler.RegisterProtectedRoutes(rc.Protected)
}
