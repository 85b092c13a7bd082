// Package handler exposes the booking HTTP endpoints.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agenda_portal_backend/internal/booking/service"
	"agenda_portal_backend/internal/booking/transport"
	"agenda_portal_backend/platform/apperr"
	"agenda_portal_backend/platform/httpkit"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the anonymous booking endpoint. The group
// already carries optional auth and the per-caller rate limit.
func (h *Handler) RegisterPublicRoutes(g *gin.RouterGroup) {
	g.POST("/bookings", h.create)
}

// RegisterProtectedRoutes mounts the dashboard endpoints.
func (h *Handler) RegisterProtectedRoutes(g *gin.RouterGroup) {
	appointments := g.Group("/appointments")
	appointments.POST("", h.create)
	appointments.GET("", h.list)
	appointments.GET("/:id", h.get)
	appointments.POST("/:id/cancel", h.cancel)
	appointments.POST("/:id/reschedule", h.reschedule)
}

func callerFrom(c *gin.Context) service.Caller {
	id := httpkit.GetIdentity(c)
	if !id.IsAuthenticated() {
		return service.Caller{}
	}
	return service.Caller{
		Authenticated: true,
		UserID:        id.UserID(),
		CompanyID:     id.CompanyID(),
	}
}

func (h *Handler) create(c *gin.Context) {
	var req transport.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), callerFrom(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, 201, resp)
}

func (h *Handler) cancel(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid appointment id"))
		return
	}
	companyID, ok := resolveCompanyID(c, id)
	if !ok {
		return
	}

	resp, err := h.svc.Cancel(c.Request.Context(), callerFrom(c), companyID, appointmentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) reschedule(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid appointment id"))
		return
	}
	companyID, ok := resolveCompanyID(c, id)
	if !ok {
		return
	}

	var req transport.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}

	resp, err := h.svc.Reschedule(c.Request.Context(), callerFrom(c), companyID, appointmentID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid appointment id"))
		return
	}
	companyID, ok := resolveCompanyID(c, id)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), callerFrom(c), companyID, appointmentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) list(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	companyID, ok := resolveCompanyID(c, id)
	if !ok {
		return
	}

	var req transport.ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "invalid query parameters", err))
		return
	}

	items, err := h.svc.List(c.Request.Context(), callerFrom(c), companyID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// resolveCompanyID determines which tenant the request targets. Dashboard
// users carry a company claim; callers without one (platform operators) must
// pass ?companyId explicitly.
func resolveCompanyID(c *gin.Context, id httpkit.Identity) (uuid.UUID, bool) {
	if cid := id.CompanyID(); cid != nil {
		return *cid, true
	}
	raw := c.Query("companyId")
	if raw == "" {
		httpkit.HandleError(c, apperr.BadRequest("companyId is required"))
		return uuid.Nil, false
	}
	cid, err := uuid.Parse(raw)
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid companyId"))
		return uuid.Nil, false
	}
	return cid, true
}
