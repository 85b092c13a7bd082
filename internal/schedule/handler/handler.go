package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agenda_portal_backend/internal/schedule/service"
	"agenda_portal_backend/internal/schedule/transport"
	"agenda_portal_backend/platform/apperr"
	"agenda_portal_backend/platform/httpkit"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	schedule := g.Group("/schedule")
	schedule.GET("/templates/:professionalId", h.getTemplate)
	schedule.PUT("/templates/:professionalId", h.putTemplate)
	schedule.GET("/exceptions", h.listExceptions)
	schedule.POST("/exceptions", h.createException)
	schedule.DELETE("/exceptions/:id", h.deleteException)
}

func companyScope(c *gin.Context) (uuid.UUID, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return uuid.Nil, false
	}
	if cid := id.CompanyID(); cid != nil {
		return *cid, true
	}
	httpkit.HandleError(c, apperr.Forbidden("company scope required"))
	return uuid.Nil, false
}

func (h *Handler) getTemplate(c *gin.Context) {
	companyID, ok := companyScope(c)
	if !ok {
		return
	}
	professionalID, err := uuid.Parse(c.Param("professionalId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid professional id"))
		return
	}
	resp, err := h.svc.GetTemplate(c.Request.Context(), companyID, professionalID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) putTemplate(c *gin.Context) {
	companyID, ok := companyScope(c)
	if !ok {
		return
	}
	professionalID, err := uuid.Parse(c.Param("professionalId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid professional id"))
		return
	}
	var req transport.PutTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}
	resp, err := h.svc.PutTemplate(c.Request.Context(), companyID, professionalID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) listExceptions(c *gin.Context) {
	companyID, ok := companyScope(c)
	if !ok {
		return
	}
	professionalID, err := uuid.Parse(c.Query("professionalId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("professionalId is required"))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	items, err := h.svc.ListExceptions(c.Request.Context(), companyID, professionalID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) createException(c *gin.Context) {
	companyID, ok := companyScope(c)
	if !ok {
		return
	}
	var req transport.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "invalid request body", err))
		return
	}
	resp, err := h.svc.CreateException(c.Request.Context(), companyID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, 201, resp)
}

func (h *Handler) deleteException(c *gin.Context) {
	companyID, ok := companyScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid exception id"))
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteException(c.Request.Context(), companyID, id)) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": id})
}
