package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/response"
	"github.com/saxenaaman628/election-observer/internal/services"
)

type AuditController struct {
	svc *services.AuditService
}

func NewAuditController(svc *services.AuditService) *AuditController {
	return &AuditController{svc: svc}
}

func auditFilter(c *gin.Context) (services.AuditFilter, error) {
	f := services.AuditFilter{
		UserID:     c.Query("userId"),
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
	}
	var err error
	if f.Start, err = services.ParseDate("startDate", c.Query("startDate")); err != nil {
		return f, err
	}
	if f.End, err = services.ParseDate("endDate", c.Query("endDate")); err != nil {
		return f, err
	}
	return f, nil
}

func (h *AuditController) List(c *gin.Context) {
	p, ok := listParams(c, services.AuditSpec)
	if !ok {
		return
	}
	f, err := auditFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *AuditController) Get(c *gin.Context) {
	entry, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"auditLog": entry})
}

func (h *AuditController) Stats(c *gin.Context) {
	f, err := auditFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, stats)
}
