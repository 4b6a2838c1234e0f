package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/query"
	"github.com/saxenaaman628/election-observer/internal/response"
	"github.com/saxenaaman628/election-observer/internal/services"
)

type StationController struct {
	svc *services.StationService
}

func NewStationController(svc *services.StationService) *StationController {
	return &StationController{svc: svc}
}

func (h *StationController) List(c *gin.Context) {
	p, ok := listParams(c, services.StationSpec)
	if !ok {
		return
	}
	f := services.StationFilter{
		ConstituencyID: c.Query("constituencyId"),
		WardID:         c.Query("wardId"),
		CountyID:       c.Query("countyId"),
		IsActive:       query.OptionalBool(c.Request.URL.Query(), "isActive"),
	}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *StationController) Get(c *gin.Context) {
	st, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"pollingStation": st})
}

func (h *StationController) Create(c *gin.Context) {
	var in services.StationInput
	if !Bind(c, &in) {
		return
	}
	st, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, st.ID, nil, st)
	response.Created(c, "Polling station created successfully", gin.H{"pollingStation": st})
}

func (h *StationController) Update(c *gin.Context) {
	var in services.StationUpdate
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "Polling station updated successfully", gin.H{"pollingStation": after})
}

func (h *StationController) Delete(c *gin.Context) {
	st, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, st.ID, st, gin.H{"isActive": false})
	response.OKMessage(c, "Polling station deactivated successfully", nil)
}

func (h *StationController) AddRegistration(c *gin.Context) {
	var in services.RegistrationInput
	if !Bind(c, &in) {
		return
	}
	reg, err := h.svc.AddRegistration(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, reg.ID, nil, reg)
	response.Created(c, "Voter registration recorded successfully", gin.H{"voterRegistration": reg})
}

func (h *StationController) Registrations(c *gin.Context) {
	regs, err := h.svc.Registrations(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"voterRegistrations": regs})
}

type StatsController struct {
	svc *services.StatsService
}

func NewStatsController(svc *services.StatsService) *StatsController {
	return &StatsController{svc: svc}
}

func (h *StatsController) ElectoralArea(c *gin.Context) {
	stats, err := h.svc.Hierarchy(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, stats)
}
