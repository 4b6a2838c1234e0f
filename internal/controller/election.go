package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/query"
	"github.com/saxenaaman628/election-observer/internal/response"
	"github.com/saxenaaman628/election-observer/internal/services"
)

type CandidateController struct {
	svc *services.CandidateService
}

func NewCandidateController(svc *services.CandidateService) *CandidateController {
	return &CandidateController{svc: svc}
}

func (h *CandidateController) List(c *gin.Context) {
	p, ok := listParams(c, services.CandidateSpec)
	if !ok {
		return
	}
	f := services.CandidateFilter{
		ElectionType:   c.Query("electionType"),
		ConstituencyID: c.Query("constituencyId"),
		WardID:         c.Query("wardId"),
		IsActive:       query.OptionalBool(c.Request.URL.Query(), "isActive"),
	}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *CandidateController) Get(c *gin.Context) {
	candidate, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"candidate": candidate})
}

func (h *CandidateController) Create(c *gin.Context) {
	var in services.CandidateInput
	if !Bind(c, &in) {
		return
	}
	candidate, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, candidate.ID, nil, candidate)
	response.Created(c, "Candidate created successfully", gin.H{"candidate": candidate})
}

func (h *CandidateController) Update(c *gin.Context) {
	var in services.CandidateInput
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "Candidate updated successfully", gin.H{"candidate": after})
}

func (h *CandidateController) Delete(c *gin.Context) {
	candidate, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, candidate.ID, candidate, nil)
	response.OKMessage(c, "Candidate deleted successfully", nil)
}

type ResultController struct {
	svc *services.ResultService
}

func NewResultController(svc *services.ResultService) *ResultController {
	return &ResultController{svc: svc}
}

func (h *ResultController) List(c *gin.Context) {
	p, ok := listParams(c, services.ResultSpec)
	if !ok {
		return
	}
	f := services.ResultFilter{
		PollingStationID: c.Query("pollingStationId"),
		CandidateID:      c.Query("candidateId"),
		ElectionType:     c.Query("electionType"),
		IsVerified:       query.OptionalBool(c.Request.URL.Query(), "isVerified"),
	}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *ResultController) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"electionResult": result})
}

func (h *ResultController) Create(c *gin.Context) {
	var in services.ResultInput
	if !Bind(c, &in) {
		return
	}
	result, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, result.ID, nil, result)
	response.Created(c, "Election result submitted successfully", gin.H{"electionResult": result})
}

func (h *ResultController) Update(c *gin.Context) {
	var in services.ResultInput
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "Election result updated successfully", gin.H{"electionResult": after})
}

func (h *ResultController) Verify(c *gin.Context) {
	result, err := h.svc.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, result.ID, gin.H{"isVerified": false}, gin.H{"isVerified": true})
	response.OKMessage(c, "Election result verified successfully", gin.H{"electionResult": result})
}

type IncidentController struct {
	svc *services.IncidentService
}

func NewIncidentController(svc *services.IncidentService) *IncidentController {
	return &IncidentController{svc: svc}
}

func (h *IncidentController) List(c *gin.Context) {
	p, ok := listParams(c, services.IncidentSpec)
	if !ok {
		return
	}
	f := services.IncidentFilter{
		PollingStationID: c.Query("pollingStationId"),
		IncidentType:     c.Query("incidentType"),
		Severity:         c.Query("severity"),
		IsResolved:       query.OptionalBool(c.Request.URL.Query(), "isResolved"),
	}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *IncidentController) Get(c *gin.Context) {
	incident, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"incident": incident})
}

func (h *IncidentController) Create(c *gin.Context) {
	var in services.IncidentInput
	if !Bind(c, &in) {
		return
	}
	incident, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, incident.ID, nil, incident)
	response.Created(c, "Incident reported successfully", gin.H{"incident": incident})
}

func (h *IncidentController) Update(c *gin.Context) {
	var in services.IncidentInput
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "Incident updated successfully", gin.H{"incident": after})
}

func (h *IncidentController) Resolve(c *gin.Context) {
	incident, err := h.svc.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, incident.ID, gin.H{"isResolved": false}, gin.H{"isResolved": true})
	response.OKMessage(c, "Incident resolved successfully", gin.H{"incident": incident})
}
