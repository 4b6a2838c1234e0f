package controller

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/response"
	"github.com/saxenaaman628/election-observer/internal/services"
)

type CountyController struct {
	svc   *services.CountyService
	stats *services.StatsService
}

func NewCountyController(svc *services.CountyService, stats *services.StatsService) *CountyController {
	return &CountyController{svc: svc, stats: stats}
}

func (h *CountyController) List(c *gin.Context) {
	p, ok := listParams(c, services.CountySpec)
	if !ok {
		return
	}
	page, err := h.svc.List(c.Request.Context(), p)
	writePage(c, page, p, err)
}

func (h *CountyController) Get(c *gin.Context) {
	county, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"county": county})
}

func (h *CountyController) Create(c *gin.Context) {
	var in services.CountyInput
	if !Bind(c, &in) {
		return
	}
	county, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, county.ID, nil, county)
	response.Created(c, "County created successfully", gin.H{"county": county})
}

func (h *CountyController) Update(c *gin.Context) {
	var in services.CountyUpdate
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "County updated successfully", gin.H{"county": after})
}

func (h *CountyController) Delete(c *gin.Context) {
	county, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, county.ID, county, nil)
	response.OKMessage(c, "County deleted successfully", nil)
}

type countyBulkRequest struct {
	Counties []services.CountyInput `json:"counties" binding:"required,min=1,dive"`
}

func (h *CountyController) BulkImport(c *gin.Context) {
	var req countyBulkRequest
	if !Bind(c, &req) {
		return
	}
	n, err := h.svc.BulkImport(c.Request.Context(), req.Counties)
	if err != nil {
		_ = c.Error(err)
		return
	}
	_ = h.stats.Invalidate(c.Request.Context())
	middleware.SetAuditValues(c, "", nil, gin.H{"count": n})
	response.Created(c, fmt.Sprintf("%d counties imported successfully", n), gin.H{"count": n})
}

type ConstituencyController struct {
	svc   *services.ConstituencyService
	stats *services.StatsService
}

func NewConstituencyController(svc *services.ConstituencyService, stats *services.StatsService) *ConstituencyController {
	return &ConstituencyController{svc: svc, stats: stats}
}

func (h *ConstituencyController) List(c *gin.Context) {
	p, ok := listParams(c, services.ConstituencySpec)
	if !ok {
		return
	}
	f := services.ConstituencyFilter{CountyID: c.Query("countyId")}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *ConstituencyController) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Query("countyId"), c.Query("constituencyId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, stats)
}

func (h *ConstituencyController) Get(c *gin.Context) {
	constituency, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"constituency": constituency})
}

func (h *ConstituencyController) Create(c *gin.Context) {
	var in services.ConstituencyInput
	if !Bind(c, &in) {
		return
	}
	constituency, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, constituency.ID, nil, constituency)
	response.Created(c, "Constituency created successfully", gin.H{"constituency": constituency})
}

func (h *ConstituencyController) Update(c *gin.Context) {
	var in services.ConstituencyUpdate
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "Constituency updated successfully", gin.H{"constituency": after})
}

func (h *ConstituencyController) Delete(c *gin.Context) {
	constituency, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, constituency.ID, constituency, nil)
	response.OKMessage(c, "Constituency deleted successfully", nil)
}

type constituencyBulkRequest struct {
	Constituencies []services.ConstituencyInput `json:"constituencies" binding:"required,min=1,dive"`
}

func (h *ConstituencyController) BulkImport(c *gin.Context) {
	var req constituencyBulkRequest
	if !Bind(c, &req) {
		return
	}
	n, err := h.svc.BulkImport(c.Request.Context(), req.Constituencies)
	if err != nil {
		_ = c.Error(err)
		return
	}
	_ = h.stats.Invalidate(c.Request.Context())
	middleware.SetAuditValues(c, "", nil, gin.H{"count": n})
	response.Created(c, fmt.Sprintf("%d constituencies imported successfully", n), gin.H{"count": n})
}

type WardController struct {
	svc   *services.WardService
	stats *services.StatsService
}

func NewWardController(svc *services.WardService, stats *services.StatsService) *WardController {
	return &WardController{svc: svc, stats: stats}
}

func (h *WardController) List(c *gin.Context) {
	p, ok := listParams(c, services.WardSpec)
	if !ok {
		return
	}
	f := services.WardFilter{ConstituencyID: c.Query("constituencyId"), CountyID: c.Query("countyId")}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *WardController) Get(c *gin.Context) {
	ward, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"ward": ward})
}

func (h *WardController) Create(c *gin.Context) {
	var in services.WardInput
	if !Bind(c, &in) {
		return
	}
	ward, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, ward.ID, nil, ward)
	response.Created(c, "Ward created successfully", gin.H{"ward": ward})
}

func (h *WardController) Update(c *gin.Context) {
	var in services.WardUpdate
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "Ward updated successfully", gin.H{"ward": after})
}

func (h *WardController) Delete(c *gin.Context) {
	ward, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, ward.ID, ward, nil)
	response.OKMessage(c, "Ward deleted successfully", nil)
}

type wardBulkRequest struct {
	Wards []services.WardInput `json:"wards" binding:"required,min=1,dive"`
}

func (h *WardController) BulkImport(c *gin.Context) {
	var req wardBulkRequest
	if !Bind(c, &req) {
		return
	}
	n, err := h.svc.BulkImport(c.Request.Context(), req.Wards)
	if err != nil {
		_ = c.Error(err)
		return
	}
	_ = h.stats.Invalidate(c.Request.Context())
	middleware.SetAuditValues(c, "", nil, gin.H{"count": n})
	response.Created(c, fmt.Sprintf("%d wards imported successfully", n), gin.H{"count": n})
}
