package controller

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/importer"
	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/response"
	"github.com/saxenaaman628/election-observer/internal/services"
)

const uploadField = "csv"

type ImportController struct {
	svc      *services.ImportService
	maxBytes int64
}

func NewImportController(svc *services.ImportService, maxBytes int64) *ImportController {
	return &ImportController{svc: svc, maxBytes: maxBytes}
}

type hierarchicalRequest struct {
	PollingStations []importer.Row `json:"pollingStations" binding:"required"`
}

func (h *ImportController) Hierarchical(c *gin.Context) {
	var req hierarchicalRequest
	if !Bind(c, &req) {
		return
	}
	// the import keeps going if the client disconnects
	sum, err := h.svc.Hierarchical(context.WithoutCancel(c.Request.Context()), req.PollingStations)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, "", nil, sum)
	response.OKMessage(c, fmt.Sprintf("Processed %d polling stations", sum.Total), sum)
}

func (h *ImportController) openUpload(c *gin.Context) (*multipart.FileHeader, multipart.File, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			_ = c.Error(apperr.New(http.StatusRequestEntityTooLarge, "File too large. Maximum upload size is %d MB", h.maxBytes>>20))
			return nil, nil, false
		}
		_ = c.Error(apperr.BadRequest("No file uploaded. Send a .csv or .xlsx file in the %q field", uploadField))
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(apperr.Internal(err, "Failed to read uploaded file"))
		return nil, nil, false
	}
	return fh, f, true
}

func (h *ImportController) Preview(c *gin.Context) {
	fh, f, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer f.Close()
	preview, err := h.svc.Preview(fh.Filename, f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OKMessage(c, "File parsed successfully", preview)
}

func (h *ImportController) ImportFile(c *gin.Context) {
	fh, f, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer f.Close()
	sum, err := h.svc.ImportFile(context.WithoutCancel(c.Request.Context()), fh.Filename, f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, "", nil, gin.H{"filename": fh.Filename, "summary": sum})
	response.OKMessage(c, fmt.Sprintf("Processed %d polling stations", sum.Total), sum)
}

func (h *ImportController) Template(c *gin.Context) {
	buf, err := importer.Template()
	if err != nil {
		_ = c.Error(apperr.Internal(err, "Failed to build template"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", importer.TemplateFilename))
	c.Data(http.StatusOK, importer.TemplateContentType, buf.Bytes())
}

func (h *ImportController) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, status)
}
