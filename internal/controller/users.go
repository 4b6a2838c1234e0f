package controller

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/query"
	"github.com/saxenaaman628/election-observer/internal/response"
	"github.com/saxenaaman628/election-observer/internal/services"
)

type UserController struct {
	svc *services.UserService
}

func NewUserController(svc *services.UserService) *UserController {
	return &UserController{svc: svc}
}

func (h *UserController) List(c *gin.Context) {
	p, ok := listParams(c, services.UserSpec)
	if !ok {
		return
	}
	f := services.UserFilter{
		Role:     c.Query("role"),
		IsActive: query.OptionalBool(c.Request.URL.Query(), "isActive"),
	}
	page, err := h.svc.List(c.Request.Context(), p, f)
	writePage(c, page, p, err)
}

func (h *UserController) Overview(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, overview)
}

func (h *UserController) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

// Create also serves POST /api/auth/register.
func (h *UserController) Create(c *gin.Context) {
	var in services.UserInput
	if !Bind(c, &in) {
		return
	}
	user, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, user.ID, nil, user)
	response.Created(c, "User created successfully", gin.H{"user": user})
}

func (h *UserController) Update(c *gin.Context) {
	var in services.UserUpdate
	if !Bind(c, &in) {
		return
	}
	before, after, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, after.ID, before, after)
	response.OKMessage(c, "User updated successfully", gin.H{"user": after})
}

type setPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=8,max=128"`
}

func (h *UserController) ChangePassword(c *gin.Context) {
	var req setPasswordRequest
	if !Bind(c, &req) {
		return
	}
	if err := h.svc.SetPassword(c.Request.Context(), c.Param("id"), req.NewPassword); err != nil {
		_ = c.Error(err)
		return
	}
	response.OKMessage(c, "Password changed successfully", nil)
}

func (h *UserController) Activate(c *gin.Context) {
	user, err := h.svc.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, user.ID, gin.H{"isActive": false}, gin.H{"isActive": true})
	response.OKMessage(c, "User activated successfully", gin.H{"user": user})
}

func (h *UserController) Deactivate(c *gin.Context) {
	user, err := h.svc.Deactivate(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, user.ID, gin.H{"isActive": true}, gin.H{"isActive": false})
	response.OKMessage(c, "User deactivated successfully", gin.H{"user": user})
}

func (h *UserController) Delete(c *gin.Context) {
	user, err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, user.ID, user, nil)
	response.OKMessage(c, "User deleted successfully", nil)
}

func (h *UserController) BulkActivate(c *gin.Context) {
	var req IDsRequest
	if !Bind(c, &req) {
		return
	}
	n, err := h.svc.BulkActivate(c.Request.Context(), req.UserIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, "", nil, gin.H{"userIds": req.UserIDs, "isActive": true})
	response.OKMessage(c, fmt.Sprintf("%d users activated successfully", n), gin.H{"count": n})
}

func (h *UserController) BulkDeactivate(c *gin.Context) {
	var req IDsRequest
	if !Bind(c, &req) {
		return
	}
	n, err := h.svc.BulkDeactivate(c.Request.Context(), middleware.UserID(c), req.UserIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditValues(c, "", nil, gin.H{"userIds": req.UserIDs, "isActive": false})
	response.OKMessage(c, fmt.Sprintf("%d users deactivated successfully", n), gin.H{"count": n})
}
