package api

import (
	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/controller"
	"github.com/saxenaaman628/election-observer/internal/middleware"
	"github.com/saxenaaman628/election-observer/internal/response"
	"github.com/saxenaaman628/election-observer/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !controller.Bind(c, &req) {
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OKMessage(c, "Login successful", res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !controller.Bind(c, &req) {
		return
	}
	token, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OKMessage(c, "Token refreshed successfully", gin.H{"accessToken": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	// the body is optional here
	_ = c.ShouldBindJSON(&req)
	if err := h.auth.Logout(c.Request.Context(), middleware.UserID(c), req.RefreshToken); err != nil {
		_ = c.Error(err)
		return
	}
	response.OKMessage(c, "Logout successful", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if !controller.Bind(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), middleware.UserID(c), req); err != nil {
		_ = c.Error(err)
		return
	}
	response.OKMessage(c, "Password changed successfully", nil)
}
