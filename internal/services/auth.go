package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/config"
	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Username string `json:"username" binding:"omitempty,min=3,max=30"`
	Password string `json:"password" binding:"required"`
	IMEI     string `json:"imei" binding:"omitempty,len=15,numeric"`
}

type LoginResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=128"`
}

type AuthService struct {
	db       *gorm.DB
	tokens   *utils.TokenManager
	sessions *redishandler.RefreshTokenStore
	users    *UserService
	log      *zap.Logger
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenManager, sessions *redishandler.RefreshTokenStore, users *UserService, log *zap.Logger) *AuthService {
	return &AuthService{db: db, tokens: tokens, sessions: sessions, users: users, log: log}
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Email == "" && req.Username == "" {
		return nil, apperr.BadRequest("Email or username is required")
	}
	tx := s.db.WithContext(ctx).Where("is_active = ?", true)
	switch {
	case req.Email != "" && req.Username != "":
		tx = tx.Where("(email = ? OR username = ?)", req.Email, req.Username)
	case req.Email != "":
		tx = tx.Where("email = ?", req.Email)
	default:
		tx = tx.Where("username = ?", req.Username)
	}
	var user models.User
	if err := tx.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if req.IMEI != "" && (user.IMEI == nil || *user.IMEI != req.IMEI) {
		return nil, apperr.Unauthorized("IMEI mismatch - device not registered")
	}

	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperr.Internal(err, "Failed to generate token")
	}
	refresh, tokenID, expiresAt, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to generate token")
	}
	err = s.sessions.Save(ctx, models.RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to store refresh token")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", now).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	s.log.Info("user logged in", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return &LoginResult{User: &user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh issues a new access token only; the refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", apperr.BadRequest("Refresh token required")
	}
	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil {
		return "", apperr.Unauthorized("Invalid refresh token")
	}
	stored, err := s.sessions.Find(ctx, claims.UserID, claims.ID)
	if err != nil {
		if errors.Is(err, redishandler.ErrTokenNotFound) {
			return "", apperr.Unauthorized("Invalid or expired refresh token")
		}
		return "", apperr.Internal(err, "Failed to read refresh token")
	}
	if stored.Token != raw || !stored.ExpiresAt.After(time.Now()) {
		return "", apperr.Unauthorized("Invalid or expired refresh token")
	}
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return "", apperr.Unauthorized("Invalid or expired refresh token")
	}
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", apperr.Internal(err, "Failed to generate token")
	}
	return access, nil
}

// Logout deletes the presented refresh token when it belongs to userID.
// Unparseable tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, userID, raw string) error {
	if raw == "" {
		return nil
	}
	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil || claims.UserID != userID {
		return nil
	}
	return s.sessions.Delete(ctx, userID, claims.ID)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return apperr.BadRequest("Current password is incorrect")
	}
	if err := s.users.SetPassword(ctx, userID, req.NewPassword); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", userID))
	return nil
}

// EnsureAdmin creates a SUPER_ADMIN from the bootstrap settings when the users
// table is empty. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, b config.BootstrapConfig) (bool, error) {
	if b.AdminEmail == "" || b.AdminPassword == "" {
		return false, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	username := b.AdminUsername
	if username == "" {
		username = "admin"
	}
	user, err := s.users.Create(ctx, UserInput{
		Email:     b.AdminEmail,
		Username:  username,
		Password:  b.AdminPassword,
		FirstName: "System",
		LastName:  "Administrator",
		Role:      models.RoleSuperAdmin,
	})
	if err != nil {
		return false, err
	}
	s.log.Info("bootstrap admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return true, nil
}
