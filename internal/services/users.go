package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	"github.com/saxenaaman628/election-observer/internal/query"
	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

const duplicateUserMsg = "User with this email, username, or IMEI already exists"

type UserInput struct {
	Email       string      `json:"email" binding:"required,email,max=255"`
	Username    string      `json:"username" binding:"required,alphanum,min=3,max=30"`
	Password    string      `json:"password" binding:"required,min=8,max=128"`
	FirstName   string      `json:"firstName" binding:"required,min=1,max=50"`
	LastName    string      `json:"lastName" binding:"required,min=1,max=50"`
	PhoneNumber *string     `json:"phoneNumber" binding:"omitempty,max=30"`
	IMEI        *string     `json:"imei" binding:"omitempty,len=15,numeric"`
	Role        models.Role `json:"role" binding:"required"`
}

type UserUpdate struct {
	Email       *string      `json:"email" binding:"omitempty,email,max=255"`
	Username    *string      `json:"username" binding:"omitempty,alphanum,min=3,max=30"`
	FirstName   *string      `json:"firstName" binding:"omitempty,min=1,max=50"`
	LastName    *string      `json:"lastName" binding:"omitempty,min=1,max=50"`
	PhoneNumber *string      `json:"phoneNumber" binding:"omitempty,max=30"`
	IMEI        *string      `json:"imei" binding:"omitempty,len=15,numeric"`
	Role        *models.Role `json:"role"`
	IsActive    *bool        `json:"isActive"`
}

type UserFilter struct {
	Role     string
	IsActive *bool
}

func (f UserFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.Role != "" {
		tx = tx.Where("users.role = ?", f.Role)
	}
	if f.IsActive != nil {
		tx = tx.Where("users.is_active = ?", *f.IsActive)
	}
	return tx
}

type RoleCount struct {
	Role  models.Role `json:"role"`
	Count int64       `json:"count"`
}

type UserOverview struct {
	TotalUsers    int64         `json:"totalUsers"`
	ActiveUsers   int64         `json:"activeUsers"`
	InactiveUsers int64         `json:"inactiveUsers"`
	UsersByRole   []RoleCount   `json:"usersByRole"`
	RecentUsers   []models.User `json:"recentUsers"`
}

type UserService struct {
	db       *gorm.DB
	sessions *redishandler.RefreshTokenStore
	cost     int
}

func NewUserService(db *gorm.DB, sessions *redishandler.RefreshTokenStore, bcryptCost int) *UserService {
	return &UserService{db: db, sessions: sessions, cost: bcryptCost}
}

func (s *UserService) List(ctx context.Context, p query.Params, f UserFilter) (*query.Page[models.User], error) {
	return query.Run[models.User](ctx, s.db, p, f.scope, nil)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return findByID[models.User](ctx, s.db, id, "User not found")
}

func (s *UserService) Overview(ctx context.Context) (*UserOverview, error) {
	out := UserOverview{UsersByRole: []RoleCount{}, RecentUsers: []models.User{}}
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)
	g.Go(func() error { return db.Model(&models.User{}).Count(&out.TotalUsers).Error })
	g.Go(func() error {
		return db.Model(&models.User{}).Where("is_active = ?", true).Count(&out.ActiveUsers).Error
	})
	g.Go(func() error {
		return db.Model(&models.User{}).Where("is_active = ?", false).Count(&out.InactiveUsers).Error
	})
	g.Go(func() error {
		return db.Model(&models.User{}).
			Select("role, COUNT(*) AS count").
			Group("role").
			Order("role").
			Scan(&out.UsersByRole).Error
	})
	g.Go(func() error {
		return db.Order("created_at DESC").Limit(5).Find(&out.RecentUsers).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// identityTaken reports whether another user already holds any of the given
// email, username or IMEI values. Empty values are skipped.
func (s *UserService) identityTaken(ctx context.Context, excludeID, email, username string, imei *string) (bool, error) {
	var conds []string
	var args []any
	if email != "" {
		conds = append(conds, "email = ?")
		args = append(args, email)
	}
	if username != "" {
		conds = append(conds, "username = ?")
		args = append(args, username)
	}
	if imei != nil && *imei != "" {
		conds = append(conds, "imei = ?")
		args = append(args, *imei)
	}
	if len(conds) == 0 {
		return false, nil
	}
	tx := s.db.WithContext(ctx).Model(&models.User{}).Where("("+strings.Join(conds, " OR ")+")", args...)
	if excludeID != "" {
		tx = tx.Where("id <> ?", excludeID)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, apperr.BadRequest("Invalid role: %s", in.Role)
	}
	if in.IMEI != nil && *in.IMEI == "" {
		in.IMEI = nil
	}
	taken, err := s.identityTaken(ctx, "", in.Email, in.Username, in.IMEI)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict(duplicateUserMsg)
	}
	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to hash password")
	}
	user := models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		IMEI:         in.IMEI,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, writeErr(err, duplicateUserMsg)
	}
	return &user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UserUpdate) (before, after *models.User, err error) {
	before, err = s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, nil, apperr.BadRequest("Invalid role: %s", *in.Role)
	}
	var email, username string
	if in.Email != nil {
		email = *in.Email
	}
	if in.Username != nil {
		username = *in.Username
	}
	taken, err := s.identityTaken(ctx, id, email, username, in.IMEI)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, apperr.Conflict(duplicateUserMsg)
	}

	changes := map[string]any{}
	if in.Email != nil {
		changes["email"] = *in.Email
	}
	if in.Username != nil {
		changes["username"] = *in.Username
	}
	if in.FirstName != nil {
		changes["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		changes["last_name"] = *in.LastName
	}
	if in.PhoneNumber != nil {
		changes["phone_number"] = *in.PhoneNumber
	}
	if in.IMEI != nil {
		if *in.IMEI == "" {
			changes["imei"] = nil
		} else {
			changes["imei"] = *in.IMEI
		}
	}
	if in.Role != nil {
		changes["role"] = *in.Role
	}
	if in.IsActive != nil {
		changes["is_active"] = *in.IsActive
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, nil, writeErr(err, duplicateUserMsg)
		}
	}
	if in.IsActive != nil && !*in.IsActive {
		s.revoke(ctx, id)
	}
	after, err = s.Get(ctx, id)
	return before, after, err
}

// SetPassword replaces the password without checking the old one and revokes
// every refresh token of the user.
func (s *UserService) SetPassword(ctx context.Context, id, password string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return apperr.Internal(err, "Failed to hash password")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash).Error; err != nil {
		return err
	}
	s.revoke(ctx, id)
	return nil
}

func (s *UserService) Activate(ctx context.Context, id string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive {
		return nil, apperr.BadRequest("User is already active")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", true).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *UserService) Deactivate(ctx context.Context, actorID, id string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.BadRequest("User is already inactive")
	}
	if actorID == id {
		return nil, apperr.BadRequest("Cannot deactivate your own account")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	s.revoke(ctx, id)
	return s.Get(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, actorID, id string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID == id {
		return nil, apperr.BadRequest("Cannot delete your own account")
	}
	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return nil, writeErr(err, "User is referenced by other records")
	}
	s.revoke(ctx, id)
	return user, nil
}

func (s *UserService) BulkActivate(ctx context.Context, ids []string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ? AND is_active = ?", ids, false).
		Update("is_active", true)
	return res.RowsAffected, res.Error
}

// BulkDeactivate never touches the caller's own account.
func (s *UserService) BulkDeactivate(ctx context.Context, actorID string, ids []string) (int64, error) {
	targets := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != actorID {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}
	var affected []string
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ? AND is_active = ?", targets, true).
		Pluck("id", &affected).Error
	if err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ? AND is_active = ?", targets, true).
		Update("is_active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	for _, id := range affected {
		s.revoke(ctx, id)
	}
	return res.RowsAffected, nil
}

// revoke drops refresh tokens; a failing token store does not fail the
// account change that triggered it.
func (s *UserService) revoke(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	_, _ = s.sessions.DeleteAllForUser(ctx, userID)
}
