package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	"github.com/saxenaaman628/election-observer/internal/query"
)

// Entry is one mutating action to be recorded.
type Entry struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	OldValues  any
	NewValues  any
	IPAddress  string
	UserAgent  string
}

type AuditFilter struct {
	UserID     string
	Action     string
	EntityType string
	Start      *time.Time
	End        *time.Time
}

func (f AuditFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.UserID != "" {
		tx = tx.Where("audit_logs.user_id = ?", f.UserID)
	}
	if f.Action != "" {
		tx = tx.Where("audit_logs.action = ?", f.Action)
	}
	if f.EntityType != "" {
		tx = tx.Where("audit_logs.entity_type = ?", f.EntityType)
	}
	if f.Start != nil {
		tx = tx.Where("audit_logs.created_at >= ?", *f.Start)
	}
	if f.End != nil {
		tx = tx.Where("audit_logs.created_at <= ?", *f.End)
	}
	return tx
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. An empty
// string yields nil.
func ParseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.BadRequest("Query validation error: %s must be a date", field)
}

type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

type EntityCount struct {
	EntityType string `json:"entityType"`
	Count      int64  `json:"count"`
}

type UserActivity struct {
	UserID string       `json:"userId"`
	Count  int64        `json:"count"`
	User   *models.User `json:"user,omitempty" gorm:"-"`
}

type AuditStats struct {
	TotalLogs   int64             `json:"totalLogs"`
	ActionStats []ActionCount     `json:"actionStats"`
	EntityStats []EntityCount     `json:"entityStats"`
	UserStats   []UserActivity    `json:"userStats"`
	RecentLogs  []models.AuditLog `json:"recentLogs"`
}

type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAuditService(db *gorm.DB, log *zap.Logger) *AuditService {
	return &AuditService{db: db, log: log}
}

func marshalValues(v any) *string {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return nil
	}
	s := string(raw)
	return &s
}

// Record appends an audit row. Failures are logged and never returned; the
// action being audited has already happened.
func (s *AuditService) Record(ctx context.Context, e Entry) {
	row := models.AuditLog{
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		OldValues:  marshalValues(e.OldValues),
		NewValues:  marshalValues(e.NewValues),
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}
	if e.EntityID != "" {
		id := e.EntityID
		row.EntityID = &id
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.Error(err))
	}
}

func auditRefs(tx *gorm.DB) *gorm.DB {
	return tx.Preload("User")
}

func (s *AuditService) List(ctx context.Context, p query.Params, f AuditFilter) (*query.Page[models.AuditLog], error) {
	return query.Run[models.AuditLog](ctx, s.db, p, f.scope, auditRefs)
}

func (s *AuditService) Get(ctx context.Context, id string) (*models.AuditLog, error) {
	return findByID[models.AuditLog](ctx, s.db, id, "Audit log not found", "User")
}

func (s *AuditService) Stats(ctx context.Context, f AuditFilter) (*AuditStats, error) {
	out := AuditStats{
		ActionStats: []ActionCount{},
		EntityStats: []EntityCount{},
		UserStats:   []UserActivity{},
		RecentLogs:  []models.AuditLog{},
	}
	base := func(db *gorm.DB) *gorm.DB {
		return f.scope(db.Model(&models.AuditLog{}))
	}
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)
	g.Go(func() error { return base(db).Count(&out.TotalLogs).Error })
	g.Go(func() error {
		return base(db).Select("action, COUNT(*) AS count").
			Group("action").Order("count DESC, action").Scan(&out.ActionStats).Error
	})
	g.Go(func() error {
		return base(db).Select("entity_type, COUNT(*) AS count").
			Group("entity_type").Order("count DESC, entity_type").Scan(&out.EntityStats).Error
	})
	g.Go(func() error {
		return base(db).Select("user_id, COUNT(*) AS count").
			Group("user_id").Order("count DESC, user_id").Limit(10).Scan(&out.UserStats).Error
	})
	g.Go(func() error {
		return f.scope(db).Preload("User").Order("created_at DESC").Limit(10).Find(&out.RecentLogs).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(out.UserStats) > 0 {
		ids := make([]string, len(out.UserStats))
		for i, u := range out.UserStats {
			ids[i] = u.UserID
		}
		var users []models.User
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		byID := make(map[string]*models.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		for i := range out.UserStats {
			out.UserStats[i].User = byID[out.UserStats[i].UserID]
		}
	}
	return &out, nil
}
