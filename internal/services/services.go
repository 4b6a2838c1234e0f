// Package services holds the data-access and business rules behind every
// HTTP operation. Each service is built around an injected *gorm.DB.
package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/config"
	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/importer"
	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

type Services struct {
	Auth           *AuthService
	Users          *UserService
	Counties       *CountyService
	Constituencies *ConstituencyService
	Wards          *WardService
	Stations       *StationService
	Candidates     *CandidateService
	Results        *ResultService
	Incidents      *IncidentService
	Audit          *AuditService
	Stats          *StatsService
	Imports        *ImportService
}

type Deps struct {
	DB       *gorm.DB
	Log      *zap.Logger
	Cache    redishandler.Cache
	Tokens   *utils.TokenManager
	Sessions *redishandler.RefreshTokenStore
	Config   *config.Config
}

func New(d Deps) *Services {
	stats := NewStatsService(d.DB, d.Cache, d.Config.Cache.StatsTTL)
	users := NewUserService(d.DB, d.Sessions, d.Config.BcryptCost)
	return &Services{
		Auth:           NewAuthService(d.DB, d.Tokens, d.Sessions, users, d.Log),
		Users:          users,
		Counties:       NewCountyService(d.DB),
		Constituencies: NewConstituencyService(d.DB, stats),
		Wards:          NewWardService(d.DB),
		Stations:       NewStationService(d.DB),
		Candidates:     NewCandidateService(d.DB),
		Results:        NewResultService(d.DB),
		Incidents:      NewIncidentService(d.DB),
		Audit:          NewAuditService(d.DB, d.Log),
		Stats:          stats,
		Imports: NewImportService(d.DB,
			importer.NewReconciler(d.DB, d.Log, d.Config.Import.BatchSize, d.Config.Import.Workers), stats),
	}
}

// findByID loads one T or answers 404 with notFound.
func findByID[T any](ctx context.Context, db *gorm.DB, id, notFound string, preload ...string) (*T, error) {
	tx := db.WithContext(ctx)
	for _, p := range preload {
		tx = tx.Preload(p)
	}
	var out T
	if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("%s", notFound)
		}
		return nil, err
	}
	return &out, nil
}

func exists(ctx context.Context, db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func countWhere(ctx context.Context, db *gorm.DB, model any, query string, args ...any) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(model).Where(query, args...).Count(&n).Error
	return n, err
}

// writeErr maps constraint violations raised by a write onto 409.
func writeErr(err error, conflict string) error {
	switch {
	case err == nil:
		return nil
	case apperr.IsUniqueViolation(err):
		return apperr.Conflict("%s", conflict)
	case apperr.IsForeignKeyViolation(err):
		return apperr.Conflict("Operation violates a relation constraint")
	}
	return err
}

func isTrue(b *bool) bool { return b != nil && *b }
