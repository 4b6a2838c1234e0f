package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/models"
	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
)

type HierarchyStats struct {
	TotalCounties         int64 `json:"totalCounties"`
	TotalConstituencies   int64 `json:"totalConstituencies"`
	TotalWards            int64 `json:"totalWards"`
	TotalPollingStations  int64 `json:"totalPollingStations"`
	TotalRegisteredVoters int64 `json:"totalRegisteredVoters"`
}

type CountyCount struct {
	CountyID string `json:"countyId"`
	Count    int64  `json:"count"`
}

type ConstituencyStats struct {
	TotalCount          int64         `json:"totalCount"`
	ByCounty            []CountyCount `json:"byCounty"`
	WardCount           int64         `json:"wardCount"`
	PollingStationCount int64         `json:"pollingStationCount"`
	RegisteredVoters    int64         `json:"registeredVoters"`
}

type UploadStatus struct {
	Counties           int64 `json:"counties"`
	Constituencies     int64 `json:"constituencies"`
	Wards              int64 `json:"wards"`
	PollingStations    int64 `json:"pollingStations"`
	VoterRegistrations int64 `json:"voterRegistrations"`
}

type StatsService struct {
	db    *gorm.DB
	cache redishandler.Cache
	ttl   time.Duration
}

func NewStatsService(db *gorm.DB, cache redishandler.Cache, ttl time.Duration) *StatsService {
	return &StatsService{db: db, cache: cache, ttl: ttl}
}

// activeVoters sums active registrations, optionally narrowed by scope on
// the polling_stations table.
func activeVoters(ctx context.Context, db *gorm.DB, stationScope func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	tx := db.WithContext(ctx).Model(&models.VoterRegistration{}).
		Select("COALESCE(SUM(voter_registrations.registered_voters), 0)").
		Where("voter_registrations.is_active = ?", true)
	if stationScope != nil {
		sub := stationScope(db.WithContext(ctx).Model(&models.PollingStation{}).Select("polling_stations.id"))
		tx = tx.Where("voter_registrations.polling_station_id IN (?)", sub)
	}
	err := tx.Scan(&total).Error
	return total, err
}

// Hierarchy is cached for the configured TTL.
func (s *StatsService) Hierarchy(ctx context.Context) (*HierarchyStats, error) {
	return redishandler.GetOrLoad(ctx, s.cache, redishandler.HierarchyStatsKey, s.ttl, s.loadHierarchy)
}

func (s *StatsService) loadHierarchy(ctx context.Context) (*HierarchyStats, error) {
	var out HierarchyStats
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)
	g.Go(func() error { return db.Model(&models.County{}).Count(&out.TotalCounties).Error })
	g.Go(func() error { return db.Model(&models.Constituency{}).Count(&out.TotalConstituencies).Error })
	g.Go(func() error { return db.Model(&models.Ward{}).Count(&out.TotalWards).Error })
	g.Go(func() error { return db.Model(&models.PollingStation{}).Count(&out.TotalPollingStations).Error })
	g.Go(func() error {
		var err error
		out.TotalRegisteredVoters, err = activeVoters(gctx, s.db, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *StatsService) Constituencies(ctx context.Context, countyID, constituencyID string) (*ConstituencyStats, error) {
	key := redishandler.ConstituencyStatsKey + ":" + countyID + ":" + constituencyID
	return redishandler.GetOrLoad(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*ConstituencyStats, error) {
		return s.loadConstituencies(ctx, countyID, constituencyID)
	})
}

func (s *StatsService) loadConstituencies(ctx context.Context, countyID, constituencyID string) (*ConstituencyStats, error) {
	constituencies := func(tx *gorm.DB) *gorm.DB {
		if countyID != "" {
			tx = tx.Where("constituencies.county_id = ?", countyID)
		}
		if constituencyID != "" {
			tx = tx.Where("constituencies.id = ?", constituencyID)
		}
		return tx
	}
	ids := func() *gorm.DB {
		return constituencies(s.db.WithContext(ctx).Model(&models.Constituency{}).Select("constituencies.id"))
	}

	out := ConstituencyStats{ByCounty: []CountyCount{}}
	db := s.db.WithContext(ctx)
	if err := constituencies(db.Model(&models.Constituency{})).Count(&out.TotalCount).Error; err != nil {
		return nil, err
	}
	err := constituencies(db.Model(&models.Constituency{})).
		Select("constituencies.county_id AS county_id, COUNT(*) AS count").
		Group("constituencies.county_id").
		Order("constituencies.county_id").
		Scan(&out.ByCounty).Error
	if err != nil {
		return nil, err
	}
	if err := db.Model(&models.Ward{}).Where("constituency_id IN (?)", ids()).Count(&out.WardCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PollingStation{}).Where("constituency_id IN (?)", ids()).Count(&out.PollingStationCount).Error; err != nil {
		return nil, err
	}
	out.RegisteredVoters, err = activeVoters(ctx, s.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("polling_stations.constituency_id IN (?)", ids())
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Invalidate drops cached aggregates after bulk writes.
func (s *StatsService) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, redishandler.HierarchyStatsKey, redishandler.ConstituencyStatsKey+"::")
}

func (s *StatsService) UploadStatus(ctx context.Context) (*UploadStatus, error) {
	var out UploadStatus
	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)
	g.Go(func() error { return db.Model(&models.County{}).Count(&out.Counties).Error })
	g.Go(func() error { return db.Model(&models.Constituency{}).Count(&out.Constituencies).Error })
	g.Go(func() error { return db.Model(&models.Ward{}).Count(&out.Wards).Error })
	g.Go(func() error { return db.Model(&models.PollingStation{}).Count(&out.PollingStations).Error })
	g.Go(func() error { return db.Model(&models.VoterRegistration{}).Count(&out.VoterRegistrations).Error })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
