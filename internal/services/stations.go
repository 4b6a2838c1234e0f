package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	"github.com/saxenaaman628/election-observer/internal/query"
)

type StationInput struct {
	Code           string   `json:"code" binding:"required,max=32"`
	Name           string   `json:"name" binding:"required,max=255"`
	ConstituencyID string   `json:"constituencyId" binding:"required"`
	WardID         string   `json:"wardId" binding:"required"`
	Address        *string  `json:"address" binding:"omitempty,max=500"`
	Latitude       *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude      *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

type StationUpdate struct {
	Code           *string  `json:"code" binding:"omitempty,min=1,max=32"`
	Name           *string  `json:"name" binding:"omitempty,min=1,max=255"`
	ConstituencyID *string  `json:"constituencyId" binding:"omitempty,min=1"`
	WardID         *string  `json:"wardId" binding:"omitempty,min=1"`
	Address        *string  `json:"address" binding:"omitempty,max=500"`
	Latitude       *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude      *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	IsActive       *bool    `json:"isActive"`
}

type RegistrationInput struct {
	RegisteredVoters *int   `json:"registeredVoters" binding:"required,min=0"`
	Source           string `json:"source" binding:"omitempty,max=100"`
}

type StationFilter struct {
	ConstituencyID string
	WardID         string
	CountyID       string
	// nil lists active stations only
	IsActive *bool
}

func (f StationFilter) scope(tx *gorm.DB) *gorm.DB {
	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}
	tx = tx.Where("polling_stations.is_active = ?", active)
	if f.ConstituencyID != "" {
		tx = tx.Where("polling_stations.constituency_id = ?", f.ConstituencyID)
	}
	if f.WardID != "" {
		tx = tx.Where("polling_stations.ward_id = ?", f.WardID)
	}
	if f.CountyID != "" {
		tx = tx.Where("polling_stations.constituency_id IN (SELECT id FROM constituencies WHERE county_id = ?)", f.CountyID)
	}
	return tx
}

// StationDetail is a station with its active registration and activity.
type StationDetail struct {
	models.PollingStation
	ActiveRegistration *models.VoterRegistration `json:"activeRegistration"`
}

type StationService struct {
	db *gorm.DB
}

func NewStationService(db *gorm.DB) *StationService {
	return &StationService{db: db}
}

func stationRefs(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Constituency.County").Preload("Ward")
}

func (s *StationService) List(ctx context.Context, p query.Params, f StationFilter) (*query.Page[models.PollingStation], error) {
	return query.Run[models.PollingStation](ctx, s.db, p, f.scope, stationRefs)
}

func (s *StationService) Get(ctx context.Context, id string) (*StationDetail, error) {
	st, err := findByID[models.PollingStation](ctx, s.db, id, "Polling station not found",
		"Constituency.County", "Ward", "ElectionResults.Candidate", "Incidents")
	if err != nil {
		return nil, err
	}
	reg, err := ActiveRegistration(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	st.ElectionResultCount = int64(len(st.ElectionResults))
	st.IncidentCount = int64(len(st.Incidents))
	st.VoterRegistrationCount, err = countWhere(ctx, s.db, &models.VoterRegistration{}, "polling_station_id = ?", id)
	if err != nil {
		return nil, err
	}
	return &StationDetail{PollingStation: *st, ActiveRegistration: reg}, nil
}

// ActiveRegistration returns the newest active registration of a station, or
// nil when there is none.
func ActiveRegistration(ctx context.Context, db *gorm.DB, stationID string) (*models.VoterRegistration, error) {
	var reg models.VoterRegistration
	err := db.WithContext(ctx).
		Where("polling_station_id = ? AND is_active = ?", stationID, true).
		Order("created_at DESC").
		First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// checkPlacement enforces that the ward belongs to the constituency.
func (s *StationService) checkPlacement(ctx context.Context, constituencyID, wardID string) error {
	ok, err := exists(ctx, s.db, &models.Constituency{}, "id = ?", constituencyID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Constituency not found")
	}
	ok, err = exists(ctx, s.db, &models.Ward{}, "id = ? AND constituency_id = ?", wardID, constituencyID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest("Ward not found or does not belong to the constituency")
	}
	return nil
}

func (s *StationService) Create(ctx context.Context, in StationInput) (*models.PollingStation, error) {
	if err := s.checkPlacement(ctx, in.ConstituencyID, in.WardID); err != nil {
		return nil, err
	}
	taken, err := exists(ctx, s.db, &models.PollingStation{}, "code = ?", in.Code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Polling station with this code already exists")
	}
	st := models.PollingStation{
		Code:           in.Code,
		Name:           in.Name,
		ConstituencyID: in.ConstituencyID,
		WardID:         in.WardID,
		Address:        in.Address,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		IsActive:       true,
	}
	if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
		return nil, writeErr(err, "Polling station with this code already exists")
	}
	return findByID[models.PollingStation](ctx, s.db, st.ID, "Polling station not found", "Constituency.County", "Ward")
}

// Update validates the placement of the merged record, not just the fields sent.
func (s *StationService) Update(ctx context.Context, id string, in StationUpdate) (before, after *models.PollingStation, err error) {
	before, err = findByID[models.PollingStation](ctx, s.db, id, "Polling station not found")
	if err != nil {
		return nil, nil, err
	}
	changes := map[string]any{}
	constituencyID, wardID := before.ConstituencyID, before.WardID
	if in.ConstituencyID != nil {
		constituencyID = *in.ConstituencyID
		changes["constituency_id"] = constituencyID
	}
	if in.WardID != nil {
		wardID = *in.WardID
		changes["ward_id"] = wardID
	}
	if in.ConstituencyID != nil || in.WardID != nil {
		if err := s.checkPlacement(ctx, constituencyID, wardID); err != nil {
			return nil, nil, err
		}
	}
	if in.Code != nil {
		taken, err := exists(ctx, s.db, &models.PollingStation{}, "code = ? AND id <> ?", *in.Code, id)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, apperr.Conflict("Polling station with this code already exists")
		}
		changes["code"] = *in.Code
	}
	if in.Name != nil {
		changes["name"] = *in.Name
	}
	if in.Address != nil {
		changes["address"] = *in.Address
	}
	if in.Latitude != nil {
		changes["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		changes["longitude"] = *in.Longitude
	}
	if in.IsActive != nil {
		changes["is_active"] = *in.IsActive
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.PollingStation{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, nil, writeErr(err, "Polling station with this code already exists")
		}
	}
	after, err = findByID[models.PollingStation](ctx, s.db, id, "Polling station not found", "Constituency.County", "Ward")
	return before, after, err
}

// Delete deactivates the station; results and incidents keep pointing at it.
func (s *StationService) Delete(ctx context.Context, id string) (*models.PollingStation, error) {
	st, err := findByID[models.PollingStation](ctx, s.db, id, "Polling station not found")
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.PollingStation{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return st, nil
}

// AddRegistration appends a snapshot and retires the previous active ones.
func (s *StationService) AddRegistration(ctx context.Context, stationID string, in RegistrationInput) (*models.VoterRegistration, error) {
	if _, err := findByID[models.PollingStation](ctx, s.db, stationID, "Polling station not found"); err != nil {
		return nil, err
	}
	source := in.Source
	if source == "" {
		source = "Manual Entry"
	}
	reg := models.VoterRegistration{
		PollingStationID: stationID,
		RegisteredVoters: *in.RegisteredVoters,
		Source:           source,
		IsActive:         true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VoterRegistration{}).
			Where("polling_station_id = ? AND is_active = ?", stationID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(&reg).Error
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *StationService) Registrations(ctx context.Context, stationID string) ([]models.VoterRegistration, error) {
	if _, err := findByID[models.PollingStation](ctx, s.db, stationID, "Polling station not found"); err != nil {
		return nil, err
	}
	regs := []models.VoterRegistration{}
	err := s.db.WithContext(ctx).
		Where("polling_station_id = ?", stationID).
		Order("created_at DESC").
		Find(&regs).Error
	return regs, err
}
