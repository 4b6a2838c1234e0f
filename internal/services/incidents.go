package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	"github.com/saxenaaman628/election-observer/internal/query"
)

var (
	incidentTypes = map[models.IncidentType]bool{
		models.Violence:          true,
		models.VoterIntimidation: true,
		models.EquipmentFailure:  true,
		models.Irregularity:      true,
		models.OtherIncident:     true,
	}
	severities = map[models.Severity]bool{
		models.SeverityLow:      true,
		models.SeverityMedium:   true,
		models.SeverityHigh:     true,
		models.SeverityCritical: true,
	}
)

type IncidentInput struct {
	PollingStationID string              `json:"pollingStationId" binding:"required"`
	Title            string              `json:"title" binding:"required,min=5,max=200"`
	Description      *string             `json:"description" binding:"omitempty,max=1000"`
	IncidentType     models.IncidentType `json:"incidentType" binding:"required"`
	Severity         models.Severity     `json:"severity" binding:"required"`
	Latitude         *float64            `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude        *float64            `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

func (in IncidentInput) validate() error {
	if !incidentTypes[in.IncidentType] {
		return apperr.BadRequest("Invalid incident type: %s", in.IncidentType)
	}
	if !severities[in.Severity] {
		return apperr.BadRequest("Invalid severity: %s", in.Severity)
	}
	return nil
}

type IncidentFilter struct {
	PollingStationID string
	IncidentType     string
	Severity         string
	IsResolved       *bool
}

func (f IncidentFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.PollingStationID != "" {
		tx = tx.Where("incidents.polling_station_id = ?", f.PollingStationID)
	}
	if f.IncidentType != "" {
		tx = tx.Where("incidents.incident_type = ?", f.IncidentType)
	}
	if f.Severity != "" {
		tx = tx.Where("incidents.severity = ?", f.Severity)
	}
	if f.IsResolved != nil {
		tx = tx.Where("incidents.is_resolved = ?", *f.IsResolved)
	}
	return tx
}

type IncidentService struct {
	db *gorm.DB
}

func NewIncidentService(db *gorm.DB) *IncidentService {
	return &IncidentService{db: db}
}

func incidentRefs(tx *gorm.DB) *gorm.DB {
	return tx.Preload("PollingStation").Preload("Reporter")
}

func (s *IncidentService) List(ctx context.Context, p query.Params, f IncidentFilter) (*query.Page[models.Incident], error) {
	return query.Run[models.Incident](ctx, s.db, p, f.scope, incidentRefs)
}

func (s *IncidentService) Get(ctx context.Context, id string) (*models.Incident, error) {
	return findByID[models.Incident](ctx, s.db, id, "Incident not found",
		"PollingStation.Constituency.County", "PollingStation.Ward", "Reporter")
}

func (s *IncidentService) stationExists(ctx context.Context, id string) error {
	ok, err := exists(ctx, s.db, &models.PollingStation{}, "id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Polling station not found")
	}
	return nil
}

func (s *IncidentService) Create(ctx context.Context, reporterID string, in IncidentInput) (*models.Incident, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.stationExists(ctx, in.PollingStationID); err != nil {
		return nil, err
	}
	inc := models.Incident{
		PollingStationID: in.PollingStationID,
		Title:            in.Title,
		Description:      in.Description,
		IncidentType:     in.IncidentType,
		Severity:         in.Severity,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		ReporterID:       reporterID,
	}
	if err := s.db.WithContext(ctx).Create(&inc).Error; err != nil {
		return nil, writeErr(err, "Incident already exists")
	}
	return s.Get(ctx, inc.ID)
}

// Update is limited to incidents the caller reported.
func (s *IncidentService) Update(ctx context.Context, reporterID, id string, in IncidentInput) (before, after *models.Incident, err error) {
	var existing models.Incident
	err = s.db.WithContext(ctx).Where("id = ? AND reporter_id = ?", id, reporterID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.NotFound("Incident not found or access denied")
	}
	if err != nil {
		return nil, nil, err
	}
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	if err := s.stationExists(ctx, in.PollingStationID); err != nil {
		return nil, nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.Incident{}).Where("id = ?", id).Updates(map[string]any{
		"polling_station_id": in.PollingStationID,
		"title":              in.Title,
		"description":        in.Description,
		"incident_type":      in.IncidentType,
		"severity":           in.Severity,
		"latitude":           in.Latitude,
		"longitude":          in.Longitude,
	}).Error
	if err != nil {
		return nil, nil, err
	}
	after, err = s.Get(ctx, id)
	return &existing, after, err
}

func (s *IncidentService) Resolve(ctx context.Context, id string) (*models.Incident, error) {
	if _, err := findByID[models.Incident](ctx, s.db, id, "Incident not found"); err != nil {
		return nil, err
	}
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.Incident{}).Where("id = ?", id).Updates(map[string]any{
		"is_resolved": true,
		"resolved_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
