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

const duplicateResultMsg = "Election result already exists for this polling station and candidate"

var electionTypes = map[models.ElectionType]bool{
	models.GeneralElection:  true,
	models.RunoffElection:   true,
	models.ByElections:      true,
	models.PrimaryElections: true,
}

type ResultInput struct {
	PollingStationID string              `json:"pollingStationId" binding:"required"`
	CandidateID      string              `json:"candidateId" binding:"required"`
	ElectionType     models.ElectionType `json:"electionType" binding:"required"`
	Votes            *int                `json:"votes" binding:"required,min=0"`
	SpoiltVotes      int                 `json:"spoiltVotes" binding:"min=0"`
}

type ResultFilter struct {
	PollingStationID string
	CandidateID      string
	ElectionType     string
	IsVerified       *bool
}

func (f ResultFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.PollingStationID != "" {
		tx = tx.Where("election_results.polling_station_id = ?", f.PollingStationID)
	}
	if f.CandidateID != "" {
		tx = tx.Where("election_results.candidate_id = ?", f.CandidateID)
	}
	if f.ElectionType != "" {
		tx = tx.Where("election_results.election_type = ?", f.ElectionType)
	}
	if f.IsVerified != nil {
		tx = tx.Where("election_results.is_verified = ?", *f.IsVerified)
	}
	return tx
}

// Tally is the derived vote totals of one result.
type Tally struct {
	TotalVotes   int
	VoterTurnout float64
}

// ComputeTally derives totals against the registered voter count and rejects
// totals above it. Turnout is 0 when nobody is registered.
func ComputeTally(votes, spoilt, registered int) (Tally, error) {
	total := votes + spoilt
	if total > registered {
		return Tally{}, apperr.BadRequest("Total votes (%d) cannot exceed registered voters (%d)", total, registered)
	}
	t := Tally{TotalVotes: total}
	if registered > 0 {
		t.VoterTurnout = float64(total) / float64(registered) * 100
	}
	return t, nil
}

type ResultService struct {
	db *gorm.DB
}

func NewResultService(db *gorm.DB) *ResultService {
	return &ResultService{db: db}
}

func resultRefs(tx *gorm.DB) *gorm.DB {
	return tx.Preload("PollingStation").Preload("Candidate").Preload("Reporter")
}

func (s *ResultService) List(ctx context.Context, p query.Params, f ResultFilter) (*query.Page[models.ElectionResult], error) {
	return query.Run[models.ElectionResult](ctx, s.db, p, f.scope, resultRefs)
}

func (s *ResultService) Get(ctx context.Context, id string) (*models.ElectionResult, error) {
	return findByID[models.ElectionResult](ctx, s.db, id, "Election result not found",
		"PollingStation.Constituency.County", "PollingStation.Ward", "Candidate", "Reporter")
}

// tally validates references and computes totals for in.
func (s *ResultService) tally(ctx context.Context, in ResultInput) (Tally, error) {
	if !electionTypes[in.ElectionType] {
		return Tally{}, apperr.BadRequest("Invalid election type: %s", in.ElectionType)
	}
	ok, err := exists(ctx, s.db, &models.PollingStation{}, "id = ?", in.PollingStationID)
	if err != nil {
		return Tally{}, err
	}
	if !ok {
		return Tally{}, apperr.NotFound("Polling station not found")
	}
	ok, err = exists(ctx, s.db, &models.Candidate{}, "id = ?", in.CandidateID)
	if err != nil {
		return Tally{}, err
	}
	if !ok {
		return Tally{}, apperr.NotFound("Candidate not found")
	}
	registered := 0
	reg, err := ActiveRegistration(ctx, s.db, in.PollingStationID)
	if err != nil {
		return Tally{}, err
	}
	if reg != nil {
		registered = reg.RegisteredVoters
	}
	return ComputeTally(*in.Votes, in.SpoiltVotes, registered)
}

func (s *ResultService) Create(ctx context.Context, reporterID string, in ResultInput) (*models.ElectionResult, error) {
	t, err := s.tally(ctx, in)
	if err != nil {
		return nil, err
	}
	taken, err := exists(ctx, s.db, &models.ElectionResult{},
		"polling_station_id = ? AND candidate_id = ?", in.PollingStationID, in.CandidateID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict(duplicateResultMsg)
	}
	r := models.ElectionResult{
		PollingStationID: in.PollingStationID,
		CandidateID:      in.CandidateID,
		ElectionType:     in.ElectionType,
		Votes:            *in.Votes,
		SpoiltVotes:      in.SpoiltVotes,
		TotalVotes:       t.TotalVotes,
		VoterTurnout:     t.VoterTurnout,
		ReporterID:       reporterID,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, writeErr(err, duplicateResultMsg)
	}
	return s.Get(ctx, r.ID)
}

// Update is limited to results the caller reported.
func (s *ResultService) Update(ctx context.Context, reporterID, id string, in ResultInput) (before, after *models.ElectionResult, err error) {
	var existing models.ElectionResult
	err = s.db.WithContext(ctx).Where("id = ? AND reporter_id = ?", id, reporterID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.NotFound("Election result not found or access denied")
	}
	if err != nil {
		return nil, nil, err
	}
	t, err := s.tally(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	taken, err := exists(ctx, s.db, &models.ElectionResult{},
		"polling_station_id = ? AND candidate_id = ? AND id <> ?", in.PollingStationID, in.CandidateID, id)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, apperr.Conflict(duplicateResultMsg)
	}
	err = s.db.WithContext(ctx).Model(&models.ElectionResult{}).Where("id = ?", id).Updates(map[string]any{
		"polling_station_id": in.PollingStationID,
		"candidate_id":       in.CandidateID,
		"election_type":      in.ElectionType,
		"votes":              *in.Votes,
		"spoilt_votes":       in.SpoiltVotes,
		"total_votes":        t.TotalVotes,
		"voter_turnout":      t.VoterTurnout,
	}).Error
	if err != nil {
		return nil, nil, writeErr(err, duplicateResultMsg)
	}
	after, err = s.Get(ctx, id)
	return &existing, after, err
}

func (s *ResultService) Verify(ctx context.Context, id string) (*models.ElectionResult, error) {
	if _, err := findByID[models.ElectionResult](ctx, s.db, id, "Election result not found"); err != nil {
		return nil, err
	}
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.ElectionResult{}).Where("id = ?", id).Updates(map[string]any{
		"is_verified": true,
		"verified_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
