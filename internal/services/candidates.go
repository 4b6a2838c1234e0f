package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	"github.com/saxenaaman628/election-observer/internal/query"
)

var candidateTypes = map[models.CandidateElectionType]bool{
	models.Presidential:                 true,
	models.Parliamentary:                true,
	models.LocalGovernment:              true,
	models.Senatorial:                   true,
	models.Gubernatorial:                true,
	models.CountyAssemblyRepresentative: true,
	models.WomensRepresentative:         true,
}

type CandidateInput struct {
	Name           string                       `json:"name" binding:"required,min=2,max=100"`
	Party          *string                      `json:"party" binding:"omitempty,max=100"`
	ElectionType   models.CandidateElectionType `json:"electionType" binding:"required"`
	ConstituencyID *string                      `json:"constituencyId"`
	WardID         *string                      `json:"wardId"`
	IsActive       *bool                        `json:"isActive"`
}

type CandidateFilter struct {
	ElectionType   string
	ConstituencyID string
	WardID         string
	IsActive       *bool
}

func (f CandidateFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.ElectionType != "" {
		tx = tx.Where("candidates.election_type = ?", f.ElectionType)
	}
	if f.ConstituencyID != "" {
		tx = tx.Where("candidates.constituency_id = ?", f.ConstituencyID)
	}
	if f.WardID != "" {
		tx = tx.Where("candidates.ward_id = ?", f.WardID)
	}
	if f.IsActive != nil {
		tx = tx.Where("candidates.is_active = ?", *f.IsActive)
	}
	return tx
}

type CandidateService struct {
	db *gorm.DB
}

func NewCandidateService(db *gorm.DB) *CandidateService {
	return &CandidateService{db: db}
}

func candidateRefs(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Constituency").Preload("Ward")
}

func (s *CandidateService) List(ctx context.Context, p query.Params, f CandidateFilter) (*query.Page[models.Candidate], error) {
	return query.Run[models.Candidate](ctx, s.db, p, f.scope, candidateRefs)
}

func (s *CandidateService) Get(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := findByID[models.Candidate](ctx, s.db, id, "Candidate not found", "Constituency", "Ward")
	if err != nil {
		return nil, err
	}
	c.ElectionResultCount, err = countWhere(ctx, s.db, &models.ElectionResult{}, "candidate_id = ?", id)
	return c, err
}

func blank(s *string) bool { return s == nil || *s == "" }

// checkArea validates the optional constituency/ward references.
func (s *CandidateService) checkArea(ctx context.Context, constituencyID, wardID *string) error {
	if !blank(constituencyID) {
		ok, err := exists(ctx, s.db, &models.Constituency{}, "id = ?", *constituencyID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("Constituency not found")
		}
	}
	if blank(wardID) {
		return nil
	}
	cond, args := "id = ?", []any{*wardID}
	if !blank(constituencyID) {
		cond, args = "id = ? AND constituency_id = ?", []any{*wardID, *constituencyID}
	}
	ok, err := exists(ctx, s.db, &models.Ward{}, cond, args...)
	if err != nil {
		return err
	}
	if !ok {
		if !blank(constituencyID) {
			return apperr.BadRequest("Ward not found or does not belong to the constituency")
		}
		return apperr.NotFound("Ward not found")
	}
	return nil
}

func nilIfBlank(s *string) *string {
	if blank(s) {
		return nil
	}
	return s
}

func (s *CandidateService) Create(ctx context.Context, in CandidateInput) (*models.Candidate, error) {
	if !candidateTypes[in.ElectionType] {
		return nil, apperr.BadRequest("Invalid election type: %s", in.ElectionType)
	}
	if err := s.checkArea(ctx, in.ConstituencyID, in.WardID); err != nil {
		return nil, err
	}
	c := models.Candidate{
		Name:           in.Name,
		Party:          in.Party,
		ElectionType:   in.ElectionType,
		ConstituencyID: nilIfBlank(in.ConstituencyID),
		WardID:         nilIfBlank(in.WardID),
		IsActive:       in.IsActive == nil || *in.IsActive,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, writeErr(err, "Candidate already exists")
	}
	return s.Get(ctx, c.ID)
}

// Update replaces the candidate's fields with in.
func (s *CandidateService) Update(ctx context.Context, id string, in CandidateInput) (before, after *models.Candidate, err error) {
	before, err = findByID[models.Candidate](ctx, s.db, id, "Candidate not found")
	if err != nil {
		return nil, nil, err
	}
	if !candidateTypes[in.ElectionType] {
		return nil, nil, apperr.BadRequest("Invalid election type: %s", in.ElectionType)
	}
	if err := s.checkArea(ctx, in.ConstituencyID, in.WardID); err != nil {
		return nil, nil, err
	}
	changes := map[string]any{
		"name":            in.Name,
		"party":           in.Party,
		"election_type":   in.ElectionType,
		"constituency_id": nilIfBlank(in.ConstituencyID),
		"ward_id":         nilIfBlank(in.WardID),
	}
	if in.IsActive != nil {
		changes["is_active"] = *in.IsActive
	}
	if err := s.db.WithContext(ctx).Model(&models.Candidate{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return nil, nil, writeErr(err, "Candidate already exists")
	}
	after, err = s.Get(ctx, id)
	return before, after, err
}

func (s *CandidateService) Delete(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := findByID[models.Candidate](ctx, s.db, id, "Candidate not found")
	if err != nil {
		return nil, err
	}
	hasResults, err := exists(ctx, s.db, &models.ElectionResult{}, "candidate_id = ?", id)
	if err != nil {
		return nil, err
	}
	if hasResults {
		return nil, apperr.Conflict("Cannot delete candidate with election results")
	}
	if err := s.db.WithContext(ctx).Delete(&models.Candidate{}, "id = ?", id).Error; err != nil {
		return nil, writeErr(err, "Cannot delete candidate with election results")
	}
	return c, nil
}
