package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	"github.com/saxenaaman628/election-observer/internal/query"
)

type CountyInput struct {
	Code string `json:"code" binding:"required,max=32"`
	Name string `json:"name" binding:"required,max=255"`
}

type CountyUpdate struct {
	Code *string `json:"code" binding:"omitempty,min=1,max=32"`
	Name *string `json:"name" binding:"omitempty,min=1,max=255"`
}

type ConstituencyInput struct {
	Code     string `json:"code" binding:"required,max=32"`
	Name     string `json:"name" binding:"required,max=255"`
	CountyID string `json:"countyId" binding:"required"`
}

type ConstituencyUpdate struct {
	Code     *string `json:"code" binding:"omitempty,min=1,max=32"`
	Name     *string `json:"name" binding:"omitempty,min=1,max=255"`
	CountyID *string `json:"countyId" binding:"omitempty,min=1"`
}

type WardInput struct {
	Code           string `json:"code" binding:"required,max=32"`
	Name           string `json:"name" binding:"required,max=255"`
	ConstituencyID string `json:"constituencyId" binding:"required"`
}

type WardUpdate struct {
	Code           *string `json:"code" binding:"omitempty,min=1,max=32"`
	Name           *string `json:"name" binding:"omitempty,min=1,max=255"`
	ConstituencyID *string `json:"constituencyId" binding:"omitempty,min=1"`
}

// duplicateCodes returns codes that appear more than once, in first-seen order.
func duplicateCodes(codes []string) []string {
	seen := map[string]int{}
	var dups []string
	for _, c := range codes {
		seen[c]++
		if seen[c] == 2 {
			dups = append(dups, c)
		}
	}
	return dups
}

// existingCodes returns the codes already stored in model's table.
func existingCodes(ctx context.Context, db *gorm.DB, model any, codes []string) ([]string, error) {
	var found []string
	err := db.WithContext(ctx).Model(model).Where("code IN ?", codes).Order("code").Pluck("code", &found).Error
	return found, err
}

// bulkCreate enforces payload-unique and store-unique codes, then inserts all
// rows in one transaction.
func bulkCreate[T any](ctx context.Context, db *gorm.DB, label string, codes []string, rows []T) (int, error) {
	if dups := duplicateCodes(codes); len(dups) > 0 {
		return 0, apperr.BadRequest("Duplicate codes found: %s", strings.Join(dups, ", "))
	}
	taken, err := existingCodes(ctx, db, new(T), codes)
	if err != nil {
		return 0, err
	}
	if len(taken) > 0 {
		return 0, apperr.Conflict("%s with these codes already exist: %s", label, strings.Join(taken, ", "))
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, 500).Error
	})
	if err != nil {
		return 0, writeErr(err, fmt.Sprintf("%s with these codes already exist", label))
	}
	return len(rows), nil
}

// ---- counties

type CountyService struct {
	db *gorm.DB
}

func NewCountyService(db *gorm.DB) *CountyService {
	return &CountyService{db: db}
}

func (s *CountyService) List(ctx context.Context, p query.Params) (*query.Page[models.County], error) {
	return query.Run[models.County](ctx, s.db, p, nil, nil)
}

func (s *CountyService) Get(ctx context.Context, id string) (*models.County, error) {
	county, err := findByID[models.County](ctx, s.db, id, "County not found")
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Select("constituencies.*", ConstituencySpec.Counts[0], ConstituencySpec.Counts[1]).
		Where("county_id = ?", id).
		Order("name").
		Find(&county.Constituencies).Error
	if err != nil {
		return nil, err
	}
	county.ConstituencyCount = int64(len(county.Constituencies))
	return county, nil
}

func (s *CountyService) Create(ctx context.Context, in CountyInput) (*models.County, error) {
	taken, err := exists(ctx, s.db, &models.County{}, "code = ?", in.Code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("County with this code already exists")
	}
	county := models.County{Code: in.Code, Name: in.Name}
	if err := s.db.WithContext(ctx).Create(&county).Error; err != nil {
		return nil, writeErr(err, "County with this code already exists")
	}
	return &county, nil
}

func (s *CountyService) Update(ctx context.Context, id string, in CountyUpdate) (before, after *models.County, err error) {
	before, err = findByID[models.County](ctx, s.db, id, "County not found")
	if err != nil {
		return nil, nil, err
	}
	changes := map[string]any{}
	if in.Code != nil {
		taken, err := exists(ctx, s.db, &models.County{}, "code = ? AND id <> ?", *in.Code, id)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, apperr.Conflict("County with this code already exists")
		}
		changes["code"] = *in.Code
	}
	if in.Name != nil {
		changes["name"] = *in.Name
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.County{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, nil, writeErr(err, "County with this code already exists")
		}
	}
	after, err = findByID[models.County](ctx, s.db, id, "County not found")
	return before, after, err
}

func (s *CountyService) Delete(ctx context.Context, id string) (*models.County, error) {
	county, err := findByID[models.County](ctx, s.db, id, "County not found")
	if err != nil {
		return nil, err
	}
	n, err := countWhere(ctx, s.db, &models.Constituency{}, "county_id = ?", id)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperr.Conflict("Cannot delete county with constituencies")
	}
	if err := s.db.WithContext(ctx).Delete(county).Error; err != nil {
		return nil, writeErr(err, "Cannot delete county with constituencies")
	}
	return county, nil
}

func (s *CountyService) BulkImport(ctx context.Context, in []CountyInput) (int, error) {
	codes := make([]string, len(in))
	rows := make([]models.County, len(in))
	for i, c := range in {
		codes[i] = c.Code
		rows[i] = models.County{Code: c.Code, Name: c.Name}
	}
	return bulkCreate(ctx, s.db, "Counties", codes, rows)
}

// ---- constituencies

type ConstituencyFilter struct {
	CountyID string
}

func (f ConstituencyFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.CountyID != "" {
		tx = tx.Where("constituencies.county_id = ?", f.CountyID)
	}
	return tx
}

type ConstituencyService struct {
	db    *gorm.DB
	stats *StatsService
}

func NewConstituencyService(db *gorm.DB, stats *StatsService) *ConstituencyService {
	return &ConstituencyService{db: db, stats: stats}
}

func (s *ConstituencyService) List(ctx context.Context, p query.Params, f ConstituencyFilter) (*query.Page[models.Constituency], error) {
	return query.Run[models.Constituency](ctx, s.db, p, f.scope, func(tx *gorm.DB) *gorm.DB {
		return tx.Preload("County")
	})
}

func (s *ConstituencyService) Stats(ctx context.Context, countyID, constituencyID string) (*ConstituencyStats, error) {
	return s.stats.Constituencies(ctx, countyID, constituencyID)
}

func (s *ConstituencyService) Get(ctx context.Context, id string) (*models.Constituency, error) {
	c, err := findByID[models.Constituency](ctx, s.db, id, "Constituency not found", "County")
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Select("wards.*", WardSpec.Counts[0]).
		Where("constituency_id = ?", id).
		Order("name").
		Find(&c.Wards).Error
	if err != nil {
		return nil, err
	}
	c.WardCount = int64(len(c.Wards))
	c.PollingStationCount, err = countWhere(ctx, s.db, &models.PollingStation{}, "constituency_id = ?", id)
	return c, err
}

func (s *ConstituencyService) requireCounty(ctx context.Context, id string) error {
	ok, err := exists(ctx, s.db, &models.County{}, "id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("County not found")
	}
	return nil
}

func (s *ConstituencyService) Create(ctx context.Context, in ConstituencyInput) (*models.Constituency, error) {
	if err := s.requireCounty(ctx, in.CountyID); err != nil {
		return nil, err
	}
	taken, err := exists(ctx, s.db, &models.Constituency{}, "code = ?", in.Code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Constituency with this code already exists")
	}
	c := models.Constituency{Code: in.Code, Name: in.Name, CountyID: in.CountyID}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, writeErr(err, "Constituency with this code already exists")
	}
	return findByID[models.Constituency](ctx, s.db, c.ID, "Constituency not found", "County")
}

func (s *ConstituencyService) Update(ctx context.Context, id string, in ConstituencyUpdate) (before, after *models.Constituency, err error) {
	before, err = findByID[models.Constituency](ctx, s.db, id, "Constituency not found")
	if err != nil {
		return nil, nil, err
	}
	changes := map[string]any{}
	if in.CountyID != nil {
		if err := s.requireCounty(ctx, *in.CountyID); err != nil {
			return nil, nil, err
		}
		changes["county_id"] = *in.CountyID
	}
	if in.Code != nil {
		taken, err := exists(ctx, s.db, &models.Constituency{}, "code = ? AND id <> ?", *in.Code, id)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, apperr.Conflict("Constituency with this code already exists")
		}
		changes["code"] = *in.Code
	}
	if in.Name != nil {
		changes["name"] = *in.Name
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Constituency{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, nil, writeErr(err, "Constituency with this code already exists")
		}
	}
	after, err = findByID[models.Constituency](ctx, s.db, id, "Constituency not found", "County")
	return before, after, err
}

func (s *ConstituencyService) Delete(ctx context.Context, id string) (*models.Constituency, error) {
	c, err := findByID[models.Constituency](ctx, s.db, id, "Constituency not found")
	if err != nil {
		return nil, err
	}
	wards, err := countWhere(ctx, s.db, &models.Ward{}, "constituency_id = ?", id)
	if err != nil {
		return nil, err
	}
	stations, err := countWhere(ctx, s.db, &models.PollingStation{}, "constituency_id = ?", id)
	if err != nil {
		return nil, err
	}
	if wards > 0 || stations > 0 {
		return nil, apperr.Conflict("Cannot delete constituency with wards or polling stations")
	}
	if err := s.db.WithContext(ctx).Delete(c).Error; err != nil {
		return nil, writeErr(err, "Cannot delete constituency with dependent records")
	}
	return c, nil
}

func (s *ConstituencyService) BulkImport(ctx context.Context, in []ConstituencyInput) (int, error) {
	codes := make([]string, len(in))
	rows := make([]models.Constituency, len(in))
	countyIDs := map[string]bool{}
	for i, c := range in {
		codes[i] = c.Code
		rows[i] = models.Constituency{Code: c.Code, Name: c.Name, CountyID: c.CountyID}
		countyIDs[c.CountyID] = true
	}
	ids := make([]string, 0, len(countyIDs))
	for id := range countyIDs {
		ids = append(ids, id)
	}
	var found int64
	if err := s.db.WithContext(ctx).Model(&models.County{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return 0, err
	}
	if int(found) != len(ids) {
		return 0, apperr.BadRequest("One or more counties not found")
	}
	return bulkCreate(ctx, s.db, "Constituencies", codes, rows)
}

// ---- wards

type WardFilter struct {
	ConstituencyID string
	CountyID       string
}

func (f WardFilter) scope(tx *gorm.DB) *gorm.DB {
	if f.ConstituencyID != "" {
		tx = tx.Where("wards.constituency_id = ?", f.ConstituencyID)
	}
	if f.CountyID != "" {
		tx = tx.Where("wards.constituency_id IN (SELECT id FROM constituencies WHERE county_id = ?)", f.CountyID)
	}
	return tx
}

type WardService struct {
	db *gorm.DB
}

func NewWardService(db *gorm.DB) *WardService {
	return &WardService{db: db}
}

func (s *WardService) List(ctx context.Context, p query.Params, f WardFilter) (*query.Page[models.Ward], error) {
	return query.Run[models.Ward](ctx, s.db, p, f.scope, func(tx *gorm.DB) *gorm.DB {
		return tx.Preload("Constituency.County")
	})
}

func (s *WardService) Get(ctx context.Context, id string) (*models.Ward, error) {
	w, err := findByID[models.Ward](ctx, s.db, id, "Ward not found", "Constituency.County")
	if err != nil {
		return nil, err
	}
	w.PollingStationCount, err = countWhere(ctx, s.db, &models.PollingStation{}, "ward_id = ?", id)
	return w, err
}

func (s *WardService) requireConstituency(ctx context.Context, id string) error {
	ok, err := exists(ctx, s.db, &models.Constituency{}, "id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Constituency not found")
	}
	return nil
}

func (s *WardService) Create(ctx context.Context, in WardInput) (*models.Ward, error) {
	if err := s.requireConstituency(ctx, in.ConstituencyID); err != nil {
		return nil, err
	}
	taken, err := exists(ctx, s.db, &models.Ward{}, "code = ?", in.Code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Ward with this code already exists")
	}
	w := models.Ward{Code: in.Code, Name: in.Name, ConstituencyID: in.ConstituencyID}
	if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, writeErr(err, "Ward with this code already exists")
	}
	return findByID[models.Ward](ctx, s.db, w.ID, "Ward not found", "Constituency.County")
}

func (s *WardService) Update(ctx context.Context, id string, in WardUpdate) (before, after *models.Ward, err error) {
	before, err = findByID[models.Ward](ctx, s.db, id, "Ward not found")
	if err != nil {
		return nil, nil, err
	}
	changes := map[string]any{}
	if in.ConstituencyID != nil && *in.ConstituencyID != before.ConstituencyID {
		if err := s.requireConstituency(ctx, *in.ConstituencyID); err != nil {
			return nil, nil, err
		}
		// stations keep their constituencyId, so moving a populated ward would break them
		n, err := countWhere(ctx, s.db, &models.PollingStation{}, "ward_id = ?", id)
		if err != nil {
			return nil, nil, err
		}
		if n > 0 {
			return nil, nil, apperr.Conflict("Cannot move a ward that has polling stations")
		}
		changes["constituency_id"] = *in.ConstituencyID
	}
	if in.Code != nil {
		taken, err := exists(ctx, s.db, &models.Ward{}, "code = ? AND id <> ?", *in.Code, id)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, apperr.Conflict("Ward with this code already exists")
		}
		changes["code"] = *in.Code
	}
	if in.Name != nil {
		changes["name"] = *in.Name
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Ward{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return nil, nil, writeErr(err, "Ward with this code already exists")
		}
	}
	after, err = findByID[models.Ward](ctx, s.db, id, "Ward not found", "Constituency.County")
	return before, after, err
}

func (s *WardService) Delete(ctx context.Context, id string) (*models.Ward, error) {
	w, err := findByID[models.Ward](ctx, s.db, id, "Ward not found")
	if err != nil {
		return nil, err
	}
	n, err := countWhere(ctx, s.db, &models.PollingStation{}, "ward_id = ?", id)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperr.Conflict("Cannot delete ward with polling stations")
	}
	if err := s.db.WithContext(ctx).Delete(w).Error; err != nil {
		return nil, writeErr(err, "Cannot delete ward with dependent records")
	}
	return w, nil
}

func (s *WardService) BulkImport(ctx context.Context, in []WardInput) (int, error) {
	codes := make([]string, len(in))
	rows := make([]models.Ward, len(in))
	parents := map[string]bool{}
	for i, w := range in {
		codes[i] = w.Code
		rows[i] = models.Ward{Code: w.Code, Name: w.Name, ConstituencyID: w.ConstituencyID}
		parents[w.ConstituencyID] = true
	}
	ids := make([]string, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	var found int64
	if err := s.db.WithContext(ctx).Model(&models.Constituency{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return 0, err
	}
	if int(found) != len(ids) {
		return 0, apperr.BadRequest("One or more constituencies not found")
	}
	return bulkCreate(ctx, s.db, "Wards", codes, rows)
}
