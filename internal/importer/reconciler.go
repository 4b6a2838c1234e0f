package importer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
)

const (
	ErrCountyNotFound       = "COUNTY_NOT_FOUND"
	ErrConstituencyNotFound = "CONSTITUENCY_NOT_FOUND"
	ErrWardNotFound         = "WARD_NOT_FOUND"
	ErrDuplicateCode        = "DUPLICATE_CODE"
	ErrProcessing           = "PROCESSING_ERROR"

	MaxRows          = 50000
	MinBatchSize     = 100
	MaxBatchSize     = 500
	progressInterval = 1000
)

// RowError holds enough context to retry a single row or entity.
type RowError struct {
	Code       string `json:"code,omitempty"`
	Name       string `json:"name,omitempty"`
	CountyCode string `json:"countyCode,omitempty"`
	CountyName string `json:"countyName,omitempty"`
	ConstCode  string `json:"constCode,omitempty"`
	ConstName  string `json:"constName,omitempty"`
	WardCode   string `json:"wardCode,omitempty"`
	WardName   string `json:"wardName,omitempty"`
	Error      string `json:"error"`
	ErrorType  string `json:"errorType"`
	RowData    *Row   `json:"rowData,omitempty"`
}

type LevelSummary struct {
	Created  int        `json:"created"`
	Existing int        `json:"existing"`
	Errors   []RowError `json:"errors"`
}

type RegistrationSummary struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

type Summary struct {
	Total              int                 `json:"total"`
	Counties           LevelSummary        `json:"counties"`
	Constituencies     LevelSummary        `json:"constituencies"`
	Wards              LevelSummary        `json:"wards"`
	PollingStations    LevelSummary        `json:"pollingStations"`
	VoterRegistrations RegistrationSummary `json:"voterRegistrations"`
}

func newSummary(total int) *Summary {
	return &Summary{
		Total:              total,
		Counties:           LevelSummary{Errors: []RowError{}},
		Constituencies:     LevelSummary{Errors: []RowError{}},
		Wards:              LevelSummary{Errors: []RowError{}},
		PollingStations:    LevelSummary{Errors: []RowError{}},
		VoterRegistrations: RegistrationSummary{Errors: []RowError{}},
	}
}

// Reconciler runs a hierarchical import. It is not atomic: entities created
// before a failure stay committed.
type Reconciler struct {
	db        *gorm.DB
	log       *zap.Logger
	batchSize int
	workers   int
}

func NewReconciler(db *gorm.DB, log *zap.Logger, batchSize, workers int) *Reconciler {
	if batchSize < MinBatchSize {
		batchSize = MinBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if workers < 1 {
		workers = 1
	}
	return &Reconciler{db: db, log: log, batchSize: batchSize, workers: workers}
}

type lookups struct {
	counties       map[countyKey]*models.County
	constituencies map[constituencyKey]*models.Constituency
	wards          map[wardKey]*models.Ward
}

// Run processes rows in four passes. Row-level failures end up in the
// summary; Run itself never fails.
func (r *Reconciler) Run(ctx context.Context, rows []Row) *Summary {
	for i := range rows {
		rows[i].Normalize()
	}
	sum := newSummary(len(rows))
	lk := lookups{
		counties:       map[countyKey]*models.County{},
		constituencies: map[constituencyKey]*models.Constituency{},
		wards:          map[wardKey]*models.Ward{},
	}

	r.log.Info("import started", zap.Int("rows", len(rows)))

	r.log.Info("processing counties")
	r.countyPass(ctx, rows, &lk, sum)

	r.log.Info("processing constituencies")
	r.constituencyPass(ctx, rows, &lk, sum)

	r.log.Info("processing wards")
	r.wardPass(ctx, rows, &lk, sum)

	r.log.Info("processing polling stations", zap.Int("batch_size", r.batchSize), zap.Int("workers", r.workers))
	r.stationPass(ctx, rows, &lk, sum)

	r.log.Info("import completed",
		zap.Int("counties_created", sum.Counties.Created),
		zap.Int("counties_existing", sum.Counties.Existing),
		zap.Int("constituencies_created", sum.Constituencies.Created),
		zap.Int("constituencies_existing", sum.Constituencies.Existing),
		zap.Int("wards_created", sum.Wards.Created),
		zap.Int("wards_existing", sum.Wards.Existing),
		zap.Int("stations_created", sum.PollingStations.Created),
		zap.Int("stations_existing", sum.PollingStations.Existing),
		zap.Int("station_errors", len(sum.PollingStations.Errors)),
		zap.Int("registrations_created", sum.VoterRegistrations.Created))
	return sum
}

// findOrCreate looks a record up with match and creates fresh when nothing
// matches, both inside one transaction.
func findOrCreate[T any](ctx context.Context, db *gorm.DB, match func(*gorm.DB) *gorm.DB, fresh *T) (*T, bool, error) {
	var found T
	created := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := match(tx).First(&found).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(fresh).Error; err != nil {
			return err
		}
		found = *fresh
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &found, created, nil
}

func entityErrorType(err error) string {
	if apperr.IsUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return ErrProcessing
}

func (r *Reconciler) countyPass(ctx context.Context, rows []Row, lk *lookups, sum *Summary) {
	var order []countyKey
	seen := map[countyKey]bool{}
	for _, row := range rows {
		k := countyKey{row.CountyCode, row.CountyName}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	for _, k := range order {
		county, created, err := findOrCreate(ctx, r.db, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("(code = ? OR LOWER(name) = LOWER(?))", k.code, k.name)
		}, &models.County{Code: k.code, Name: k.name})
		if err != nil {
			sum.Counties.Errors = append(sum.Counties.Errors, RowError{
				Code:      k.code,
				Name:      k.name,
				Error:     err.Error(),
				ErrorType: entityErrorType(err),
			})
			r.log.Error("county import failed", zap.String("code", k.code), zap.String("name", k.name), zap.Error(err))
			continue
		}
		if created {
			sum.Counties.Created++
			r.log.Debug("created county", zap.String("code", county.Code), zap.String("name", county.Name))
		} else {
			sum.Counties.Existing++
		}
		lk.counties[k] = county
	}
}

func (r *Reconciler) constituencyPass(ctx context.Context, rows []Row, lk *lookups, sum *Summary) {
	var order []constituencyKey
	seen := map[constituencyKey]bool{}
	for _, row := range rows {
		county, ok := lk.counties[countyKey{row.CountyCode, row.CountyName}]
		if !ok {
			continue
		}
		k := constituencyKey{row.ConstCode, row.ConstName, county.ID}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	for _, k := range order {
		c, created, err := findOrCreate(ctx, r.db, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("(code = ? OR LOWER(name) = LOWER(?)) AND county_id = ?", k.code, k.name, k.countyID)
		}, &models.Constituency{Code: k.code, Name: k.name, CountyID: k.countyID})
		if err != nil {
			sum.Constituencies.Errors = append(sum.Constituencies.Errors, RowError{
				Code:      k.code,
				Name:      k.name,
				Error:     err.Error(),
				ErrorType: entityErrorType(err),
			})
			r.log.Error("constituency import failed", zap.String("code", k.code), zap.String("name", k.name), zap.Error(err))
			continue
		}
		if created {
			sum.Constituencies.Created++
			r.log.Debug("created constituency", zap.String("code", c.Code), zap.String("name", c.Name))
		} else {
			sum.Constituencies.Existing++
		}
		lk.constituencies[k] = c
	}
}

func (r *Reconciler) wardPass(ctx context.Context, rows []Row, lk *lookups, sum *Summary) {
	var order []wardKey
	seen := map[wardKey]bool{}
	for _, row := range rows {
		county, ok := lk.counties[countyKey{row.CountyCode, row.CountyName}]
		if !ok {
			continue
		}
		c, ok := lk.constituencies[constituencyKey{row.ConstCode, row.ConstName, county.ID}]
		if !ok {
			continue
		}
		k := wardKey{row.WardCode, row.WardName, c.ID}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	for _, k := range order {
		w, created, err := findOrCreate(ctx, r.db, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("(code = ? OR LOWER(name) = LOWER(?)) AND constituency_id = ?", k.code, k.name, k.constituencyID)
		}, &models.Ward{Code: k.code, Name: k.name, ConstituencyID: k.constituencyID})
		if err != nil {
			sum.Wards.Errors = append(sum.Wards.Errors, RowError{
				Code:      k.code,
				Name:      k.name,
				Error:     err.Error(),
				ErrorType: entityErrorType(err),
			})
			r.log.Error("ward import failed", zap.String("code", k.code), zap.String("name", k.name), zap.Error(err))
			continue
		}
		if created {
			sum.Wards.Created++
			r.log.Debug("created ward", zap.String("code", w.Code), zap.String("name", w.Name))
		} else {
			sum.Wards.Existing++
		}
		lk.wards[k] = w
	}
}

type stationStatus int

const (
	stationFailed stationStatus = iota
	stationCreated
	stationExisting
)

type stationOutcome struct {
	status     stationStatus
	err        *RowError
	regCreated bool
	regErr     *RowError
}

// stationPass works batch by batch in input order. Rows inside a batch run
// concurrently and every row settles before the next batch starts.
func (r *Reconciler) stationPass(ctx context.Context, rows []Row, lk *lookups, sum *Summary) {
	for start := 0; start < len(rows); start += r.batchSize {
		end := min(start+r.batchSize, len(rows))
		batch := rows[start:end]
		outcomes := make([]stationOutcome, len(batch))

		var g errgroup.Group
		g.SetLimit(r.workers)
		for i := range batch {
			i := i
			g.Go(func() error {
				outcomes[i] = r.importStation(ctx, &batch[i], lk)
				return nil
			})
		}
		_ = g.Wait()

		for _, o := range outcomes {
			switch o.status {
			case stationCreated:
				sum.PollingStations.Created++
				if sum.PollingStations.Created%progressInterval == 0 {
					r.log.Info("import progress", zap.Int("stations_created", sum.PollingStations.Created))
				}
			case stationExisting:
				sum.PollingStations.Existing++
			default:
				sum.PollingStations.Errors = append(sum.PollingStations.Errors, *o.err)
			}
			if o.regCreated {
				sum.VoterRegistrations.Created++
			}
			if o.regErr != nil {
				sum.VoterRegistrations.Errors = append(sum.VoterRegistrations.Errors, *o.regErr)
			}
		}
	}
}

func stationError(row *Row, errType, msg string) stationOutcome {
	rowCopy := *row
	e := &RowError{
		Code:       row.StationCode,
		Name:       row.StationName,
		CountyCode: row.CountyCode,
		CountyName: row.CountyName,
		Error:      msg,
		ErrorType:  errType,
		RowData:    &rowCopy,
	}
	if errType != ErrCountyNotFound {
		e.ConstCode, e.ConstName = row.ConstCode, row.ConstName
	}
	if errType != ErrCountyNotFound && errType != ErrConstituencyNotFound {
		e.WardCode, e.WardName = row.WardCode, row.WardName
	}
	return stationOutcome{status: stationFailed, err: e}
}

// importStation never touches the lookups except to read them.
func (r *Reconciler) importStation(ctx context.Context, row *Row, lk *lookups) (out stationOutcome) {
	defer func() {
		if p := recover(); p != nil {
			out = stationError(row, ErrProcessing, fmt.Sprint(p))
		}
	}()

	county, ok := lk.counties[countyKey{row.CountyCode, row.CountyName}]
	if !ok {
		return stationError(row, ErrCountyNotFound,
			fmt.Sprintf("County not found: %s - %s", row.CountyCode, row.CountyName))
	}
	constituency, ok := lk.constituencies[constituencyKey{row.ConstCode, row.ConstName, county.ID}]
	if !ok {
		return stationError(row, ErrConstituencyNotFound,
			fmt.Sprintf("Constituency not found: %s - %s in County %s - %s",
				row.ConstCode, row.ConstName, row.CountyCode, row.CountyName))
	}
	ward, ok := lk.wards[wardKey{row.WardCode, row.WardName, constituency.ID}]
	if !ok {
		return stationError(row, ErrWardNotFound,
			fmt.Sprintf("Ward not found: %s - %s in Constituency %s - %s",
				row.WardCode, row.WardName, row.ConstCode, row.ConstName))
	}

	db := r.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&models.PollingStation{}).Where("code = ?", row.StationCode).Count(&existing).Error; err != nil {
		return stationError(row, ErrProcessing, err.Error())
	}
	if existing > 0 {
		return stationOutcome{status: stationExisting}
	}

	station := models.PollingStation{
		Code:           row.StationCode,
		Name:           row.StationName,
		ConstituencyID: constituency.ID,
		WardID:         ward.ID,
		IsActive:       true,
	}
	if row.RegCentreName != "" {
		addr := row.RegCentreName
		station.Address = &addr
	}
	if err := db.Create(&station).Error; err != nil {
		// Another row in the same batch won the race for this code.
		if apperr.IsUniqueViolation(err) {
			return stationOutcome{status: stationExisting}
		}
		r.log.Error("polling station import failed", zap.String("code", row.StationCode), zap.Error(err))
		return stationError(row, ErrProcessing, err.Error())
	}

	out = stationOutcome{status: stationCreated}
	if row.RegisteredVoters > 0 {
		reg := models.VoterRegistration{
			PollingStationID: station.ID,
			RegisteredVoters: row.RegisteredVoters,
			Source:           models.ImportSource,
			IsActive:         true,
		}
		if err := db.Create(&reg).Error; err != nil {
			out.regErr = &RowError{Code: row.StationCode, Name: row.StationName, Error: err.Error(), ErrorType: ErrProcessing}
		} else {
			out.regCreated = true
		}
	}
	return out
}
