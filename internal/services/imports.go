package services

import (
	"context"
	"io"

	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/importer"
)

type ImportService struct {
	db         *gorm.DB
	reconciler *importer.Reconciler
	stats      *StatsService
}

func NewImportService(db *gorm.DB, reconciler *importer.Reconciler, stats *StatsService) *ImportService {
	return &ImportService{db: db, reconciler: reconciler, stats: stats}
}

// Validate checks row count bounds and every row's required fields before
// anything is written.
func (s *ImportService) Validate(rows []importer.Row) error {
	if len(rows) == 0 {
		return apperr.BadRequest("Validation error: pollingStations must contain at least 1 row")
	}
	if len(rows) > importer.MaxRows {
		return apperr.BadRequest("Validation error: pollingStations must contain at most %d rows", importer.MaxRows)
	}
	for i := range rows {
		rows[i].Normalize()
		if err := rows[i].Validate(); err != nil {
			return apperr.BadRequest("Validation error: pollingStations[%d]: %s", i, err)
		}
	}
	return nil
}

// Hierarchical runs the reconciler over rows. Cached aggregates are dropped
// once it finishes.
func (s *ImportService) Hierarchical(ctx context.Context, rows []importer.Row) (*importer.Summary, error) {
	if err := s.Validate(rows); err != nil {
		return nil, err
	}
	sum := s.reconciler.Run(ctx, rows)
	if s.stats != nil {
		_ = s.stats.Invalidate(ctx)
	}
	return sum, nil
}

func (s *ImportService) Preview(filename string, r io.Reader) (*importer.Preview, error) {
	records, err := importer.ReadRecords(filename, r)
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}
	p := importer.PreviewRecords(records)
	return &p, nil
}

// ImportFile parses an uploaded .csv or .xlsx file with the fixed headers and
// imports it.
func (s *ImportService) ImportFile(ctx context.Context, filename string, r io.Reader) (*importer.Summary, error) {
	records, err := importer.ReadRecords(filename, r)
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}
	rows, err := importer.ParseRows(records)
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}
	return s.Hierarchical(ctx, rows)
}

func (s *ImportService) Status(ctx context.Context) (*UploadStatus, error) {
	return s.stats.UploadStatus(ctx)
}
