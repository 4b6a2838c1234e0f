package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saxenaaman628/election-observer/internal/database"
	"github.com/saxenaaman628/election-observer/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	return db
}

func exampleRows() []Row {
	return []Row{{
		CountyCode:       "047",
		CountyName:       "Nairobi",
		ConstCode:        "274",
		ConstName:        "Dagoretti North",
		WardCode:         "2740",
		WardName:         "Kilimani",
		RegCentreName:    "ABC Centre",
		StationCode:      "047274020101",
		StationName:      "ABC Primary",
		RegisteredVoters: 500,
	}}
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestReconcilerExampleAndIdempotency(t *testing.T) {
	db := setupDB(t)
	r := NewReconciler(db, zap.NewNop(), 100, 4)

	sum := r.Run(context.Background(), exampleRows())
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 1, sum.Counties.Created)
	assert.Equal(t, 1, sum.Constituencies.Created)
	assert.Equal(t, 1, sum.Wards.Created)
	assert.Equal(t, 1, sum.PollingStations.Created)
	assert.Equal(t, 1, sum.VoterRegistrations.Created)

	var station models.PollingStation
	require.NoError(t, db.Where("code = ?", "047274020101").First(&station).Error)
	require.NotNil(t, station.Address)
	assert.Equal(t, "ABC Centre", *station.Address)
	assert.True(t, station.IsActive)

	var reg models.VoterRegistration
	require.NoError(t, db.Where("polling_station_id = ?", station.ID).First(&reg).Error)
	assert.Equal(t, 500, reg.RegisteredVoters)
	assert.Equal(t, models.ImportSource, reg.Source)

	sum = r.Run(context.Background(), exampleRows())
	assert.Equal(t, 0, sum.Counties.Created)
	assert.Equal(t, 1, sum.Counties.Existing)
	assert.Equal(t, 0, sum.Constituencies.Created)
	assert.Equal(t, 1, sum.Constituencies.Existing)
	assert.Equal(t, 0, sum.Wards.Created)
	assert.Equal(t, 1, sum.Wards.Existing)
	assert.Equal(t, 0, sum.PollingStations.Created)
	assert.Equal(t, 1, sum.PollingStations.Existing)
	assert.Equal(t, 0, sum.VoterRegistrations.Created)

	assert.EqualValues(t, 1, count(t, db, &models.County{}))
	assert.EqualValues(t, 1, count(t, db, &models.Constituency{}))
	assert.EqualValues(t, 1, count(t, db, &models.Ward{}))
	assert.EqualValues(t, 1, count(t, db, &models.PollingStation{}))
	assert.EqualValues(t, 1, count(t, db, &models.VoterRegistration{}))
}

func TestReconcilerDistinctCountyProperty(t *testing.T) {
	db := setupDB(t)
	r := NewReconciler(db, zap.NewNop(), 100, 8)

	var rows []Row
	for i := 0; i < 250; i++ {
		county := i % 5
		rows = append(rows, Row{
			CountyCode:       fmt.Sprintf("%03d", county),
			CountyName:       fmt.Sprintf("County %d", county),
			ConstCode:        fmt.Sprintf("%03d%d", county, i%3),
			ConstName:        fmt.Sprintf("Const %d-%d", county, i%3),
			WardCode:         fmt.Sprintf("%03d%d%d", county, i%3, i%2),
			WardName:         fmt.Sprintf("Ward %d-%d-%d", county, i%3, i%2),
			StationCode:      fmt.Sprintf("ST%05d", i),
			StationName:      fmt.Sprintf("Station %d", i),
			RegisteredVoters: i % 4,
		})
	}
	// a duplicate station row is counted as existing
	rows = append(rows, rows[0])

	sum := r.Run(context.Background(), rows)
	assert.Equal(t, 5, sum.Counties.Created+sum.Counties.Existing)
	assert.Equal(t, 15, sum.Constituencies.Created)
	assert.Equal(t, 30, sum.Wards.Created)
	assert.Equal(t, 250, sum.PollingStations.Created)
	assert.Equal(t, 1, sum.PollingStations.Existing)
	assert.Empty(t, sum.PollingStations.Errors)

	withVoters := 0
	for _, row := range rows[:250] {
		if row.RegisteredVoters > 0 {
			withVoters++
		}
	}
	assert.Equal(t, withVoters, sum.VoterRegistrations.Created)
	assert.EqualValues(t, 250, count(t, db, &models.PollingStation{}))
}

func TestReconcilerMatchesExistingCountyByName(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&models.County{Code: "047", Name: "NAIROBI"}).Error)

	rows := exampleRows()
	rows[0].CountyCode = "47"
	sum := NewReconciler(db, zap.NewNop(), 100, 1).Run(context.Background(), rows)
	assert.Equal(t, 0, sum.Counties.Created)
	assert.Equal(t, 1, sum.Counties.Existing)
	assert.EqualValues(t, 1, count(t, db, &models.County{}))
}

func TestReconcilerCountyFailureYieldsCountyNotFound(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_county", func(tx *gorm.DB) {
		if c, ok := tx.Statement.Dest.(*models.County); ok && c.Code == "999" {
			_ = tx.AddError(errors.New("county insert refused"))
		}
	}))

	rows := exampleRows()
	bad := rows[0]
	bad.CountyCode, bad.CountyName = "999", "Nowhere"
	bad.StationCode = "999000000001"
	rows = append(rows, bad)

	sum := NewReconciler(db, zap.NewNop(), 100, 2).Run(context.Background(), rows)
	require.Len(t, sum.Counties.Errors, 1)
	assert.Equal(t, ErrProcessing, sum.Counties.Errors[0].ErrorType)
	assert.Equal(t, 1, sum.PollingStations.Created)

	require.Len(t, sum.PollingStations.Errors, 1)
	e := sum.PollingStations.Errors[0]
	assert.Equal(t, ErrCountyNotFound, e.ErrorType)
	assert.Equal(t, "999000000001", e.Code)
	require.NotNil(t, e.RowData)
	assert.Equal(t, "Nowhere", e.RowData.CountyName)

	var n int64
	require.NoError(t, db.Model(&models.PollingStation{}).Where("code = ?", "999000000001").Count(&n).Error)
	assert.Zero(t, n)
	assert.EqualValues(t, 1, count(t, db, &models.VoterRegistration{}))
}

func TestReconcilerConstituencyCodeClashAcrossCounties(t *testing.T) {
	db := setupDB(t)
	r := NewReconciler(db, zap.NewNop(), 100, 2)
	r.Run(context.Background(), exampleRows())

	rows := exampleRows()
	rows[0].CountyCode, rows[0].CountyName = "001", "Mombasa"
	rows[0].ConstName = "Changamwe"
	rows[0].StationCode = "001001000001"

	sum := r.Run(context.Background(), rows)
	assert.Equal(t, 1, sum.Counties.Created)
	require.Len(t, sum.Constituencies.Errors, 1)
	assert.Equal(t, ErrDuplicateCode, sum.Constituencies.Errors[0].ErrorType)
	require.Len(t, sum.PollingStations.Errors, 1)
	assert.Equal(t, ErrConstituencyNotFound, sum.PollingStations.Errors[0].ErrorType)
}

func TestReconcilerZeroVotersSkipsRegistration(t *testing.T) {
	db := setupDB(t)
	rows := exampleRows()
	rows[0].RegisteredVoters = 0
	rows[0].RegCentreName = ""

	sum := NewReconciler(db, zap.NewNop(), 100, 1).Run(context.Background(), rows)
	assert.Equal(t, 1, sum.PollingStations.Created)
	assert.Equal(t, 0, sum.VoterRegistrations.Created)
	assert.EqualValues(t, 0, count(t, db, &models.VoterRegistration{}))

	var station models.PollingStation
	require.NoError(t, db.First(&station).Error)
	assert.Nil(t, station.Address)
}

func wardRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = exampleRows()[0]
		rows[i].StationCode = fmt.Sprintf("S%02d", i+1)
		rows[i].StationName = fmt.Sprintf("Station %d", i+1)
		rows[i].RegisteredVoters = 100 + i
	}
	return rows
}

func TestReconcilerStationFailureDoesNotCancelBatch(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_station", func(tx *gorm.DB) {
		if st, ok := tx.Statement.Dest.(*models.PollingStation); ok && st.Code == "S03" {
			_ = tx.AddError(errors.New("station insert refused"))
		}
	}))

	sum := NewReconciler(db, zap.NewNop(), 100, 3).Run(context.Background(), wardRows(6))
	assert.Equal(t, 5, sum.PollingStations.Created)
	require.Len(t, sum.PollingStations.Errors, 1)
	e := sum.PollingStations.Errors[0]
	assert.Equal(t, "S03", e.Code)
	assert.Equal(t, ErrProcessing, e.ErrorType)
	assert.Contains(t, e.Error, "station insert refused")
	require.NotNil(t, e.RowData)
	assert.Equal(t, "Kilimani", e.WardName)

	assert.Equal(t, 5, sum.VoterRegistrations.Created)
	assert.EqualValues(t, 5, count(t, db, &models.PollingStation{}))
	assert.EqualValues(t, 5, count(t, db, &models.VoterRegistration{}))
}

func TestReconcilerRegistrationFailureKeepsStation(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_registration", func(tx *gorm.DB) {
		if reg, ok := tx.Statement.Dest.(*models.VoterRegistration); ok && reg.RegisteredVoters == 101 {
			_ = tx.AddError(errors.New("registration insert refused"))
		}
	}))

	sum := NewReconciler(db, zap.NewNop(), 100, 2).Run(context.Background(), wardRows(3))
	assert.Equal(t, 3, sum.PollingStations.Created)
	assert.Empty(t, sum.PollingStations.Errors)
	assert.Equal(t, 2, sum.VoterRegistrations.Created)
	require.Len(t, sum.VoterRegistrations.Errors, 1)
	assert.Equal(t, "S02", sum.VoterRegistrations.Errors[0].Code)
	assert.Equal(t, ErrProcessing, sum.VoterRegistrations.Errors[0].ErrorType)
	assert.EqualValues(t, 2, count(t, db, &models.VoterRegistration{}))
}

func TestReconcilerWardFailureYieldsWardNotFound(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_ward", func(tx *gorm.DB) {
		if w, ok := tx.Statement.Dest.(*models.Ward); ok && w.Code == "9999" {
			_ = tx.AddError(errors.New("ward insert refused"))
		}
	}))

	rows := exampleRows()
	bad := rows[0]
	bad.WardCode, bad.WardName = "9999", "Nowhere"
	bad.StationCode = "047274999901"
	rows = append(rows, bad)

	sum := NewReconciler(db, zap.NewNop(), 100, 2).Run(context.Background(), rows)
	assert.Equal(t, 1, sum.Wards.Created)
	require.Len(t, sum.Wards.Errors, 1)
	assert.Equal(t, ErrProcessing, sum.Wards.Errors[0].ErrorType)

	assert.Equal(t, 1, sum.PollingStations.Created)
	require.Len(t, sum.PollingStations.Errors, 1)
	e := sum.PollingStations.Errors[0]
	assert.Equal(t, ErrWardNotFound, e.ErrorType)
	assert.Equal(t, "047274999901", e.Code)
	assert.Equal(t, "9999", e.WardCode)
	assert.Equal(t, "274", e.ConstCode)

	var n int64
	require.NoError(t, db.Model(&models.PollingStation{}).Where("code = ?", "047274999901").Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, 1, sum.VoterRegistrations.Created)
	assert.EqualValues(t, 1, count(t, db, &models.VoterRegistration{}))
}

func TestReconcilerStationCodeUnderOtherWardIsExisting(t *testing.T) {
	db := setupDB(t)
	rec := NewReconciler(db, zap.NewNop(), 100, 2)
	rec.Run(context.Background(), exampleRows())

	moved := exampleRows()
	moved[0].WardCode, moved[0].WardName = "2741", "Kileleshwa"
	sum := rec.Run(context.Background(), moved)
	assert.Equal(t, 1, sum.Wards.Created)
	assert.Equal(t, 0, sum.PollingStations.Created)
	assert.Equal(t, 1, sum.PollingStations.Existing)
	assert.Empty(t, sum.PollingStations.Errors)
	assert.EqualValues(t, 1, count(t, db, &models.PollingStation{}))
}

func TestNewReconcilerClampsBatchSize(t *testing.T) {
	assert.Equal(t, MinBatchSize, NewReconciler(nil, zap.NewNop(), 1, 0).batchSize)
	assert.Equal(t, MaxBatchSize, NewReconciler(nil, zap.NewNop(), 10000, 0).batchSize)
	assert.Equal(t, 1, NewReconciler(nil, zap.NewNop(), 200, 0).workers)
}

func TestRowUnmarshalAcceptsLegacyNames(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{
		"countyCode":"047","countyName":"Nairobi","constCode":"274","constName":"Dagoretti North",
		"cawCode":"2740","cawName":"Kilimani","regCentreName":"ABC Centre",
		"pollingStationCode":"047274020101","pollingStationName":"ABC Primary","registeredVoters":500}`), &row))
	assert.Equal(t, exampleRows()[0], row)
	assert.NoError(t, row.Validate())

	row.StationName = ""
	assert.Error(t, row.Validate())
}

const sampleCSV = "\ufeffCounty Code,County Name,Const Code,Const. Name,CAW Code,CAW Name,Reg. Centre Code,Reg. Centre Name,Polling Station Code,Polling Station Name,Registered Voters\n" +
	"047,Nairobi,274,Dagoretti North,2740,Kilimani,001,ABC Centre,047274020101,ABC Primary,500\n" +
	"\n" +
	"047,Nairobi,274,Dagoretti North,2740,Kilimani,001,ABC Centre,047274020102,\"ABC Primary, Stream 2\",n/a\n"

func TestParseCSV(t *testing.T) {
	records, err := ReadRecords("stations.CSV", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	rows, err := ParseRows(records)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exampleRows()[0].StationCode, rows[0].StationCode)
	assert.Equal(t, "001", rows[0].RegCentreCode)
	assert.Equal(t, 500, rows[0].RegisteredVoters)
	assert.Equal(t, "ABC Primary, Stream 2", rows[1].StationName)
	assert.Equal(t, 0, rows[1].RegisteredVoters)
}

func TestParseRowsMissingHeaders(t *testing.T) {
	_, err := ParseRows([][]string{{"County Code", "County Name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Const Code")

	_, err = ParseRows(nil)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	records, err := ReadRecords("a.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	p := PreviewRecords(records)
	assert.Equal(t, Headers, p.Headers)
	assert.Equal(t, 2, p.TotalRecords)
	assert.Len(t, p.PreviewData, 2)
	assert.Empty(t, p.MissingHeaders)

	p = PreviewRecords([][]string{{"Foo"}})
	assert.Len(t, p.MissingHeaders, len(Headers))
}

func TestReadRecordsRejectsOtherFiles(t *testing.T) {
	_, err := ReadRecords("stations.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestTemplateRoundTrip(t *testing.T) {
	buf, err := Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{TemplateSheet}, f.GetSheetList())

	buf, err = Template()
	require.NoError(t, err)
	records, err := ReadRecords(TemplateFilename, buf)
	require.NoError(t, err)
	rows, err := ParseRows(records)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "047274020101", rows[0].StationCode)
	assert.Equal(t, 500, rows[0].RegisteredVoters)
}
