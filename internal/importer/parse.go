package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Fixed column headers of the IEBC polling-station export.
const (
	HeaderCountyCode       = "County Code"
	HeaderCountyName       = "County Name"
	HeaderConstCode        = "Const Code"
	HeaderConstName        = "Const. Name"
	HeaderWardCode         = "CAW Code"
	HeaderWardName         = "CAW Name"
	HeaderRegCentreCode    = "Reg. Centre Code"
	HeaderRegCentreName    = "Reg. Centre Name"
	HeaderStationCode      = "Polling Station Code"
	HeaderStationName      = "Polling Station Name"
	HeaderRegisteredVoters = "Registered Voters"
)

var Headers = []string{
	HeaderCountyCode,
	HeaderCountyName,
	HeaderConstCode,
	HeaderConstName,
	HeaderWardCode,
	HeaderWardName,
	HeaderRegCentreCode,
	HeaderRegCentreName,
	HeaderStationCode,
	HeaderStationName,
	HeaderRegisteredVoters,
}

const previewRows = 5

var ErrUnsupportedFile = errors.New("only .csv and .xlsx files are allowed")

type Preview struct {
	Headers        []string   `json:"headers"`
	PreviewData    [][]string `json:"previewData"`
	TotalRecords   int        `json:"totalRecords"`
	MissingHeaders []string   `json:"missingHeaders"`
}

// ReadRecords returns the raw cells of a .csv or .xlsx upload, header first.
func ReadRecords(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	default:
		return nil, ErrUnsupportedFile
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("invalid xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	records := rows[:0]
	for _, row := range rows {
		if !isBlank(row) {
			records = append(records, row)
		}
	}
	return records, nil
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func headerIndex(header []string) (map[string]int, []string) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, h := range Headers {
		if _, ok := idx[h]; !ok {
			missing = append(missing, h)
		}
	}
	return idx, missing
}

// PreviewRecords summarises an upload without importing it.
func PreviewRecords(records [][]string) Preview {
	p := Preview{PreviewData: [][]string{}, MissingHeaders: []string{}}
	if len(records) == 0 {
		p.Headers = []string{}
		p.MissingHeaders = append(p.MissingHeaders, Headers...)
		return p
	}
	for _, h := range records[0] {
		p.Headers = append(p.Headers, strings.TrimSpace(h))
	}
	_, missing := headerIndex(records[0])
	p.MissingHeaders = append(p.MissingHeaders, missing...)
	p.TotalRecords = len(records) - 1
	for _, rec := range records[1:min(len(records), previewRows+1)] {
		cells := make([]string, len(rec))
		for i, c := range rec {
			cells[i] = strings.TrimSpace(c)
		}
		p.PreviewData = append(p.PreviewData, cells)
	}
	return p
}

// ParseRows maps records onto Rows by the fixed headers. A registered voter
// count that is not an integer is read as 0.
func ParseRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}
	idx, missing := headerIndex(records[0])
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required headers: %s", strings.Join(missing, ", "))
	}

	cell := func(rec []string, header string) string {
		i := idx[header]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		voters, err := strconv.Atoi(cell(rec, HeaderRegisteredVoters))
		if err != nil || voters < 0 {
			voters = 0
		}
		rows = append(rows, Row{
			CountyCode:       cell(rec, HeaderCountyCode),
			CountyName:       cell(rec, HeaderCountyName),
			ConstCode:        cell(rec, HeaderConstCode),
			ConstName:        cell(rec, HeaderConstName),
			WardCode:         cell(rec, HeaderWardCode),
			WardName:         cell(rec, HeaderWardName),
			RegCentreCode:    cell(rec, HeaderRegCentreCode),
			RegCentreName:    cell(rec, HeaderRegCentreName),
			StationCode:      cell(rec, HeaderStationCode),
			StationName:      cell(rec, HeaderStationName),
			RegisteredVoters: voters,
		})
	}
	return rows, nil
}
