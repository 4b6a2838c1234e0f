package importer

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

const (
	TemplateSheet       = "Polling Stations"
	TemplateFilename    = "polling-stations-template.xlsx"
	TemplateContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exampleRow = []any{
	"047", "Nairobi", "274", "Dagoretti North", "2740", "Kilimani",
	"001", "ABC Centre", "047274020101", "ABC Primary", 500,
}

// Template builds the import workbook: the fixed header row and one example.
func Template() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(TemplateSheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(TemplateSheet, "A2", &exampleRow); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(TemplateSheet, "A1", last+"1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(TemplateSheet, "A", last, 22); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
