package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoHeader is returned when the uploaded file has no heading row.
var ErrNoHeader = errors.New("spreadsheet has no heading row")

// ReadTable parses an uploaded spreadsheet into data rows. The first row is
// the heading row; row numbering matches what a spreadsheet UI shows, so the
// first data row is row 2. Entirely blank rows are dropped but still hold
// their sheet position in the numbering. CSV and XLSX are supported, chosen
// by file extension.
func ReadTable(r io.Reader, filename string) ([]RawRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	}
	return nil, fmt.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(filename))
}

func readCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records := make([][]string, 0, 256)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		records = append(records, record)
	}
	return tableFromRecords(records)
}

func readXLSX(r io.Reader) ([]RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoHeader
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return tableFromRecords(records)
}

func tableFromRecords(records [][]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	rows := make([]RawRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if blankRecord(record) {
			continue
		}
		cells := make(map[string]any, len(headers))
		for col, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if col < len(record) {
				value = record[col]
			}
			cells[header] = value
		}
		rows = append(rows, RawRow{Number: i + 2, Cells: cells})
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
