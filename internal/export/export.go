// Package export serializes a result set to an in-memory Excel file.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shohabbosdev/registrybot/internal/registry"
)

// MaxFileSize is the Telegram document ceiling; larger artifacts are
// rejected instead of sent.
const MaxFileSize = 50 << 20

// ErrTooLarge means the serialized workbook exceeds MaxFileSize.
var ErrTooLarge = errors.New("export exceeds size limit")

var header = []any{
	"hemisuid", "hemis", "fio", "fakultet", "mutaxassislik",
	"guruh", "jshshir", "status", "lavozim", "tashkilot", "sanasi",
}

// ResultsToXLSX writes the full (unpaged) result set into one
// worksheet. Contract columns stay blank for redacted records.
func ResultsToXLSX(results []registry.Record) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, r := range results {
		row := []any{
			r.UID, r.HemisID, r.FullName, r.Faculty, r.Specialty,
			r.Group, r.PersonalNo, r.Status, "", "", "",
		}
		if r.Contract != nil {
			row[8] = r.Contract.Position
			row[9] = r.Contract.Organization
			row[10] = r.Contract.Date
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row %d cell name: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	if buf.Len() > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, buf.Len())
	}
	return buf, nil
}

// Filename stamps the export with the local time it was produced.
func Filename(t time.Time) string {
	return "Result-" + t.Format("2006_01_02_15_04_05") + ".xlsx"
}
