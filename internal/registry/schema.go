package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Snapshot is one full tabular read of the registry sheet. Row 0 is the
// header and is ignored by all business logic; rows 1..N are records.
// A snapshot is never mutated after fetch, only replaced wholesale.
type Snapshot [][]string

// Column layout of the registry worksheet (0-based). The remote sheet
// is read as A1:AI, so an in-range snapshot spans SchemaWidth columns.
// Bump SchemaVersion whenever these offsets change.
const (
	ColUID          = 0  // A: HEMIS UID
	ColHemisID      = 2  // C: HEMIS ID
	ColFullName     = 3  // D: F.I.O
	ColStatus       = 4  // E: employment status
	ColPersonalNo   = 5  // F: JSHSHIR
	ColGroup        = 14 // O: group
	ColSpecialty    = 22 // W: specialty / direction
	ColFaculty      = 23 // X: faculty
	ColPosition     = 29 // AD: position (contract holders only)
	ColOrganization = 30 // AE: organization (contract holders only)
	ColContractDate = 34 // AI: contract date (contract holders only)

	SchemaVersion = 1
	SchemaWidth   = ColContractDate + 1
)

var (
	// ErrSourceUnavailable wraps any remote fetch failure. Callers get
	// this instead of stale or empty data.
	ErrSourceUnavailable = errors.New("registry source unavailable")

	// ErrSchemaMismatch means the sheet no longer covers the column
	// range this code reads fixed offsets from.
	ErrSchemaMismatch = errors.New("registry sheet schema mismatch")
)

// Cell returns the trimmed value at idx, or "" when the row is shorter
// than idx. Rows coming off the sheet API are ragged, so every field
// read goes through here.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ValidateColumns checks a freshly fetched snapshot against the column
// layout (schema v1). It fails fast on a reshaped sheet instead of
// letting fixed offsets silently read the wrong fields.
func ValidateColumns(snap Snapshot) error {
	if len(snap) == 0 {
		return fmt.Errorf("%w: empty sheet, want header row with %d columns (schema v%d)",
			ErrSchemaMismatch, SchemaWidth, SchemaVersion)
	}
	if len(snap[0]) < SchemaWidth {
		return fmt.Errorf("%w: header has %d columns, want at least %d (schema v%d)",
			ErrSchemaMismatch, len(snap[0]), SchemaWidth, SchemaVersion)
	}
	return nil
}
