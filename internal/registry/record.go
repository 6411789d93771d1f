package registry

// Contract holds the employment fields that only exist for records
// whose status contains the required-status phrase. Records without an
// active contract carry a nil *Contract, so the sensitive fields are
// absent rather than blank.
type Contract struct {
	Position     string
	Organization string
	Date         string
}

// Record is the projection of one snapshot row.
type Record struct {
	UID        string
	HemisID    string
	FullName   string
	Status     string
	PersonalNo string
	Group      string
	Specialty  string
	Faculty    string
	Contract   *Contract
}

// Summary is the headline triple over a result set or the full sheet.
type Summary struct {
	Total   int
	Active  int
	Percent float64
}

// GroupSummary is one group's summary in a grouped breakdown.
type GroupSummary struct {
	Label string
	Summary
}
