package registry

import (
	"math"
	"sort"
	"strings"
)

// UnknownGroup labels rows whose grouping column is empty.
const UnknownGroup = "Noma'lum"

// Engine turns snapshots into result sets and summaries. It holds the
// configured required-status phrase; matching is plain case-folded
// substring containment, same as the upstream registry convention.
type Engine struct {
	requiredStatus string
}

func NewEngine(requiredStatus string) *Engine {
	return &Engine{requiredStatus: strings.ToLower(strings.TrimSpace(requiredStatus))}
}

// Active reports whether a status text denotes an active contract.
func (e *Engine) Active(status string) bool {
	if e.requiredStatus == "" {
		return false
	}
	return strings.Contains(strings.ToLower(status), e.requiredStatus)
}

// Search scans the snapshot's data rows in order and returns the
// records whose full name, HEMIS ID, personal number or UID contains
// the query (case-insensitive substring). An empty query returns an
// empty result set without scanning. Search never mutates the snapshot
// and does no I/O.
func (e *Engine) Search(snap Snapshot, query string) []Record {
	results := []Record{}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return results
	}
	for _, row := range dataRows(snap) {
		uid := Cell(row, ColUID)
		hemis := Cell(row, ColHemisID)
		fio := Cell(row, ColFullName)
		jsh := Cell(row, ColPersonalNo)
		if fio == "" && hemis == "" && jsh == "" && uid == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(fio), q) &&
			!strings.Contains(strings.ToLower(hemis), q) &&
			!strings.Contains(strings.ToLower(jsh), q) &&
			!strings.Contains(strings.ToLower(uid), q) {
			continue
		}
		rec := Record{
			UID:        uid,
			HemisID:    hemis,
			FullName:   fio,
			Status:     Cell(row, ColStatus),
			PersonalNo: jsh,
			Group:      Cell(row, ColGroup),
			Specialty:  Cell(row, ColSpecialty),
			Faculty:    Cell(row, ColFaculty),
		}
		if e.Active(rec.Status) {
			rec.Contract = &Contract{
				Position:     Cell(row, ColPosition),
				Organization: Cell(row, ColOrganization),
				Date:         Cell(row, ColContractDate),
			}
		}
		results = append(results, rec)
	}
	return results
}

// Summarize computes the headline counts over a result set. The
// percentage is rounded to two decimals and is 0.0 for an empty set.
func (e *Engine) Summarize(results []Record) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if e.Active(r.Status) {
			s.Active++
		}
	}
	s.Percent = percent(s.Active, s.Total)
	return s
}

// SummarizeSnapshot computes the headline counts over every data row
// of a snapshot, the same way Summarize does over a result set.
func (e *Engine) SummarizeSnapshot(snap Snapshot) Summary {
	var s Summary
	for _, row := range dataRows(snap) {
		s.Total++
		if e.Active(Cell(row, ColStatus)) {
			s.Active++
		}
	}
	s.Percent = percent(s.Active, s.Total)
	return s
}

// SummarizeGrouped computes per-group totals over the full snapshot,
// grouping by the given column. Rows with an empty group value fall
// under UnknownGroup. Groups come back in case-insensitive
// lexicographic order so output is reproducible.
func (e *Engine) SummarizeGrouped(snap Snapshot, col int) []GroupSummary {
	byLabel := map[string]*GroupSummary{}
	for _, row := range dataRows(snap) {
		label := Cell(row, col)
		if label == "" {
			label = UnknownGroup
		}
		g, ok := byLabel[label]
		if !ok {
			g = &GroupSummary{Label: label}
			byLabel[label] = g
		}
		g.Total++
		if e.Active(Cell(row, ColStatus)) {
			g.Active++
		}
	}
	groups := make([]GroupSummary, 0, len(byLabel))
	for _, g := range byLabel {
		g.Percent = percent(g.Active, g.Total)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Label) < strings.ToLower(groups[j].Label)
	})
	return groups
}

// CountByColumn tallies non-empty values of one column over the data
// rows, ordered by descending count (ties by label) for chart output.
func CountByColumn(snap Snapshot, col int) []GroupSummary {
	counts := map[string]int{}
	for _, row := range dataRows(snap) {
		if v := Cell(row, col); v != "" {
			counts[v]++
		}
	}
	out := make([]GroupSummary, 0, len(counts))
	for label, n := range counts {
		out = append(out, GroupSummary{Label: label, Summary: Summary{Total: n}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func dataRows(snap Snapshot) [][]string {
	if len(snap) <= 1 {
		return nil
	}
	return snap[1:]
}

func percent(active, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return math.Round(float64(active)/float64(total)*100*100) / 100
}
