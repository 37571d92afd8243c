package dataset

import (
	"encoding/json"
	"fmt"
	"math"
)

// Issue is a data-integrity warning found in a summary received from the backend.
// Issues are advisory: the record is kept and rendered anyway.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	return i.Field + ": " + i.Message
}

// Validate checks the internal consistency of a summary.
func Validate(s DatasetSummary) []Issue {
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if s.TotalCount < 0 {
		add("total_count", "negative total %d", s.TotalCount)
	}
	sum := 0
	for _, name := range s.TypeNames() {
		c := s.TypeCounts[name]
		if c < 0 {
			add("equipment_types."+name, "negative count %d", c)
		}
		sum += c
	}
	if sum != s.TotalCount {
		add("equipment_types", "counts sum to %d, total is %d", sum, s.TotalCount)
	}

	for _, p := range Parameters {
		r := s.Ranges.Get(p)
		avg := s.Averages.Get(p)
		field := string(p)
		if !finite(r.Min) || !finite(r.Max) || !finite(avg) {
			add(field, "non-finite value (min=%v avg=%v max=%v)", r.Min, avg, r.Max)
			continue
		}
		if r.Min > r.Max {
			add(field, "min %.4g exceeds max %.4g", r.Min, r.Max)
			continue
		}
		if avg < r.Min || avg > r.Max {
			add(field, "average %.4g outside [%.4g, %.4g]", avg, r.Min, r.Max)
		}
	}
	return issues
}

// ValidateRecord validates the summary and, when rows are attached, that the
// row count matches the summary total.
func ValidateRecord(d DatasetRecord) []Issue {
	issues := Validate(d.Summary)
	if d.HasRows() && len(d.Rows) != d.Summary.TotalCount {
		issues = append(issues, Issue{
			Field:   "records",
			Message: fmt.Sprintf("%d rows attached, total is %d", len(d.Rows), d.Summary.TotalCount),
		})
	}
	for i, row := range d.Rows {
		for _, p := range Parameters {
			if !finite(row.Value(p)) {
				issues = append(issues, Issue{
					Field:   fmt.Sprintf("records[%d].%s", i, p),
					Message: "non-finite value",
				})
			}
		}
	}
	return issues
}

// Sanitize returns a copy that is safe to project: non-finite numbers become
// zero and negative counts are clamped. It never touches the stored record.
func Sanitize(s DatasetSummary) DatasetSummary {
	out := DatasetSummary{
		TotalCount: max(s.TotalCount, 0),
		TypeCounts: make(map[string]int, len(s.TypeCounts)),
		Averages: Params{
			Flowrate:    orZero(s.Averages.Flowrate),
			Pressure:    orZero(s.Averages.Pressure),
			Temperature: orZero(s.Averages.Temperature),
		},
		Ranges: Ranges{
			Flowrate:    sanitizeRange(s.Ranges.Flowrate),
			Pressure:    sanitizeRange(s.Ranges.Pressure),
			Temperature: sanitizeRange(s.Ranges.Temperature),
		},
	}
	for name, c := range s.TypeCounts {
		out.TypeCounts[name] = max(c, 0)
	}
	return out
}

// DecodeRecord decodes a DatasetRecord from its JSON wire form.
func DecodeRecord(data []byte) (DatasetRecord, error) {
	var d DatasetRecord
	if err := json.Unmarshal(data, &d); err != nil {
		return DatasetRecord{}, fmt.Errorf("decode dataset: %w", err)
	}
	if d.Summary.TypeCounts == nil {
		d.Summary.TypeCounts = map[string]int{}
	}
	return d, nil
}

// DecodeHistory decodes the ordered history list. Row data, if present, is dropped.
func DecodeHistory(data []byte) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	for i := range entries {
		if entries[i].Summary.TypeCounts == nil {
			entries[i].Summary.TypeCounts = map[string]int{}
		}
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

func sanitizeRange(r Range) Range {
	return Range{Min: orZero(r.Min), Max: orZero(r.Max)}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func orZero(v float64) float64 {
	if finite(v) {
		return v
	}
	return 0
}
