package dataset

import (
	"sort"
	"time"
)

// Parameter names one of the measured process parameters.
type Parameter string

const (
	Flowrate    Parameter = "flowrate"
	Pressure    Parameter = "pressure"
	Temperature Parameter = "temperature"
)

// Parameters lists the measured parameters in display order.
var Parameters = []Parameter{Flowrate, Pressure, Temperature}

// Label returns the capitalised parameter name.
func (p Parameter) Label() string {
	switch p {
	case Flowrate:
		return "Flowrate"
	case Pressure:
		return "Pressure"
	case Temperature:
		return "Temperature"
	default:
		return string(p)
	}
}

// EquipmentRow is one line of the uploaded CSV. Rows have no identity beyond position.
type EquipmentRow struct {
	Name        string  `json:"equipment_name"`
	Type        string  `json:"equipment_type"`
	Flowrate    float64 `json:"flowrate"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

// Value returns the row's reading for p.
func (r EquipmentRow) Value(p Parameter) float64 {
	switch p {
	case Flowrate:
		return r.Flowrate
	case Pressure:
		return r.Pressure
	case Temperature:
		return r.Temperature
	default:
		return 0
	}
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Params holds one value per parameter.
type Params struct {
	Flowrate    float64 `json:"flowrate"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

// Get returns the value for p.
func (v Params) Get(p Parameter) float64 {
	switch p {
	case Flowrate:
		return v.Flowrate
	case Pressure:
		return v.Pressure
	case Temperature:
		return v.Temperature
	default:
		return 0
	}
}

// Ranges holds one Range per parameter.
type Ranges struct {
	Flowrate    Range `json:"flowrate"`
	Pressure    Range `json:"pressure"`
	Temperature Range `json:"temperature"`
}

// Get returns the range for p.
func (r Ranges) Get(p Parameter) Range {
	switch p {
	case Flowrate:
		return r.Flowrate
	case Pressure:
		return r.Pressure
	case Temperature:
		return r.Temperature
	default:
		return Range{}
	}
}

// DatasetSummary is the aggregate computed by the backend for one dataset.
type DatasetSummary struct {
	TotalCount int            `json:"total_count"`
	TypeCounts map[string]int `json:"equipment_types"`
	Averages   Params         `json:"averages"`
	Ranges     Ranges         `json:"ranges"`
}

// TypeNames returns equipment type names ordered by descending count, then name.
func (s DatasetSummary) TypeNames() []string {
	names := make([]string, 0, len(s.TypeCounts))
	for name := range s.TypeCounts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.TypeCounts[names[i]], s.TypeCounts[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}

// DatasetRecord is the analysis result of one uploaded CSV.
//
// ID, Name and UploadedAt never change once the record exists. Summary and Rows
// are decoded together from a single backend response.
type DatasetRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	UploadedAt time.Time      `json:"upload_date"`
	Summary    DatasetSummary `json:"summary_data"`
	Rows       []EquipmentRow `json:"records,omitempty"`
}

// Entry returns the summary-level view of the record, dropping rows.
func (d DatasetRecord) Entry() HistoryEntry {
	return HistoryEntry{
		ID:         d.ID,
		Name:       d.Name,
		UploadedAt: d.UploadedAt,
		Summary:    d.Summary,
	}
}

// HasRows reports whether row-level detail is attached.
func (d DatasetRecord) HasRows() bool { return d.Rows != nil }

// HistoryEntry references a previously analysed dataset without its rows.
type HistoryEntry struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	UploadedAt time.Time      `json:"upload_date"`
	Summary    DatasetSummary `json:"summary_data"`
}

// Record converts the entry into a record suitable for display. Rows stay nil.
func (h HistoryEntry) Record() DatasetRecord {
	return DatasetRecord{
		ID:         h.ID,
		Name:       h.Name,
		UploadedAt: h.UploadedAt,
		Summary:    h.Summary,
	}
}

// ShortID returns the first eight characters of id.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// ExampleCSV shows the column layout the backend accepts.
const ExampleCSV = `Equipment Name,Equipment Type,Flowrate,Pressure,Temperature
Reactor-001,Reactor,150.5,10.2,85.0
Mixer-001,Mixer,200.0,5.5,65.0
Separator-001,Separator,120.3,8.7,75.5
Reactor-002,Reactor,180.7,12.1,90.0
Pump-001,Pump,300.2,15.3,40.0
`

// ReportFilename is the file name offered for a dataset's PDF report.
func ReportFilename(id string) string {
	return "equipment_report_" + ShortID(id) + ".pdf"
}
