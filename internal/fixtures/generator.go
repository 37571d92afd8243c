package fixtures

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/equipviz/internal/dataset"
)

// SampleCSV is the upload body whose analysis is SampleSummary.
const SampleCSV = dataset.ExampleCSV

// SampleRows returns the rows of SampleCSV in file order.
func SampleRows() []dataset.EquipmentRow {
	return []dataset.EquipmentRow{
		{Name: "Reactor-001", Type: "Reactor", Flowrate: 150.5, Pressure: 10.2, Temperature: 85.0},
		{Name: "Mixer-001", Type: "Mixer", Flowrate: 200.0, Pressure: 5.5, Temperature: 65.0},
		{Name: "Separator-001", Type: "Separator", Flowrate: 120.3, Pressure: 8.7, Temperature: 75.5},
		{Name: "Reactor-002", Type: "Reactor", Flowrate: 180.7, Pressure: 12.1, Temperature: 90.0},
		{Name: "Pump-001", Type: "Pump", Flowrate: 300.2, Pressure: 15.3, Temperature: 40.0},
	}
}

// SampleSummary is the backend's summary of SampleRows.
func SampleSummary() dataset.DatasetSummary {
	return dataset.DatasetSummary{
		TotalCount: 5,
		TypeCounts: map[string]int{"Reactor": 2, "Mixer": 1, "Separator": 1, "Pump": 1},
		Averages:   dataset.Params{Flowrate: 190.34, Pressure: 10.36, Temperature: 71.1},
		Ranges: dataset.Ranges{
			Flowrate:    dataset.Range{Min: 120.3, Max: 300.2},
			Pressure:    dataset.Range{Min: 5.5, Max: 15.3},
			Temperature: dataset.Range{Min: 40.0, Max: 90.0},
		},
	}
}

// SampleRecord returns the five-row dataset under a fresh id.
func SampleRecord(name string, uploaded time.Time) dataset.DatasetRecord {
	return dataset.DatasetRecord{
		ID:         uuid.NewString(),
		Name:       name,
		UploadedAt: uploaded.UTC(),
		Summary:    SampleSummary(),
		Rows:       SampleRows(),
	}
}

var equipmentTypes = []string{"Reactor", "Mixer", "Separator", "Pump", "Heat Exchanger", "Compressor"}

// RandomRecord builds a dataset of n rows with a summary that is consistent with
// them, for rendering and paging tests.
func RandomRecord(r *rand.Rand, name string, n int, uploaded time.Time) dataset.DatasetRecord {
	rows := make([]dataset.EquipmentRow, 0, n)
	counts := map[string]int{}
	var sums dataset.Params
	ranges := dataset.Ranges{}
	for i := 0; i < n; i++ {
		typ := equipmentTypes[r.Intn(len(equipmentTypes))]
		row := dataset.EquipmentRow{
			Name:        fmt.Sprintf("%s-%03d", strings.ReplaceAll(typ, " ", ""), i+1),
			Type:        typ,
			Flowrate:    float64(r.Intn(30000)+500) / 100,
			Pressure:    float64(r.Intn(2000)+100) / 100,
			Temperature: float64(r.Intn(15000)+2000) / 100,
		}
		rows = append(rows, row)
		counts[typ]++
		sums.Flowrate += row.Flowrate
		sums.Pressure += row.Pressure
		sums.Temperature += row.Temperature
		ranges.Flowrate = widen(ranges.Flowrate, row.Flowrate, i == 0)
		ranges.Pressure = widen(ranges.Pressure, row.Pressure, i == 0)
		ranges.Temperature = widen(ranges.Temperature, row.Temperature, i == 0)
	}
	avg := dataset.Params{}
	if n > 0 {
		avg = dataset.Params{
			Flowrate:    sums.Flowrate / float64(n),
			Pressure:    sums.Pressure / float64(n),
			Temperature: sums.Temperature / float64(n),
		}
	}
	return dataset.DatasetRecord{
		ID:         uuid.NewString(),
		Name:       name,
		UploadedAt: uploaded.UTC(),
		Summary: dataset.DatasetSummary{
			TotalCount: n,
			TypeCounts: counts,
			Averages:   avg,
			Ranges:     ranges,
		},
		Rows: rows,
	}
}

func widen(r dataset.Range, v float64, first bool) dataset.Range {
	if first {
		return dataset.Range{Min: v, Max: v}
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
	return r
}
