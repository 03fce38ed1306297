package fincast

import (
	"io"
	"time"

	"github.com/goccy/go-json"
)

// Forecast is an ordered sequence of future periods with point estimates and
// two-sided confidence bounds, lower <= point <= upper per row.
type Forecast struct {
	T     []time.Time `json:"time"`
	Point []float64   `json:"forecast"`
	Lower []float64   `json:"lower"`
	Upper []float64   `json:"upper"`
}

// Row is one period of the output forecast table consumed by the reporting
// layer.
type Row struct {
	Date     time.Time `json:"date"`
	Forecast float64   `json:"forecast"`
	LowerCI  float64   `json:"lower_ci"`
	UpperCI  float64   `json:"upper_ci"`
}

// Len returns the number of forecast periods.
func (f *Forecast) Len() int {
	if f == nil {
		return 0
	}
	return len(f.T)
}

// Copy returns a deep copy of the forecast.
func (f *Forecast) Copy() *Forecast {
	if f == nil {
		return nil
	}
	out := &Forecast{
		T:     make([]time.Time, len(f.T)),
		Point: make([]float64, len(f.Point)),
		Lower: make([]float64, len(f.Lower)),
		Upper: make([]float64, len(f.Upper)),
	}
	copy(out.T, f.T)
	copy(out.Point, f.Point)
	copy(out.Lower, f.Lower)
	copy(out.Upper, f.Upper)
	return out
}

// Rows converts the forecast into the four-column table shape
// {date, forecast, lower_ci, upper_ci}.
func (f *Forecast) Rows() []Row {
	rows := make([]Row, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		rows = append(rows, Row{
			Date:     f.T[i],
			Forecast: f.Point[i],
			LowerCI:  f.Lower[i],
			UpperCI:  f.Upper[i],
		})
	}
	return rows
}

// WriteJSON writes the forecast table as a JSON array of rows.
func (f *Forecast) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(f.Rows())
}

// GrowthRate returns the percent change from previous to current. A zero
// previous value yields 0 rather than a division blowup since reporting
// treats it as no measurable base.
func GrowthRate(previous, current float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
