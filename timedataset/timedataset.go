// Package timedataset prepares indicator observations into ordered time series
// for model fitting. Series are sparse and irregular by nature; no gap filling
// or interpolation is performed here since the downstream model choice governs
// gap tolerance.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrEmptyInput         = errors.New("no usable observations for indicator")
	ErrNonMonotonic       = errors.New("time feature is not strictly increasing")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
)

// Observation is a single measured value of one indicator at a point in time.
// Value is NaN when the source row carried no numeric value. Source and
// Confidence are pass-through metadata from the loader.
type Observation struct {
	IndicatorCode string
	Timestamp     time.Time
	Value         float64
	Source        string
	Confidence    string
}

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length with strictly increasing times.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if currT.Before(lastT) || currT.Equal(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMonotonic)
		}
		lastT = currT
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// PrepareTimeSeries filters the observation collection down to one indicator
// code, drops rows without a numeric value, and returns the value series sorted
// by timestamp ascending. The frequency describes the spacing of the series and
// is carried to forecast calls to extend future timestamps.
func PrepareTimeSeries(obs []Observation, indicatorCode string, freq Frequency) (*TimeDataset, error) {
	if err := freq.Validate(); err != nil {
		return nil, err
	}

	rows := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.IndicatorCode != indicatorCode {
			continue
		}
		if math.IsNaN(o.Value) {
			continue
		}
		rows = append(rows, o)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("indicator %q, %w", indicatorCode, ErrEmptyInput)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	t := make([]time.Time, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, o := range rows {
		t = append(t, o.Timestamp)
		y = append(y, o.Value)
	}

	td, err := NewUnivariateDataset(t, y)
	if err != nil {
		return nil, fmt.Errorf("indicator %q, %w", indicatorCode, err)
	}
	return td, nil
}

// Copy returns a deep copy of the dataset.
func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// Len returns the number of observations in the dataset.
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

// DropNaN returns a new dataset with all NaN value rows removed.
func (td *TimeDataset) DropNaN() *TimeDataset {
	if td == nil {
		return nil
	}
	t := make([]time.Time, 0, len(td.T))
	y := make([]float64, 0, len(td.Y))
	for i := 0; i < len(td.T); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		t = append(t, td.T[i])
		y = append(y, td.Y[i])
	}
	return &TimeDataset{T: t, Y: y}
}
