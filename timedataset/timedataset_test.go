package timedataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annual(year int) time.Time {
	return time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
}

func TestNewUnivariateDataset(t *testing.T) {
	testData := map[string]struct {
		t        []time.Time
		y        []float64
		expected *TimeDataset
		err      error
	}{
		"no training data": {
			err: ErrNoTrainingData,
		},
		"length mismatch": {
			y:   []float64{1},
			err: ErrDatasetLenMismatch,
		},
		"non increasing time": {
			t: []time.Time{
				time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			y:   []float64{1, 2},
			err: ErrNonMonotonic,
		},
		"duplicate time": {
			t: []time.Time{
				time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			y:   []float64{1, 2},
			err: ErrNonMonotonic,
		},
		"valid": {
			t: []time.Time{
				time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			y: []float64{1, 2},
			expected: &TimeDataset{
				T: []time.Time{
					time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
					time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
				},
				Y: []float64{1, 2},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ds, err := NewUnivariateDataset(td.t, td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, ds)
		})
	}
}

func TestPrepareTimeSeries(t *testing.T) {
	obs := []Observation{
		{IndicatorCode: "ACC_OWNERSHIP", Timestamp: annual(2021), Value: 46.5, Source: "Findex"},
		{IndicatorCode: "MOBILE_MONEY", Timestamp: annual(2021), Value: 9.3},
		{IndicatorCode: "ACC_OWNERSHIP", Timestamp: annual(2017), Value: 34.8},
		{IndicatorCode: "ACC_OWNERSHIP", Timestamp: annual(2019), Value: math.NaN()},
		{IndicatorCode: "ACC_OWNERSHIP", Timestamp: annual(2014), Value: 21.8},
	}

	testData := map[string]struct {
		code     string
		freq     Frequency
		expected *TimeDataset
		err      error
	}{
		"filters sorts and drops missing values": {
			code: "ACC_OWNERSHIP",
			freq: Annual,
			expected: &TimeDataset{
				T: []time.Time{annual(2014), annual(2017), annual(2021)},
				Y: []float64{21.8, 34.8, 46.5},
			},
		},
		"single matching indicator": {
			code: "MOBILE_MONEY",
			freq: Annual,
			expected: &TimeDataset{
				T: []time.Time{annual(2021)},
				Y: []float64{9.3},
			},
		},
		"no matching indicator": {
			code: "SAVINGS_RATE",
			freq: Annual,
			err:  ErrEmptyInput,
		},
		"unknown frequency": {
			code: "ACC_OWNERSHIP",
			freq: Frequency("W"),
			err:  ErrUnknownFrequency,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ds, err := PrepareTimeSeries(obs, td.code, td.freq)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, ds)
		})
	}
}

func TestCopy(t *testing.T) {
	ds, err := NewUnivariateDataset(
		[]time.Time{annual(2020), annual(2021)},
		[]float64{40.1, 43.2},
	)
	require.Nil(t, err)

	nextDs := ds.Copy()
	require.Equal(t, ds, nextDs)

	ds.Y[0] = 99.9
	require.NotEqual(t, nextDs, ds)
}

func TestDropNaN(t *testing.T) {
	ds := &TimeDataset{
		T: []time.Time{annual(2019), annual(2020), annual(2021)},
		Y: []float64{40.1, math.NaN(), 43.2},
	}
	expected := &TimeDataset{
		T: []time.Time{annual(2019), annual(2021)},
		Y: []float64{40.1, 43.2},
	}
	assert.Equal(t, expected, ds.DropNaN())
}
