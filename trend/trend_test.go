package trend

import (
	"math"
	"testing"
	"time"

	"github.com/addisanalytics/fincast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annualDataset(t *testing.T, y []float64) *timedataset.TimeDataset {
	t.Helper()
	ts := make([]time.Time, len(y))
	for i := range y {
		ts[i] = time.Date(2015+i, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	td, err := timedataset.NewUnivariateDataset(ts, y)
	require.Nil(t, err)
	return td
}

func TestOptionsValidate(t *testing.T) {
	opt, err := (*Options)(nil).Validate()
	require.Nil(t, err)
	assert.Equal(t, DefaultIntervalWidth, opt.IntervalWidth)
	assert.Equal(t, DefaultSamples, opt.Samples)

	_, err = (&Options{IntervalWidth: 1.5}).Validate()
	assert.ErrorIs(t, err, ErrInvalidIntervalWidth)
}

func TestFitErrors(t *testing.T) {
	td := annualDataset(t, []float64{40, 42, 44, 46, 48})

	testData := map[string]struct {
		td    *timedataset.TimeDataset
		frame map[string][]float64
		opt   *Options
		err   error
	}{
		"nil dataset": {
			err: ErrNoTimeDataset,
		},
		"single observation": {
			td:  annualDataset(t, []float64{40}),
			err: ErrInsufficientData,
		},
		"unknown regressor": {
			td:  td,
			opt: &Options{Regressors: []string{"mobile_subs"}},
			err: ErrUnknownRegressor,
		},
		"regressor length mismatch": {
			td:    td,
			frame: map[string][]float64{"mobile_subs": {1, 2, 3}},
			opt:   &Options{Regressors: []string{"mobile_subs"}},
			err:   ErrRegressorLenMismatch,
		},
	}

	for name, tc := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Fit(tc.td, tc.frame, tc.opt)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestFitLinearTrend(t *testing.T) {
	// 2 percentage points per year with no noise
	td := annualDataset(t, []float64{40, 42, 44, 46, 48, 50, 52, 54, 56})

	m, err := Fit(td, nil, nil)
	require.Nil(t, err)
	assert.Equal(t, 9, m.NObs())
	assert.InDelta(t, 0.0, m.Sigma(), 0.1)

	coef := m.Coefficients()
	assert.InDelta(t, 2.0, coef["trend"], 0.05)

	ts, point, lower, upper, err := m.Forecast(3, timedataset.Annual, nil)
	require.Nil(t, err)
	require.Len(t, point, 3)

	expected := []float64{58, 60, 62}
	for h := range expected {
		assert.InDelta(t, expected[h], point[h], 0.5)
		assert.LessOrEqual(t, lower[h], point[h])
		assert.GreaterOrEqual(t, upper[h], point[h])
	}
	for i := 1; i < len(ts); i++ {
		assert.True(t, ts[i].After(ts[i-1]))
	}
	assert.True(t, ts[0].After(m.EndTime()))
}

func TestFitWithRegressors(t *testing.T) {
	y := make([]float64, 10)
	subs := make([]float64, 10)
	for i := range y {
		subs[i] = float64(i % 4)
		y[i] = 40 + 2*float64(i) + 3*subs[i]
	}
	td := annualDataset(t, y)
	frame := map[string][]float64{"mobile_subs": subs}

	m, err := Fit(td, frame, &Options{Regressors: []string{"mobile_subs"}})
	require.Nil(t, err)

	coef := m.Coefficients()
	assert.Contains(t, coef, "intercept")
	assert.Contains(t, coef, "trend")
	assert.InDelta(t, 3.0, coef["mobile_subs"], 0.2)

	_, point, _, _, err := m.Forecast(2, timedataset.Annual, map[string][]float64{
		"mobile_subs": {2, 3},
	})
	require.Nil(t, err)
	assert.InDelta(t, 40+2*10+3*2, point[0], 1.0)
	assert.InDelta(t, 40+2*11+3*3, point[1], 1.0)
}

func TestForecastErrors(t *testing.T) {
	td := annualDataset(t, []float64{40, 42, 44, 46, 48})
	frame := map[string][]float64{"mobile_subs": {1, 2, 3, 4, 5}}
	m, err := Fit(td, frame, &Options{Regressors: []string{"mobile_subs"}})
	require.Nil(t, err)

	_, _, _, _, err = m.Forecast(0, timedataset.Annual, map[string][]float64{"mobile_subs": {}})
	assert.ErrorIs(t, err, ErrInvalidSteps)

	_, _, _, _, err = m.Forecast(2, timedataset.Frequency("W"), map[string][]float64{"mobile_subs": {6, 7}})
	assert.ErrorIs(t, err, timedataset.ErrUnknownFrequency)

	_, _, _, _, err = m.Forecast(2, timedataset.Annual, nil)
	assert.ErrorIs(t, err, ErrUnknownRegressor)

	_, _, _, _, err = m.Forecast(2, timedataset.Annual, map[string][]float64{"mobile_subs": {6}})
	assert.ErrorIs(t, err, ErrFutureRegressorLen)

	var untrained *Model
	_, _, _, _, err = untrained.Forecast(1, timedataset.Annual, nil)
	assert.ErrorIs(t, err, ErrUntrainedModel)
}

func TestForecastBoundsWithNoise(t *testing.T) {
	y := []float64{40.3, 41.9, 44.4, 45.8, 48.2, 49.6, 52.3, 53.7, 56.1, 57.8}
	td := annualDataset(t, y)

	m, err := Fit(td, nil, nil)
	require.Nil(t, err)
	assert.Greater(t, m.Sigma(), 0.0)

	_, point, lower, upper, err := m.Forecast(4, timedataset.Annual, nil)
	require.Nil(t, err)

	for h := range point {
		assert.Less(t, lower[h], point[h])
		assert.Greater(t, upper[h], point[h])
	}

	// the fixed random source makes bounds stable across calls
	_, _, lower2, upper2, err := m.Forecast(4, timedataset.Annual, nil)
	require.Nil(t, err)
	assert.Equal(t, lower, lower2)
	assert.Equal(t, upper, upper2)
}

func TestFitMasksOutliers(t *testing.T) {
	y := []float64{40, 42, 44, 46, 100, 50, 52, 54, 56}
	td := annualDataset(t, y)

	m, err := Fit(td, nil, &Options{
		Outlier: &OutlierOptions{
			NumPasses:       1,
			LowerPercentile: 0.1,
			UpperPercentile: 0.9,
			TukeyFactor:     1.0,
		},
	})
	require.Nil(t, err)

	residuals := m.Residuals()
	require.Len(t, residuals, len(y))
	assert.True(t, math.IsNaN(residuals[4]))
	assert.Equal(t, 8, m.NObs())

	_, point, _, _, err := m.Forecast(1, timedataset.Annual, nil)
	require.Nil(t, err)
	assert.InDelta(t, 58.0, point[0], 0.7)
}
