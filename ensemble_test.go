package fincast

import (
	"math"
	"testing"
	"time"

	"github.com/addisanalytics/fincast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticModel returns a canned forecast for combination tests.
type staticModel struct {
	fc  *Forecast
	err error
}

func (m *staticModel) Kind() ModelKind { return KindAutoregressive }

func (m *staticModel) Forecast(horizon int, freq timedataset.Frequency, future Regressors) (*Forecast, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.fc.Copy(), nil
}

func (m *staticModel) FittedValues() []float64 { return nil }

func (m *staticModel) Residuals() []float64 { return nil }

func (m *staticModel) Summary() Summary { return Summary{} }

func futurePeriods(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2025+i, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func TestEnsemble(t *testing.T) {
	a := &staticModel{fc: &Forecast{
		T:     futurePeriods(3),
		Point: []float64{50, 55, 60},
		Lower: []float64{48, 52, 57},
		Upper: []float64{53, 58, 62},
	}}
	b := &staticModel{fc: &Forecast{
		T:     futurePeriods(3),
		Point: []float64{52, 57, 62},
		Lower: []float64{49, 51, 58},
		Upper: []float64{54, 57, 65},
	}}

	testData := map[string]struct {
		weights       []float64
		expectedPoint []float64
	}{
		"equal weights by default": {
			expectedPoint: []float64{51, 56, 61},
		},
		"explicit weights": {
			weights:       []float64{0.7, 0.3},
			expectedPoint: []float64{50.6, 55.6, 60.6},
		},
		"weights need not sum to one": {
			weights:       []float64{1, 1},
			expectedPoint: []float64{102, 112, 122},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			combined, err := Ensemble([]Model{a, b}, 3, timedataset.Annual, td.weights, nil)
			require.Nil(t, err)

			for j := range td.expectedPoint {
				assert.InDelta(t, td.expectedPoint[j], combined.Point[j], 1e-9)
			}
			// bounds take the widest interval across members
			assert.Equal(t, []float64{48, 51, 57}, combined.Lower)
			assert.Equal(t, []float64{54, 58, 65}, combined.Upper)
			assert.Equal(t, a.fc.T, combined.T)
		})
	}
}

func TestEnsembleErrors(t *testing.T) {
	a := &staticModel{fc: &Forecast{
		T:     futurePeriods(2),
		Point: []float64{50, 55},
		Lower: []float64{48, 52},
		Upper: []float64{53, 58},
	}}
	shifted := a.fc.Copy()
	shifted.T[1] = shifted.T[1].AddDate(1, 0, 0)

	testData := map[string]struct {
		ms      []Model
		weights []float64
		err     error
	}{
		"no models": {
			err: ErrNoModels,
		},
		"weight count mismatch": {
			ms:      []Model{a, a},
			weights: []float64{1},
			err:     ErrWeightCountMismatch,
		},
		"non-finite weight": {
			ms:      []Model{a},
			weights: []float64{math.NaN()},
			err:     ErrInvalidWeight,
		},
		"misaligned member periods": {
			ms:  []Model{a, &staticModel{fc: shifted}},
			err: ErrMisalignedForecast,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Ensemble(td.ms, 2, timedataset.Annual, td.weights, nil)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestEnsemblePropagatesMemberError(t *testing.T) {
	failing := &staticModel{err: ErrNoTimeDataset}
	_, err := Ensemble([]Model{failing}, 2, timedataset.Annual, nil, nil)
	assert.ErrorIs(t, err, ErrNoTimeDataset)
}
