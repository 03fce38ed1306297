// Package fincast forecasts financial-inclusion indicator series: it fits
// autoregressive or additive trend models over prepared observations, projects
// them forward with confidence bounds, combines fitted models into ensembles,
// derives scenario-adjusted trajectories, and scores forecasts against
// realized values. All operations are synchronous and stateless across calls;
// fitted models are immutable, so callers may parallelize across indicators.
package fincast

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/addisanalytics/fincast/arima"
	"github.com/addisanalytics/fincast/timedataset"
	"github.com/addisanalytics/fincast/trend"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoTimeDataset    = errors.New("no time dataset to fit")
	ErrInvalidHorizon   = errors.New("forecast horizon must be a positive number of periods")
	ErrMissingRegressor = errors.New("missing future regressor column")
)

// ModelKind tags the fitting strategy behind a fitted model. The kind is
// resolved when the model is fit, never inferred afterwards.
type ModelKind int

const (
	KindAutoregressive ModelKind = iota
	KindAdditiveTrend
)

func (k ModelKind) String() string {
	switch k {
	case KindAutoregressive:
		return "autoregressive"
	case KindAdditiveTrend:
		return "additive_trend"
	}
	return "unknown"
}

// Regressors holds exogenous regressor columns keyed by name. Column order in
// design matrices follows sorted names so fits are deterministic.
type Regressors map[string][]float64

// Names returns the column names in sorted order.
func (r Regressors) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary reports the learned parameters and diagnostic statistics of a
// fitted model.
type Summary struct {
	Kind          string             `json:"kind"`
	NObs          int                `json:"n_obs"`
	AIC           float64            `json:"aic,omitempty"`
	AICc          float64            `json:"aicc,omitempty"`
	BIC           float64            `json:"bic,omitempty"`
	LogLikelihood float64            `json:"log_likelihood,omitempty"`
	Sigma         float64            `json:"sigma,omitempty"`
	IntervalWidth float64            `json:"interval_width"`
	Coefficients  map[string]float64 `json:"coefficients"`
}

// Model is a fitted forecasting model. Implementations are immutable once
// produced by one of the Fit constructors and are safe for concurrent reads.
type Model interface {
	// Kind reports which fitting strategy produced the model.
	Kind() ModelKind

	// Forecast projects the model horizon periods past the end of training at
	// the given frequency. future supplies per-period values for any
	// exogenous regressors the model was fit with.
	Forecast(horizon int, freq timedataset.Frequency, future Regressors) (*Forecast, error)

	// FittedValues returns the in-sample fit over the training range.
	FittedValues() []float64

	// Residuals returns the in-sample residuals over the training range.
	Residuals() []float64

	// Summary returns the learned parameters and diagnostics.
	Summary() Summary
}

// FitAutoregressive fits an ARIMA model of the given order to the prepared
// series. exog may be nil; when provided every column must align 1:1 with the
// series and the same columns must be supplied for future periods at forecast
// time.
func FitAutoregressive(td *timedataset.TimeDataset, order arima.Order, exog Regressors, opt *arima.Options) (Model, error) {
	if td == nil || td.Len() == 0 {
		return nil, ErrNoTimeDataset
	}

	names := exog.Names()
	var exogMx *mat.Dense
	if len(names) > 0 {
		var err error
		exogMx, err = regressorMatrix(exog, names, td.Len(), arima.ErrRegressorLenMismatch)
		if err != nil {
			return nil, err
		}
	}

	m, err := arima.Fit(td.Y, exogMx, order, opt)
	if err != nil {
		return nil, err
	}
	return &autoregressiveModel{
		model:     m,
		exogNames: names,
		trainEnd:  td.T[td.Len()-1],
	}, nil
}

// FitAdditiveTrend fits an additive trend model to the prepared series. frame
// holds candidate regressor columns; only those named in opt.Regressors are
// used and each must exist in the frame.
func FitAdditiveTrend(td *timedataset.TimeDataset, frame Regressors, opt *trend.Options) (Model, error) {
	if td == nil || td.Len() == 0 {
		return nil, ErrNoTimeDataset
	}
	m, err := trend.Fit(td, frame, opt)
	if err != nil {
		return nil, err
	}
	return &additiveTrendModel{model: m}, nil
}

type autoregressiveModel struct {
	model     *arima.Model
	exogNames []string
	trainEnd  time.Time
}

func (m *autoregressiveModel) Kind() ModelKind { return KindAutoregressive }

func (m *autoregressiveModel) Forecast(horizon int, freq timedataset.Frequency, future Regressors) (*Forecast, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("got %d, %w", horizon, ErrInvalidHorizon)
	}
	if err := freq.Validate(); err != nil {
		return nil, err
	}

	var futureMx *mat.Dense
	if len(m.exogNames) > 0 {
		var err error
		futureMx, err = regressorMatrix(future, m.exogNames, horizon, arima.ErrExogenousLength)
		if err != nil {
			return nil, err
		}
	}

	point, lower, upper, err := m.model.Forecast(horizon, futureMx)
	if err != nil {
		return nil, err
	}
	return &Forecast{
		T:     freq.Extend(m.trainEnd, horizon),
		Point: point,
		Lower: lower,
		Upper: upper,
	}, nil
}

func (m *autoregressiveModel) FittedValues() []float64 { return m.model.FittedValues() }

func (m *autoregressiveModel) Residuals() []float64 { return m.model.Residuals() }

func (m *autoregressiveModel) Summary() Summary {
	coef := make(map[string]float64)
	coef["const"] = m.model.Intercept()
	for i, c := range m.model.ARCoef() {
		coef[fmt.Sprintf("ar%d", i+1)] = c
	}
	for i, c := range m.model.MACoef() {
		coef[fmt.Sprintf("ma%d", i+1)] = c
	}
	for i, c := range m.model.ExogCoef() {
		coef[m.exogNames[i]] = c
	}
	return Summary{
		Kind:          m.Kind().String(),
		NObs:          m.model.NObs(),
		AIC:           m.model.AIC(),
		AICc:          m.model.AICc(),
		BIC:           m.model.BIC(),
		LogLikelihood: m.model.LogLikelihood(),
		IntervalWidth: m.model.IntervalWidth(),
		Coefficients:  coef,
	}
}

type additiveTrendModel struct {
	model *trend.Model
}

func (m *additiveTrendModel) Kind() ModelKind { return KindAdditiveTrend }

func (m *additiveTrendModel) Forecast(horizon int, freq timedataset.Frequency, future Regressors) (*Forecast, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("got %d, %w", horizon, ErrInvalidHorizon)
	}
	t, point, lower, upper, err := m.model.Forecast(horizon, freq, future)
	if err != nil {
		return nil, err
	}
	return &Forecast{
		T:     t,
		Point: point,
		Lower: lower,
		Upper: upper,
	}, nil
}

func (m *additiveTrendModel) FittedValues() []float64 { return m.model.FittedValues() }

func (m *additiveTrendModel) Residuals() []float64 { return m.model.Residuals() }

func (m *additiveTrendModel) Summary() Summary {
	return Summary{
		Kind:          m.Kind().String(),
		NObs:          m.model.NObs(),
		Sigma:         m.model.Sigma(),
		IntervalWidth: m.model.IntervalWidth(),
		Coefficients:  m.model.Coefficients(),
	}
}

// regressorMatrix assembles named columns into a dense matrix with rows rows,
// wrapping lenErr when any column has a different length.
func regressorMatrix(r Regressors, names []string, rows int, lenErr error) (*mat.Dense, error) {
	mx := mat.NewDense(rows, len(names), nil)
	for j, name := range names {
		col, exists := r[name]
		if !exists {
			return nil, fmt.Errorf("regressor %q, %w", name, ErrMissingRegressor)
		}
		if len(col) != rows {
			return nil, fmt.Errorf("regressor %q has %d rows, expected %d, %w", name, len(col), rows, lenErr)
		}
		mx.SetCol(j, col)
	}
	return mx, nil
}
