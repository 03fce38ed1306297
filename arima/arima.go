// Package arima implements an autoregressive integrated moving average model
// with optional exogenous regressors for sparse low-frequency indicator
// series. Parameters are estimated by conditional sum of squares with AR terms
// initialized from the Yule-Walker equations. Forecast intervals are
// parametric, derived from the psi-weight representation of the fitted model.
package arima

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/addisanalytics/fincast/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInvalidOrder         = errors.New("order terms must be non-negative")
	ErrInsufficientData     = errors.New("insufficient observations for the requested order")
	ErrFitDiverged          = errors.New("conditional sum of squares optimization did not converge")
	ErrUntrainedModel       = errors.New("model has not been fit")
	ErrInvalidSteps         = errors.New("forecast steps must be at least 1")
	ErrRegressorLenMismatch = errors.New("exogenous regressor rows do not match series length")
	ErrExogenousLength      = errors.New("future exogenous rows do not match forecast horizon")
	ErrUnexpectedExogenous  = errors.New("model was fit without exogenous regressors")
	ErrMissingExogenous     = errors.New("model was fit with exogenous regressors but none provided for forecasting")
	ErrInvalidIntervalWidth = errors.New("interval width must be between 0 and 1 exclusive")
)

// MinObservationMargin is the number of observations required beyond the sum
// of the order terms for a fit to be attempted.
const MinObservationMargin = 2

// Order represents the model order (p, d, q): autoregressive lag, differencing
// degree, and moving-average lag.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("(%d,%d,%d), %w", o.P, o.D, o.Q, ErrInvalidOrder)
	}
	return nil
}

// Sum returns p+d+q which drives the minimum series length requirement.
func (o Order) Sum() int {
	return o.P + o.D + o.Q
}

// Options control the conditional sum of squares optimization and the
// confidence width used when producing forecast intervals.
type Options struct {
	MaxIterations int
	Tolerance     float64
	LearningRate  float64
	IntervalWidth float64
}

func NewDefaultOptions() *Options {
	return &Options{
		MaxIterations: 200,
		Tolerance:     1e-6,
		LearningRate:  0.01,
		IntervalWidth: 0.95,
	}
}

// Validate fills zero values with defaults and rejects unusable widths.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 200
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.01
	}
	if o.IntervalWidth == 0 {
		o.IntervalWidth = 0.95
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return nil, fmt.Errorf("got %f, %w", o.IntervalWidth, ErrInvalidIntervalWidth)
	}
	return o, nil
}

// Model is the fitted autoregressive model. Immutable once produced by Fit.
type Model struct {
	opt   *Options
	order Order

	arCoef    []float64
	maCoef    []float64
	intercept float64 // mean of the differenced series

	exogIntercept float64
	exogCoef      []float64

	variance float64
	logLik   float64
	aic      float64
	aicc     float64
	bic      float64

	series    []float64 // exogenous-adjusted series on the original scale
	diff      []float64 // series after d rounds of differencing
	diffTails []float64 // last value at each differencing level 0..d-1
	residuals []float64 // one-step residuals on the differenced scale
	fitted    []float64 // one-step fitted values on the original scale

	trained bool
}

// Fit estimates an ARIMA model of the given order over y. exog may be nil; when
// provided it must have exactly len(y) rows and its linear effect is removed
// before the autoregressive fit and reapplied at forecast time.
func Fit(y []float64, exog *mat.Dense, order Order, opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if len(y) < order.Sum()+MinObservationMargin {
		return nil, fmt.Errorf(
			"series has %d observations but order (%d,%d,%d) requires at least %d, %w",
			len(y), order.P, order.D, order.Q, order.Sum()+MinObservationMargin,
			ErrInsufficientData,
		)
	}

	m := &Model{
		opt:    opt,
		order:  order,
		arCoef: make([]float64, order.P),
		maCoef: make([]float64, order.Q),
	}

	series := make([]float64, len(y))
	copy(series, y)

	if exog != nil {
		rows, _ := exog.Dims()
		if rows != len(y) {
			return nil, fmt.Errorf("got %d exogenous rows for %d observations, %w", rows, len(y), ErrRegressorLenMismatch)
		}
		if err := m.fitExogenous(series, exog); err != nil {
			return nil, err
		}
	}
	m.series = series

	diff := series
	m.diffTails = make([]float64, 0, order.D)
	for i := 0; i < order.D; i++ {
		m.diffTails = append(m.diffTails, diff[len(diff)-1])
		diff = difference(diff)
	}
	m.diff = diff

	if err := m.fitCSS(); err != nil {
		return nil, err
	}
	m.calculateIC()
	m.buildFitted(y)

	m.trained = true
	return m, nil
}

// fitExogenous regresses the series on the exogenous columns and subtracts the
// explained part in place, leaving the remainder for the autoregressive fit.
func (m *Model) fitExogenous(series []float64, exog *mat.Dense) error {
	ols, err := models.NewOLSRegression(nil)
	if err != nil {
		return err
	}
	yMx := mat.NewDense(len(series), 1, append([]float64(nil), series...))
	if err := ols.Fit(exog, yMx); err != nil {
		return fmt.Errorf("unable to fit exogenous regressors, %w", err)
	}
	m.exogIntercept = ols.Intercept()
	m.exogCoef = ols.Coef()

	explained, err := ols.Predict(exog)
	if err != nil {
		return fmt.Errorf("unable to compute exogenous component, %w", err)
	}
	for i := range series {
		series[i] -= explained[i]
	}
	return nil
}

// fitCSS estimates the AR/MA coefficients by minimizing the conditional sum of
// squares with a gradient step per iteration. The fit fails when the loss goes
// non-finite or ends above its starting point.
func (m *Model) fitCSS() error {
	y := m.diff
	n := len(y)
	p := m.order.P
	q := m.order.Q

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	m.intercept = mean

	if p == 0 && q == 0 {
		m.residuals = make([]float64, n)
		for i, v := range y {
			m.residuals[i] = v - mean
		}
		return nil
	}

	// Yule-Walker initial AR estimates
	if p > 0 {
		if phi := yuleWalker(acf(y, p), p); phi != nil {
			copy(m.arCoef, phi)
		} else {
			slog.Warn("unable to solve yule-walker equations, starting from zero coefficients", "p", p)
		}
	}
	for i := range m.maCoef {
		m.maCoef[i] = 0.1
	}

	startIdx := max(p, q)
	residuals := make([]float64, n)
	arGrad := make([]float64, p)
	maGrad := make([]float64, q)

	initialSSE := math.NaN()
	prevSSE := math.Inf(1)
	for iter := 0; iter < m.opt.MaxIterations; iter++ {
		sse := m.computeResiduals(residuals)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return fmt.Errorf("sum of squares is non-finite at iteration %d, %w", iter, ErrFitDiverged)
		}
		if iter == 0 {
			initialSSE = sse
		}
		if math.Abs(prevSSE-sse) < m.opt.Tolerance {
			break
		}
		prevSSE = sse

		for i := range arGrad {
			arGrad[i] = 0
		}
		for i := range maGrad {
			maGrad[i] = 0
		}
		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.intercept)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
		}

		for i := 0; i < p; i++ {
			m.arCoef[i] -= m.opt.LearningRate * arGrad[i] / float64(n)
			// stationarity bounds
			m.arCoef[i] = math.Max(-0.99, math.Min(0.99, m.arCoef[i]))
		}
		for i := 0; i < q; i++ {
			m.maCoef[i] -= m.opt.LearningRate * maGrad[i] / float64(n)
			// invertibility bounds
			m.maCoef[i] = math.Max(-0.99, math.Min(0.99, m.maCoef[i]))
		}
	}

	finalSSE := m.computeResiduals(residuals)
	if math.IsNaN(finalSSE) || math.IsInf(finalSSE, 0) {
		return fmt.Errorf("final sum of squares is non-finite, %w", ErrFitDiverged)
	}
	if finalSSE > initialSSE+m.opt.Tolerance {
		return fmt.Errorf(
			"sum of squares increased from %f to %f, %w",
			initialSSE, finalSSE, ErrFitDiverged,
		)
	}

	m.residuals = residuals
	return nil
}

// computeResiduals fills one-step residuals on the differenced scale for the
// current coefficients and returns the conditional sum of squares.
func (m *Model) computeResiduals(residuals []float64) float64 {
	y := m.diff
	n := len(y)
	p := m.order.P
	q := m.order.Q

	startIdx := max(p, q)
	sse := 0.0
	for t := 0; t < n; t++ {
		if t < startIdx {
			residuals[t] = y[t] - m.intercept
			continue
		}
		pred := m.intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.arCoef[i] * (y[t-i-1] - m.intercept)
		}
		for i := 0; i < q && t-i-1 >= 0; i++ {
			pred += m.maCoef[i] * residuals[t-i-1]
		}
		residuals[t] = y[t] - pred
		sse += residuals[t] * residuals[t]
	}
	return sse
}

func (m *Model) calculateIC() {
	n := len(m.residuals)
	p := m.order.P
	q := m.order.Q
	k := p + q + 1

	sse := 0.0
	count := 0
	for t := max(p, q); t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	if count > k {
		m.variance = sse / float64(count-k)
	} else if count > 0 {
		m.variance = sse / float64(count)
	}

	if m.variance > 0 {
		m.logLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.variance) - sse/(2*m.variance)
	} else {
		m.logLik = math.Inf(-1)
	}

	kf := float64(k)
	nf := float64(n)
	m.aic = -2*m.logLik + 2*kf
	if nf-kf-1 > 0 {
		m.aicc = m.aic + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		m.aicc = math.Inf(1)
	}
	m.bic = -2*m.logLik + kf*math.Log(nf)
}

// buildFitted converts one-step residuals back to fitted values on the
// original scale. A one-step residual is identical on the differenced and
// original scales since the integration terms are observed.
func (m *Model) buildFitted(y []float64) {
	d := m.order.D
	m.fitted = make([]float64, len(y))
	for t := 0; t < len(y); t++ {
		if t < d {
			m.fitted[t] = y[t]
			continue
		}
		m.fitted[t] = y[t] - m.residuals[t-d]
	}
}

// Forecast projects the fitted model steps periods forward returning point
// estimates with two-sided confidence bounds at the width configured during
// fitting. When the model was fit with exogenous regressors, exogFuture must
// carry exactly steps rows.
func (m *Model) Forecast(steps int, exogFuture *mat.Dense) ([]float64, []float64, []float64, error) {
	if m == nil || !m.trained {
		return nil, nil, nil, ErrUntrainedModel
	}
	if steps < 1 {
		return nil, nil, nil, fmt.Errorf("got %d, %w", steps, ErrInvalidSteps)
	}

	var exogContribution []float64
	switch {
	case len(m.exogCoef) > 0 && exogFuture == nil:
		return nil, nil, nil, ErrMissingExogenous
	case len(m.exogCoef) == 0 && exogFuture != nil:
		return nil, nil, nil, ErrUnexpectedExogenous
	case len(m.exogCoef) > 0:
		rows, cols := exogFuture.Dims()
		if rows != steps {
			return nil, nil, nil, fmt.Errorf("got %d future exogenous rows for horizon %d, %w", rows, steps, ErrExogenousLength)
		}
		if cols != len(m.exogCoef) {
			return nil, nil, nil, fmt.Errorf("got %d future exogenous columns, expected %d, %w", cols, len(m.exogCoef), ErrExogenousLength)
		}
		exogContribution = make([]float64, steps)
		for h := 0; h < steps; h++ {
			v := m.exogIntercept
			for j, c := range m.exogCoef {
				v += c * exogFuture.At(h, j)
			}
			exogContribution[h] = v
		}
	}

	p := m.order.P
	q := m.order.Q
	d := m.order.D

	y := m.diff
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.arCoef[i] * (extY[t-i-1] - m.intercept)
		}
		// future residuals have expectation 0
		for i := 0; i < q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.maCoef[i] * extResiduals[t-i-1]
		}
		extY[t] = pred
	}

	point := make([]float64, steps)
	copy(point, extY[n:])
	if d > 0 {
		point = m.integrate(point)
	}

	if exogContribution != nil {
		for h := range point {
			point[h] += exogContribution[h]
		}
	}

	stderr := m.forecastStderr(steps)
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + m.opt.IntervalWidth/2)

	lower := make([]float64, steps)
	upper := make([]float64, steps)
	for h := 0; h < steps; h++ {
		lower[h] = point[h] - z*stderr[h]
		upper[h] = point[h] + z*stderr[h]
	}
	return point, lower, upper, nil
}

// integrate undoes differencing to return forecasts on the original scale.
// Each pass cumulates from the tail of the next-deeper differencing level,
// innermost level first, so the raw series tail seeds only the final pass.
func (m *Model) integrate(forecasts []float64) []float64 {
	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	for i := m.order.D - 1; i >= 0; i-- {
		lastVal := m.diffTails[i]
		for j := 0; j < len(result); j++ {
			if j == 0 {
				result[j] += lastVal
			} else {
				result[j] += result[j-1]
			}
		}
	}
	return result
}

// forecastStderr returns the h-step forecast standard errors from the
// psi-weight expansion of the fitted model, cumulated once per round of
// differencing.
func (m *Model) forecastStderr(steps int) []float64 {
	psi := make([]float64, steps)
	psi[0] = 1
	for j := 1; j < steps; j++ {
		var w float64
		if j <= m.order.Q {
			w = m.maCoef[j-1]
		}
		for i := 1; i <= m.order.P && j-i >= 0; i++ {
			w += m.arCoef[i-1] * psi[j-i]
		}
		psi[j] = w
	}

	for i := 0; i < m.order.D; i++ {
		for j := 1; j < steps; j++ {
			psi[j] += psi[j-1]
		}
	}

	stderr := make([]float64, steps)
	acc := 0.0
	for h := 0; h < steps; h++ {
		acc += psi[h] * psi[h]
		stderr[h] = math.Sqrt(m.variance * acc)
	}
	return stderr
}

// FittedValues returns the one-step fitted values on the original scale.
func (m *Model) FittedValues() []float64 {
	if m == nil || !m.trained {
		return nil
	}
	result := make([]float64, len(m.fitted))
	copy(result, m.fitted)
	return result
}

// Residuals returns the one-step residuals from the fit.
func (m *Model) Residuals() []float64 {
	if m == nil || !m.trained {
		return nil
	}
	result := make([]float64, len(m.residuals))
	copy(result, m.residuals)
	return result
}

// ARCoef returns the fitted autoregressive coefficients.
func (m *Model) ARCoef() []float64 {
	c := make([]float64, len(m.arCoef))
	copy(c, m.arCoef)
	return c
}

// MACoef returns the fitted moving-average coefficients.
func (m *Model) MACoef() []float64 {
	c := make([]float64, len(m.maCoef))
	copy(c, m.maCoef)
	return c
}

// ExogCoef returns the fitted exogenous regressor coefficients in the column
// order of the fit matrix.
func (m *Model) ExogCoef() []float64 {
	c := make([]float64, len(m.exogCoef))
	copy(c, m.exogCoef)
	return c
}

func (m *Model) Order() Order { return m.order }

func (m *Model) Intercept() float64 { return m.intercept }

func (m *Model) Variance() float64 { return m.variance }

func (m *Model) LogLikelihood() float64 { return m.logLik }

func (m *Model) AIC() float64 { return m.aic }

func (m *Model) AICc() float64 { return m.aicc }

func (m *Model) BIC() float64 { return m.bic }

func (m *Model) NObs() int { return len(m.series) }

func (m *Model) IntervalWidth() float64 { return m.opt.IntervalWidth }

func difference(y []float64) []float64 {
	if len(y) < 2 {
		return nil
	}
	out := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		out[i-1] = y[i] - y[i-1]
	}
	return out
}
