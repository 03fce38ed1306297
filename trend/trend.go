// Package trend implements an additive trend model for annual and other
// low-frequency indicator series, decomposing the series into a linear trend
// plus the effects of named exogenous regressors. Periodic components are
// deliberately absent: inputs are long-horizon annual data with no daily,
// weekly, or yearly periodicity to model. Forecast uncertainty comes from
// quantiles over sampled trajectories at the configured interval width.
package trend

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/addisanalytics/fincast/models"
	"github.com/addisanalytics/fincast/stats"
	"github.com/addisanalytics/fincast/timedataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoTimeDataset        = errors.New("no time dataset")
	ErrInsufficientData     = errors.New("need at least 2 observations to fit a trend")
	ErrUnknownRegressor     = errors.New("named regressor not present in input frame")
	ErrRegressorLenMismatch = errors.New("regressor column length does not match series length")
	ErrFutureRegressorLen   = errors.New("future regressor rows do not match forecast horizon")
	ErrUntrainedModel       = errors.New("model has not been fit")
	ErrInvalidSteps         = errors.New("forecast steps must be at least 1")
	ErrInvalidIntervalWidth = errors.New("interval width must be between 0 and 1 exclusive")
)

const (
	DefaultIntervalWidth = 0.95
	DefaultSamples       = 500

	hoursPerYear = 24 * 365.25
)

// OutlierOptions control the iterative Tukey-fence passes that drop extreme
// residuals before the final fit.
type OutlierOptions struct {
	NumPasses       int
	LowerPercentile float64
	UpperPercentile float64
	TukeyFactor     float64
}

func NewDefaultOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		LowerPercentile: 0.1,
		UpperPercentile: 0.9,
		TukeyFactor:     1.0,
	}
}

// Options configure the additive trend fit.
type Options struct {
	// Regressors names the exogenous columns to include from the input frame.
	// Every name must exist in the frame passed to Fit.
	Regressors []string

	// IntervalWidth is the two-sided confidence width for forecast bounds.
	// Defaults to 0.95.
	IntervalWidth float64

	// Regularization is the lasso L1 multiplier. 0 is ordinary least squares.
	Regularization float64

	// Samples is the number of trajectories drawn for uncertainty quantiles.
	Samples int

	// Outlier enables iterative outlier removal before the final fit.
	Outlier *OutlierOptions
}

func NewDefaultOptions() *Options {
	return &Options{
		IntervalWidth: DefaultIntervalWidth,
		Samples:       DefaultSamples,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.IntervalWidth == 0 {
		o.IntervalWidth = DefaultIntervalWidth
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return nil, fmt.Errorf("got %f, %w", o.IntervalWidth, ErrInvalidIntervalWidth)
	}
	if o.Samples <= 0 {
		o.Samples = DefaultSamples
	}
	return o, nil
}

// Model is the fitted additive trend model. Immutable once produced by Fit.
type Model struct {
	opt      *Options
	regNames []string

	intercept float64
	slope     float64
	regCoef   []float64

	startTime time.Time
	endTime   time.Time
	sigma     float64
	nObs      int

	fitted    []float64
	residuals []float64

	trained bool
}

// Fit estimates the trend model over the prepared series. frame holds the
// candidate regressor columns keyed by name, each aligned 1:1 with the series;
// only the names listed in opt.Regressors are used.
func Fit(td *timedataset.TimeDataset, frame map[string][]float64, opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if td == nil || td.Len() == 0 {
		return nil, ErrNoTimeDataset
	}
	if td.Len() < 2 {
		return nil, fmt.Errorf("got %d observations, %w", td.Len(), ErrInsufficientData)
	}

	regNames := append([]string(nil), opt.Regressors...)
	for _, name := range regNames {
		col, exists := frame[name]
		if !exists {
			return nil, fmt.Errorf("regressor %q, %w", name, ErrUnknownRegressor)
		}
		if len(col) != td.Len() {
			return nil, fmt.Errorf(
				"regressor %q has %d rows for %d observations, %w",
				name, len(col), td.Len(), ErrRegressorLenMismatch,
			)
		}
	}

	m := &Model{
		opt:       opt,
		regNames:  regNames,
		startTime: td.T[0],
		endTime:   td.T[td.Len()-1],
	}

	if err := m.fitWithOutliers(td, frame); err != nil {
		return nil, err
	}
	m.trained = true
	return m, nil
}

// fitWithOutliers iterates the fit, masking Tukey-fence outliers in the
// residual between passes. With no outlier options a single pass runs.
func (m *Model) fitWithOutliers(td *timedataset.TimeDataset, frame map[string][]float64) error {
	numPasses := 0
	if m.opt.Outlier != nil {
		numPasses = m.opt.Outlier.NumPasses
	}

	working := td.Copy()
	for pass := 0; ; pass++ {
		kept := working.DropNaN()
		if kept.Len() < 2 {
			return fmt.Errorf("got %d observations after outlier removal, %w", kept.Len(), ErrInsufficientData)
		}
		keptFrame := maskFrame(frame, working)
		if err := m.fitOnce(td, kept, keptFrame); err != nil {
			return err
		}
		if pass >= numPasses {
			return nil
		}

		outlierIdxs := stats.DetectOutliers(
			m.keptResiduals(working),
			m.opt.Outlier.LowerPercentile,
			m.opt.Outlier.UpperPercentile,
			m.opt.Outlier.TukeyFactor,
		)
		if len(outlierIdxs) == 0 {
			return nil
		}
		markOutliers(working, outlierIdxs)
	}
}

// fitOnce runs one lasso fit over the kept rows and refreshes the fitted
// values and residuals over the full training range.
func (m *Model) fitOnce(full, kept *timedataset.TimeDataset, keptFrame map[string][]float64) error {
	n := kept.Len()
	k := 1 + len(m.regNames)

	x := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, m.timeValue(kept.T[i]))
	}
	for j, name := range m.regNames {
		col := keptFrame[name]
		for i := 0; i < n; i++ {
			x.Set(i, j+1, col[i])
		}
	}
	y := mat.NewDense(n, 1, append([]float64(nil), kept.Y...))

	lasso, err := models.NewLassoRegression(&models.LassoOptions{
		Lambda:       m.opt.Regularization,
		FitIntercept: true,
	})
	if err != nil {
		return err
	}
	if err := lasso.Fit(x, y); err != nil {
		return fmt.Errorf("unable to fit trend design matrix, %w", err)
	}

	coef := lasso.Coef()
	m.intercept = lasso.Intercept()
	m.slope = coef[0]
	m.regCoef = coef[1:]
	m.nObs = n

	predicted, err := lasso.Predict(x)
	if err != nil {
		return fmt.Errorf("unable to compute in-sample fit, %w", err)
	}

	// expand fitted/residuals back over the full training range; masked rows
	// carry NaN residuals
	m.fitted = make([]float64, full.Len())
	m.residuals = make([]float64, full.Len())
	var j int
	for i := 0; i < full.Len(); i++ {
		if j < n && full.T[i].Equal(kept.T[j]) {
			m.fitted[i] = predicted[j]
			m.residuals[i] = full.Y[i] - predicted[j]
			j++
			continue
		}
		m.fitted[i] = math.NaN()
		m.residuals[i] = math.NaN()
	}

	keptResiduals := make([]float64, 0, n)
	for _, r := range m.residuals {
		if math.IsNaN(r) {
			continue
		}
		keptResiduals = append(keptResiduals, r)
	}
	m.sigma = stat.StdDev(keptResiduals, nil)
	if math.IsNaN(m.sigma) {
		m.sigma = 0
	}
	return nil
}

// keptResiduals returns residuals for rows still active in the working set.
func (m *Model) keptResiduals(working *timedataset.TimeDataset) []float64 {
	out := make([]float64, 0, len(m.residuals))
	for i, r := range m.residuals {
		if math.IsNaN(working.Y[i]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Forecast projects the trend model horizon periods past the end of training
// at the given frequency. future must hold a column of exactly horizon rows
// for every regressor named at fit time.
func (m *Model) Forecast(horizon int, freq timedataset.Frequency, future map[string][]float64) ([]time.Time, []float64, []float64, []float64, error) {
	if m == nil || !m.trained {
		return nil, nil, nil, nil, ErrUntrainedModel
	}
	if horizon < 1 {
		return nil, nil, nil, nil, fmt.Errorf("got %d, %w", horizon, ErrInvalidSteps)
	}
	if err := freq.Validate(); err != nil {
		return nil, nil, nil, nil, err
	}
	for _, name := range m.regNames {
		col, exists := future[name]
		if !exists {
			return nil, nil, nil, nil, fmt.Errorf("future regressor %q, %w", name, ErrUnknownRegressor)
		}
		if len(col) != horizon {
			return nil, nil, nil, nil, fmt.Errorf(
				"future regressor %q has %d rows for horizon %d, %w",
				name, len(col), horizon, ErrFutureRegressorLen,
			)
		}
	}

	t := freq.Extend(m.endTime, horizon)
	point := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		v := m.intercept + m.slope*m.timeValue(t[h])
		for j, name := range m.regNames {
			v += m.regCoef[j] * future[name][h]
		}
		point[h] = v
	}

	lower, upper := m.sampleBounds(point)
	return t, point, lower, upper, nil
}

// sampleBounds draws noisy trajectories around the point forecast and takes
// the interval-width quantiles per period. Noise scale grows with horizon
// relative to the training size. The random source is fixed so bounds are
// reproducible across calls.
func (m *Model) sampleBounds(point []float64) ([]float64, []float64) {
	horizon := len(point)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	if m.sigma == 0 {
		copy(lower, point)
		copy(upper, point)
		return lower, upper
	}

	alpha := 1 - m.opt.IntervalWidth
	rng := rand.New(rand.NewPCG(42, 1027))
	draws := make([]float64, m.opt.Samples)
	for h := 0; h < horizon; h++ {
		scale := m.sigma * math.Sqrt(1+float64(h+1)/float64(m.nObs))
		for s := range draws {
			draws[s] = point[h] + rng.NormFloat64()*scale
		}
		lo, err := stats.Quantile(draws, alpha/2)
		if err != nil {
			slog.Warn("unable to compute lower bound quantile, using point estimate", "error", err.Error())
			lo = point[h]
		}
		hi, err := stats.Quantile(draws, 1-alpha/2)
		if err != nil {
			slog.Warn("unable to compute upper bound quantile, using point estimate", "error", err.Error())
			hi = point[h]
		}
		// the point estimate stays inside the sampled band
		lower[h] = math.Min(lo, point[h])
		upper[h] = math.Max(hi, point[h])
	}
	return lower, upper
}

// FittedValues returns the in-sample fit over the training range. Rows masked
// as outliers carry NaN.
func (m *Model) FittedValues() []float64 {
	if m == nil || !m.trained {
		return nil
	}
	out := make([]float64, len(m.fitted))
	copy(out, m.fitted)
	return out
}

// Residuals returns the training residuals. Rows masked as outliers carry NaN.
func (m *Model) Residuals() []float64 {
	if m == nil || !m.trained {
		return nil
	}
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

// Coefficients returns the fitted weights keyed by component name.
func (m *Model) Coefficients() map[string]float64 {
	if m == nil || !m.trained {
		return nil
	}
	out := map[string]float64{
		"intercept": m.intercept,
		"trend":     m.slope,
	}
	for j, name := range m.regNames {
		out[name] = m.regCoef[j]
	}
	return out
}

func (m *Model) Sigma() float64 { return m.sigma }

func (m *Model) NObs() int { return m.nObs }

func (m *Model) IntervalWidth() float64 { return m.opt.IntervalWidth }

func (m *Model) EndTime() time.Time { return m.endTime }

// timeValue maps a timestamp to years since the start of training.
func (m *Model) timeValue(t time.Time) float64 {
	return t.Sub(m.startTime).Hours() / hoursPerYear
}

// maskFrame filters regressor rows down to the rows still active in the
// working dataset.
func maskFrame(frame map[string][]float64, working *timedataset.TimeDataset) map[string][]float64 {
	out := make(map[string][]float64, len(frame))
	for name, col := range frame {
		if len(col) != working.Len() {
			out[name] = col
			continue
		}
		keptCol := make([]float64, 0, len(col))
		for i, v := range col {
			if math.IsNaN(working.Y[i]) {
				continue
			}
			keptCol = append(keptCol, v)
		}
		out[name] = keptCol
	}
	return out
}

func markOutliers(working *timedataset.TimeDataset, keptIdxs []int) {
	// indexes refer to the kept rows; walk the working set skipping masked rows
	idxSet := make(map[int]struct{}, len(keptIdxs))
	for _, idx := range keptIdxs {
		idxSet[idx] = struct{}{}
	}
	var j int
	for i := 0; i < working.Len(); i++ {
		if math.IsNaN(working.Y[i]) {
			continue
		}
		if _, exists := idxSet[j]; exists {
			working.Y[i] = math.NaN()
		}
		j++
	}
}
