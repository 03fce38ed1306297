package models

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultIterations = 1000
	DefaultTolerance  = 1e-4
)

// LassoOptions represents input options to run the lasso regression.
type LassoOptions struct {
	// Lambda is the L1 multiplier controlling regularization. Must be
	// non-negative. 0.0 converges to ordinary least squares.
	Lambda float64

	// Iterations is the maximum number of passes over all coefficients.
	Iterations int

	// Tolerance is the smallest relative coefficient change that keeps the
	// fit iterating.
	Tolerance float64

	// FitIntercept adds a constant 1.0 feature as the first column if set.
	// The intercept is not penalized.
	FitIntercept bool
}

// Validate runs basic validation on lasso options.
func (l *LassoOptions) Validate() (*LassoOptions, error) {
	if l == nil {
		l = NewDefaultLassoOptions()
	}
	if l.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	if l.Iterations < 0 {
		return nil, ErrNegativeIterations
	}
	if l.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	if l.Iterations == 0 {
		l.Iterations = DefaultIterations
	}
	if l.Tolerance == 0 {
		l.Tolerance = DefaultTolerance
	}
	return l, nil
}

// NewDefaultLassoOptions returns a default set of lasso regression options.
func NewDefaultLassoOptions() *LassoOptions {
	return &LassoOptions{
		Lambda:       0.0,
		Iterations:   DefaultIterations,
		Tolerance:    DefaultTolerance,
		FitIntercept: true,
	}
}

// LassoRegression computes the lasso regression using coordinate descent.
// lambda = 0 converges to OLS.
type LassoRegression struct {
	opt *LassoOptions

	coef      []float64
	intercept float64
}

// NewLassoRegression initializes a lasso model ready for fitting.
func NewLassoRegression(opt *LassoOptions) (*LassoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LassoRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data.
func (l *LassoRegression) Fit(x, y mat.Matrix) error {
	if l.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	if l.opt.FitIntercept {
		x = withOnesColumn(x)
	}
	_, n := x.Dims()

	xcols := make([][]float64, n)
	xdot := make([]float64, n)
	for j := 0; j < n; j++ {
		xcols[j] = mat.Col(nil, j, x)
		xdot[j] = floats.Dot(xcols[j], xcols[j])
	}
	yArr := mat.Col(nil, 0, y)

	beta := make([]float64, n)
	betaX := make([]float64, m)
	residual := make([]float64, m)
	partial := make([]float64, m)

	for i := 0; i < l.opt.Iterations; i++ {
		maxCoef := 0.0
		maxUpdate := 0.0

		for j := 0; j < n; j++ {
			// residual with the j-th coordinate removed
			floats.ScaleTo(partial, beta[j], xcols[j])
			floats.SubTo(residual, yArr, betaX)
			floats.Add(residual, partial)

			betaNext := floats.Dot(xcols[j], residual) / xdot[j]
			if !l.opt.FitIntercept || j != 0 {
				betaNext = SoftThreshold(betaNext, l.opt.Lambda/xdot[j])
			}

			delta := betaNext - beta[j]
			floats.ScaleTo(partial, delta, xcols[j])
			floats.Add(betaX, partial)

			maxCoef = max(maxCoef, betaNext)
			maxUpdate = max(maxUpdate, abs(delta))
			beta[j] = betaNext
		}

		// break early once the desired tolerance is reached
		if maxUpdate < l.opt.Tolerance*maxCoef {
			break
		}
	}

	if l.opt.FitIntercept {
		l.intercept = beta[0]
		l.coef = beta[1:]
		return nil
	}
	l.coef = beta
	return nil
}

// Predict using the lasso model.
func (l *LassoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if l.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}

	coef := l.coef
	if l.opt.FitIntercept {
		coef = append([]float64{l.intercept}, l.coef...)
		x = withOnesColumn(x)
	}
	n := len(coef)

	xT := x.T()
	xn, _ := xT.Dims()
	if xn != n {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, n, ErrFeatureLenMismatch)
	}
	coefMx := mat.NewDense(1, n, coef)

	var res mat.Dense
	res.Mul(coefMx, xT)
	return res.RawRowView(0), nil
}

func (l *LassoRegression) Intercept() float64 {
	return l.intercept
}

func (l *LassoRegression) Coef() []float64 {
	c := make([]float64, len(l.coef))
	copy(c, l.coef)
	return c
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
