package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLassoOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *LassoOptions
		err error
	}{
		"nil defaults": {},
		"negative lambda": {
			opt: &LassoOptions{Lambda: -1},
			err: ErrNegativeLambda,
		},
		"negative iterations": {
			opt: &LassoOptions{Iterations: -1},
			err: ErrNegativeIterations,
		},
		"negative tolerance": {
			opt: &LassoOptions{Tolerance: -0.1},
			err: ErrNegativeTolerance,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, DefaultIterations, opt.Iterations)
			assert.Equal(t, DefaultTolerance, opt.Tolerance)
		})
	}
}

func TestLassoRegressionConvergesToOLS(t *testing.T) {
	// with lambda 0 coordinate descent converges to the OLS solution
	x := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		2, 1,
		3, 1,
		4, 2,
		5, 3,
	})
	y := mat.NewDense(6, 1, []float64{3, 5, 6, 8, 9, 10})

	lasso, err := NewLassoRegression(&LassoOptions{
		Lambda:       0,
		Iterations:   10000,
		Tolerance:    1e-9,
		FitIntercept: true,
	})
	require.Nil(t, err)
	require.Nil(t, lasso.Fit(x, y))

	assert.InDelta(t, 3.0, lasso.Intercept(), 1e-3)
	coef := lasso.Coef()
	require.Len(t, coef, 2)
	assert.InDelta(t, 2.0, coef[0], 1e-3)
	assert.InDelta(t, -1.0, coef[1], 1e-3)

	predicted, err := lasso.Predict(x)
	require.Nil(t, err)
	expected := []float64{3, 5, 6, 8, 9, 10}
	for i := range expected {
		assert.InDelta(t, expected[i], predicted[i], 1e-2)
	}
}

func TestLassoRegressionShrinksCoefficients(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	y := mat.NewDense(5, 1, []float64{2, 4, 6, 8, 10})

	unpenalized, err := NewLassoRegression(&LassoOptions{FitIntercept: true})
	require.Nil(t, err)
	require.Nil(t, unpenalized.Fit(x, y))

	penalized, err := NewLassoRegression(&LassoOptions{Lambda: 100, FitIntercept: true})
	require.Nil(t, err)
	require.Nil(t, penalized.Fit(x, y))

	assert.Less(t, penalized.Coef()[0], unpenalized.Coef()[0])
}

func TestSoftThreshold(t *testing.T) {
	assert.Equal(t, 0.5, SoftThreshold(1.0, 0.5))
	assert.Equal(t, -0.5, SoftThreshold(-1.0, 0.5))
	assert.Equal(t, 0.0, SoftThreshold(0.3, 0.5))
	assert.Equal(t, 0.0, SoftThreshold(-0.3, 0.5))
}
