package arima

// acf computes the sample autocorrelation function of y up to maxLag. Index 0
// is always 1.
func acf(y []float64, maxLag int) []float64 {
	n := len(y)
	if n == 0 || maxLag < 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	var c0 float64
	for _, v := range y {
		c0 += (v - mean) * (v - mean)
	}

	out := make([]float64, maxLag+1)
	out[0] = 1
	if c0 == 0 {
		return out
	}
	for lag := 1; lag <= maxLag; lag++ {
		var ck float64
		for t := lag; t < n; t++ {
			ck += (y[t] - mean) * (y[t-lag] - mean)
		}
		out[lag] = ck / c0
	}
	return out
}

// yuleWalker estimates AR coefficients from the autocorrelation function using
// the Levinson-Durbin recursion.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	if order == 1 {
		return phi
	}

	v := 1 - phi[0]*phi[0]
	for i := 1; i < order; i++ {
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)

		v *= 1 - lambda*lambda
		if v <= 0 {
			break
		}
	}
	return phi
}
