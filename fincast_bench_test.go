package fincast

import (
	"testing"

	"github.com/addisanalytics/fincast/arima"
	"github.com/addisanalytics/fincast/timedataset"
	"github.com/pkg/profile"
)

var benchForecastRes *Forecast

func BenchmarkFitAutoregressive(b *testing.B) {
	td, err := timedataset.PrepareTimeSeries(accountOwnershipObservations(), "ACC_OWNERSHIP", timedataset.Annual)
	if err != nil {
		panic(err)
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := FitAutoregressive(td, arima.Order{P: 1, D: 1}, nil, nil); err != nil {
			panic(err)
		}
	}
}

func BenchmarkForecastPipeline(b *testing.B) {
	td, err := timedataset.PrepareTimeSeries(accountOwnershipObservations(), "ACC_OWNERSHIP", timedataset.Annual)
	if err != nil {
		panic(err)
	}

	arModel, err := FitAutoregressive(td, arima.Order{P: 1, D: 1}, nil, nil)
	if err != nil {
		panic(err)
	}
	trendModel, err := FitAdditiveTrend(td, nil, nil)
	if err != nil {
		panic(err)
	}

	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		benchForecastRes, err = Ensemble([]Model{arModel, trendModel}, 5, timedataset.Annual, nil, nil)
		if err != nil {
			panic(err)
		}
	}
}
