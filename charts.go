package fincast

import (
	"io"
	"math"
	"sort"
	"time"

	"github.com/addisanalytics/fincast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineForecast generates an echart line chart for a forecast plotting the
// history alongside the projected values and both bounds.
func LineForecast(title string, history *timedataset.TimeDataset, fc *Forecast) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	t := make([]time.Time, 0, history.Len()+fc.Len())
	t = append(t, history.T...)
	t = append(t, fc.T...)

	actual := make([]opts.LineData, 0, len(t))
	forecast := make([]opts.LineData, 0, len(t))
	upper := make([]opts.LineData, 0, len(t))
	lower := make([]opts.LineData, 0, len(t))

	// echarts treats "-" as a missing point; NaN is not marshalable
	for i := 0; i < history.Len(); i++ {
		actual = append(actual, opts.LineData{Value: chartValue(history.Y[i])})
		forecast = append(forecast, opts.LineData{Value: "-"})
		upper = append(upper, opts.LineData{Value: "-"})
		lower = append(lower, opts.LineData{Value: "-"})
	}
	for i := 0; i < fc.Len(); i++ {
		actual = append(actual, opts.LineData{Value: "-"})
		forecast = append(forecast, opts.LineData{Value: chartValue(fc.Point[i])})
		upper = append(upper, opts.LineData{Value: chartValue(fc.Upper[i])})
		lower = append(lower, opts.LineData{Value: chartValue(fc.Lower[i])})
	}

	line.SetXAxis(t).
		AddSeries("Actual", actual).
		AddSeries("Forecast", forecast).
		AddSeries("Upper", upper).
		AddSeries("Lower", lower)
	return line
}

// LineScenarios generates an echart line chart with one series per scenario
// point forecast.
func LineScenarios(title string, set ScenarioSet) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	base, exists := set[BaseScenario]
	if !exists || base.Len() == 0 {
		return line
	}
	line.SetXAxis(base.T)

	// base first, remaining scenarios in sorted order
	names := make([]string, 0, len(set))
	for name := range set {
		if name == BaseScenario {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range append([]string{BaseScenario}, names...) {
		fc := set[name]
		data := make([]opts.LineData, 0, fc.Len())
		for i := 0; i < fc.Len(); i++ {
			data = append(data, opts.LineData{Value: chartValue(fc.Point[i])})
		}
		line.AddSeries(name, data)
	}
	return line
}

// PlotForecast renders an html page showing the forecast against history and,
// when provided, the scenario trajectories derived from it.
func PlotForecast(w io.Writer, title string, history *timedataset.TimeDataset, fc *Forecast, set ScenarioSet) error {
	page := components.NewPage()
	page.AddCharts(LineForecast(title, history, fc))
	if len(set) > 0 {
		page.AddCharts(LineScenarios(title+" scenarios", set))
	}
	return page.Render(w)
}

func chartValue(v float64) any {
	if math.IsNaN(v) {
		return "-"
	}
	return v
}
