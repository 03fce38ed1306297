// Package event builds binary indicator columns marking the influence windows
// that follow dated events, for use as exogenous regressors. Indicator
// construction is a pure function with no model dependency.
package event

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
)

// DaysPerLagMonth approximates one month of influence window.
const DaysPerLagMonth = 30

// IndicatorMatrix maps an event name to a 0/1 column aligned 1:1 with the
// timestamp sequence it was built against. Overlapping events stay independent
// columns.
type IndicatorMatrix map[string][]float64

// Names returns the event names in sorted order for deterministic design
// matrix column ordering.
func (m IndicatorMatrix) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Indicators emits one binary column per event over the target timestamps. A
// value is 1 iff the timestamp falls within the inclusive window
// [date, date + lagMonths*30 days].
func Indicators(t []time.Time, events map[string]time.Time, lagMonths int) IndicatorMatrix {
	out := make(IndicatorMatrix, len(events))
	for name, date := range events {
		end := date.Add(time.Duration(lagMonths) * DaysPerLagMonth * 24 * time.Hour)
		col := make([]float64, len(t))
		for i, tPnt := range t {
			if !tPnt.Before(date) && !tPnt.After(end) {
				col[i] = 1.0
			}
		}
		out[name] = col
	}
	return out
}

// Holiday derives event dates from a calendar holiday across a year range,
// keyed by the holiday name suffixed with the year.
func Holiday(hol *cal.Holiday, startYear, endYear int) map[string]time.Time {
	events := make(map[string]time.Time)
	for year := startYear; year <= endYear; year++ {
		_, observed := hol.Calc(year)
		name := strings.ReplaceAll(hol.Name, " ", "_") + "_" + strconv.Itoa(year)
		events[name] = observed
	}
	return events
}
