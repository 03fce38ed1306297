package timedataset

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownFrequency = errors.New("unknown resampling frequency")

// Frequency describes the spacing of a prepared series. Indicators in this
// domain are annual or at best monthly, so spacing is calendar based rather
// than a fixed duration.
type Frequency string

const (
	Annual    Frequency = "A"
	Quarterly Frequency = "Q"
	Monthly   Frequency = "M"
)

// Validate checks that the frequency is one of the supported calendar spacings.
func (f Frequency) Validate() error {
	switch f {
	case Annual, Quarterly, Monthly:
		return nil
	}
	return fmt.Errorf("%q, %w", string(f), ErrUnknownFrequency)
}

// Next returns the timestamp one period after t.
func (f Frequency) Next(t time.Time) time.Time {
	switch f {
	case Annual:
		return t.AddDate(1, 0, 0)
	case Quarterly:
		return t.AddDate(0, 3, 0)
	case Monthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}

// Extend produces horizon future timestamps following last, strictly
// increasing, one per period.
func (f Frequency) Extend(last time.Time, horizon int) []time.Time {
	t := make([]time.Time, 0, horizon)
	curr := last
	for i := 0; i < horizon; i++ {
		curr = f.Next(curr)
		t = append(t, curr)
	}
	return t
}
