// Package plot renders logged telemetry columns as line charts over time.
package plot

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/team4028/robot-telemetry/internal/telemetry"
	"github.com/team4028/robot-telemetry/internal/tsvlog"
)

// DefaultTimeColumn is the roboRIO clock column, in microseconds
const DefaultTimeColumn = telemetry.TimeColumn

// ErrEmptyChart is returned when a chart has no samples to draw
var ErrEmptyChart = errors.New("chart has no samples")

// Series is one plotted column, with a value per chart sample
type Series struct {
	Name   string
	Values []float64
}

// Chart holds samples of one or more columns taken at the same instants
type Chart struct {
	Title  string
	Times  []float64 // seconds since the first sample
	Series []Series
}

// Samples returns the number of sampled instants
func (c *Chart) Samples() int {
	return len(c.Times)
}

// Duration returns the time span of the chart in seconds
func (c *Chart) Duration() float64 {
	if len(c.Times) == 0 {
		return 0
	}
	return c.Times[len(c.Times)-1] - c.Times[0]
}

// bounds returns the time and value ranges of the chart. Empty ranges are
// widened so that they can be scaled.
func (c *Chart) bounds() (minT, maxT, minV, maxV float64) {
	minT, maxT = math.Inf(1), math.Inf(-1)
	for _, t := range c.Times {
		minT = math.Min(minT, t)
		maxT = math.Max(maxT, t)
	}

	minV, maxV = math.Inf(1), math.Inf(-1)
	for _, s := range c.Series {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
	}

	if math.IsInf(minV, 0) {
		minV, maxV = 0, 0
	}
	if maxT <= minT {
		maxT = minT + widen(minT)
	}
	if maxV <= minV {
		pad := widen(minV)
		minV, maxV = minV-pad, maxV+pad
	}
	return
}

// widen returns a padding that still changes v: 1 near zero and relative to
// the magnitude of v beyond that
func widen(v float64) float64 {
	return math.Max(1, math.Abs(v)*1e-6)
}

// FromLog reads every data line of a log into a chart. The time column holds
// microseconds; columns are parsed as numbers, with booleans plotted as 0 and 1.
func FromLog(r *tsvlog.Reader, timeColumn string, columns ...string) (*Chart, error) {
	if len(columns) == 0 {
		return nil, errors.New("no columns to plot")
	}

	for _, name := range append([]string{timeColumn}, columns...) {
		if !r.HasColumn(name) {
			return nil, fmt.Errorf("%w: %s", tsvlog.ErrUnknownColumn, name)
		}
	}

	chart := Chart{
		Series: make([]Series, len(columns)),
	}
	for i, name := range columns {
		chart.Series[i].Name = name
	}

	var origin float64
	for r.Next() {
		rec := r.Record()

		micros, err := rec.Float(timeColumn)
		if err != nil {
			return nil, err
		}
		if len(chart.Times) == 0 {
			origin = micros
		}
		chart.Times = append(chart.Times, (micros-origin)/1e6)

		for i, name := range columns {
			v, err := numeric(rec, name)
			if err != nil {
				return nil, err
			}
			chart.Series[i].Values = append(chart.Series[i].Values, v)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}

	return &chart, nil
}

func numeric(rec tsvlog.Record, name string) (float64, error) {
	s, err := rec.String(name)
	if err != nil {
		return 0, err
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("line %d: column %s is not numeric: %q", rec.Line(), name, s)
}
