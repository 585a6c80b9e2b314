package analyzer

import (
	"sort"

	"github.com/pedalwatt/pedalwatt/internal/estimate"
)

// representativeTopN is how many of the strongest rides are considered when
// picking the representative one. Among those, recency wins, so the
// headline ride reflects current rather than peak-season form.
const representativeTopN = 30

// summarize fills in the aggregate view over the collected estimates.
func summarize(result *Result, considered int) {
	s := &result.Summary
	s.RidesConsidered = considered
	s.RidesAnalyzed = len(result.Estimates)

	if len(result.Estimates) == 0 {
		return
	}

	var sumAccuracy float64
	for i := range result.Estimates {
		e := &result.Estimates[i]

		s.AvgPowerW += e.TotalW
		s.AvgGravityW += e.GravityW
		s.AvgRollingW += e.RollingW
		s.AvgAeroW += e.AeroW
		s.AvgWindW += e.WindW
		s.TotalDistanceKm += e.DistanceKm

		if e.TotalW > s.MaxPowerW {
			s.MaxPowerW = e.TotalW
		}

		if e.HasMeasuredPower {
			s.MeasuredRides++
			sumAccuracy += float64(e.AccuracyPct)
		}
	}

	n := float64(len(result.Estimates))
	s.AvgPowerW /= n
	s.AvgGravityW /= n
	s.AvgRollingW /= n
	s.AvgAeroW /= n
	s.AvgWindW /= n

	if s.MeasuredRides > 0 {
		s.AvgAccuracyPct = sumAccuracy / float64(s.MeasuredRides)
	}

	s.Representative = representative(result.Estimates)
}

// representative picks the most recent ride among the top rides by power.
func representative(estimates []estimate.PowerEstimate) *estimate.PowerEstimate {
	if len(estimates) == 0 {
		return nil
	}

	top := make([]estimate.PowerEstimate, len(estimates))
	copy(top, estimates)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].TotalW > top[j].TotalW
	})

	if len(top) > representativeTopN {
		top = top[:representativeTopN]
	}

	best := top[0]
	for _, e := range top[1:] {
		if e.StartTime.After(best.StartTime) {
			best = e
		}
	}
	return &best
}
