package memory

import "time"

// DefaultRecencyDecay is the default per-day decay factor.
const DefaultRecencyDecay = 0.1

const hoursPerDay = 24

// RecencyScorer maps an entry's age to a score in (0, 1]: 1 at age zero,
// approaching 0 as age grows. The clock is injectable so tests can freeze
// "now"; scores for the same entry change between successive searches as
// wall-clock time passes.
type RecencyScorer struct {
	decay float64
	now   func() time.Time
}

// NewRecencyScorer creates a scorer with the given decay factor per day.
func NewRecencyScorer(decay float64) *RecencyScorer {
	return &RecencyScorer{decay: decay, now: time.Now}
}

// WithClock replaces the wall clock, returning the scorer for chaining.
func (r *RecencyScorer) WithClock(now func() time.Time) *RecencyScorer {
	r.now = now
	return r
}

// Score returns 1 / (1 + decay * daysSince(ts)). Timestamps in the future
// score as age zero.
func (r *RecencyScorer) Score(ts time.Time) float64 {
	days := r.now().Sub(ts).Hours() / hoursPerDay
	if days < 0 {
		days = 0
	}
	return 1 / (1 + r.decay*days)
}
