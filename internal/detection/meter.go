// Package detection models the ambient trace meter that rises toward session failure.
package detection

import (
	"math"

	"quantumbreach/internal/game"
)

const (
	// Ceiling is the level at which the session is lost.
	Ceiling = 100.0

	// MinIncrement is the floor applied after suppression damping.
	MinIncrement = 0.01

	// SuppressionDamping is subtracted from the base rate per active suppression.
	SuppressionDamping = 0.08

	criticalLevel = 50.0
)

// Increment returns the per-tick rise for a difficulty and suppression count.
// The result is always within [MinIncrement, d.DetectionBase()].
func Increment(d game.Difficulty, suppressed int) float64 {
	if suppressed < 0 {
		suppressed = 0
	}
	return math.Max(MinIncrement, d.DetectionBase()-SuppressionDamping*float64(suppressed))
}

// Meter is the detection counter. The zero value is an empty meter.
// Meter is not safe for concurrent use; the session controller serializes access.
type Meter struct {
	level float64
}

// Level returns the current value in [0, Ceiling].
func (m *Meter) Level() float64 {
	return m.level
}

// Tripped reports whether the meter has reached the ceiling.
func (m *Meter) Tripped() bool {
	return m.level >= Ceiling
}

// Critical reports whether the level is past the warning threshold.
func (m *Meter) Critical() bool {
	return m.level > criticalLevel
}

// Advance applies one regular tick and reports the increment used and whether
// the ceiling was reached by this update. A tripped meter no longer moves.
func (m *Meter) Advance(d game.Difficulty, suppressed int) (float64, bool) {
	if m.Tripped() {
		return 0, false
	}
	inc := Increment(d, suppressed)
	m.add(inc)
	return inc, m.Tripped()
}

// Penalize adds a lump sum outside the regular tick and reports whether the
// ceiling was reached by this update.
func (m *Meter) Penalize(amount float64) bool {
	if m.Tripped() || amount <= 0 {
		return false
	}
	m.add(amount)
	return m.Tripped()
}

// Reset empties the meter.
func (m *Meter) Reset() {
	m.level = 0
}

func (m *Meter) add(v float64) {
	m.level = math.Min(Ceiling, m.level+v)
}
