package logic

import "time"

// Evaluator derives warning latches from the current snapshot.
// Every latch is a pure level check against its threshold; a single noisy
// sample is enough to set or clear it.
type Evaluator struct {
	thresholds Thresholds
	latches    Warnings
	cleared    Warnings // set by Reset, owed a WARNING_OFF unless re-raised
}

// NewEvaluator creates an evaluator with all latches cleared.
func NewEvaluator(th Thresholds) *Evaluator {
	return &Evaluator{thresholds: th}
}

// Evaluate recomputes every latch from the store's current values and returns
// one event per latch that flipped, in display order. A latch dropped by Reset
// that stays clear reports WARNING_OFF here.
func (e *Evaluator) Evaluate(s *Store, state State, now time.Time) []Event {
	next := Warnings{
		WarnLowBattery:     s.Percent.Current <= e.thresholds.LowBatteryPercent,
		WarnOverheat:       int(s.TemperatureC.Current) > e.thresholds.OverheatC,
		WarnLowTemperature: int(s.TemperatureC.Current) < e.thresholds.LowTemperatureC,
		WarnImbalance:      e.imbalanced(s),
	}

	var events []Event
	for _, k := range AllWarnings {
		if next[k] == e.latches[k] && (next[k] || !e.cleared[k]) {
			continue
		}
		typ := EventWarningOff
		if next[k] {
			typ = EventWarningOn
		}
		events = append(events, Event{Timestamp: now, Type: typ, State: state, Warning: k})
	}
	e.latches = next
	e.cleared = Warnings{}
	return events
}

// imbalanced is the cell-imbalance check. There is no per-cell sensing, so the
// slot stays inactive.
func (e *Evaluator) imbalanced(*Store) bool {
	return false
}

// Latches returns the current latch values.
func (e *Evaluator) Latches() Warnings {
	return e.latches
}

// Thresholds returns the configured trigger levels.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Reset clears every latch. Latches that were set are remembered so the next
// Evaluate can report the ones that did not come back.
func (e *Evaluator) Reset() {
	for k, on := range e.latches {
		e.cleared[k] = e.cleared[k] || on
	}
	e.latches = Warnings{}
}
