package logic

// Evaluator turns a full window into at most one trigger per cycle and
// suppresses re-triggering for a number of cycles afterwards.
type Evaluator struct {
	thresholds Thresholds
	cooldown   int
}

// NewEvaluator creates an evaluator with no cooldown pending.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Classify maps a smoothed distance to its zone. Mid is checked before Near
// so a value can never resolve to both.
func (e *Evaluator) Classify(avg uint32) Zone {
	t := e.thresholds
	switch {
	case avg > t.LowTriggerMM && avg <= t.HighTriggerMM:
		return ZoneMid
	case avg >= 1 && avg <= t.LowTriggerMM:
		return ZoneNear
	default:
		return ZoneFar
	}
}

// Evaluate runs one cycle. active reports the current logical state of an
// actuator so the trigger can carry the flipped state.
//
// A pending cooldown is decremented and blocks evaluation entirely; the
// window is fed by the caller and keeps accumulating regardless.
func (e *Evaluator) Evaluate(w *Window, active func(Actuator) bool) Decision {
	if e.cooldown > 0 {
		e.cooldown--
		return Decision{Outcome: OutcomeCooldown, Cooldown: e.cooldown}
	}

	if !w.Ready() {
		return Decision{Outcome: OutcomeFilling}
	}

	avg := w.Average()
	zone := e.Classify(avg)

	var target Actuator
	switch zone {
	case ZoneMid:
		target = Light
	case ZoneNear:
		target = Fan
	default:
		return Decision{Outcome: OutcomeIdle, Average: avg}
	}

	e.cooldown = e.thresholds.CooldownCycles
	w.Clear()

	return Decision{
		Outcome: OutcomeTrigger,
		Trigger: Trigger{
			Actuator: target,
			Active:   !active(target),
			SonicAvg: avg,
			Zone:     zone,
		},
		Average:  avg,
		Cooldown: e.cooldown,
	}
}

// Cooldown returns the number of cycles still suppressed.
func (e *Evaluator) Cooldown() int {
	return e.cooldown
}
