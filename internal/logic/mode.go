package logic

// Machine tracks charging vs discharging and, while discharging, which view
// the rider selected. It never terminates.
type Machine struct {
	state State
}

// NewMachine creates a machine from one charge-detect sample.
func NewMachine(charging bool) *Machine {
	m := &Machine{state: StateDischargingSpeed}
	if charging {
		m.state = StateCharging
	}
	return m
}

// State returns the current display state.
func (m *Machine) State() State {
	return m.state
}

// ChargeDetect applies a charge-detect sample. It returns true when the
// top-level mode flipped; the caller must then reset measurements and
// latches and redraw the full layout. Leaving charging always lands on the
// speed view.
func (m *Machine) ChargeDetect(charging bool) bool {
	if charging == m.state.Charging() {
		return false
	}
	if charging {
		m.state = StateCharging
	} else {
		m.state = StateDischargingSpeed
	}
	return true
}

// Touch toggles between the speed and battery detail views. Touches while
// charging are ignored and return false.
func (m *Machine) Touch() bool {
	switch m.state {
	case StateDischargingSpeed:
		m.state = StateDischargingBattery
	case StateDischargingBattery:
		m.state = StateDischargingSpeed
	default:
		return false
	}
	return true
}

// TransitionEvent returns the event type describing entry into the current state.
func (m *Machine) TransitionEvent() EventType {
	switch m.state {
	case StateCharging:
		return EventCharging
	case StateDischargingBattery:
		return EventViewDetail
	default:
		return EventViewSpeed
	}
}
