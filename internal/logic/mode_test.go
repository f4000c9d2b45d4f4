package logic

import "testing"

func TestNewMachineInitialState(t *testing.T) {
	if got := NewMachine(false).State(); got != StateDischargingSpeed {
		t.Errorf("discharging start: got %s", got)
	}
	if got := NewMachine(true).State(); got != StateCharging {
		t.Errorf("charging start: got %s", got)
	}
}

func TestMachineChargeDetect(t *testing.T) {
	m := NewMachine(false)

	if m.ChargeDetect(false) {
		t.Error("unchanged charge-detect reported a transition")
	}
	if !m.ChargeDetect(true) {
		t.Fatal("expected transition into charging")
	}
	if m.State() != StateCharging {
		t.Errorf("expected CHARGING, got %s", m.State())
	}
	if m.ChargeDetect(true) {
		t.Error("repeated charging sample reported a transition")
	}
	if !m.ChargeDetect(false) {
		t.Fatal("expected transition out of charging")
	}
	if m.State() != StateDischargingSpeed {
		t.Errorf("expected DISCHARGING_SPEED, got %s", m.State())
	}
}

func TestMachineTouchToggles(t *testing.T) {
	m := NewMachine(false)

	if !m.Touch() || m.State() != StateDischargingBattery {
		t.Fatalf("first touch: got %s", m.State())
	}
	if !m.Touch() || m.State() != StateDischargingSpeed {
		t.Fatalf("second touch: got %s", m.State())
	}
}

func TestMachineTouchIgnoredWhileCharging(t *testing.T) {
	m := NewMachine(true)
	if m.Touch() {
		t.Error("touch while charging should be ignored")
	}
	if m.State() != StateCharging {
		t.Errorf("state changed to %s", m.State())
	}
}

func TestMachineChargingInvalidatesView(t *testing.T) {
	m := NewMachine(false)
	m.Touch()
	if m.State() != StateDischargingBattery {
		t.Fatalf("setup: got %s", m.State())
	}

	m.ChargeDetect(true)
	m.ChargeDetect(false)
	if m.State() != StateDischargingSpeed {
		t.Errorf("view selection survived charging: got %s", m.State())
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state    State
		charging bool
		detail   bool
	}{
		{StateDischargingSpeed, false, false},
		{StateDischargingBattery, false, true},
		{StateCharging, true, true},
	}
	for _, tt := range tests {
		if tt.state.Charging() != tt.charging {
			t.Errorf("%s: Charging() = %v", tt.state, tt.state.Charging())
		}
		if tt.state.ShowsBatteryDetail() != tt.detail {
			t.Errorf("%s: ShowsBatteryDetail() = %v", tt.state, tt.state.ShowsBatteryDetail())
		}
	}
}

func TestMachineTransitionEvent(t *testing.T) {
	m := NewMachine(true)
	if m.TransitionEvent() != EventCharging {
		t.Errorf("charging: got %s", m.TransitionEvent())
	}
	m.ChargeDetect(false)
	if m.TransitionEvent() != EventViewSpeed {
		t.Errorf("speed: got %s", m.TransitionEvent())
	}
	m.Touch()
	if m.TransitionEvent() != EventViewDetail {
		t.Errorf("detail: got %s", m.TransitionEvent())
	}
}
