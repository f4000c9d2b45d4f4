package engine

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/ev-dashboard/internal/adc"
	"github.com/sweeney/ev-dashboard/internal/gauge"
	"github.com/sweeney/ev-dashboard/internal/gpio"
	"github.com/sweeney/ev-dashboard/internal/logic"
	"github.com/sweeney/ev-dashboard/internal/metrics"
	"github.com/sweeney/ev-dashboard/internal/pulse"
	"github.com/sweeney/ev-dashboard/internal/render"
)

var healthy = adc.Battery{VoltageMV: 11000, CurrentA: 5, TemperatureC: 25}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeTouch struct {
	pending []render.Touch
}

func (f *fakeTouch) Poll() (render.Touch, bool) {
	if len(f.pending) == 0 {
		return render.Touch{}, false
	}
	t := f.pending[0]
	f.pending = f.pending[1:]
	return t, true
}

type fixture struct {
	e       *Engine
	rec     *render.Recorder
	clock   *fakeClock
	touch   *fakeTouch
	digital *gpio.FakeReader
	analog  *adc.FakeReader
	pulses  *pulse.Capture
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, charging []bool, lights []logic.Lights, batt ...adc.Battery) *fixture {
	t.Helper()
	if len(batt) == 0 {
		batt = []adc.Battery{healthy}
	}
	f := &fixture{
		rec:     render.NewRecorder(0),
		clock:   &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		touch:   &fakeTouch{},
		digital: gpio.NewFakeReader(lights, charging),
		analog:  adc.NewFakeReader(batt...),
		metrics: metrics.New(),
	}
	f.pulses = pulse.NewCapture(f.clock.Now)

	src := Sources{
		Digital: f.digital,
		Analog:  f.analog,
		Gauge:   gauge.Linear{MinMV: 9000, MaxMV: 12000},
		Touch:   f.touch,
		Pulses:  f.pulses,
	}
	e, err := New(DefaultConfig(), src, f.rec, nil, f.metrics, f.clock.Now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.e = e
	return f
}

func (f *fixture) cycle(t *testing.T) []logic.Event {
	t.Helper()
	events, err := f.e.Cycle()
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	f.clock.Advance(100 * time.Millisecond)
	return events
}

func eventTypes(events []logic.Event) []logic.EventType {
	var out []logic.EventType
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestNewValidatesSources(t *testing.T) {
	rec := render.NewRecorder(0)
	full := Sources{
		Digital: gpio.NewFakeReader(nil, []bool{false}),
		Analog:  adc.NewFakeReader(healthy),
		Gauge:   gauge.Linear{MinMV: 9000, MaxMV: 12000},
	}

	tests := []struct {
		name string
		src  Sources
		r    render.Renderer
		cfg  Config
	}{
		{"no digital", Sources{Analog: full.Analog, Gauge: full.Gauge}, rec, DefaultConfig()},
		{"no analog", Sources{Digital: full.Digital, Gauge: full.Gauge}, rec, DefaultConfig()},
		{"no gauge", Sources{Digital: full.Digital, Analog: full.Analog}, rec, DefaultConfig()},
		{"no renderer", full, nil, DefaultConfig()},
		{"zero screen", full, rec, Config{Thresholds: logic.DefaultThresholds(), Limits: logic.DefaultLimits()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.src, tt.r, nil, nil, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewFailsWithoutChargeDetect(t *testing.T) {
	src := Sources{
		Digital: gpio.NewFakeReader(nil, nil),
		Analog:  adc.NewFakeReader(healthy),
		Gauge:   gauge.Linear{MinMV: 9000, MaxMV: 12000},
	}
	if _, err := New(DefaultConfig(), src, render.NewRecorder(0), nil, nil, nil); err == nil {
		t.Fatal("expected error when charge detect cannot be read")
	}
}

func TestNewInitialState(t *testing.T) {
	f := newFixture(t, []bool{true}, nil)

	if f.e.State() != logic.StateCharging {
		t.Errorf("expected CHARGING, got %s", f.e.State())
	}
	if f.e.PendingRedraw() != render.RedrawFull {
		t.Errorf("expected pending full redraw, got %s", f.e.PendingRedraw())
	}
	if f.rec.Backlight() != 255 {
		t.Errorf("expected backlight 255, got %d", f.rec.Backlight())
	}
	if f.rec.Count("FillScreen") != 0 {
		t.Error("New must not draw before the first Render")
	}
}

func TestFirstCycleDrawsEverything(t *testing.T) {
	f := newFixture(t, []bool{false}, nil)

	events := f.cycle(t)
	if len(events) != 0 {
		t.Errorf("expected no events for healthy readings, got %+v", events)
	}
	if f.rec.Count("FillScreen") != 1 {
		t.Errorf("expected one full screen clear, got %d", f.rec.Count("FillScreen"))
	}
	if f.e.PendingRedraw() != render.RedrawNone {
		t.Errorf("redraw not cleared after Render: %s", f.e.PendingRedraw())
	}

	want := logic.Readings{VoltageMV: 11000, CurrentA: 5, TemperatureC: 25, Percent: 66, SpeedMPH: 0}
	if got := f.e.Readings(); got != want {
		t.Errorf("readings: got %+v, want %+v", got, want)
	}
	if f.e.Cycles() != 1 {
		t.Errorf("expected 1 cycle, got %d", f.e.Cycles())
	}
}

func TestSteadyInputsDrawNothing(t *testing.T) {
	f := newFixture(t, []bool{false}, []logic.Lights{{Left: true}})
	f.cycle(t)
	f.rec.Reset()

	f.cycle(t)
	if ops := f.rec.Ops(); len(ops) != 0 {
		t.Errorf("expected no drawing for unchanged inputs, got %v", ops)
	}
	if f.rec.Flushes() != 0 {
		t.Errorf("expected no flush, got %d", f.rec.Flushes())
	}
}

func TestSpeedFromPulses(t *testing.T) {
	f := newFixture(t, []bool{false}, nil)
	if _, err := f.e.Cycle(); err != nil {
		t.Fatal(err)
	}
	f.rec.Reset()

	for i := 0; i < 10; i++ {
		f.clock.Advance(10 * time.Millisecond)
		f.pulses.OnEdge()
	}
	if _, err := f.e.Cycle(); err != nil {
		t.Fatal(err)
	}

	w := f.e.LastWindow()
	if w.Count != 10 || w.Elapsed() != 100000 {
		t.Fatalf("window: got %+v", w)
	}
	if got := f.e.Readings().SpeedMPH; got != 17 {
		t.Errorf("expected 17 mph, got %d", got)
	}
	if !slices.Contains(f.rec.Texts(), "17") {
		t.Errorf("speed not drawn: %v", f.rec.Texts())
	}

	// No pulses in the next window reads as standstill.
	f.clock.Advance(100 * time.Millisecond)
	if _, err := f.e.Cycle(); err != nil {
		t.Fatal(err)
	}
	if got := f.e.Readings().SpeedMPH; got != 0 {
		t.Errorf("expected 0 mph without pulses, got %d", got)
	}
}

func TestChargeFlipResetsLatchesAndRedraws(t *testing.T) {
	hot := adc.Battery{VoltageMV: 11000, CurrentA: 5, TemperatureC: 70}
	f := newFixture(t, []bool{false, false, true, false}, nil, hot)

	events := f.cycle(t)
	if got := eventTypes(events); !slices.Equal(got, []logic.EventType{logic.EventWarningOn}) {
		t.Fatalf("cycle 1: got %v", got)
	}
	if events[0].Warning != logic.WarnOverheat || events[0].State != logic.StateDischargingSpeed {
		t.Errorf("cycle 1: unexpected event %+v", events[0])
	}
	f.rec.Reset()

	events = f.cycle(t)
	want := []logic.EventType{logic.EventCharging, logic.EventWarningOn}
	if got := eventTypes(events); !slices.Equal(got, want) {
		t.Fatalf("cycle 2: got %v, want %v", got, want)
	}
	if f.e.State() != logic.StateCharging {
		t.Errorf("expected CHARGING, got %s", f.e.State())
	}
	if f.rec.Count("FillScreen") != 1 {
		t.Errorf("expected full redraw on charge flip, got %d clears", f.rec.Count("FillScreen"))
	}
	// Measurements restart from zero so every value reads as changed.
	if !slices.Contains(f.rec.Texts(), "11000") {
		t.Errorf("voltage not redrawn after reset: %v", f.rec.Texts())
	}

	events = f.cycle(t)
	want = []logic.EventType{logic.EventDischarge, logic.EventWarningOn}
	if got := eventTypes(events); !slices.Equal(got, want) {
		t.Fatalf("cycle 3: got %v, want %v", got, want)
	}
	if f.e.State() != logic.StateDischargingSpeed {
		t.Errorf("expected DISCHARGING_SPEED, got %s", f.e.State())
	}

	c := f.e.Counts()
	if c.Charging != 1 || c.Discharging != 1 || c.WarningsOn != 3 {
		t.Errorf("counts: got %+v", c)
	}
}

func TestChargeFlipClearsWarningThatCooled(t *testing.T) {
	hot := adc.Battery{VoltageMV: 11000, CurrentA: 5, TemperatureC: 70}
	cool := adc.Battery{VoltageMV: 11000, CurrentA: 5, TemperatureC: 30}
	f := newFixture(t, []bool{false, false, true}, nil, hot, cool)

	if got := eventTypes(f.cycle(t)); !slices.Equal(got, []logic.EventType{logic.EventWarningOn}) {
		t.Fatalf("cycle 1: got %v", got)
	}

	events := f.cycle(t)
	want := []logic.EventType{logic.EventCharging, logic.EventWarningOff}
	if got := eventTypes(events); !slices.Equal(got, want) {
		t.Fatalf("cycle 2: got %v, want %v", got, want)
	}
	if events[1].Warning != logic.WarnOverheat {
		t.Errorf("cycle 2: WARNING_OFF for %s, want BATTERY_OVERHEAT", events[1].Warning)
	}
	if f.e.Warnings().Any() {
		t.Errorf("latches after cool flip: %v", f.e.Warnings())
	}
	if c := f.e.Counts(); c.WarningsOn != 1 || c.WarningsOff != 1 {
		t.Errorf("counts: got %+v", c)
	}
}

func TestTouchKeepsWarningLatches(t *testing.T) {
	hot := adc.Battery{VoltageMV: 11000, CurrentA: 5, TemperatureC: 70}
	f := newFixture(t, []bool{false}, nil, hot)

	if got := eventTypes(f.cycle(t)); !slices.Equal(got, []logic.EventType{logic.EventWarningOn}) {
		t.Fatalf("cycle 1: got %v", got)
	}

	f.touch.pending = []render.Touch{{X: 512, Y: 512}}
	events := f.cycle(t)
	if got := eventTypes(events); !slices.Equal(got, []logic.EventType{logic.EventViewDetail}) {
		t.Fatalf("toggle cycle: got %v, want only VIEW_BATTERY", got)
	}
	if !f.e.Warnings()[logic.WarnOverheat] {
		t.Error("overheat latch lost across view toggle")
	}
	if got := f.e.Counts().WarningsOn; got != 1 {
		t.Errorf("WarningsOn = %d, want 1", got)
	}
}

func TestTouchTogglesView(t *testing.T) {
	f := newFixture(t, []bool{false}, nil)
	f.cycle(t)
	f.rec.Reset()

	f.touch.pending = []render.Touch{{X: 512, Y: 512}}
	events := f.cycle(t)

	if got := eventTypes(events); !slices.Equal(got, []logic.EventType{logic.EventViewDetail}) {
		t.Fatalf("got %v", got)
	}
	if f.e.State() != logic.StateDischargingBattery {
		t.Errorf("expected DISCHARGING_BATTERY, got %s", f.e.State())
	}
	if f.e.LastTouch() != (render.Touch{X: 400, Y: 240}) {
		t.Errorf("touch scaling: got %+v", f.e.LastTouch())
	}
	if f.rec.Count("FillScreen") != 0 {
		t.Error("view toggle must not clear the whole screen")
	}
	if !slices.Contains(f.rec.Texts(), "Battery Voltage: ") {
		t.Errorf("battery detail layout not drawn: %v", f.rec.Texts())
	}

	f.touch.pending = []render.Touch{{X: 10, Y: 10}}
	events = f.cycle(t)
	if got := eventTypes(events); !slices.Equal(got, []logic.EventType{logic.EventViewSpeed}) {
		t.Fatalf("got %v", got)
	}
	if f.e.Counts().ViewChanges != 2 {
		t.Errorf("expected 2 view changes, got %d", f.e.Counts().ViewChanges)
	}
}

func TestTouchScaling(t *testing.T) {
	f := newFixture(t, []bool{true}, nil)
	tests := []struct {
		raw, want render.Touch
	}{
		{render.Touch{X: 0, Y: 0}, render.Touch{X: 0, Y: 0}},
		{render.Touch{X: 1023, Y: 1023}, render.Touch{X: 799, Y: 479}},
		{render.Touch{X: 256, Y: 768}, render.Touch{X: 200, Y: 360}},
		{render.Touch{X: -5, Y: 4000}, render.Touch{X: 0, Y: 479}},
	}
	for _, tt := range tests {
		if got := f.e.scaleTouch(tt.raw); got != tt.want {
			t.Errorf("%+v: got %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestTouchIgnoredWhileCharging(t *testing.T) {
	f := newFixture(t, []bool{true}, nil)
	f.cycle(t)
	f.rec.Reset()

	f.touch.pending = []render.Touch{{X: 100, Y: 100}}
	events := f.cycle(t)
	if len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
	if f.e.State() != logic.StateCharging {
		t.Errorf("state changed to %s", f.e.State())
	}
	if ops := f.rec.Ops(); len(ops) != 0 {
		t.Errorf("ignored touch caused drawing: %v", ops)
	}
}

func TestChargeFlipWinsOverTouch(t *testing.T) {
	f := newFixture(t, []bool{false, false, true}, nil)
	f.cycle(t)

	f.touch.pending = []render.Touch{{X: 512, Y: 512}}
	events := f.cycle(t)
	if got := eventTypes(events); !slices.Equal(got, []logic.EventType{logic.EventCharging}) {
		t.Errorf("got %v", got)
	}
	if f.e.State() != logic.StateCharging {
		t.Errorf("expected CHARGING, got %s", f.e.State())
	}
}

func TestTouchDuringPendingFullRedraw(t *testing.T) {
	f := newFixture(t, []bool{false}, nil)
	f.touch.pending = []render.Touch{{X: 1, Y: 1}}

	f.cycle(t)
	if f.e.State() != logic.StateDischargingBattery {
		t.Fatalf("expected DISCHARGING_BATTERY, got %s", f.e.State())
	}
	if f.rec.Count("FillScreen") != 1 {
		t.Errorf("full redraw downgraded by touch: %d clears", f.rec.Count("FillScreen"))
	}
}

func TestBatteryReadErrorHoldsValues(t *testing.T) {
	errADC := errors.New("adc offline")
	f := newFixture(t, []bool{false}, nil, healthy, adc.Battery{VoltageMV: 9500})
	f.analog.FailAt(1, errADC)

	f.cycle(t)
	before := f.e.Readings()
	f.rec.Reset()

	_, err := f.e.Cycle()
	if !errors.Is(err, errADC) {
		t.Fatalf("expected wrapped adc error, got %v", err)
	}
	if got := f.e.Readings(); got != before {
		t.Errorf("readings moved on error: got %+v, want %+v", got, before)
	}
	if ops := f.rec.Ops(); len(ops) != 0 {
		t.Errorf("held values were redrawn: %v", ops)
	}

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "ev_dashboard_read_errors_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one read error series, got %d", n)
	}
}

func TestDigitalReadErrorKeepsMode(t *testing.T) {
	errGPIO := errors.New("chip gone")
	f := newFixture(t, []bool{false}, []logic.Lights{{LowBeam: true}})
	f.cycle(t)

	f.digital.SetError(errGPIO)
	events, err := f.e.Cycle()
	if !errors.Is(err, errGPIO) {
		t.Fatalf("expected gpio error, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
	if f.e.State() != logic.StateDischargingSpeed {
		t.Errorf("mode changed on read error: %s", f.e.State())
	}
	if !f.e.Lights().LowBeam {
		t.Error("indicator state lost on read error")
	}
}

func TestWarningsFollowReadings(t *testing.T) {
	f := newFixture(t, []bool{false}, nil,
		adc.Battery{VoltageMV: 9300, TemperatureC: 25},
		adc.Battery{VoltageMV: 11000, TemperatureC: 25},
	)

	events := f.cycle(t)
	if got := eventTypes(events); !slices.Equal(got, []logic.EventType{logic.EventWarningOn}) {
		t.Fatalf("got %v", got)
	}
	if !f.e.Warnings()[logic.WarnLowBattery] {
		t.Error("expected low battery latch at 10%")
	}
	if !slices.Contains(f.rec.Texts(), "Low Battery") {
		t.Errorf("low battery line not drawn: %v", f.rec.Texts())
	}

	events = f.cycle(t)
	if got := eventTypes(events); !slices.Equal(got, []logic.EventType{logic.EventWarningOff}) {
		t.Fatalf("got %v", got)
	}
	if f.e.Warnings().Any() {
		t.Errorf("latches not cleared: %v", f.e.Warnings())
	}
}

func TestEventsCarryTimestamps(t *testing.T) {
	f := newFixture(t, []bool{false, true}, nil)
	at := f.clock.Now()

	events := f.cycle(t)
	if len(events) != 1 || !events[0].Timestamp.Equal(at) {
		t.Errorf("expected one event stamped %v, got %+v", at, events)
	}
}

func TestTouchesPollsInOrder(t *testing.T) {
	first := &fakeTouch{}
	second := &fakeTouch{pending: []render.Touch{{X: 1, Y: 2}}}
	ts := Touches{nil, first, second}

	got, ok := ts.Poll()
	if !ok || got != (render.Touch{X: 1, Y: 2}) {
		t.Fatalf("Poll() = %v, %v; want {1 2}, true", got, ok)
	}

	first.pending = []render.Touch{{X: 3, Y: 4}}
	second.pending = []render.Touch{{X: 5, Y: 6}}
	if got, _ := ts.Poll(); got != (render.Touch{X: 3, Y: 4}) {
		t.Errorf("first source should win, got %v", got)
	}
	if got, _ := ts.Poll(); got != (render.Touch{X: 5, Y: 6}) {
		t.Errorf("second source after first drained, got %v", got)
	}
	if _, ok := ts.Poll(); ok {
		t.Error("expected no touch once every source is drained")
	}
}
