// Package engine runs the dashboard update cycle: sample inputs, apply mode
// transitions, evaluate warnings and hand a frame to the render coordinator.
// An Engine is driven from one goroutine; only the pulse capture is shared
// with the edge handler.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/ev-dashboard/internal/adc"
	"github.com/sweeney/ev-dashboard/internal/gauge"
	"github.com/sweeney/ev-dashboard/internal/gpio"
	"github.com/sweeney/ev-dashboard/internal/logger"
	"github.com/sweeney/ev-dashboard/internal/logic"
	"github.com/sweeney/ev-dashboard/internal/metrics"
	"github.com/sweeney/ev-dashboard/internal/pulse"
	"github.com/sweeney/ev-dashboard/internal/render"
)

// Config holds the engine's tunables.
type Config struct {
	Thresholds          logic.Thresholds
	Limits              logic.Limits
	WheelDiameterInches float64
	ScreenWidth         int
	ScreenHeight        int
}

// DefaultConfig returns the stock cluster configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:          logic.DefaultThresholds(),
		Limits:              logic.DefaultLimits(),
		WheelDiameterInches: 1,
		ScreenWidth:         render.ScreenWidth,
		ScreenHeight:        render.ScreenHeight,
	}
}

// TouchSource reports at most one pending touch in raw device coordinates.
type TouchSource interface {
	Poll() (render.Touch, bool)
}

// Touches polls each source in order and returns the first pending touch.
// Nil entries are skipped.
type Touches []TouchSource

func (ts Touches) Poll() (render.Touch, bool) {
	for _, s := range ts {
		if s == nil {
			continue
		}
		if t, ok := s.Poll(); ok {
			return t, true
		}
	}
	return render.Touch{}, false
}

// Sources are the engine's inputs. Touch and Pulses may be nil.
type Sources struct {
	Digital gpio.Reader
	Analog  adc.Reader
	Gauge   gauge.FuelGauge
	Touch   TouchSource
	Pulses  *pulse.Capture
}

// Engine owns the store, the warning latches, the mode machine and the
// render coordinator.
type Engine struct {
	cfg     Config
	src     Sources
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	store   logic.Store
	eval    *logic.Evaluator
	machine *logic.Machine
	coord   *render.Coordinator

	redraw    render.Redraw
	events    []logic.Event
	counts    logic.EventCounts
	lastTouch render.Touch
	window    pulse.Window
	cycles    uint64
}

// New samples charge-detect once to pick the initial mode, turns the
// backlight on and schedules a full redraw. log and m may be nil.
func New(cfg Config, src Sources, r render.Renderer, log *logger.Logger, m *metrics.Metrics, now func() time.Time) (*Engine, error) {
	if src.Digital == nil || src.Analog == nil || src.Gauge == nil {
		return nil, errors.New("engine needs digital, analog and gauge sources")
	}
	if r == nil {
		return nil, errors.New("engine needs a renderer")
	}
	if cfg.ScreenWidth <= 0 || cfg.ScreenHeight <= 0 {
		return nil, fmt.Errorf("invalid screen size %dx%d", cfg.ScreenWidth, cfg.ScreenHeight)
	}
	if log == nil {
		log = logger.Discard()
	}
	if now == nil {
		now = time.Now
	}

	charging, err := src.Digital.ReadCharging()
	if err != nil {
		return nil, fmt.Errorf("initial charge detect: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		src:     src,
		log:     log.WithTag("engine"),
		metrics: m,
		now:     now,
		eval:    logic.NewEvaluator(cfg.Thresholds),
		machine: logic.NewMachine(charging),
		coord:   render.NewCoordinator(r, cfg.Thresholds, cfg.Limits),
		redraw:  render.RedrawFull,
	}
	e.coord.Begin()
	e.log.Infof("starting in %s", e.machine.State())
	return e, nil
}

// SampleChargeState reads charge-detect and applies any mode flip. A flip
// clears every measurement and latch and forces a full redraw. On a read
// error the current mode is kept.
func (e *Engine) SampleChargeState() error {
	charging, err := e.src.Digital.ReadCharging()
	if err != nil {
		e.readError("charge", err)
		return fmt.Errorf("reading charge detect: %w", err)
	}
	if !e.machine.ChargeDetect(charging) {
		return nil
	}

	e.store.Reset()
	e.eval.Reset()
	e.redraw = render.RedrawFull

	typ := logic.EventDischarge
	if charging {
		typ = logic.EventCharging
	}
	e.emit(typ, 0)
	e.log.Infof("charge detect changed, now %s", e.machine.State())
	return nil
}

// HandleTouch consumes one pending touch. While discharging it toggles the
// view, clears measurements and schedules a content redraw. Touches while
// charging are dropped.
func (e *Engine) HandleTouch() {
	if e.src.Touch == nil {
		return
	}
	raw, ok := e.src.Touch.Poll()
	if !ok {
		return
	}
	e.lastTouch = e.scaleTouch(raw)

	if !e.machine.Touch() {
		e.log.Debugf("touch at (%d,%d) ignored while charging", e.lastTouch.X, e.lastTouch.Y)
		return
	}

	e.store.Reset()
	if e.redraw == render.RedrawNone {
		e.redraw = render.RedrawContent
	}
	e.emit(e.machine.TransitionEvent(), 0)
	e.log.Debugf("touch at (%d,%d), now %s", e.lastTouch.X, e.lastTouch.Y, e.machine.State())
}

// scaleTouch maps raw 0..1023 touch coordinates onto logical pixels.
func (e *Engine) scaleTouch(t render.Touch) render.Touch {
	x := min(max(t.X, 0), render.TouchResolution-1)
	y := min(max(t.Y, 0), render.TouchResolution-1)
	return render.Touch{
		X: x * e.cfg.ScreenWidth / render.TouchResolution,
		Y: y * e.cfg.ScreenHeight / render.TouchResolution,
	}
}

// SampleSpeed drains the pulse capture and stores the derived speed.
func (e *Engine) SampleSpeed() {
	var w pulse.Window
	if e.src.Pulses != nil {
		w = e.src.Pulses.Sample()
	}
	e.window = w
	e.metrics.RecPulses(w.Count)

	mph := logic.Speed(w.Count, w.Elapsed(), e.cfg.WheelDiameterInches, e.cfg.Limits.MaxSpeedMPH)
	e.store.SpeedMPH.Update(mph)
}

// SampleBatteryQuantities reads voltage, current and temperature and derives
// the charge percentage. On a read error every battery value holds.
func (e *Engine) SampleBatteryQuantities() error {
	b, err := e.src.Analog.ReadBattery()
	if err != nil {
		e.readError("adc", err)
		e.store.VoltageMV.Update(e.store.VoltageMV.Current)
		e.store.CurrentA.Update(e.store.CurrentA.Current)
		e.store.TemperatureC.Update(e.store.TemperatureC.Current)
		e.store.Percent.Update(e.store.Percent.Current)
		return fmt.Errorf("reading battery: %w", err)
	}

	e.store.VoltageMV.Update(b.VoltageMV)
	e.store.CurrentA.Update(b.CurrentA)
	e.store.TemperatureC.Update(b.TemperatureC)
	e.store.Percent.Update(e.src.Gauge.Percentage(b.VoltageMV))
	return nil
}

// SampleLightStates reads the four indicator inputs. On a read error the
// indicators hold.
func (e *Engine) SampleLightStates() error {
	l, err := e.src.Digital.ReadLights()
	if err != nil {
		e.readError("lights", err)
		e.store.UpdateLights(e.store.Lights())
		return fmt.Errorf("reading lights: %w", err)
	}
	e.store.UpdateLights(l)
	return nil
}

// EvaluateWarnings recomputes the latches from this cycle's samples.
func (e *Engine) EvaluateWarnings() {
	for _, ev := range e.eval.Evaluate(&e.store, e.machine.State(), e.now()) {
		e.record(ev)
		if ev.Type == logic.EventWarningOn {
			e.log.Warnf("%s on", ev.Warning)
		} else {
			e.log.Infof("%s off", ev.Warning)
		}
	}
}

// Render hands the frame to the coordinator and clears the pending redraw.
func (e *Engine) Render() render.Region {
	drawn := e.coord.Render(render.Frame{
		State:    e.machine.State(),
		Store:    &e.store,
		Warnings: e.eval.Latches(),
		Redraw:   e.redraw,
	})
	e.redraw = render.RedrawNone
	e.metrics.RecRedraws(drawn.Names())
	if drawn != 0 {
		e.log.Debugf("redrew %s", drawn)
	}
	return drawn
}

// Cycle runs one full update and returns the events it produced. Sensor
// errors are joined; the cycle still renders with held values.
func (e *Engine) Cycle() ([]logic.Event, error) {
	start := e.now()
	e.events = nil

	var errs []error
	if err := e.SampleChargeState(); err != nil {
		errs = append(errs, err)
	}
	e.HandleTouch()
	e.SampleSpeed()
	if err := e.SampleBatteryQuantities(); err != nil {
		errs = append(errs, err)
	}
	if err := e.SampleLightStates(); err != nil {
		errs = append(errs, err)
	}
	e.EvaluateWarnings()
	e.Render()

	e.cycles++
	e.metrics.RecCycle(e.now().Sub(start))
	e.metrics.SetSnapshot(&e.store, e.eval.Latches(), e.machine.State())

	events := e.events
	e.events = nil
	return events, errors.Join(errs...)
}

func (e *Engine) emit(typ logic.EventType, w logic.WarningKind) {
	e.record(logic.Event{Timestamp: e.now(), Type: typ, State: e.machine.State(), Warning: w})
}

func (e *Engine) record(ev logic.Event) {
	e.events = append(e.events, ev)
	e.counts.Add([]logic.Event{ev})
	e.metrics.RecEvent(ev.Type)
}

func (e *Engine) readError(source string, err error) {
	e.log.Errorf("%s read failed: %v", source, err)
	e.metrics.RecReadError(source)
}

// State returns the current display state.
func (e *Engine) State() logic.State {
	return e.machine.State()
}

// Readings returns the current value of every displayed quantity.
func (e *Engine) Readings() logic.Readings {
	return e.store.Readings()
}

// Lights returns the current indicator states.
func (e *Engine) Lights() logic.Lights {
	return e.store.Lights()
}

// Warnings returns the current warning latches.
func (e *Engine) Warnings() logic.Warnings {
	return e.eval.Latches()
}

// Counts returns cumulative event counts.
func (e *Engine) Counts() logic.EventCounts {
	return e.counts
}

// Cycles returns the number of completed cycles.
func (e *Engine) Cycles() uint64 {
	return e.cycles
}

// LastTouch returns the most recent touch in logical pixels.
func (e *Engine) LastTouch() render.Touch {
	return e.lastTouch
}

// LastWindow returns the pulse window consumed by the latest SampleSpeed.
func (e *Engine) LastWindow() pulse.Window {
	return e.window
}

// PendingRedraw returns the redraw the next Render will perform.
func (e *Engine) PendingRedraw() render.Redraw {
	return e.redraw
}
