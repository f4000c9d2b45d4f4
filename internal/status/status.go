// Package status keeps the daemon's shared view of the dashboard. The update
// loop writes it once per cycle; HTTP handlers, the live feed and system
// events read copies.
package status

import (
	"slices"
	"sync"
	"time"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

// RecentEvents is how many engine events a Snapshot carries.
const RecentEvents = 10

// NetworkInfo is the host network state written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config is the daemon configuration shown on the status page.
type Config struct {
	PollMs          int64
	HeartbeatMs     int64
	Broker          string
	Redis           string // empty when the mirror is off
	HTTPPort        string
	Display         string
	WheelDiameterIn float64
	Thresholds      logic.Thresholds
}

// Dashboard is the engine's view after one cycle.
type Dashboard struct {
	State    logic.State
	Readings logic.Readings
	Lights   logic.Lights
	Warnings logic.Warnings
	Counts   logic.EventCounts
	Cycles   uint64
}

// Snapshot is a copy of the tracker; it shares nothing with it.
type Snapshot struct {
	Dashboard
	StateSince time.Time // when State last changed; zero before the first cycle
	Recent     []logic.Event

	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	RedisConnected bool
	Network        *NetworkInfo
	Config         Config
}

func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one cycle has completed.
func (s Snapshot) Ready() bool {
	return s.Cycles > 0
}

// InState returns how long the dashboard has shown the current state.
func (s Snapshot) InState() time.Duration {
	if s.StateSince.IsZero() {
		return 0
	}
	return s.Now.Sub(s.StateSince)
}

type Tracker struct {
	now func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a tracker reading the wall clock.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return NewTrackerWithClock(startTime, cfg, time.Now)
}

// NewTrackerWithClock creates a tracker with an injected clock.
func NewTrackerWithClock(startTime time.Time, cfg Config, now func() time.Time) *Tracker {
	return &Tracker{
		now:  now,
		snap: Snapshot{StartTime: startTime, Config: cfg},
	}
}

// Update stores the engine's view and notes when the state changes.
func (t *Tracker) Update(d Dashboard) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.StateSince.IsZero() || d.State != t.snap.State {
		t.snap.StateSince = t.now()
	}
	t.snap.Dashboard = d
}

// Record appends engine events, keeping the newest RecentEvents.
func (t *Tracker) Record(events ...logic.Event) {
	if len(events) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := append(t.snap.Recent, events...)
	if over := len(r) - RecentEvents; over > 0 {
		r = slices.Clone(r[over:])
	}
	t.snap.Recent = r
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

func (t *Tracker) SetRedisConnected(connected bool) {
	t.mu.Lock()
	t.snap.RedisConnected = connected
	t.mu.Unlock()
}

func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a copy stamped with the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Recent = slices.Clone(t.snap.Recent)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
