// Package ipc mirrors dashboard state into Redis for other on-board services
// and accepts remote view toggles.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweeney/ev-dashboard/internal/logger"
	"github.com/sweeney/ev-dashboard/internal/logic"
	"github.com/sweeney/ev-dashboard/internal/render"
	"github.com/sweeney/ev-dashboard/internal/status"
)

const (
	// Hash holds the current dashboard fields.
	Hash = "dashboard"
	// Channel carries the name of each field as it changes.
	Channel = "dashboard"
	// TouchList is popped for remote view toggles (LPUSH dashboard:touch x,y).
	TouchList = "dashboard:touch"
)

// Fields flattens the dashboard into Redis hash fields.
func Fields(d status.Dashboard) map[string]string {
	r := d.Readings
	return map[string]string{
		"state":       string(d.State),
		"charging":    strconv.FormatBool(d.State.Charging()),
		"speed":       strconv.Itoa(int(r.SpeedMPH)),
		"voltage":     strconv.Itoa(int(r.VoltageMV)),
		"current":     strconv.Itoa(int(r.CurrentA)),
		"temperature": strconv.Itoa(int(r.TemperatureC)),
		"percent":     strconv.Itoa(int(r.Percent)),
		"blinker":     blinker(d.Lights),
		"low-beam":    onOff(d.Lights.LowBeam),
		"high-beam":   onOff(d.Lights.HighBeam),
		"warnings":    strings.Join(status.ActiveWarnings(d.Warnings), ","),
	}
}

func blinker(l logic.Lights) string {
	switch {
	case l.Left && l.Right:
		return "both"
	case l.Left:
		return "left"
	case l.Right:
		return "right"
	default:
		return "off"
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Changed returns the keys of next whose value differs from prev, sorted.
func Changed(prev, next map[string]string) []string {
	var out []string
	for k, v := range next {
		if old, ok := prev[k]; !ok || old != v {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// ParseTouch parses a remote touch command of the form "x,y" in raw
// controller coordinates. An empty command touches the panel centre.
func ParseTouch(cmd string) (render.Touch, error) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return render.Touch{X: render.TouchResolution / 2, Y: render.TouchResolution / 2}, nil
	}
	xs, ys, ok := strings.Cut(cmd, ",")
	if !ok {
		return render.Touch{}, fmt.Errorf("invalid touch command %q", cmd)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return render.Touch{}, fmt.Errorf("invalid touch x in %q: %w", cmd, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return render.Touch{}, fmt.Errorf("invalid touch y in %q: %w", cmd, err)
	}
	if x < 0 || x >= render.TouchResolution || y < 0 || y >= render.TouchResolution {
		return render.Touch{}, fmt.Errorf("touch %d,%d outside 0..%d", x, y, render.TouchResolution-1)
	}
	return render.Touch{X: x, Y: y}, nil
}

// Mirror writes dashboard fields to the Redis hash and announces each change
// on the channel. It also listens for remote touches.
type Mirror struct {
	client *redis.Client
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	last map[string]string

	touches chan render.Touch
}

// NewMirror creates a mirror for the Redis server at addr. It does not
// connect until Connect.
func NewMirror(addr string, l *logger.Logger) *Mirror {
	if l == nil {
		l = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Mirror{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			DB:          0,
			DialTimeout: 2 * time.Second,
		}),
		log:     l.WithTag("redis"),
		ctx:     ctx,
		cancel:  cancel,
		touches: make(chan render.Touch, 4),
	}
}

// Connect checks the server is reachable.
func (m *Mirror) Connect() error {
	m.log.Infof("connecting to %s", m.client.Options().Addr)
	if err := m.client.Ping(m.ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Sync writes the fields that changed since the last successful Sync and
// publishes each field name. Nothing is sent when nothing changed.
func (m *Mirror) Sync(d status.Dashboard) error {
	next := Fields(d)

	m.mu.Lock()
	changed := Changed(m.last, next)
	m.mu.Unlock()
	if len(changed) == 0 {
		return nil
	}

	pipe := m.client.Pipeline()
	for _, k := range changed {
		pipe.HSet(m.ctx, Hash, k, next[k])
	}
	for _, k := range changed {
		pipe.Publish(m.ctx, Channel, k)
	}
	if _, err := pipe.Exec(m.ctx); err != nil {
		return fmt.Errorf("sync %d fields: %w", len(changed), err)
	}

	m.mu.Lock()
	m.last = maps.Clone(next)
	m.mu.Unlock()
	m.log.Debugf("synced %s", strings.Join(changed, ","))
	return nil
}

// PublishEvent announces an engine event on the channel, e.g.
// "event:WARNING_ON:BATTERY_OVERHEAT" or "event:CHARGING".
func (m *Mirror) PublishEvent(e logic.Event) error {
	payload := "event:" + string(e.Type)
	if e.Type == logic.EventWarningOn || e.Type == logic.EventWarningOff {
		payload += ":" + e.Warning.String()
	}
	if err := m.client.Publish(m.ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", payload, err)
	}
	return nil
}

// StartListening pops remote touch commands until Close.
func (m *Mirror) StartListening() {
	m.wg.Add(1)
	go m.touchListener()
}

func (m *Mirror) touchListener() {
	defer m.wg.Done()
	for {
		// BRPOP with a short timeout so cancellation is noticed.
		result, err := m.client.BRPop(m.ctx, 5*time.Second, TouchList).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if m.ctx.Err() != nil {
				return
			}
			m.log.Warnf("reading %s: %v", TouchList, err)
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		t, err := ParseTouch(result[1])
		if err != nil {
			m.log.Warnf("%v", err)
			continue
		}
		select {
		case m.touches <- t:
		default:
			m.log.Debugf("touch queue full, dropping %q", result[1])
		}
	}
}

// Poll returns one pending remote touch, if any.
func (m *Mirror) Poll() (render.Touch, bool) {
	select {
	case t := <-m.touches:
		return t, true
	default:
		return render.Touch{}, false
	}
}

// Close stops the listener and closes the client.
func (m *Mirror) Close() error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		m.log.Warnf("timeout waiting for listener to finish")
	}
	return m.client.Close()
}
