// Package mqtt publishes dashboard events and daemon lifecycle events,
// with a fake for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

const (
	// Topic carries transient dashboard events: mode and view changes.
	Topic = "vehicle/dashboard/events"
	// TopicSystem carries STARTUP, SHUTDOWN, HEARTBEAT and RECONNECTED.
	TopicSystem = "vehicle/dashboard/system"
	// TopicWarnings prefixes the retained per-warning topics, e.g.
	// vehicle/dashboard/warnings/battery_overheat.
	TopicWarnings = "vehicle/dashboard/warnings/"
)

// Lifecycle event names.
const (
	Startup     = "STARTUP"
	Shutdown    = "SHUTDOWN"
	Heartbeat   = "HEARTBEAT"
	Reconnected = "RECONNECTED"
)

// Publisher sends engine and lifecycle events. Errors are reported, never
// fatal: the display keeps running without a broker.
type Publisher interface {
	Publish(event logic.Event) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a daemon lifecycle message.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string // shutdown cause: SIGINT, SIGTERM, QUIT, MQTT_DISCONNECT
	// RawPayload, when set, is sent as is instead of the short system form.
	// The daemon puts a full status snapshot here.
	RawPayload []byte
	Retained   bool
}

// Route returns where a dashboard event goes. Warning changes land on their
// own retained topic so the broker always holds the current latch.
func Route(event logic.Event) (topic string, retained bool) {
	switch event.Type {
	case logic.EventWarningOn, logic.EventWarningOff:
		return TopicWarnings + strings.ToLower(event.Warning.String()), true
	}
	return Topic, false
}

// Payload is the dashboard event envelope.
type Payload struct {
	Dashboard DashboardPayload `json:"dashboard"`
}

// DashboardPayload describes one engine event.
type DashboardPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Warning   string `json:"warning,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}

// FormatPayload renders an engine event. Warning events name the warning
// and carry its new latch value.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := DashboardPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		State:     string(event.State),
	}
	if event.Type == logic.EventWarningOn || event.Type == logic.EventWarningOff {
		active := event.Type == logic.EventWarningOn
		p.Warning = event.Warning.String()
		p.Active = &active
	}
	return json.Marshal(Payload{Dashboard: p})
}

// SystemPayload is the short form used by the will and RECONNECTED.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload renders a lifecycle event, preferring RawPayload.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{System: SystemPayloadInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
	}})
}
