package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	StateSince    string       `json:"state_since,omitempty"`
	InStateSecs   int64        `json:"in_state_seconds"`
	Ready         bool         `json:"ready"`
	Cycles        uint64       `json:"cycles"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Readings      ReadingsJSON `json:"readings"`
	Lights        LightsJSON   `json:"lights"`
	Warnings      []string     `json:"warnings"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Redis         RedisStatus  `json:"redis"`
	Counts        CountsJSON   `json:"event_counts"`
	Recent        []EventJSON  `json:"recent_events"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingsJSON is the JSON representation of the displayed quantities.
type ReadingsJSON struct {
	VoltageMV    uint16 `json:"voltage_mv"`
	CurrentA     int16  `json:"current_a"`
	TemperatureC int16  `json:"temperature_c"`
	Percent      uint8  `json:"percent"`
	SpeedMPH     uint8  `json:"speed_mph"`
}

// LightsJSON is the JSON representation of the indicator inputs.
type LightsJSON struct {
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	LowBeam  bool `json:"low_beam"`
	HighBeam bool `json:"high_beam"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// RedisStatus reports the Redis mirror state.
type RedisStatus struct {
	Connected bool   `json:"connected"`
	Addr      string `json:"addr,omitempty"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	WarningsOn  int `json:"warnings_on"`
	WarningsOff int `json:"warnings_off"`
	Charging    int `json:"charging"`
	Discharging int `json:"discharging"`
	ViewChanges int `json:"view_changes"`
}

// EventJSON is one recent engine event.
type EventJSON struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Warning   string `json:"warning,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs            int64   `json:"poll_ms"`
	HeartbeatMs       int64   `json:"heartbeat_ms"`
	Broker            string  `json:"broker"`
	HTTPPort          string  `json:"http_port"`
	Display           string  `json:"display,omitempty"`
	WheelDiameterIn   float64 `json:"wheel_diameter_in"`
	LowBatteryPercent uint8   `json:"low_battery_percent"`
	OverheatC         int     `json:"overheat_c"`
	LowTemperatureC   int     `json:"low_temperature_c"`
}

// ActiveWarnings lists the set latches by name, in display order.
// The result is never nil.
func ActiveWarnings(w logic.Warnings) []string {
	out := []string{}
	for _, k := range logic.AllWarnings {
		if w[k] {
			out = append(out, k.String())
		}
	}
	return out
}

func buildInner(snap Snapshot, event, reason string) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	r := snap.Readings
	l := snap.Lights
	c := snap.Counts
	inner := StatusInner{
		Event:         event,
		Reason:        reason,
		State:         state,
		InStateSecs:   int64(snap.InState().Seconds()),
		Ready:         snap.Ready(),
		Cycles:        snap.Cycles,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Readings: ReadingsJSON{
			VoltageMV:    r.VoltageMV,
			CurrentA:     r.CurrentA,
			TemperatureC: r.TemperatureC,
			Percent:      r.Percent,
			SpeedMPH:     r.SpeedMPH,
		},
		Lights:   LightsJSON{Left: l.Left, Right: l.Right, LowBeam: l.LowBeam, HighBeam: l.HighBeam},
		Warnings: ActiveWarnings(snap.Warnings),
		MQTT:     MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Redis:    RedisStatus{Connected: snap.RedisConnected, Addr: snap.Config.Redis},
		Counts: CountsJSON{
			WarningsOn:  c.WarningsOn,
			WarningsOff: c.WarningsOff,
			Charging:    c.Charging,
			Discharging: c.Discharging,
			ViewChanges: c.ViewChanges,
		},
		Recent: RecentJSON(snap.Recent),
		Config: ConfigJSON{
			PollMs:            snap.Config.PollMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			Broker:            snap.Config.Broker,
			HTTPPort:          snap.Config.HTTPPort,
			Display:           snap.Config.Display,
			WheelDiameterIn:   snap.Config.WheelDiameterIn,
			LowBatteryPercent: snap.Config.Thresholds.LowBatteryPercent,
			OverheatC:         snap.Config.Thresholds.OverheatC,
			LowTemperatureC:   snap.Config.Thresholds.LowTemperatureC,
		},
	}
	if !snap.StateSince.IsZero() {
		inner.StateSince = snap.StateSince.UTC().Format(time.RFC3339)
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// RecentJSON lists events newest first. The result is never nil.
func RecentJSON(events []logic.Event) []EventJSON {
	out := make([]EventJSON, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		ej := EventJSON{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(e.Type),
			State:     string(e.State),
		}
		if e.Type == logic.EventWarningOn || e.Type == logic.EventWarningOff {
			ej.Warning = e.Warning.String()
		}
		out = append(out, ej)
	}
	return out
}

// FormatJSON returns the indented status served at /index.json.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap, "", "")}, "", "  ")
	return data
}

// FormatCompact returns the same document on one line, for the live feed.
func FormatCompact(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap, "", "")})
	return data
}

// FormatStatusEvent returns the status carried by an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap, event, reason)})
	return data
}
