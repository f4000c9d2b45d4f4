package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/ev-dashboard/internal/logic"
	"github.com/sweeney/ev-dashboard/internal/metrics"
	"github.com/sweeney/ev-dashboard/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *Server) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:          100,
		HeartbeatMs:     900000,
		Broker:          "tcp://192.168.1.200:1883",
		HTTPPort:        ":80",
		Display:         "terminal",
		WheelDiameterIn: 26,
		Thresholds:      logic.DefaultThresholds(),
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, metrics.New())
	srv.SetLiveInterval(20 * time.Millisecond)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, srv
}

func riding() status.Dashboard {
	return status.Dashboard{
		State:    logic.StateDischargingSpeed,
		Readings: logic.Readings{VoltageMV: 11200, CurrentA: 18, TemperatureC: 35, Percent: 73, SpeedMPH: 24},
		Lights:   logic.Lights{Left: true, LowBeam: true},
		Warnings: logic.Warnings{logic.WarnLowTemperature: true},
		Counts:   logic.EventCounts{WarningsOn: 1, ViewChanges: 2},
		Cycles:   10,
	}
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(riding())
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "DISCHARGING_SPEED" {
		t.Errorf("State: got %q", sj.Status.State)
	}
	if sj.Status.Readings.SpeedMPH != 24 {
		t.Errorf("SpeedMPH: got %d, want 24", sj.Status.Readings.SpeedMPH)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected || sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT: got %+v", sj.Status.MQTT)
	}
	if len(sj.Status.Warnings) != 1 || sj.Status.Warnings[0] != "BATTERY_LOW_TEMPERATURE" {
		t.Errorf("Warnings: got %v", sj.Status.Warnings)
	}
	if sj.Status.Config.PollMs != 100 || sj.Status.Config.WheelDiameterIn != 26 {
		t.Errorf("Config: got %+v", sj.Status.Config)
	}
}

func TestJSONUnknownStateBeforeFirstCycle(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first cycle: got %q, want UNKNOWN", sj.Status.State)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false before first cycle")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "Garage"})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpoints(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(riding())

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s: status %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type %q, want text/html", path, ct)
		}
		for _, want := range []string{"DISCHARGING_SPEED", `id="speed">24<`, "73%", "battery low temperature", "26 in", "no events yet"} {
			if !strings.Contains(string(body), want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}

func TestHTMLRecentEvents(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(riding())
	at := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	tr.Record(
		logic.Event{Timestamp: at, Type: logic.EventWarningOn, State: logic.StateDischargingSpeed, Warning: logic.WarnLowTemperature},
		logic.Event{Timestamp: at.Add(time.Second), Type: logic.EventViewDetail, State: logic.StateDischargingBattery},
	)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	page := string(body)

	view := strings.Index(page, "2026-01-01T00:05:01Z")
	warn := strings.Index(page, "2026-01-01T00:05:00Z")
	if view < 0 || warn < 0 {
		t.Fatalf("recent events missing from page")
	}
	if view > warn {
		t.Error("recent events should be listed newest first")
	}
	if strings.Contains(page, "no events yet") {
		t.Error("placeholder shown alongside events")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "1s"},
		{5*time.Minute + 6*time.Second, "5m 6s"},
		{4*time.Hour + 5*time.Minute, "4h 5m"},
		{76 * time.Hour, "3d 4h"},
	}
	for _, tt := range tests {
		if got := duration(tt.d); got != tt.want {
			t.Errorf("duration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChargeClass(t *testing.T) {
	snap := status.Snapshot{Config: status.Config{Thresholds: logic.DefaultThresholds()}}
	snap.State = logic.StateDischargingSpeed
	snap.Readings.Percent = 80
	if got := chargeClass(snap); got != "bar" {
		t.Errorf("healthy: %q", got)
	}
	snap.Readings.Percent = 5
	if got := chargeClass(snap); got != "bar low" {
		t.Errorf("low: %q", got)
	}
	snap.State = logic.StateCharging
	if got := chargeClass(snap); got != "bar charging" {
		t.Errorf("charging: %q", got)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestRouterEndpoints(t *testing.T) {
	_, _, srv := newTestServer(t)
	h := srv.httpServer.Handler

	t.Run("websocket endpoint answers", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		// a plain GET cannot be upgraded
		if w.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", w.Code)
		}
	})

	t.Run("metrics endpoint answers", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/metrics", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), "ev_dashboard_") {
			t.Error("metrics output missing dashboard collectors")
		}
	})
}

func TestStatsMiddlewareCountsRequests(t *testing.T) {
	ts, _, srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/index.json")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	n, err := testutil.GatherAndCount(srv.metrics.Registry(), "ev_dashboard_http_requests_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one code/method series, got %d", n)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if getJSON(t, ts.URL+"/index.json").Status.Ready {
		t.Error("expected Ready=false initially")
	}

	d := riding()
	d.State = logic.StateCharging
	tr.Update(d)
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "CHARGING" {
		t.Errorf("State: got %q, want CHARGING", sj.Status.State)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestLiveFeed(t *testing.T) {
	ts, tr, srv := newTestServer(t)
	tr.Update(riding())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first status.StatusJSON
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Status.Readings.SpeedMPH != 24 {
		t.Errorf("first push: speed %d, want 24", first.Status.Readings.SpeedMPH)
	}

	d := riding()
	d.Readings.SpeedMPH = 31
	tr.Update(d)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var next status.StatusJSON
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("read: %v", err)
		}
		if next.Status.Readings.SpeedMPH == 31 {
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Errorf("expected going-away close, got %v", err)
			}
			return
		}
	}
}
