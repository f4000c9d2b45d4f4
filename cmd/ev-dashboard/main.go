// Command ev-dashboard drives the instrument cluster: it samples the vehicle
// inputs, redraws what changed and publishes events to MQTT and Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sweeney/ev-dashboard/internal/adc"
	"github.com/sweeney/ev-dashboard/internal/engine"
	"github.com/sweeney/ev-dashboard/internal/gauge"
	"github.com/sweeney/ev-dashboard/internal/gpio"
	"github.com/sweeney/ev-dashboard/internal/ipc"
	"github.com/sweeney/ev-dashboard/internal/logger"
	"github.com/sweeney/ev-dashboard/internal/logic"
	"github.com/sweeney/ev-dashboard/internal/metrics"
	"github.com/sweeney/ev-dashboard/internal/mqtt"
	"github.com/sweeney/ev-dashboard/internal/pulse"
	"github.com/sweeney/ev-dashboard/internal/render"
	"github.com/sweeney/ev-dashboard/internal/status"
	"github.com/sweeney/ev-dashboard/internal/web"
)

// headlessOps bounds the drawing calls kept by the headless display.
const headlessOps = 4096

type options struct {
	poll      time.Duration
	heartbeat time.Duration

	thresholds logic.Thresholds
	wheelIn    float64

	chip string
	pins gpio.Pins

	adcRoot    string
	adcDevice  string
	channels   adc.Channels
	adcRefMV   int
	adcDivider float64

	curve      string
	gaugeMinMV uint
	gaugeMaxMV uint

	display    string
	broker     string
	redisAddr  string
	httpAddr   string
	logLevel   string
	logFile    string
	printState bool
}

func main() {
	var o options
	defPins := gpio.DefaultPins()
	defCh := adc.DefaultChannels()
	defScale := adc.DefaultScale()
	defTh := logic.DefaultThresholds()

	flag.DurationVar(&o.poll, "poll", 100*time.Millisecond, "Update cycle interval")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")

	lowBattery := flag.Uint("low-battery", uint(defTh.LowBatteryPercent), "Low battery warning at or below this percentage")
	flag.IntVar(&o.thresholds.OverheatC, "overheat", defTh.OverheatC, "Overheat warning above this temperature (C)")
	flag.IntVar(&o.thresholds.LowTemperatureC, "low-temp", defTh.LowTemperatureC, "Low temperature warning below this temperature (C)")
	flag.Float64Var(&o.wheelIn, "wheel-diameter", 1, "Wheel diameter in inches")

	flag.StringVar(&o.chip, "gpio-chip", "gpiochip0", "GPIO character device")
	flag.IntVar(&o.pins.Left, "pin-left", defPins.Left, "BCM pin for the left indicator")
	flag.IntVar(&o.pins.Right, "pin-right", defPins.Right, "BCM pin for the right indicator")
	flag.IntVar(&o.pins.LowBeam, "pin-low-beam", defPins.LowBeam, "BCM pin for the low beam")
	flag.IntVar(&o.pins.HighBeam, "pin-high-beam", defPins.HighBeam, "BCM pin for the high beam")
	flag.IntVar(&o.pins.Charge, "pin-charge", defPins.Charge, "BCM pin for charge detect")
	flag.IntVar(&o.pins.Speed, "pin-speed", defPins.Speed, "BCM pin for the wheel sensor")

	flag.StringVar(&o.adcRoot, "adc-root", adc.DefaultSysfsRoot, "IIO sysfs root")
	flag.StringVar(&o.adcDevice, "adc-device", "iio:device0", "IIO device name")
	flag.IntVar(&o.channels.Voltage, "adc-voltage", defCh.Voltage, "ADC channel for pack voltage")
	flag.IntVar(&o.channels.Current, "adc-current", defCh.Current, "ADC channel for pack current")
	flag.IntVar(&o.channels.Temperature, "adc-temperature", defCh.Temperature, "ADC channel for pack temperature")
	flag.IntVar(&o.adcRefMV, "adc-ref", defScale.RefMV, "ADC reference voltage (mV)")
	flag.Float64Var(&o.adcDivider, "adc-divider", defScale.Divider, "Voltage divider ratio in front of the voltage channel")

	flag.StringVar(&o.curve, "gauge", "linear", `Fuel gauge curve ("linear" or "sigmoidal")`)
	flag.UintVar(&o.gaugeMinMV, "gauge-min", 9000, "Empty pack voltage (mV)")
	flag.UintVar(&o.gaugeMaxMV, "gauge-max", 12000, "Full pack voltage (mV)")

	flag.StringVar(&o.display, "display", "terminal", `Display backend ("terminal" or "none")`)
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&o.redisAddr, "redis", "", "Redis address for the state mirror (empty to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&o.logLevel, "log", "info", "Log level (none, error, warn, info, debug)")
	flag.StringVar(&o.logFile, "log-file", "", "Log file (default stderr, or a temp file with the terminal display)")
	flag.BoolVar(&o.printState, "print-state", false, "Print current inputs and exit")

	flag.Parse()

	if *lowBattery > 100 {
		log.Fatalf("fatal: -low-battery %d is above 100", *lowBattery)
	}
	o.thresholds.LowBatteryPercent = uint8(*lowBattery)

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	level, err := logger.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}

	gpioReader, err := gpio.NewRealReader(o.chip, o.pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	scale := adc.DefaultScale()
	scale.RefMV = o.adcRefMV
	scale.Divider = o.adcDivider
	adcReader, err := adc.NewSysfsReader(o.adcRoot, o.adcDevice, o.channels, scale)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer adcReader.Close()

	if o.printState {
		return printState(gpioReader, adcReader)
	}

	if o.gaugeMinMV > 0xffff || o.gaugeMaxMV > 0xffff {
		return fmt.Errorf("gauge range %d..%d mV out of bounds", o.gaugeMinMV, o.gaugeMaxMV)
	}
	fuel, err := gauge.New(o.curve, uint16(o.gaugeMinMV), uint16(o.gaugeMaxMV))
	if err != nil {
		return fmt.Errorf("init gauge: %w", err)
	}

	capture := pulse.NewCapture(time.Now)
	watcher, err := gpio.WatchEdges(o.chip, o.pins.Speed, capture.OnEdge)
	if err != nil {
		return fmt.Errorf("watch wheel sensor: %w", err)
	}
	defer watcher.Close()

	// The display must come up before anything is drawn; failure halts.
	var (
		display  render.Renderer
		terminal *render.Terminal
		quit     <-chan struct{}
	)
	switch o.display {
	case "terminal":
		terminal, err = render.OpenTerminal()
		if err != nil {
			return fmt.Errorf("init display: %w", err)
		}
		defer terminal.Close()
		display = terminal
		quit = terminal.Quit()
		if o.logFile == "" {
			o.logFile = filepath.Join(os.TempDir(), "ev-dashboard.log")
		}
	case "none":
		display = render.NewRecorder(headlessOps)
	default:
		return fmt.Errorf("unknown display %q", o.display)
	}

	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		defer func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}()
	}
	l := logger.NewLogger(log.Default(), level)

	m := metrics.New()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          o.poll.Milliseconds(),
		HeartbeatMs:     o.heartbeat.Milliseconds(),
		Broker:          o.broker,
		Redis:           o.redisAddr,
		HTTPPort:        o.httpAddr,
		Display:         o.display,
		WheelDiameterIn: o.wheelIn,
		Thresholds:      o.thresholds,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var touches engine.Touches
	if terminal != nil {
		touches = append(touches, terminal)
	}

	var mirror stateMirror
	if o.redisAddr != "" {
		rm := ipc.NewMirror(o.redisAddr, l)
		if err := rm.Connect(); err != nil {
			log.Printf("redis not reachable yet: %v", err)
		}
		rm.StartListening()
		defer rm.Close()
		touches = append(touches, rm)
		mirror = rm
	}

	cfg := engine.DefaultConfig()
	cfg.Thresholds = o.thresholds
	cfg.WheelDiameterInches = o.wheelIn
	eng, err := engine.New(cfg, engine.Sources{
		Digital: gpioReader,
		Analog:  adcReader,
		Gauge:   fuel,
		Touch:   touches,
		Pulses:  capture,
	}, display, l, m, time.Now)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{Broker: o.broker, Log: l})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker.Update(dashboardOf(eng))
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.Startup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.Startup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, m)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: poll=%v display=%s broker=%s redis=%q heartbeat=%v", o.poll, o.display, o.broker, o.redisAddr, o.heartbeat)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(eng, publisher, publisher, mirror, tracker, o.heartbeat, time.Now, ticker.C, sigCh, quit)
}

// stateMirror receives the dashboard after every cycle and each event.
type stateMirror interface {
	Sync(d status.Dashboard) error
	PublishEvent(e logic.Event) error
}

func runLoop(eng *engine.Engine, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, mirror stateMirror, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, quit <-chan struct{}) error {
	lastHeartbeat := now()
	faulted := false
	mirrorDown := false

	refreshMQTT := func() {
		if tracker != nil && mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	shutdown := func(reason string) error {
		event := mqtt.SystemEvent{
			Timestamp: now(),
			Event:     mqtt.Shutdown,
			Reason:    reason,
			Retained:  true,
		}
		if tracker != nil {
			refreshMQTT()
			event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.Shutdown, reason)
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
		return nil
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return shutdown(signalName(s))

		case <-quit:
			log.Printf("quit requested from display, shutting down")
			return shutdown("QUIT")

		case <-tick:
			t := now()
			events, err := eng.Cycle()
			switch {
			case err != nil && !faulted:
				log.Printf("sensor read error, holding last values: %v", err)
				faulted = true
			case err == nil && faulted:
				log.Printf("sensors recovered")
				faulted = false
			}

			for _, event := range events {
				log.Printf("event: %s (state=%s)", describe(event), event.State)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
				if mirror != nil {
					if err := mirror.PublishEvent(event); err != nil {
						log.Printf("redis publish error: %v", err)
					}
				}
			}

			d := dashboardOf(eng)
			if tracker != nil {
				tracker.Update(d)
				tracker.Record(events...)
				refreshMQTT()
			}

			if mirror != nil {
				err := mirror.Sync(d)
				if err != nil && !mirrorDown {
					log.Printf("redis sync failed: %v", err)
				} else if err == nil && mirrorDown {
					log.Printf("redis sync recovered")
				}
				mirrorDown = err != nil
				if tracker != nil {
					tracker.SetRedisConnected(err == nil)
				}
			}

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t
			c := d.Counts
			log.Printf("heartbeat: cycles=%d state=%s warnings_on=%d charging=%d discharging=%d views=%d",
				d.Cycles, d.State, c.WarningsOn, c.Charging, c.Discharging, c.ViewChanges)

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     mqtt.Heartbeat,
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.Heartbeat, "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func dashboardOf(eng *engine.Engine) status.Dashboard {
	return status.Dashboard{
		State:    eng.State(),
		Readings: eng.Readings(),
		Lights:   eng.Lights(),
		Warnings: eng.Warnings(),
		Counts:   eng.Counts(),
		Cycles:   eng.Cycles(),
	}
}

func describe(e logic.Event) string {
	if e.Type == logic.EventWarningOn || e.Type == logic.EventWarningOff {
		return string(e.Type) + " " + e.Warning.String()
	}
	return string(e.Type)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func printState(d gpio.Reader, a adc.Reader) error {
	charging, err := d.ReadCharging()
	if err != nil {
		return fmt.Errorf("read charge detect: %w", err)
	}
	lights, err := d.ReadLights()
	if err != nil {
		return fmt.Errorf("read lights: %w", err)
	}
	b, err := a.ReadBattery()
	if err != nil {
		return fmt.Errorf("read battery: %w", err)
	}
	fmt.Printf("charging: %s, left: %s, right: %s, low beam: %s, high beam: %s\n",
		onOff(charging), onOff(lights.Left), onOff(lights.Right), onOff(lights.LowBeam), onOff(lights.HighBeam))
	fmt.Printf("voltage: %d mV, current: %d A, temperature: %d C\n", b.VoltageMV, b.CurrentA, b.TemperatureC)
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
