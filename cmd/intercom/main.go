// Command intercom drives a door intercom from a Raspberry Pi: it watches
// the doorbell line, opens the door on command or by policy, and bridges
// events and commands to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/intercom/internal/button"
	"github.com/sweeney/intercom/internal/clock"
	"github.com/sweeney/intercom/internal/command"
	"github.com/sweeney/intercom/internal/config"
	"github.com/sweeney/intercom/internal/gpio"
	"github.com/sweeney/intercom/internal/intercom"
	"github.com/sweeney/intercom/internal/mqtt"
	"github.com/sweeney/intercom/internal/status"
	"github.com/sweeney/intercom/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/intercom.yaml", "Path to the YAML config file")
	poll := flag.Duration("poll", 0, "Polling interval (overrides config)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	printState := flag.Bool("print-state", false, "Print current status and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *poll > 0 {
		cfg.Timing.PollMs = int(poll.Milliseconds())
	}
	switch *httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = *httpAddr
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printState bool) error {
	hw, err := openHardware(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()

	dev := cfg.Device()
	if printState {
		dev.StartupBlinks = 0
	}

	ctrl := intercom.NewController(hw.board, clock.Real{})
	if err := ctrl.Begin(dev); err != nil {
		return fmt.Errorf("start intercom: %w", err)
	}
	defer ctrl.Close()

	if b := cfg.Indicator.Brightness; b != nil && *b < gpio.DimmerMax {
		ctrl.SetIndicatorBrightness(*b)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:           cfg.Poll().Milliseconds(),
		HeartbeatMs:      cfg.Heartbeat().Milliseconds(),
		Broker:           cfg.MQTT.Broker,
		TopicPrefix:      cfg.MQTT.TopicPrefix,
		HTTPAddr:         cfg.HTTP.Addr,
		DoorbellSource:   cfg.Doorbell.Source,
		IndicatorBackend: cfg.GPIO.IndicatorBackend,
		WSBroker:         resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker),
	}, nil)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if printState {
		ctrl.Update()
		tracker.Update(ctrl.Status())
		fmt.Printf("%s\n", status.FormatJSON(tracker.Snapshot()))
		return nil
	}

	// Commands from every source are applied on the loop goroutine.
	cmds := make(chan command.Command, 16)
	submit := func(c command.Command) {
		select {
		case cmds <- c:
		default:
			log.Printf("command queue full, dropping %s from %s", c, c.Source)
		}
	}

	publisher, mqttStatus, err := newPublisher(cfg, submit)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker.SetMQTTConnected(mqttStatus.IsConnected())
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	pipe, err := command.NewPipe(cfg.CommandPipe, submit)
	if err != nil {
		log.Printf("command pipe disabled: %v", err)
	} else if pipe != nil {
		go pipe.Start()
		defer pipe.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Button.Device != "" {
		btn, err := button.Open(cfg.Button.Device, uint16(cfg.Button.KeyCode), submit)
		if err != nil {
			log.Printf("button disabled: %v", err)
		} else {
			defer btn.Close()
			go func() {
				if err := btn.Run(ctx); err != nil && ctx.Err() == nil {
					log.Printf("button: %v", err)
				}
			}()
		}
	}

	log.Printf("started: %s %s poll=%v broker=%s heartbeat=%v", intercom.Name, intercom.Version, cfg.Poll(), cfg.MQTT.Broker, cfg.Heartbeat())

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, publisher, mqttStatus, tracker, cfg.Heartbeat(), time.Now, ticker.C, sigCh, cmds)
}

// newPublisher connects to the configured broker. Without a broker, events
// are only logged.
func newPublisher(cfg *config.Config, submit func(command.Command)) (mqtt.Publisher, mqtt.ConnectionStatus, error) {
	if cfg.MQTT.Broker == "" {
		log.Printf("mqtt disabled: no broker configured")
		return offline{}, offline{}, nil
	}

	opts := mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Topics:     mqtt.NewTopics(cfg.MQTT.TopicPrefix),
		Username:   cfg.MQTT.Username,
		Password:   cfg.MQTT.Password,
		BufferSize: cfg.MQTT.BufferSize,
	}
	if cfg.MQTT.CACert != "" || cfg.MQTT.ClientCert != "" {
		tlsCfg, err := mqtt.NewTLSConfig(cfg.MQTT.CACert, cfg.MQTT.ClientCert, cfg.MQTT.ClientKey)
		if err != nil {
			return nil, nil, err
		}
		opts.TLS = tlsCfg
	}

	pub, err := mqtt.NewRealPublisher(opts, func(payload string) {
		c, err := command.Parse(payload)
		if err != nil {
			log.Printf("mqtt command: %v", err)
			return
		}
		c.Source = "mqtt"
		submit(c)
	})
	if err != nil {
		return nil, nil, err
	}
	return pub, pub, nil
}

// offline stands in for the broker when MQTT is disabled.
type offline struct{}

func (offline) Publish(intercom.Event) error         { return nil }
func (offline) PublishSystem(mqtt.SystemEvent) error { return nil }
func (offline) Close() error                         { return nil }
func (offline) IsConnected() bool                    { return false }

func runLoop(ctrl *intercom.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, cmds <-chan command.Command) error {
	ctrl.SetEventHandler(func(e intercom.Event) {
		log.Printf("event: %s (state=%s rings=%d auto=%v)", e.Type, e.State, e.RingCount, e.Auto)
		if err := publisher.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	})

	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh(tracker, ctrl, mqttStatus)
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case c := <-cmds:
			log.Printf("command from %s: %s", c.Source, c)
			if c.Op == command.OpStatus {
				event := mqtt.SystemEvent{Timestamp: now(), Event: "STATUS", Retained: true}
				if tracker != nil {
					refresh(tracker, ctrl, mqttStatus)
					event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "STATUS", c.Source)
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("status publish error: %v", err)
				}
				continue
			}
			c.Apply(ctrl)
			if tracker != nil {
				refresh(tracker, ctrl, mqttStatus)
			}

		case <-tick:
			t := now()
			ctrl.Update()

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				counts := ctrl.Counts()
				log.Printf("heartbeat: state=%s ring=%d open=%d close=%d", ctrl.State(), counts.Ring, counts.Open, counts.Close)

				hbEvent := mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT"}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					refresh(tracker, ctrl, mqttStatus)
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			if tracker != nil {
				refresh(tracker, ctrl, mqttStatus)
			}
		}
	}
}

func refresh(tracker *status.Tracker, ctrl *intercom.Controller, mqttStatus mqtt.ConnectionStatus) {
	tracker.Update(ctrl.Status())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
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

// resolveWSBroker turns the ws_broker setting into a concrete URL for the
// live status page. "=broker" derives ws://host:9001 from the TCP broker
// address; empty or "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "" || ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	if broker == "" {
		return ""
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws_broker: cannot parse broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
