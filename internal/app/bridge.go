// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/hitl_bridge/internal/clock"
	"github.com/relabs-tech/hitl_bridge/internal/config"
	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/geomag"
	"github.com/relabs-tech/hitl_bridge/internal/gps"
	"github.com/relabs-tech/hitl_bridge/internal/link"
	"github.com/relabs-tech/hitl_bridge/internal/recorder"
	"github.com/relabs-tech/hitl_bridge/internal/sensors"
	"github.com/relabs-tech/hitl_bridge/internal/sim"
	"github.com/relabs-tech/hitl_bridge/internal/truth"
)

// RunBridge runs the simulation loop and every I/O loop around it until ctx
// is cancelled or one of them fails. It returns nil once ctx is done.
//
// A missing autopilot port or MQTT broker only degrades the bridge: without
// the port the aircraft flies on operator input, without the broker there
// are no viewers.
func RunBridge(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ex := exchange.New()

	loop, err := newSimLoop(cfg, ex, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })

	linkStats := &link.Stats{}
	if err := startLink(gctx, g, cfg, ex, linkStats, logger); err != nil {
		logger.Warn("autopilot link unavailable, using operator control only",
			slog.String("port", cfg.Serial.Port), slog.Any("error", err))
	}

	var client mqtt.Client
	if cfg.MQTT.Enabled {
		client, err = connectMQTT(cfg.MQTT, "bridge")
		if err != nil {
			logger.Warn("MQTT unavailable, running without viewers", slog.Any("error", err))
		} else {
			defer client.Disconnect(250)
			if err := startVisual(gctx, g, cfg, client, ex, logger); err != nil {
				logger.Warn("operator control over MQTT unavailable", slog.Any("error", err))
			}
		}
	}

	if cfg.GPS.Enabled {
		if err := startGPS(gctx, g, cfg, client, ex, logger); err != nil {
			logger.Warn("GPS output unavailable", slog.String("port", cfg.GPS.Port), slog.Any("error", err))
		}
	}

	if cfg.Recorder.Enabled {
		if err := startRecorder(gctx, g, cfg, ex, loop.Stats(), logger); err != nil {
			return err
		}
	}

	status := &statusReporter{
		interval: config.Ms(cfg.Sim.StatusIntervalMs),
		loop:     loop.Stats(),
		link:     linkStats,
		controls: &ex.Controls,
		logger:   logger.With(slog.String("component", "status")),
	}
	if status.interval > 0 {
		g.Go(func() error { return status.Run(gctx) })
	}

	err = g.Wait()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func newSimLoop(cfg *config.Config, ex *exchange.Exchange, logger *slog.Logger) (*sim.Loop, error) {
	kc := truth.DefaultKinematicConfig()
	kc.Lat = cfg.InitialConditions.Lat
	kc.Lon = cfg.InitialConditions.Lon
	kc.AltFt = cfg.InitialConditions.AltFt
	kc.HeadingDeg = cfg.InitialConditions.HeadingDeg
	kc.Dt = cfg.StepDt()
	if cfg.Aircraft.CruiseSpeedMps > 0 {
		kc.CruiseSpeed = cfg.Aircraft.CruiseSpeedMps
	}
	kc.Properties = cfg.Aircraft.Properties

	model, err := truth.NewKinematic(kc)
	if err != nil {
		return nil, fmt.Errorf("creating truth model: %w", err)
	}

	adapter := truth.NewAdapter(model, cfg.Aircraft.Properties, truth.WithMinThrottle(cfg.Aircraft.MinThrottle))
	synth := sensors.NewSynthesizer(geomag.NewDipole(geomag.IGRF2020))

	return sim.New(adapter, synth, ex,
		sim.WithClock(clock.New(clock.WithIdleWait(cfg.IdleWait()))),
		sim.WithMaxConsecutiveFaults(cfg.Sim.MaxConsecutiveFaults),
		sim.WithLogger(logger.With(slog.String("component", "sim"))),
	), nil
}

// closeOnDone closes c once ctx is done so blocked reads and writes return.
func closeOnDone(ctx context.Context, g *errgroup.Group, c io.Closer, logger *slog.Logger) {
	g.Go(func() error {
		<-ctx.Done()
		if err := c.Close(); err != nil {
			logger.Debug("close after shutdown", slog.Any("error", err))
		}
		return nil
	})
}

func startLink(ctx context.Context, g *errgroup.Group, cfg *config.Config, ex *exchange.Exchange, stats *link.Stats, logger *slog.Logger) error {
	port, err := link.Open(link.SerialConfig{
		Port:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.ReadTimeout(),
	})
	if err != nil {
		return err
	}
	logger.Info("autopilot link open", slog.String("port", cfg.Serial.Port), slog.Uint64("baud", uint64(cfg.Serial.BaudRate)))

	linkLogger := logger.With(slog.String("component", "link"))
	rx, err := link.NewReceiver(port, &ex.Controls.Link,
		link.WithPWMRange(link.PWMRange{Min: cfg.Link.PWMMin, Max: cfg.Link.PWMMax}),
		link.WithReadTimeout(cfg.ReadTimeout()),
		link.WithReceiveStats(stats),
		link.WithReceiveLogger(linkLogger))
	if err != nil {
		_ = port.Close()
		return err
	}
	tx := link.NewTransmitter(port, ex.Sensors.Subscribe(),
		link.WithTransmitInterval(config.Ms(cfg.Link.TransmitIntervalMs)),
		link.WithTransmitStats(stats),
		link.WithTransmitLogger(linkLogger))

	g.Go(func() error { return runLink(ctx, port, tx, rx, &ex.Controls, linkLogger) })
	return nil
}

// runLink runs the transmitter and receiver over port until ctx is done or
// the port fails. A port failure ends only the link: the port is closed,
// the actuators go back to manual input and runLink returns nil.
func runLink(ctx context.Context, port io.Closer, tx *link.Transmitter, rx *link.Receiver, controls *exchange.Controls, logger *slog.Logger) error {
	lg, lctx := errgroup.WithContext(ctx)
	lg.Go(func() error { return tx.Run(lctx) })
	lg.Go(func() error { return rx.Run(lctx) })
	closeOnDone(lctx, lg, port, logger)

	err := lg.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	controls.ReleaseLink()
	logger.Warn("autopilot link lost, operator control is live again", slog.Any("error", err))
	return nil
}

func startVisual(ctx context.Context, g *errgroup.Group, cfg *config.Config, client mqtt.Client, ex *exchange.Exchange, logger *slog.Logger) error {
	v := newVisual(cfg.MQTT, mqttPublisher(client, false), ex, logger.With(slog.String("component", "visual")))
	g.Go(func() error { return v.Run(ctx) })

	if err := subscribe(client, cfg.MQTT.Topics.Control, v.handleControl); err != nil {
		return err
	}
	logger.Info("MQTT visual bridge ready",
		slog.String("broker", cfg.MQTT.Broker),
		slog.String("control_topic", cfg.MQTT.Topics.Control))
	return nil
}

func startGPS(ctx context.Context, g *errgroup.Group, cfg *config.Config, client mqtt.Client, ex *exchange.Exchange, logger *slog.Logger) error {
	port, err := link.Open(link.SerialConfig{Port: cfg.GPS.Port, BaudRate: cfg.GPS.BaudRate})
	if err != nil {
		return err
	}
	gpsLogger := logger.With(slog.String("component", "gps"))

	options := []func(*gps.Emitter){gps.WithRate(cfg.GPS.RateHz), gps.WithLogger(gpsLogger)}
	if client != nil {
		publish := mqttPublisher(client, true)
		options = append(options, gps.WithFixHandler(func(f gps.Fix) {
			if err := publishJSON(publish, cfg.MQTT.Topics.GPS, f); err != nil {
				gpsLogger.Debug("fix publish failed", slog.Any("error", err))
			}
		}))
	}

	e := gps.NewEmitter(port, ex.Vehicle.Subscribe(), options...)
	g.Go(func() error { return runGPS(ctx, port, e, gpsLogger) })
	gpsLogger.Info("emulated GPS output open", slog.String("port", cfg.GPS.Port))
	return nil
}

// runGPS runs the emitter until ctx is done. A port failure only stops the
// GPS output.
func runGPS(ctx context.Context, port io.Closer, e *gps.Emitter, logger *slog.Logger) error {
	ectx, cancel := context.WithCancel(ctx)
	defer cancel()

	var closer errgroup.Group
	closeOnDone(ectx, &closer, port, logger)
	err := e.Run(ectx)
	cancel()
	_ = closer.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	logger.Warn("emulated GPS output stopped", slog.Any("error", err))
	return nil
}

func startRecorder(ctx context.Context, g *errgroup.Group, cfg *config.Config, ex *exchange.Exchange, loopStats *sim.Stats, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.Recorder.Directory, 0o755); err != nil {
		return fmt.Errorf("creating recorder directory: %w", err)
	}
	path := filepath.Join(cfg.Recorder.Directory,
		fmt.Sprintf("hitl_session_%s.sqlite", time.Now().UTC().Format("20060102_150405.000")))

	store := recorder.NewStore(path)
	session, err := store.CreateSession(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("creating recorder session: %w", err)
	}

	recLogger := logger.With(slog.String("component", "recorder"))
	rec := recorder.New(store, session, ex,
		recorder.WithSampleInterval(config.Ms(cfg.Recorder.SampleIntervalMs)),
		recorder.WithMaxBatchSize(cfg.Recorder.MaxBatchSize),
		recorder.WithSourceFunc(func() string {
			s, _ := loopStats.Source.Load().(exchange.ControlSource)
			return string(s)
		}),
		recorder.WithLogger(recLogger))

	g.Go(func() error {
		defer store.Close()
		return rec.Run(ctx)
	})
	recLogger.Info("recording flight", slog.String("path", path), slog.String("session", session.String()))
	return nil
}
