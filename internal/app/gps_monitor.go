package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/hitl_bridge/internal/config"
	"github.com/relabs-tech/hitl_bridge/internal/gps"
	"github.com/relabs-tech/hitl_bridge/internal/link"
)

// fixAccumulator merges GGA altitude into RMC fixes.
type fixAccumulator struct {
	current gps.Fix
}

// Update parses one NMEA line. It returns a fix when the line was an RMC
// sentence, which closes a receiver's reporting cycle.
func (a *fixAccumulator) Update(line string) (gps.Fix, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return gps.Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return gps.Fix{}, false, err
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		a.current.AltitudeM = m.Altitude

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		a.current.Time = m.Time.String()
		a.current.Date = m.Date.String()
		a.current.Latitude = m.Latitude
		a.current.Longitude = m.Longitude
		a.current.SpeedKnots = m.Speed
		a.current.CourseDeg = m.Course
		a.current.Validity = string(m.Validity)
		return a.current, true, nil
	}
	return gps.Fix{}, false, nil
}

// monitorNMEA reads sentences from r and hands every completed fix to
// publish until r fails.
func monitorNMEA(r io.Reader, publish func(gps.Fix) error, logger *slog.Logger) error {
	reader := bufio.NewReader(r)
	var acc fixAccumulator

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fix, ok, pErr := acc.Update(line)
			if pErr != nil {
				logger.Debug("NMEA parse error", slog.String("line", strings.TrimSpace(line)), slog.Any("error", pErr))
			} else if ok {
				if err := publish(fix); err != nil {
					logger.Warn("GPS publish error", slog.Any("error", err))
				}
			}
		}
		if err != nil {
			return err
		}
	}
}

// RunGPSMonitor reads the bridge's emulated GPS port (or a real receiver)
// and republishes fixes to MQTT.
func RunGPSMonitor(ctx context.Context, cfg *config.Config, port string, logger *slog.Logger) error {
	client, err := connectMQTT(cfg.MQTT, "gps-monitor")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	serialPort, err := link.Open(link.SerialConfig{Port: port, BaudRate: cfg.GPS.BaudRate})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		serialPort.Close()
	}()
	logger.Info("GPS serial port opened", slog.String("port", port), slog.Uint64("baud", uint64(cfg.GPS.BaudRate)))

	publish := mqttPublisher(client, true)
	err = monitorNMEA(serialPort, func(f gps.Fix) error {
		logger.Debug("published GPS fix", slog.String("fix", formatFix(f)))
		return publishJSON(publish, cfg.MQTT.Topics.GPS, f)
	}, logger)

	if ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("GPS port %s closed", port)
	}
	return fmt.Errorf("GPS read error: %w", err)
}
