package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/hitl_bridge/internal/config"
	"github.com/relabs-tech/hitl_bridge/internal/gps"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

func formatVehicle(v state.VehicleState) string {
	return fmt.Sprintf(
		"[VEH ] t=%8.3f  ROLL=%6.2f  PITCH=%6.2f  YAW=%7.2f  lat=%.7f lon=%.7f alt=%7.2fm",
		v.SimTime, v.Roll, v.Pitch, v.Yaw, v.Lat, v.Lon, v.Alt,
	)
}

func formatSensors(s state.SimulatedSensors) string {
	return fmt.Sprintf(
		"[SENS] a=(%6.3f %6.3f %6.3f)g  g=(%7.2f %7.2f %7.2f)°/s  m=(%6.3f %6.3f %6.3f)  baro=%7.2fm  gps=%d,%d",
		s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz, s.Mx, s.My, s.Mz, s.BaroASL, s.GPSLat, s.GPSLon,
	)
}

func formatControl(c state.ControlInput) string {
	return fmt.Sprintf("[CTRL] ele=%+5.2f  rud=%+5.2f  thr=%4.2f", c.Elevator, c.Rudder, c.Throttle)
}

func formatFix(f gps.Fix) string {
	return fmt.Sprintf(
		"[GPS ] time=%s date=%s lat=%.6f lon=%.6f alt=%.1fm speed=%.1fkn course=%.1f° validity=%s",
		f.Time, f.Date, f.Latitude, f.Longitude, f.AltitudeM, f.SpeedKnots, f.CourseDeg, f.Validity,
	)
}

// printHandler decodes JSON payloads of type T and prints them with format.
func printHandler[T any](out io.Writer, mu *sync.Mutex, format func(T) string, logger *slog.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			logger.Warn("console: unmarshal error", slog.String("topic", msg.Topic()), slog.Any("error", err))
			return
		}
		mu.Lock()
		fmt.Fprintln(out, format(v))
		mu.Unlock()
	}
}

// RunConsoleMQTT prints everything the bridge publishes until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client, err := connectMQTT(cfg.MQTT, "console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Info("console: connected to MQTT broker", slog.String("broker", cfg.MQTT.Broker))

	var mu sync.Mutex
	t := cfg.MQTT.Topics
	handlers := map[string]mqtt.MessageHandler{
		t.Vehicle: printHandler(os.Stdout, &mu, formatVehicle, logger),
		t.Sensors: printHandler(os.Stdout, &mu, formatSensors, logger),
		t.Control: printHandler(os.Stdout, &mu, formatControl, logger),
		t.GPS:     printHandler(os.Stdout, &mu, formatFix, logger),
	}
	for topic, h := range handlers {
		if err := subscribe(client, topic, h); err != nil {
			return err
		}
		logger.Info("console: subscribed", slog.String("topic", topic))
	}

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
