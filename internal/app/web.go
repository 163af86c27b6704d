package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/hitl_bridge/internal/config"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

const viewerStreamInterval = 50 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Viewer serves the latest vehicle state to browsers and forwards their
// stick input to the bridge.
type Viewer struct {
	mu   sync.RWMutex
	last state.VehicleState
	have bool

	publishControl func(state.ControlInput) error
	staticDir      string
	interval       time.Duration
	logger         *slog.Logger
}

func NewViewer(staticDir string, publishControl func(state.ControlInput) error, logger *slog.Logger) *Viewer {
	return &Viewer{
		publishControl: publishControl,
		staticDir:      staticDir,
		interval:       viewerStreamInterval,
		logger:         logger,
	}
}

// Update stores the newest vehicle state.
func (v *Viewer) Update(vs state.VehicleState) {
	v.mu.Lock()
	v.last = vs
	v.have = true
	v.mu.Unlock()
}

func (v *Viewer) Latest() (state.VehicleState, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.last, v.have
}

// HandleVehicle is the MQTT callback for the vehicle topic.
func (v *Viewer) HandleVehicle(_ mqtt.Client, msg mqtt.Message) {
	var vs state.VehicleState
	if err := json.Unmarshal(msg.Payload(), &vs); err != nil {
		v.logger.Warn("vehicle unmarshal error", slog.Any("error", err))
		return
	}
	v.Update(vs)
}

func (v *Viewer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/vehicle", v.handleVehicleAPI)
	mux.HandleFunc("/ws", v.handleWS)
	mux.Handle("/", http.FileServer(http.Dir(v.staticDir)))
	return mux
}

func (v *Viewer) handleVehicleAPI(w http.ResponseWriter, _ *http.Request) {
	vs, ok := v.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(vs); err != nil {
		v.logger.Warn("json encode error", slog.Any("error", err))
	}
}

// handleWS streams vehicle state and reads ControlInput messages until
// the browser goes away.
func (v *Viewer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.logger.Warn("websocket upgrade error", slog.Any("error", err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var c state.ControlInput
			if err := conn.ReadJSON(&c); err != nil {
				var closeErr *websocket.CloseError
				if !errors.As(err, &closeErr) {
					v.logger.Debug("websocket read error", slog.Any("error", err))
				}
				return
			}
			if err := v.publishControl(c.Clamp()); err != nil {
				v.logger.Warn("control publish failed", slog.Any("error", err))
			}
		}
	}()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		vs, ok := v.Latest()
		if !ok {
			continue
		}
		if err := conn.WriteJSON(vs); err != nil {
			v.logger.Debug("websocket write error", slog.Any("error", err))
			return
		}
	}
}

// RunWeb serves the viewer until ctx is done.
func RunWeb(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client, err := connectMQTT(cfg.MQTT, "web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Info("connected to MQTT broker", slog.String("broker", cfg.MQTT.Broker))

	publish := mqttPublisher(client, false)
	viewer := NewViewer(cfg.Web.StaticDir, func(c state.ControlInput) error {
		return publishJSON(publish, cfg.MQTT.Topics.Control, c)
	}, logger)

	if err := subscribe(client, cfg.MQTT.Topics.Vehicle, viewer.HandleVehicle); err != nil {
		return err
	}
	logger.Info("subscribed to vehicle topic", slog.String("topic", cfg.MQTT.Topics.Vehicle))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           viewer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
