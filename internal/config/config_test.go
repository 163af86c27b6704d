package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if cfg.Serial.BaudRate != 115200 || cfg.Link.PWMMin != 1000 || cfg.Link.PWMMax != 2000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.StepDt() != 0.008 {
		t.Errorf("StepDt() = %v, want 0.008", cfg.StepDt())
	}
	if cfg.IdleWait() != 200*time.Microsecond {
		t.Errorf("IdleWait() = %v", cfg.IdleWait())
	}
	if cfg.Aircraft.Properties.Roll != "attitude/phi-rad" {
		t.Errorf("roll property = %q", cfg.Aircraft.Properties.Roll)
	}
}

func TestParse_Overrides(t *testing.T) {
	data := []byte(`
settings:
  logLevel: DEBUG
serial:
  port: /dev/ttyUSB0
  baudRate: 57600
initialConditions:
  lat: 38.897957
  lon: -77.036560
  altFt: 10
link:
  pwmMin: 1100
  pwmMax: 1900
aircraft:
  properties:
    steering: fcs/rudder-cmd-norm
mqtt:
  enabled: false
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Settings.LogLevel != "DEBUG" || cfg.Serial.Port != "/dev/ttyUSB0" || cfg.Serial.BaudRate != 57600 {
		t.Errorf("settings/serial = %+v %+v", cfg.Settings, cfg.Serial)
	}
	if cfg.InitialConditions.Lat != 38.897957 || cfg.InitialConditions.AltFt != 10 {
		t.Errorf("initial conditions = %+v", cfg.InitialConditions)
	}
	if cfg.Link.PWMMin != 1100 || cfg.Link.TransmitIntervalMs != 5 {
		t.Errorf("link = %+v", cfg.Link)
	}
	p := cfg.Aircraft.Properties
	if p.Steering != "fcs/rudder-cmd-norm" || p.Elevator != "fcs/elevator-cmd-norm" {
		t.Errorf("properties = %+v", p)
	}
	if cfg.MQTT.Enabled || cfg.MQTT.Topics.Vehicle != "hitl/vehicle" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"latitude", "initialConditions: {lat: 91}", "initialConditions.lat"},
		{"read timeout", "serial: {readTimeoutMs: 0}", "serial.readTimeoutMs"},
		{"step rate", "sim: {stepHz: 0}", "sim.stepHz"},
		{"idle wait", "sim: {idleWaitUs: 5000}", "sim.idleWaitUs"},
		{"pwm range", "link: {pwmMin: 1500, pwmMax: 1500}", "link.pwmMin"},
		{"model", "aircraft: {model: jsbsim}", "aircraft.model"},
		{"gps", "gps: {enabled: true, port: ''}", "gps.port"},
		{"syntax", "serial: [", "failed to parse"},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.yaml))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %v, want error containing %q", tt.name, err, tt.want)
		}
	}
}

func TestLoadAndGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hitl_config.yaml")
	if err := os.WriteFile(path, []byte("sim:\n  stepHz: 200\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	if err := InitGlobal(path); err != nil {
		t.Fatalf("InitGlobal() error: %v", err)
	}
	if Get() == nil || Get().StepDt() != 0.005 {
		t.Fatalf("Get() = %+v", Get())
	}
	// later calls keep the first configuration
	_ = InitGlobal(filepath.Join(t.TempDir(), "missing.yaml"))
	if Get().Sim.StepHz != 200 {
		t.Errorf("global config replaced")
	}
}

func TestLoad_ShippedFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "hitl_config.yaml"))
	if err != nil {
		t.Fatalf("Load(shipped) error: %v", err)
	}
	def := Default()
	if cfg.Serial != def.Serial || cfg.Link != def.Link || cfg.Sim != def.Sim {
		t.Errorf("shipped config drifted from defaults:\n got %+v\nwant %+v", cfg, def)
	}
}
