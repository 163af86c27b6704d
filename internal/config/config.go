package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/hitl_bridge/internal/truth"
)

// Config holds all application configuration values.
type Config struct {
	Settings          Settings          `yaml:"settings"`
	Serial            SerialConfig      `yaml:"serial"`
	InitialConditions InitialConditions `yaml:"initialConditions"`
	Sim               SimConfig         `yaml:"sim"`
	Link              LinkConfig        `yaml:"link"`
	Aircraft          AircraftConfig    `yaml:"aircraft"`
	MQTT              MQTTConfig        `yaml:"mqtt"`
	Web               WebConfig         `yaml:"web"`
	GPS               GPSConfig         `yaml:"gps"`
	Recorder          RecorderConfig    `yaml:"recorder"`
}

type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SerialConfig is the autopilot link port.
type SerialConfig struct {
	Port          string `yaml:"port"`
	BaudRate      uint   `yaml:"baudRate"`
	ReadTimeoutMs int    `yaml:"readTimeoutMs"`
}

type InitialConditions struct {
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	AltFt      float64 `yaml:"altFt"`
	HeadingDeg float64 `yaml:"headingDeg"`
}

type SimConfig struct {
	StepHz               float64 `yaml:"stepHz"`
	IdleWaitUs           int     `yaml:"idleWaitUs"`
	MaxConsecutiveFaults int     `yaml:"maxConsecutiveFaults"`
	StatusIntervalMs     int     `yaml:"statusIntervalMs"`
}

type LinkConfig struct {
	TransmitIntervalMs int     `yaml:"transmitIntervalMs"`
	PWMMin             float64 `yaml:"pwmMin"`
	PWMMax             float64 `yaml:"pwmMax"`
}

// AircraftConfig selects the truth model and names its properties.
type AircraftConfig struct {
	Model          string            `yaml:"model"`
	MinThrottle    float64           `yaml:"minThrottle"`
	CruiseSpeedMps float64           `yaml:"cruiseSpeedMps"`
	Properties     truth.PropertyMap `yaml:"properties"`
}

type MQTTConfig struct {
	Enabled           bool       `yaml:"enabled"`
	Broker            string     `yaml:"broker"`
	ClientID          string     `yaml:"clientID"`
	Topics            MQTTTopics `yaml:"topics"`
	PublishIntervalMs int        `yaml:"publishIntervalMs"`
}

type MQTTTopics struct {
	Vehicle string `yaml:"vehicle"`
	Sensors string `yaml:"sensors"`
	Control string `yaml:"control"`
	GPS     string `yaml:"gps"`
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"staticDir"`
}

// GPSConfig is the emulated receiver's NMEA output port.
type GPSConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Port     string  `yaml:"port"`
	BaudRate uint    `yaml:"baudRate"`
	RateHz   float64 `yaml:"rateHz"`
}

type RecorderConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Directory        string `yaml:"directory"`
	SampleIntervalMs int    `yaml:"sampleIntervalMs"`
	MaxBatchSize     int    `yaml:"maxBatchSize"`
}

const ModelKinematic = "kinematic"

// Default returns the configuration used for every key the file omits.
func Default() *Config {
	return &Config{
		Settings: Settings{LogLevel: "INFO"},
		Serial: SerialConfig{
			Port:          "/dev/ttyACM0",
			BaudRate:      115200,
			ReadTimeoutMs: 100,
		},
		InitialConditions: InitialConditions{
			Lat:   43.878960,
			Lon:   -79.413383,
			AltFt: 5,
		},
		Sim: SimConfig{
			StepHz:               125,
			IdleWaitUs:           200,
			MaxConsecutiveFaults: 50,
			StatusIntervalMs:     5000,
		},
		Link: LinkConfig{
			TransmitIntervalMs: 5,
			PWMMin:             1000,
			PWMMax:             2000,
		},
		Aircraft: AircraftConfig{
			Model:          ModelKinematic,
			MinThrottle:    1e-3,
			CruiseSpeedMps: 25,
			Properties:     truth.DefaultProperties(),
		},
		MQTT: MQTTConfig{
			Enabled:  true,
			Broker:   "tcp://localhost:1883",
			ClientID: "hitl-bridge",
			Topics: MQTTTopics{
				Vehicle: "hitl/vehicle",
				Sensors: "hitl/sensors",
				Control: "hitl/control",
				GPS:     "hitl/gps",
			},
			PublishIntervalMs: 50,
		},
		Web: WebConfig{
			Port:      8080,
			StaticDir: "./web",
		},
		GPS: GPSConfig{
			Port:     "/dev/ttyUSB1",
			BaudRate: 9600,
			RateHz:   5,
		},
		Recorder: RecorderConfig{
			Directory:        "data",
			SampleIntervalMs: 100,
			MaxBatchSize:     50,
		},
	}
}

// Package-level singleton: InitGlobal sets it once, Get reads it under
// the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the YAML configuration file on top of Default.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Aircraft.Properties = cfg.Aircraft.Properties.WithDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	ic := c.InitialConditions
	if ic.Lat < -90 || ic.Lat > 90 {
		return fmt.Errorf("initialConditions.lat %v out of range", ic.Lat)
	}
	if ic.Lon < -180 || ic.Lon > 180 {
		return fmt.Errorf("initialConditions.lon %v out of range", ic.Lon)
	}
	if c.Serial.ReadTimeoutMs <= 0 {
		return fmt.Errorf("serial.readTimeoutMs must be positive")
	}
	if c.Sim.StepHz <= 0 {
		return fmt.Errorf("sim.stepHz must be positive")
	}
	if c.Sim.IdleWaitUs <= 0 || c.Sim.IdleWaitUs >= 1000 {
		return fmt.Errorf("sim.idleWaitUs must be between 1 and 999")
	}
	if c.Sim.MaxConsecutiveFaults <= 0 {
		return fmt.Errorf("sim.maxConsecutiveFaults must be positive")
	}
	if c.Link.PWMMin == c.Link.PWMMax {
		return fmt.Errorf("link.pwmMin and link.pwmMax must differ")
	}
	if c.Link.TransmitIntervalMs <= 0 {
		return fmt.Errorf("link.transmitIntervalMs must be positive")
	}
	if c.Aircraft.Model != ModelKinematic {
		return fmt.Errorf("aircraft.model %q is not supported", c.Aircraft.Model)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.GPS.Enabled && (c.GPS.Port == "" || c.GPS.BaudRate == 0 || c.GPS.RateHz <= 0) {
		return fmt.Errorf("gps.port, gps.baudRate and gps.rateHz are required when gps is enabled")
	}
	if c.Recorder.Enabled && c.Recorder.MaxBatchSize <= 0 {
		return fmt.Errorf("recorder.maxBatchSize must be positive")
	}
	return nil
}

// StepDt is the truth timestep in seconds.
func (c *Config) StepDt() float64 {
	return 1 / c.Sim.StepHz
}

func (c *Config) IdleWait() time.Duration {
	return time.Duration(c.Sim.IdleWaitUs) * time.Microsecond
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Serial.ReadTimeoutMs) * time.Millisecond
}

// Ms converts an integer millisecond setting.
func Ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
