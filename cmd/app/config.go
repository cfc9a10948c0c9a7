package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/gridsense-io/ampacity/internal/atmosphere"
	"github.com/gridsense-io/ampacity/internal/ieee738"
	"github.com/gridsense-io/ampacity/internal/monitor"
)

const envPrefix = "AMPACITY_"

type Config struct {
	DeviceID        string        `koanf:"device_id"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	Site      SiteConfig      `koanf:"site"`
	Conductor ConductorConfig `koanf:"conductor"`
	Line      LineConfig      `koanf:"line"`
	Solver    SolverConfig    `koanf:"solver"`

	Controllers struct {
		HTTP   HTTPConfig   `koanf:"http"`
		MQTT   MQTTConfig   `koanf:"mqtt"`
		Modbus ModbusConfig `koanf:"modbus"`
	} `koanf:"controllers"`
}

type SiteConfig struct {
	Latitude    float64 `koanf:"latitude"`
	Elevation   float64 `koanf:"elevation"`
	LineAzimuth float64 `koanf:"line_azimuth"`
	Atmosphere  string  `koanf:"atmosphere"` // "clear" | "industrial"
}

type ConductorConfig struct {
	Diameter     float64 `koanf:"diameter"`
	Mass         float64 `koanf:"mass"`
	SpecificHeat float64 `koanf:"specific_heat"`
	Absorptivity float64 `koanf:"absorptivity"`
	Emissivity   float64 `koanf:"emissivity"`
	TLow         float64 `koanf:"t_low"`
	THigh        float64 `koanf:"t_high"`
	RLow         float64 `koanf:"r_low"`
	RHigh        float64 `koanf:"r_high"`
}

type LineConfig struct {
	Enabled            bool    `koanf:"enabled"`
	Current            float64 `koanf:"current"`
	MaxTemperature     float64 `koanf:"max_temperature"`
	AmbientTemperature float64 `koanf:"ambient_temperature"`
	WindSpeed          float64 `koanf:"wind_speed"`
	WindAngle          float64 `koanf:"wind_angle"`
}

type SolverConfig struct {
	Tolerance     float64 `koanf:"tolerance"`
	MaxIterations int     `koanf:"max_iterations"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

// defaults describe a 795 kcmil 26/7 ACSR ("Drake") span at sea level, the
// standard's worked example, so the service is runnable with no file at all.
func defaults() Config {
	var cfg Config
	cfg.DeviceID = "default"
	cfg.RefreshInterval = 10 * time.Second
	cfg.Site = SiteConfig{
		Latitude:    30,
		Elevation:   0,
		LineAzimuth: 90,
		Atmosphere:  "clear",
	}
	cfg.Conductor = ConductorConfig{
		Diameter:     0.0281,
		Mass:         1.628,
		SpecificHeat: 897,
		Absorptivity: 0.8,
		Emissivity:   0.8,
		TLow:         25,
		THigh:        75,
		RLow:         7.283e-5,
		RHigh:        8.688e-5,
	}
	cfg.Line = LineConfig{
		Enabled:            true,
		Current:            1000,
		MaxTemperature:     100,
		AmbientTemperature: 40,
		WindSpeed:          0.61,
		WindAngle:          90,
	}
	cfg.Solver = SolverConfig{
		Tolerance:     1e-3,
		MaxIterations: 200,
	}
	cfg.Controllers.HTTP = HTTPConfig{Addr: ":8080"}
	cfg.Controllers.MQTT = MQTTConfig{PublishInterval: 1 * time.Second}
	cfg.Controllers.Modbus = ModbusConfig{UnitID: 1}
	return cfg
}

// LoadConfig layers defaults, an optional YAML/JSON file and AMPACITY_*
// environment variables, in that order of precedence (lowest first). A
// missing file falls back to defaults.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		switch _, err := os.Stat(path); {
		case err == nil:
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		case os.IsNotExist(err):
			// Config file missing → defaults + env only.
		default:
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// envKeyTransform maps AMPACITY_CONTROLLERS_HTTP_ADDR (prefix stripped) to
// controllers.http.addr, and SITE_LATITUDE to site.latitude. Keys that do
// not match a known section pass through lowercased.
func envKeyTransform(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	parts := strings.Split(key, "_")
	switch parts[0] {
	case "controllers":
		if len(parts) >= 3 {
			return "controllers." + parts[1] + "." + strings.Join(parts[2:], "_")
		}
	case "site", "conductor", "line", "solver":
		if len(parts) >= 2 {
			return parts[0] + "." + strings.Join(parts[1:], "_")
		}
	}
	return key
}

func applyDefaults(cfg *Config) {
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 10 * time.Second
	}
	if cfg.Controllers.HTTP.Addr == "" {
		cfg.Controllers.HTTP.Addr = ":8080"
	}
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.Modbus.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	if cfg.Controllers.MQTT.PublishInterval == 0 {
		cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	}
	if cfg.Controllers.Modbus.UnitID == 0 {
		cfg.Controllers.Modbus.UnitID = 1
	}
}

// Site converts the site section for the monitor.
func (c Config) SiteModel() (atmosphere.Site, error) {
	kind, err := atmosphere.ParseKind(c.Site.Atmosphere)
	if err != nil {
		return atmosphere.Site{}, err
	}
	return atmosphere.Site{
		Latitude:    c.Site.Latitude,
		Elevation:   c.Site.Elevation,
		LineAzimuth: c.Site.LineAzimuth,
		Kind:        kind,
	}, nil
}

// Snapshot builds the monitor's initial state from the conductor and line
// sections.
func (c Config) Snapshot() monitor.Snapshot {
	return monitor.Snapshot{
		Enabled: c.Line.Enabled,
		Conductor: ieee738.ConductorProperties{
			Diameter:     c.Conductor.Diameter,
			Mass:         c.Conductor.Mass,
			SpecificHeat: c.Conductor.SpecificHeat,
			Absorptivity: c.Conductor.Absorptivity,
			Emissivity:   c.Conductor.Emissivity,
			TLow:         c.Conductor.TLow,
			THigh:        c.Conductor.THigh,
			RLow:         c.Conductor.RLow,
			RHigh:        c.Conductor.RHigh,
		},
		Weather: atmosphere.Weather{
			AmbientTemperature: c.Line.AmbientTemperature,
			WindSpeed:          c.Line.WindSpeed,
			WindAngle:          c.Line.WindAngle,
		},
		Current: c.Line.Current,
		MaxTemp: c.Line.MaxTemperature,
	}
}

// SolverModel converts the solver section for the engine.
func (c Config) SolverModel() ieee738.SolverConfig {
	return ieee738.SolverConfig{
		Tolerance:     c.Solver.Tolerance,
		MaxIterations: c.Solver.MaxIterations,
	}
}
