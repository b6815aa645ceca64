// Package config assembles a Config from CLI flags, with an optional YAML
// file overlay layered on top via viper.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime-tunable parameter of the brain process.
type Config struct {
	// Bus is the serial device path the codec reads/writes.
	Bus string
	// Baudrate is the serial connection's baud rate.
	Baudrate int
	// HTTPAddr is the control plane's listen address, host:port.
	HTTPAddr string
	// Debug enables verbose logging and firmware-side debug logging.
	Debug bool
	// Demo replays a canned event sequence instead of opening a real bus.
	Demo bool
	// Manual disables the default RoadSense algorithm at startup.
	Manual bool
	// NoLineDebounce is RoadSense's delay before recalculating after
	// NO_LINE_FOUND - configurable since its necessity is environment
	// specific (see DESIGN.md's Open Questions).
	NoLineDebounce time.Duration
	// GraphFile optionally overrides the embedded competition topology
	// with node coordinates loaded from (and persisted to) a JSON file.
	GraphFile string
	// ConfigFile is an optional YAML file overlaying these defaults.
	ConfigFile string
	// Vision enables the POST /vision/frame endpoint and its graph updater.
	Vision bool
	// CameraOriginX/Y are the graph-frame coordinates of the camera's
	// ground-projected optical center, used by the calibrated projector.
	CameraOriginX float64
	CameraOriginY float64
	// CameraMetersPerPixel is the isotropic ground scale of one pixel at
	// the calibrated camera height, used by the calibrated projector.
	CameraMetersPerPixel float64
}

// Defaults returns the out-of-the-box configuration.
func Defaults() *Config {
	return &Config{
		Bus:                  "/dev/serial0",
		Baudrate:             115200,
		HTTPAddr:             ":8080",
		NoLineDebounce:       100 * time.Millisecond,
		CameraMetersPerPixel: 0.01,
	}
}

// ParseFlags parses args (normally os.Args[1:]) into a Config, overlaying a
// YAML config file onto the flag defaults if --config is given.
func ParseFlags(args []string) (*Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("ufobrain", flag.ContinueOnError)
	fs.StringVar(&cfg.Bus, "bus", cfg.Bus, "serial device path")
	fs.IntVar(&cfg.Baudrate, "baudrate", cfg.Baudrate, "serial baud rate")
	fs.StringVar(&cfg.HTTPAddr, "port", cfg.HTTPAddr, "control plane listen address")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "replay a canned event sequence instead of a real bus")
	fs.BoolVar(&cfg.Manual, "manual", cfg.Manual, "start under manual control, no algorithm")
	fs.DurationVar(&cfg.NoLineDebounce, "no-line-debounce", cfg.NoLineDebounce, "delay before recalculating after NO_LINE_FOUND")
	fs.StringVar(&cfg.GraphFile, "graph", cfg.GraphFile, "optional path to a persisted network topology JSON file")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "optional YAML file overlaying these flags")
	fs.BoolVar(&cfg.Vision, "vision", cfg.Vision, "enable the vision graph updater and POST /vision/frame")
	fs.Float64Var(&cfg.CameraOriginX, "camera-origin-x", cfg.CameraOriginX, "graph-frame X of the camera's ground-projected optical center")
	fs.Float64Var(&cfg.CameraOriginY, "camera-origin-y", cfg.CameraOriginY, "graph-frame Y of the camera's ground-projected optical center")
	fs.Float64Var(&cfg.CameraMetersPerPixel, "camera-scale", cfg.CameraMetersPerPixel, "ground meters per pixel at the calibrated camera height")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := cfg.overlayYaml(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// fileConfig mirrors Config's fields for YAML overlay, using mapstructure
// tags so viper can decode directly into it. Only fields present in the
// file are applied - zero-value fields are left at whatever the flags
// already set.
type fileConfig struct {
	Bus            string  `mapstructure:"bus" yaml:"bus"`
	Baudrate       int     `mapstructure:"baudrate" yaml:"baudrate"`
	HTTPAddr       string  `mapstructure:"httpAddr" yaml:"httpAddr"`
	Debug          *bool   `mapstructure:"debug" yaml:"debug"`
	Demo           *bool   `mapstructure:"demo" yaml:"demo"`
	Manual         *bool   `mapstructure:"manual" yaml:"manual"`
	NoLineDebounce string  `mapstructure:"noLineDebounce" yaml:"noLineDebounce"`
	GraphFile      string  `mapstructure:"graph" yaml:"graph"`
	Vision         *bool   `mapstructure:"vision" yaml:"vision"`
	CameraOriginX  float64 `mapstructure:"cameraOriginX" yaml:"cameraOriginX"`
	CameraOriginY  float64 `mapstructure:"cameraOriginY" yaml:"cameraOriginY"`
	CameraScale    float64 `mapstructure:"cameraScale" yaml:"cameraScale"`
}

// overlayYaml reads path as YAML and applies any fields it sets on top of
// cfg's current (flag-derived) values.
func (cfg *Config) overlayYaml(path string) error {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return err
	}

	raw := &fileConfig{}
	if err := vp.Unmarshal(raw); err != nil {
		return err
	}

	if raw.Bus != "" {
		cfg.Bus = raw.Bus
	}
	if raw.Baudrate != 0 {
		cfg.Baudrate = raw.Baudrate
	}
	if raw.HTTPAddr != "" {
		cfg.HTTPAddr = raw.HTTPAddr
	}
	if raw.Debug != nil {
		cfg.Debug = *raw.Debug
	}
	if raw.Demo != nil {
		cfg.Demo = *raw.Demo
	}
	if raw.Manual != nil {
		cfg.Manual = *raw.Manual
	}
	if raw.NoLineDebounce != "" {
		d, err := time.ParseDuration(raw.NoLineDebounce)
		if err != nil {
			return err
		}
		cfg.NoLineDebounce = d
	}
	if raw.GraphFile != "" {
		cfg.GraphFile = raw.GraphFile
	}
	if raw.Vision != nil {
		cfg.Vision = *raw.Vision
	}
	if raw.CameraOriginX != 0 {
		cfg.CameraOriginX = raw.CameraOriginX
	}
	if raw.CameraOriginY != 0 {
		cfg.CameraOriginY = raw.CameraOriginY
	}
	if raw.CameraScale != 0 {
		cfg.CameraMetersPerPixel = raw.CameraScale
	}

	return nil
}

// WriteExampleOverlay writes the current config as a YAML overlay file at
// path, seeding an operator's --config file with the running values.
func (cfg *Config) WriteExampleOverlay(path string) error {
	debug, demo, manual, vision := cfg.Debug, cfg.Demo, cfg.Manual, cfg.Vision
	out := fileConfig{
		Bus:            cfg.Bus,
		Baudrate:       cfg.Baudrate,
		HTTPAddr:       cfg.HTTPAddr,
		Debug:          &debug,
		Demo:           &demo,
		Manual:         &manual,
		NoLineDebounce: cfg.NoLineDebounce.String(),
		GraphFile:      cfg.GraphFile,
		Vision:         &vision,
		CameraOriginX:  cfg.CameraOriginX,
		CameraOriginY:  cfg.CameraOriginY,
		CameraScale:    cfg.CameraMetersPerPixel,
	}

	spec, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, spec, 0o644)
}
