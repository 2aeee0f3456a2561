// Package config assembles the kiosk configuration from defaults, POSTERPOINT_*
// environment variables, command-line flags and an optional JSON tuning file.
//
// Precedence, lowest first: defaults, environment, tuning file, flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayusman/posterpoint/internal/capture"
	"github.com/ayusman/posterpoint/internal/detector"
	"github.com/ayusman/posterpoint/internal/marker"
	"github.com/ayusman/posterpoint/internal/pointing"
	"github.com/ayusman/posterpoint/internal/skin"
	"github.com/ayusman/posterpoint/internal/zone"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POSTERPOINT_"

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultMotionThreshold = 1.0
	DefaultPluginTimeout   = 5 * time.Second
	// AutoCamera lets the camera probe every device.
	AutoCamera = -1
)

// Config is the complete runtime configuration.
type Config struct {
	Addr       string
	DataDir    string
	PluginDir  string
	WebDir     string
	ZonesFile  string
	TuningFile string

	// Camera is the preferred device id, or AutoCamera.
	Camera          int
	FPS             int
	MotionThreshold float64

	Strategy      string
	Mapping       string
	Dwell         time.Duration
	FallbackAfter int
	MinMarkerSize float64

	PluginTimeout time.Duration

	// MockDetector skips the MediaPipe service.
	MockDetector bool
	Tray         bool
	Debug        bool

	Corners marker.CornerSpec
	Skin    skin.Config
	Hand    detector.Config
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	opts := pointing.DefaultOptions()
	return Config{
		Addr:            DefaultAddr,
		DataDir:         defaultDataDir(),
		Camera:          AutoCamera,
		FPS:             capture.DefaultFPS,
		MotionThreshold: DefaultMotionThreshold,
		Strategy:        string(opts.Strategy),
		Mapping:         string(opts.Mapping),
		Dwell:           opts.Dwell,
		FallbackAfter:   opts.FallbackAfter,
		MinMarkerSize:   opts.MinMarkerSize,
		PluginTimeout:   DefaultPluginTimeout,
		Corners:         opts.Corners,
		Skin:            skin.DefaultConfig(),
		Hand:            detector.DefaultConfig(),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".posterpoint"
	}
	return filepath.Join(home, ".posterpoint")
}

// Load builds a Config from the environment and command-line arguments
// (without the program name).
func Load(args []string) (Config, error) {
	cfg := Default()
	cfg.applyEnv()

	fs := flag.NewFlagSet("posterpoint", flag.ContinueOnError)
	cfg.register(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.TuningFile != "" {
		t, err := ReadTuning(cfg.TuningFile)
		if err != nil {
			return Config{}, err
		}
		explicit := make(map[string]bool)
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		cfg.applyTuning(t, explicit)
	}

	if cfg.PluginDir == "" {
		cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) register(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory for the database and plugins")
	fs.StringVar(&c.PluginDir, "plugins", c.PluginDir, "plugin directory (default <data-dir>/plugins)")
	fs.StringVar(&c.WebDir, "web", c.WebDir, "static kiosk UI directory")
	fs.StringVar(&c.ZonesFile, "zones", c.ZonesFile, "JSON zone file (default poster zones)")
	fs.StringVar(&c.TuningFile, "tuning", c.TuningFile, "JSON tuning file")
	fs.IntVar(&c.Camera, "camera", c.Camera, "preferred camera device id (-1 probes all)")
	fs.IntVar(&c.FPS, "fps", c.FPS, "idle capture rate")
	fs.Float64Var(&c.MotionThreshold, "motion-threshold", c.MotionThreshold, "percent of changed pixels counted as motion")
	fs.StringVar(&c.Strategy, "strategy", c.Strategy, "primary, primary-with-fallback or fallback")
	fs.StringVar(&c.Mapping, "mapping", c.Mapping, "frame or poster")
	fs.DurationVar(&c.Dwell, "dwell", c.Dwell, "time a zone must be pointed at before it is confirmed")
	fs.IntVar(&c.FallbackAfter, "fallback-after", c.FallbackAfter, "primary misses before the skin fallback takes over")
	fs.Float64Var(&c.MinMarkerSize, "min-marker-size", c.MinMarkerSize, "average marker side in pixels below which the poster is too far")
	fs.DurationVar(&c.PluginTimeout, "plugin-timeout", c.PluginTimeout, "timeout for each confirmation plugin")
	fs.BoolVar(&c.MockDetector, "mock-detector", c.MockDetector, "do not start the MediaPipe hand service")
	fs.BoolVar(&c.Tray, "tray", c.Tray, "show the system tray menu")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "log marker detections every frame")
}

func (c *Config) applyEnv() {
	c.Addr = envString("ADDR", c.Addr)
	c.DataDir = envString("DATA_DIR", c.DataDir)
	c.PluginDir = envString("PLUGIN_DIR", c.PluginDir)
	c.WebDir = envString("WEB_DIR", c.WebDir)
	c.ZonesFile = envString("ZONES", c.ZonesFile)
	c.TuningFile = envString("TUNING", c.TuningFile)
	c.Camera = envInt("CAMERA", c.Camera)
	c.FPS = envInt("FPS", c.FPS)
	c.MotionThreshold = envFloat("MOTION_THRESHOLD", c.MotionThreshold)
	c.Strategy = envString("STRATEGY", c.Strategy)
	c.Mapping = envString("MAPPING", c.Mapping)
	c.Dwell = envDuration("DWELL", c.Dwell)
	c.FallbackAfter = envInt("FALLBACK_AFTER", c.FallbackAfter)
	c.MinMarkerSize = envFloat("MIN_MARKER_SIZE", c.MinMarkerSize)
	c.PluginTimeout = envDuration("PLUGIN_TIMEOUT", c.PluginTimeout)
	c.MockDetector = envBool("MOCK_DETECTOR", c.MockDetector)
	c.Tray = envBool("TRAY", c.Tray)
	c.Debug = envBool("DEBUG", c.Debug)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := pointing.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if _, err := pointing.ParseMapping(c.Mapping); err != nil {
		return err
	}
	if c.Dwell < 0 {
		return fmt.Errorf("dwell must not be negative, got %s", c.Dwell)
	}
	if c.FallbackAfter < 0 {
		return fmt.Errorf("fallback-after must not be negative, got %d", c.FallbackAfter)
	}
	if c.MinMarkerSize < 0 {
		return fmt.Errorf("min-marker-size must not be negative, got %g", c.MinMarkerSize)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.PluginTimeout <= 0 {
		return fmt.Errorf("plugin-timeout must be positive, got %s", c.PluginTimeout)
	}
	return validateCorners(c.Corners)
}

func validateCorners(spec marker.CornerSpec) error {
	if len(spec.Corners) != 4 {
		return fmt.Errorf("corners: need 4 markers, got %d", len(spec.Corners))
	}
	if spec.Buffer <= 0 {
		return errors.New("corners: buffer must be positive")
	}
	var slots [4]bool
	for id, c := range spec.Corners {
		if c.Slot < marker.TopLeft || c.Slot > marker.BottomLeft {
			return fmt.Errorf("corners: marker %d has invalid slot %d", id, c.Slot)
		}
		if slots[c.Slot] {
			return fmt.Errorf("corners: slot %d used twice", c.Slot)
		}
		slots[c.Slot] = true
		if c.Inner < 0 || c.Inner > 3 {
			return fmt.Errorf("corners: marker %d has invalid inner corner %d", id, c.Inner)
		}
	}
	return nil
}

// DBPath is the SQLite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "posterpoint.db")
}

// PointingOptions converts the configuration for the pointing detector.
func (c Config) PointingOptions() (pointing.Options, error) {
	strategy, err := pointing.ParseStrategy(c.Strategy)
	if err != nil {
		return pointing.Options{}, err
	}
	mapping, err := pointing.ParseMapping(c.Mapping)
	if err != nil {
		return pointing.Options{}, err
	}
	interval := pointing.DefaultFrameInterval
	if c.FPS > 0 {
		interval = time.Second / time.Duration(c.FPS)
	}
	return pointing.Options{
		Strategy:      strategy,
		FallbackAfter: c.FallbackAfter,
		Dwell:         c.Dwell,
		Mapping:       mapping,
		Corners:       c.Corners,
		MinMarkerSize: c.MinMarkerSize,
		FrameInterval: interval,
		Debug:         c.Debug,
	}, nil
}

// Zones loads the zone file, or the poster defaults when none is set.
func (c Config) Zones() (*zone.Set, error) {
	if c.ZonesFile == "" {
		return zone.Default(), nil
	}
	return zone.Load(c.ZonesFile)
}

func envString(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Ignoring %s%s=%q: %v", EnvPrefix, key, v, err)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Ignoring %s%s=%q: %v", EnvPrefix, key, v, err)
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Ignoring %s%s=%q: %v", EnvPrefix, key, v, err)
		return def
	}
	return b
}

// envDuration accepts Go durations ("1.5s") or bare milliseconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("Ignoring %s%s=%q: not a duration", EnvPrefix, key, v)
	return def
}
