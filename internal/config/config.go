package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "reactive.json"

	// DefaultPort is the default devtools server port.
	DefaultPort = 7331

	// DefaultHost is the default devtools server host.
	DefaultHost = "localhost"

	// DefaultMaxEffectRunsPerFlush mirrors the engine default.
	DefaultMaxEffectRunsPerFlush = 100000

	// DefaultNamespace is the Prometheus namespace for engine metrics.
	DefaultNamespace = "reactive"

	// DefaultTracerName is the OpenTelemetry instrumentation name.
	DefaultTracerName = "github.com/vango-dev/reactive"
)

// FileNames lists the configuration file names in lookup order.
var FileNames = []string{ConfigFileName, "reactive.yaml", "reactive.yml"}

// Config represents the complete reactive.json configuration.
type Config struct {
	// Engine contains reactive engine settings.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Log contains logger settings.
	Log LogConfig `json:"log" yaml:"log"`

	// Devtools contains devtools server settings.
	Devtools DevtoolsConfig `json:"devtools" yaml:"devtools"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Recording contains trace recording settings.
	Recording RecordingConfig `json:"recording" yaml:"recording"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// EngineConfig contains the settings pushed into the engine by Apply.
type EngineConfig struct {
	// DevMode turns stale access and misplaced OnCleanup into panics.
	DevMode bool `json:"devMode,omitempty" yaml:"devMode,omitempty"`

	// DebugMode logs transaction boundaries.
	DebugMode bool `json:"debugMode,omitempty" yaml:"debugMode,omitempty"`

	// MaxEffectRunsPerFlush bounds effect runs per flush.
	// Zero selects the default, a negative value disables the bound.
	MaxEffectRunsPerFlush int `json:"maxEffectRunsPerFlush,omitempty" yaml:"maxEffectRunsPerFlush,omitempty"`

	// StrictEffects is "off", "warn" or "panic".
	StrictEffects string `json:"strictEffects,omitempty" yaml:"strictEffects,omitempty"`

	// LogEffectRuns logs every effect run with its duration.
	LogEffectRuns bool `json:"logEffectRuns,omitempty" yaml:"logEffectRuns,omitempty"`

	// LogStaleAccess logs ignored stale reads and writes.
	LogStaleAccess bool `json:"logStaleAccess,omitempty" yaml:"logStaleAccess,omitempty"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// DevtoolsConfig contains devtools server settings.
type DevtoolsConfig struct {
	Host        string `json:"host,omitempty" yaml:"host,omitempty"`
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	MetricsPath string `json:"metricsPath,omitempty" yaml:"metricsPath,omitempty"`
	WSPath      string `json:"wsPath,omitempty" yaml:"wsPath,omitempty"`

	// Record is a file path or s3:// URL that receives the event stream.
	Record string `json:"record,omitempty" yaml:"record,omitempty"`
}

// MetricsConfig contains Prometheus naming.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Subsystem string `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// RecordingConfig contains the S3 destination used for s3:// recordings.
type RecordingConfig struct {
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint selects an S3-compatible service instead of AWS.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for reactive.json, then reactive.yaml and reactive.yml.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E120").
		WithDetail("No " + ConfigFileName + " found in " + dir)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension: .yaml and .yml are YAML, everything else is JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E120").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E121").Wrap(err)
	}

	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		if re, ok := err.(*errors.ReactiveError); ok && re.Location == nil {
			re.WithLocation(path, 0, 0)
		}
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes a configuration document and applies defaults.
func Parse(data []byte, asYAML bool) (*Config, error) {
	cfg := &Config{}
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		format := "JSON"
		if asYAML {
			format = "YAML"
		}
		return nil, errors.New("E121").
			WithDetail("Failed to parse configuration: " + err.Error()).
			WithSuggestion("Check that the file is valid " + format)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, encoded by the
// path's extension.
func (c *Config) SaveTo(path string) error {
	data, err := c.Marshal(isYAML(path))
	if err != nil {
		return errors.New("E124").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E124").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Marshal encodes the configuration as indented JSON or YAML.
func (c *Config) Marshal(asYAML bool) ([]byte, error) {
	if asYAML {
		return yaml.Marshal(c)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Engine
	if c.Engine.MaxEffectRunsPerFlush == 0 {
		c.Engine.MaxEffectRunsPerFlush = DefaultMaxEffectRunsPerFlush
	}
	if c.Engine.StrictEffects == "" {
		c.Engine.StrictEffects = reactive.StrictEffectOff.String()
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Devtools
	if c.Devtools.Host == "" {
		c.Devtools.Host = DefaultHost
	}
	if c.Devtools.Port == 0 {
		c.Devtools.Port = DefaultPort
	}
	if c.Devtools.MetricsPath == "" {
		c.Devtools.MetricsPath = "/metrics"
	}
	if c.Devtools.WSPath == "" {
		c.Devtools.WSPath = "/ws"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Recording.Prefix == "" {
		c.Recording.Prefix = "traces/"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, ok := reactive.ParseStrictEffectMode(c.Engine.StrictEffects); !ok {
		return invalid("engine.strictEffects must be off, warn or panic, got " + strconv.Quote(c.Engine.StrictEffects))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be debug, info, warn or error, got " + strconv.Quote(c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got " + strconv.Quote(c.Log.Format))
	}
	if c.Devtools.Port < 0 || c.Devtools.Port > 65535 {
		return invalid("devtools.port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.Devtools.MetricsPath, "/") {
		return invalid("devtools.metricsPath must start with /")
	}
	if !strings.HasPrefix(c.Devtools.WSPath, "/") {
		return invalid("devtools.wsPath must start with /")
	}
	if c.Devtools.MetricsPath == c.Devtools.WSPath {
		return invalid("devtools.metricsPath and devtools.wsPath must differ")
	}
	if (strings.HasPrefix(c.Devtools.Record, "s3://") || c.Recording.Bucket != "") && c.Recording.Region == "" && c.Recording.Endpoint == "" {
		return invalid("recording.region is required for s3:// recordings")
	}
	return nil
}

func invalid(detail string) error {
	return errors.New("E122").WithDetail(detail)
}

// Apply pushes the engine section into the reactive package globals.
// Call it once at startup, before any graph is built.
func (c *Config) Apply() {
	e := c.Engine
	reactive.DevMode = e.DevMode
	reactive.DebugMode = e.DebugMode
	reactive.MaxEffectRunsPerFlush = e.MaxEffectRunsPerFlush
	if mode, ok := reactive.ParseStrictEffectMode(e.StrictEffects); ok {
		reactive.EffectStrictMode = mode
	}
	reactive.Debug.LogEffectRuns = e.LogEffectRuns
	reactive.Debug.LogStaleAccess = e.LogStaleAccess
}

// Equal reports whether two configurations hold the same settings,
// regardless of where they were loaded from.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	a, b := *c, *other
	a.configPath, b.configPath = "", ""
	return reflect.DeepEqual(a, b)
}

// DevtoolsAddress returns the listen address for the devtools server.
func (c *Config) DevtoolsAddress() string {
	return c.Devtools.Host + ":" + strconv.Itoa(c.Devtools.Port)
}

// DevtoolsURL returns the base URL of the devtools server.
func (c *Config) DevtoolsURL() string {
	return "http://" + c.DevtoolsAddress()
}

// RecordingDestination returns where an event stream named name should be
// recorded: devtools.record when set, else an object in recording.bucket,
// else "" for no recording.
func (c *Config) RecordingDestination(name string) string {
	if c.Devtools.Record != "" {
		return c.Devtools.Record
	}
	if c.Recording.Bucket != "" {
		return "s3://" + c.Recording.Bucket + "/" + name
	}
	return ""
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a configuration file, or an error if not
// found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E120").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest ancestor that has one. Without any file it returns defaults.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}

	return Load(root)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
