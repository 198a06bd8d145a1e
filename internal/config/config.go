package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/shark-globe/internal/viz"
)

// Config holds the full application configuration.
type Config struct {
	Datasets []DatasetConfig `yaml:"datasets" mapstructure:"datasets"`
	Layers   []LayerConfig   `yaml:"layers" mapstructure:"layers"`
	Globe    GlobeConfig     `yaml:"globe" mapstructure:"globe"`
	Timeline TimelineConfig  `yaml:"timeline" mapstructure:"timeline"`
	Ingest   IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Sink     SinkConfig      `yaml:"sink" mapstructure:"sink"`
	Emit     EmitConfig      `yaml:"emit" mapstructure:"emit"`
	Log      LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatasetConfig is one occurrence export and how its points look.
type DatasetConfig struct {
	Name   string  `yaml:"name" mapstructure:"name"`
	Path   string  `yaml:"path" mapstructure:"path"`
	Color  string  `yaml:"color" mapstructure:"color"`
	Radius float64 `yaml:"radius" mapstructure:"radius"`
}

// LayerConfig is one background shapefile drawn as outlines.
type LayerConfig struct {
	Name   string  `yaml:"name" mapstructure:"name"`
	Path   string  `yaml:"path" mapstructure:"path"`
	Color  string  `yaml:"color" mapstructure:"color"`
	Radius float64 `yaml:"radius" mapstructure:"radius"`
}

// GlobeConfig sizes the sphere and the layer outline subdivision.
type GlobeConfig struct {
	Radius               float64 `yaml:"radius" mapstructure:"radius"`
	PointAltitudeFactor  float64 `yaml:"point_altitude_factor" mapstructure:"point_altitude_factor"`
	MaxSubdivisionLength float64 `yaml:"max_subdivision_length" mapstructure:"max_subdivision_length"`
	SubdivisionDepth     int     `yaml:"subdivision_depth" mapstructure:"subdivision_depth"`
}

// TimelineConfig names the shared timeline.
type TimelineConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// IngestConfig configures the delimited-text reader.
type IngestConfig struct {
	Delimiter         string `yaml:"delimiter" mapstructure:"delimiter"`
	InferSchemaLength int    `yaml:"infer_schema_length" mapstructure:"infer_schema_length"`
	// StrictQuotes rejects bare quotes inside unquoted fields.
	StrictQuotes bool   `yaml:"strict_quotes" mapstructure:"strict_quotes"`
	Encoding     string `yaml:"encoding" mapstructure:"encoding"`
	// ArchiveMember is the file read from .zip dataset paths.
	ArchiveMember string `yaml:"archive_member" mapstructure:"archive_member"`
}

// DelimiterRune returns the configured field separator. "tab" and a literal
// backslash-t both mean '\t'.
func (c IngestConfig) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "", `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError || size != len(c.Delimiter) || r == '"' || r == '\r' || r == '\n' {
		return 0, eris.Errorf("config: invalid ingest.delimiter %q", c.Delimiter)
	}
	return r, nil
}

// SinkConfig configures the visualization sink.
type SinkConfig struct {
	Driver           string  `yaml:"driver" mapstructure:"driver"`
	URL              string  `yaml:"url" mapstructure:"url"`
	Path             string  `yaml:"path" mapstructure:"path"`
	ApplicationID    string  `yaml:"application_id" mapstructure:"application_id"`
	OnError          string  `yaml:"on_error" mapstructure:"on_error"`
	MaxRate          float64 `yaml:"max_rate" mapstructure:"max_rate"`
	DialTimeoutSecs  int     `yaml:"dial_timeout_secs" mapstructure:"dial_timeout_secs"`
	WriteTimeoutSecs int     `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// Per-record sink failure policies.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// EmitConfig configures emission.
type EmitConfig struct {
	SkipUnknownTime bool `yaml:"skip_unknown_time" mapstructure:"skip_unknown_time"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Log output formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Load reads sharkglobe.yaml from the working directory, if present, and the
// environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory instead; an explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sharkglobe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("SHARKGLOBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("datasets", []map[string]any{
		{"name": "tigershark", "path": "tigershark/occurrence.txt", "color": "FF0000FF", "radius": 100_000},
		{"name": "greatwhiteshark", "path": "greatwhiteshark/occurrence.txt", "color": "FFFFFFFF", "radius": 100_000},
	})
	v.SetDefault("layers", []map[string]any{
		{"name": "land", "path": "ne_110m_land/ne_110m_land.shp", "color": "00FF00FF", "radius": 1_000},
		{"name": "ocean", "path": "ne_110m_ocean/ne_110m_ocean.shp", "color": "0000FFFF", "radius": 1_000},
	})
	v.SetDefault("globe.radius", 6_371_000.0)
	v.SetDefault("globe.point_altitude_factor", 1.02)
	v.SetDefault("globe.max_subdivision_length", 100_000.0)
	v.SetDefault("globe.subdivision_depth", 2)
	v.SetDefault("timeline.name", "Shark Sightings")
	v.SetDefault("ingest.delimiter", "\t")
	v.SetDefault("ingest.infer_schema_length", 100_000)
	v.SetDefault("ingest.strict_quotes", false)
	v.SetDefault("ingest.archive_member", "occurrence.txt")
	v.SetDefault("ingest.encoding", "utf-8")
	v.SetDefault("sink.driver", viz.DriverWebsocket)
	v.SetDefault("sink.url", "ws://127.0.0.1:9877/ws")
	v.SetDefault("sink.path", "recording.db")
	v.SetDefault("sink.application_id", "earth_example")
	v.SetDefault("sink.on_error", OnErrorAbort)
	v.SetDefault("sink.max_rate", 0.0)
	v.SetDefault("sink.dial_timeout_secs", 10)
	v.SetDefault("sink.write_timeout_secs", 10)
	v.SetDefault("emit.skip_unknown_time", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration a run depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Datasets) == 0 {
		add("datasets: at least one dataset is required")
	}
	seen := make(map[string]bool)
	for i, d := range c.Datasets {
		if d.Name == "" {
			add("datasets[%d].name is required", i)
		} else if seen[d.Name] {
			add("datasets[%d].name %q is duplicated", i, d.Name)
		}
		seen[d.Name] = true
		if d.Path == "" {
			add("datasets[%d].path is required", i)
		}
		if _, err := viz.ParseColor(d.Color); err != nil {
			add("datasets[%d].color %q is not a hex color", i, d.Color)
		}
		if d.Radius <= 0 {
			add("datasets[%d].radius must be positive", i)
		}
	}
	for i, l := range c.Layers {
		if l.Name == "" {
			add("layers[%d].name is required", i)
		}
		if l.Path == "" {
			add("layers[%d].path is required", i)
		}
		if _, err := viz.ParseColor(l.Color); err != nil {
			add("layers[%d].color %q is not a hex color", i, l.Color)
		}
	}

	if c.Globe.Radius <= 0 {
		add("globe.radius must be positive")
	}
	if c.Globe.PointAltitudeFactor <= 0 {
		add("globe.point_altitude_factor must be positive")
	}
	if c.Globe.SubdivisionDepth < 0 {
		add("globe.subdivision_depth must not be negative")
	}
	if c.Timeline.Name == "" {
		add("timeline.name is required")
	}
	if _, err := c.Ingest.DelimiterRune(); err != nil {
		add("ingest.delimiter %q must be a single character", c.Ingest.Delimiter)
	}

	switch c.Sink.Driver {
	case viz.DriverWebsocket:
		if c.Sink.URL == "" {
			add("sink.url is required for the websocket driver")
		}
	case viz.DriverSQLite:
		if c.Sink.Path == "" {
			add("sink.path is required for the sqlite driver")
		}
	case viz.DriverMemory:
	default:
		add("sink.driver %q is not one of websocket, sqlite, memory", c.Sink.Driver)
	}
	if c.Sink.OnError != OnErrorAbort && c.Sink.OnError != OnErrorSkip {
		add("sink.on_error %q is not one of abort, skip", c.Sink.OnError)
	}
	if c.Sink.MaxRate < 0 {
		add("sink.max_rate must not be negative")
	}
	if c.Sink.DialTimeoutSecs < 0 || c.Sink.WriteTimeoutSecs < 0 {
		add("sink timeouts must not be negative")
	}
	switch c.Log.Format {
	case "", LogFormatJSON, LogFormatConsole:
	default:
		add("log.format %q is not one of json, console", c.Log.Format)
	}

	if err := errors.Join(errs...); err != nil {
		return eris.Wrap(err, "config: invalid")
	}
	return nil
}

// InitLogger installs the global zap logger. Logs always go to stderr so
// stdout stays clean for the run report and the config dump.
func InitLogger(cfg LogConfig) error {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return eris.Wrapf(err, "config: invalid log.level %q", cfg.Level)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "", LogFormatJSON:
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		// Per-record sink errors can repeat thousands of times.
		zapCfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	case LogFormatConsole:
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.DisableStacktrace = true
	default:
		return eris.Errorf("config: invalid log.format %q", cfg.Format)
	}
	zapCfg.Level = level
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.InitialFields = map[string]any{"app": "shark-globe"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
