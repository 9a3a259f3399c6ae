package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// ActivityDef names one recorded activity and, optionally, its trace file.
// An empty Path means the path is asked for interactively.
type ActivityDef struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// LoaderConfig controls how capture files are decoded.
type LoaderConfig struct {
	IPv6       bool `yaml:"ipv6"`
	MaxPackets int  `yaml:"max_packets"`
}

// MetricsConfig selects the extraction tasks and their parameters.
type MetricsConfig struct {
	Tasks       []string `yaml:"tasks"`
	BucketWidth string   `yaml:"bucket_width"`
	TopFlows    int      `yaml:"top_flows"`
}

// RenderConfig holds the figure layout.
type RenderConfig struct {
	Enabled          bool    `yaml:"enabled"`
	Output           string  `yaml:"output"`
	PanelWidth       int     `yaml:"panel_width"`
	PanelHeight      int     `yaml:"panel_height"`
	InterArrivalClip float64 `yaml:"inter_arrival_clip"`
	HistogramBins    int     `yaml:"histogram_bins"`
	SizeMax          int     `yaml:"size_max"`
}

// CSVConfig configures the flat summary table.
type CSVConfig struct {
	Path string `yaml:"path"`
}

// ClickHouseConfig holds the connection details for the ClickHouse writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// NATSConfig holds the connection details for the NATS writer.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WriterDef defines one summary writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	CSV        CSVConfig        `yaml:"csv"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
}

// SummaryConfig controls the summary table outputs.
type SummaryConfig struct {
	Print   bool        `yaml:"print"`
	Writers []WriterDef `yaml:"writers"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Activities []ActivityDef `yaml:"activities"`
	Loader     LoaderConfig  `yaml:"loader"`
	Metrics    MetricsConfig `yaml:"metrics"`
	Render     RenderConfig  `yaml:"render"`
	Summary    SummaryConfig `yaml:"summary"`
	Log        LogConfig     `yaml:"log"`
}

// DefaultActivities are the recorded activities compared when none are configured.
var DefaultActivities = []string{
	"Browsing Session 1",
	"Browsing Session 2",
	"Music Streaming",
	"HD Video Streaming",
	"Conference Call",
}

// DefaultConfig returns a configuration that runs every task, renders the
// figure and writes results.csv.
func DefaultConfig() *Config {
	activities := make([]ActivityDef, len(DefaultActivities))
	for i, name := range DefaultActivities {
		activities[i] = ActivityDef{Name: name}
	}
	return &Config{
		Activities: activities,
		Metrics: MetricsConfig{
			Tasks:       []string{"bucket", "exact", "size"},
			BucketWidth: "1s",
			TopFlows:    5,
		},
		Render: RenderConfig{
			Enabled:          true,
			Output:           "activity_figure.png",
			PanelWidth:       800,
			PanelHeight:      480,
			InterArrivalClip: 0.1,
			HistogramBins:    50,
			SizeMax:          5000,
		},
		Summary: SummaryConfig{
			Print: true,
			Writers: []WriterDef{
				{Type: "csv", Enabled: true, CSV: CSVConfig{Path: "results.csv"}},
			},
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig reads the configuration from a YAML file on top of DefaultConfig
// and validates it.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ActivityNames returns the configured activity names in order.
func (c *Config) ActivityNames() []string {
	names := make([]string, len(c.Activities))
	for i, a := range c.Activities {
		names[i] = a.Name
	}
	return names
}

// ActivityPaths returns the non-empty configured paths keyed by activity name.
func (c *Config) ActivityPaths() map[string]string {
	paths := make(map[string]string)
	for _, a := range c.Activities {
		if a.Path != "" {
			paths[a.Name] = a.Path
		}
	}
	return paths
}

// BucketWidthDuration returns the parsed metrics bucket width.
func (m MetricsConfig) BucketWidthDuration() (time.Duration, error) {
	d, err := time.ParseDuration(m.BucketWidth)
	if err != nil {
		return 0, fmt.Errorf("%w: bucket_width %q: %v", ErrInvalidConfig, m.BucketWidth, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: bucket_width must be a positive duration", ErrInvalidConfig)
	}
	return d, nil
}

// HasTask reports whether name is listed in metrics.tasks.
func (m MetricsConfig) HasTask(name string) bool {
	for _, t := range m.Tasks {
		if t == name {
			return true
		}
	}
	return false
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Activities) == 0 {
		return fmt.Errorf("%w: no activities configured", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Activities))
	for _, a := range c.Activities {
		if a.Name == "" {
			return fmt.Errorf("%w: activity with empty name", ErrInvalidConfig)
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("%w: duplicate activity %q", ErrInvalidConfig, a.Name)
		}
		seen[a.Name] = struct{}{}
	}

	if c.Loader.MaxPackets < 0 {
		return fmt.Errorf("%w: loader.max_packets must not be negative", ErrInvalidConfig)
	}
	if len(c.Metrics.Tasks) == 0 {
		return fmt.Errorf("%w: metrics.tasks is empty", ErrInvalidConfig)
	}
	if _, err := c.Metrics.BucketWidthDuration(); err != nil {
		return err
	}
	if c.Metrics.TopFlows < 0 {
		return fmt.Errorf("%w: metrics.top_flows must not be negative", ErrInvalidConfig)
	}

	if c.Render.Enabled {
		r := c.Render
		if r.Output == "" {
			return fmt.Errorf("%w: render.output is empty", ErrInvalidConfig)
		}
		if r.PanelWidth <= 0 || r.PanelHeight <= 0 {
			return fmt.Errorf("%w: render panel size must be positive", ErrInvalidConfig)
		}
		if r.InterArrivalClip <= 0 || r.HistogramBins <= 0 || r.SizeMax <= 0 {
			return fmt.Errorf("%w: render histogram ranges must be positive", ErrInvalidConfig)
		}
	}

	writersEnabled := false
	for _, w := range c.Summary.Writers {
		if w.Type == "" {
			return fmt.Errorf("%w: summary writer without type", ErrInvalidConfig)
		}
		writersEnabled = writersEnabled || w.Enabled
	}

	// The summary table and the bar panels come from the exact task, the
	// time-series panels from the bucket task.
	if (c.Summary.Print || writersEnabled || c.Render.Enabled) && !c.Metrics.HasTask("exact") {
		return fmt.Errorf("%w: metrics.tasks must include \"exact\" when a summary or figure is produced", ErrInvalidConfig)
	}
	if c.Render.Enabled && !c.Metrics.HasTask("bucket") {
		return fmt.Errorf("%w: metrics.tasks must include \"bucket\" when rendering is enabled", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
