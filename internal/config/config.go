package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vango-dev/transit/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "transit.json"

	// EnvVar overrides Production when set to "production" or "development".
	EnvVar = "TRANSIT_ENV"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	DefaultTransitionPath = "/_transit"
	DefaultReloadPath     = "/_transit/dev"
	DefaultMetricsPath    = "/metrics"
	DefaultMaxRedirects   = 8
	DefaultPrefetchTTL    = 30 * time.Second
	DefaultNavTimeout     = 1500 * time.Millisecond
	DefaultDebounce       = 100 * time.Millisecond
)

// Duration is a time.Duration written as a Go duration string ("30s") in
// transit.json. Plain numbers are read as milliseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("duration must be a string or milliseconds: %s", data)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config represents transit.json.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Production disables dev-only behaviour: error messages are
	// sanitized and the dev version is omitted from snapshots.
	Production bool `json:"production,omitempty"`

	// Compress enables gzip/zstd response compression.
	Compress bool `json:"compress,omitempty"`

	Paths      PathsConfig      `json:"paths,omitempty"`
	Transition TransitionConfig `json:"transition,omitempty"`
	Dev        DevConfig        `json:"dev,omitempty"`
	Metrics    MetricsConfig    `json:"metrics,omitempty"`
	Tracing    TracingConfig    `json:"tracing,omitempty"`

	configPath string
}

// PathsConfig contains project directories, relative to transit.json.
type PathsConfig struct {
	// Routes is the route file tree.
	Routes string `json:"routes,omitempty"`

	// Generated receives compiled route sources (markdown pages).
	Generated string `json:"generated,omitempty"`

	// Public holds static files.
	Public string `json:"public,omitempty"`

	// Assets is the asset manifest, either a path or an s3://bucket/key URL.
	Assets string `json:"assets,omitempty"`

	// AssetPrefix is the URL prefix for fingerprinted assets.
	AssetPrefix string `json:"assetPrefix,omitempty"`
}

// TransitionConfig tunes the transition endpoint and client runtime.
type TransitionConfig struct {
	// Path is the NDJSON transition endpoint.
	Path string `json:"path,omitempty"`

	// MaxRedirects bounds redirect chains followed by the client.
	MaxRedirects int `json:"maxRedirects,omitempty"`

	// PrefetchTTL is how long a prefetched transition stays reusable.
	PrefetchTTL Duration `json:"prefetchTTL,omitempty"`

	// NavigationTimeout is how long the Navigation API adapter waits for
	// its navigate event before navigating manually.
	NavigationTimeout Duration `json:"navigationTimeout,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	Port int    `json:"port,omitempty"`
	Host string `json:"host,omitempty"`

	// Watch enables route tree watching with wholesale manifest swaps.
	Watch *bool `json:"watch,omitempty"`

	// Debounce coalesces bursts of file events into one rescan.
	Debounce Duration `json:"debounce,omitempty"`

	// ReloadPath is the websocket endpoint broadcasting dev versions.
	ReloadPath string `json:"reloadPath,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// TracingConfig controls OpenTelemetry spans around route requests.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	watch := true
	return &Config{
		Paths: PathsConfig{
			Routes:      "app/routes",
			Generated:   ".transit/gen",
			Public:      "public",
			AssetPrefix: "/assets/",
		},
		Transition: TransitionConfig{
			Path:              DefaultTransitionPath,
			MaxRedirects:      DefaultMaxRedirects,
			PrefetchTTL:       Duration(DefaultPrefetchTTL),
			NavigationTimeout: Duration(DefaultNavTimeout),
		},
		Dev: DevConfig{
			Port:       DefaultPort,
			Host:       DefaultHost,
			Watch:      &watch,
			Debounce:   Duration(DefaultDebounce),
			ReloadPath: DefaultReloadPath,
		},
		Metrics: MetricsConfig{Path: DefaultMetricsPath},
		Tracing: TracingConfig{TracerName: "transit"},
	}
}

// Load reads transit.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No transit.json found in " + filepath.Dir(path)).
				WithSuggestion("Create transit.json at the project root, or pass --dir")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse transit.json: " + err.Error()).
			WithSuggestion("Check that transit.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.applyEnv(os.Getenv(EnvVar))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
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
	d := New()

	if c.Paths.Routes == "" {
		c.Paths.Routes = d.Paths.Routes
	}
	if c.Paths.Generated == "" {
		c.Paths.Generated = d.Paths.Generated
	}
	if c.Paths.Public == "" {
		c.Paths.Public = d.Paths.Public
	}
	if c.Paths.AssetPrefix == "" {
		c.Paths.AssetPrefix = d.Paths.AssetPrefix
	}

	if c.Transition.Path == "" {
		c.Transition.Path = DefaultTransitionPath
	}
	if c.Transition.MaxRedirects == 0 {
		c.Transition.MaxRedirects = DefaultMaxRedirects
	}
	if c.Transition.PrefetchTTL == 0 {
		c.Transition.PrefetchTTL = Duration(DefaultPrefetchTTL)
	}
	if c.Transition.NavigationTimeout == 0 {
		c.Transition.NavigationTimeout = Duration(DefaultNavTimeout)
	}

	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Watch == nil {
		c.Dev.Watch = d.Dev.Watch
	}
	if c.Dev.Debounce == 0 {
		c.Dev.Debounce = Duration(DefaultDebounce)
	}
	if c.Dev.ReloadPath == "" {
		c.Dev.ReloadPath = DefaultReloadPath
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
}

func (c *Config) applyEnv(env string) {
	switch env {
	case "production", "prod":
		c.Production = true
	case "development", "dev":
		c.Production = false
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E121").
			WithDetail("dev.port must be between 0 and 65535")
	}
	if c.Transition.MaxRedirects < 0 {
		return errors.New("E121").
			WithDetail("transition.maxRedirects must not be negative")
	}
	if c.Transition.PrefetchTTL < 0 || c.Transition.NavigationTimeout < 0 || c.Dev.Debounce < 0 {
		return errors.New("E121").
			WithDetail("durations must not be negative")
	}
	for name, p := range map[string]string{
		"transition.path": c.Transition.Path,
		"dev.reloadPath":  c.Dev.ReloadPath,
		"metrics.path":    c.Metrics.Path,
	} {
		if p == "" || p[0] != '/' {
			return errors.New("E121").
				WithDetail(name + " must start with '/'")
		}
	}
	if c.Transition.Path == c.Metrics.Path && c.Metrics.Enabled {
		return errors.New("E121").
			WithDetail("transition.path and metrics.path must differ")
	}
	return nil
}

// WatchEnabled reports whether the route tree should be watched. Watching
// is always off in production.
func (c *Config) WatchEnabled() bool {
	return !c.Production && c.Dev.Watch != nil && *c.Dev.Watch
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// RoutesPath returns the absolute path to the routes directory.
func (c *Config) RoutesPath() string { return c.resolve(c.Paths.Routes) }

// GeneratedPath returns the absolute path to the generated sources directory.
func (c *Config) GeneratedPath() string { return c.resolve(c.Paths.Generated) }

// PublicPath returns the absolute path to the public directory.
func (c *Config) PublicPath() string { return c.resolve(c.Paths.Public) }

// AssetsPath returns where the asset manifest lives. S3 URLs and empty
// values are returned unchanged.
func (c *Config) AssetsPath() string {
	p := c.Paths.Assets
	if p == "" || IsS3URL(p) {
		return p
	}
	return c.resolve(p)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// IsS3URL reports whether p names an S3 object.
func IsS3URL(p string) bool {
	return len(p) > len("s3://") && p[:len("s3://")] == "s3://"
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing transit.json, or an error if not found.
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
			return "", errors.New("E141").
				WithDetail("No transit.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
