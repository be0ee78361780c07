package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/resultfs/internal/util"
)

// Verbosity levels as accepted on the command line and in config files.
// 1 is the quietest (errors only), 5 the loudest (trace).
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "resultfs"
	DefaultName   = "resultfs"
	DefaultLogLvl = util.InfoLevel

	DefaultServerHost = "localhost"
	DefaultServerPort = 8080

	// DefaultWindowsDrive is the mount point used on Windows
	DefaultWindowsDrive = "Q:"

	// DefaultCapacityGB is the capacity reported by statfs
	DefaultCapacityGB = 1

	// DefaultReconnectInterval is the wait between result channel reconnect attempts
	DefaultReconnectInterval = 5 * time.Second

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO bypasses the page cache so remote files are not
	// clipped to their placeholder size
	DefaultDirectIO = true
)

// Config contains runtime configuration values for the result filesystem.
type Config struct {
	MountOptions
	LogLvl util.LogLevel

	// Host of the database front end (Default localhost)
	ServerHost string `validate:"required"`
	// Port of the database front end (Default 8080)
	ServerPort int `validate:"min=1,max=65535"`
	// Where to mount (Default platform specific, see [DefaultMountPoint])
	MountPoint string `validate:"required"`
	// Capacity in GB reported to the OS through statfs (Default 1)
	CapacityGB uint64 `validate:"min=1"`
	// Listen address for /metrics; empty disables metrics (Default "")
	MetricsAddr string `validate:"omitempty,hostname_port"`

	ReconnectInterval time.Duration `validate:"gt=0"` // Wait between result channel reconnects (Default 5s)

	// NOTE: Low-level FUSE config (strongly recommend defaults unless you really know what you're doing):

	AttrTimeout  float64 `validate:"gte=0"` // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 `validate:"gte=0"` // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass page cache (Default true)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	FsName            *string  `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name              *string  `yaml:"name,omitempty" json:"name,omitempty"`
	Debug             *bool    `yaml:"debug,omitempty" json:"debug,omitempty"`
	LogLvl            *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"` // 1 (error) to 5 (trace)
	ServerHost        *string  `yaml:"server_host,omitempty" json:"server_host,omitempty"`
	ServerPort        *int     `yaml:"server_port,omitempty" json:"server_port,omitempty"`
	MountPoint        *string  `yaml:"mount_point,omitempty" json:"mount_point,omitempty"`
	CapacityGB        *uint64  `yaml:"capacity_gb,omitempty" json:"capacity_gb,omitempty"`
	MetricsAddr       *string  `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
	ReconnectInterval *int     `yaml:"reconnect_interval,omitempty" json:"reconnect_interval,omitempty"` // seconds
	AttrTimeout       *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout      *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	DirectIO          *bool    `yaml:"direct_io,omitempty" json:"direct_io,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:            DefaultLogLvl,
		ServerHost:        DefaultServerHost,
		ServerPort:        DefaultServerPort,
		MountPoint:        DefaultMountPoint(),
		CapacityGB:        DefaultCapacityGB,
		ReconnectInterval: DefaultReconnectInterval,
		AttrTimeout:       DefaultAttrTimeout,
		EntryTimeout:      DefaultEntryTimeout,
		DirectIO:          DefaultDirectIO,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLevel(*override.LogLvl)
	}
	if override.ServerHost != nil {
		c.ServerHost = *override.ServerHost
	}
	if override.ServerPort != nil {
		c.ServerPort = *override.ServerPort
	}
	if override.MountPoint != nil {
		c.MountPoint = *override.MountPoint
	}
	if override.CapacityGB != nil {
		c.CapacityGB = *override.CapacityGB
	}
	if override.MetricsAddr != nil {
		c.MetricsAddr = *override.MetricsAddr
	}
	if override.ReconnectInterval != nil {
		c.ReconnectInterval = time.Duration(*override.ReconnectInterval) * time.Second
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.DirectIO != nil {
		c.DirectIO = *override.DirectIO
	}
}

// VerboseToLogLevel maps a 1 (error) to 5 (trace) verbosity onto a
// [util.LogLevel]. Out of range values are clamped.
func VerboseToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(TraceVerbose, verbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) hostPort() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// FileURL returns the URL under which the front end serves a stored file
func (c *Config) FileURL(name string) string {
	u := url.URL{Scheme: "http", Host: c.hostPort(), Path: "/" + strings.TrimLeft(name, "/")}
	return u.String()
}

// WebSocketURL returns the URL of the result channel
func (c *Config) WebSocketURL() string {
	u := url.URL{Scheme: "ws", Host: c.hostPort(), Path: "/webSocket"}
	return u.String()
}

// RestURL returns the URL of a REST endpoint of the front end
func (c *Config) RestURL(endpoint string) string {
	u := url.URL{Scheme: "http", Host: c.hostPort(), Path: "/" + strings.TrimLeft(endpoint, "/")}
	return u.String()
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults
// and validates the result.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
