package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the alarm engine and its client.
type Config struct {
	// ServerAddress is the gRPC address of the engine.
	ServerAddress string `yaml:"server_addr"`
	// MetricsAddress is where /metrics is served. Empty disables it.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// StateFile is the JSON file holding last-known alarm states.
	StateFile string `yaml:"state_file"`
	// StateSaveDelay collects state changes into one write of StateFile.
	StateSaveDelay time.Duration `yaml:"state_save_delay"`
	// TreeFile is the YAML alarm tree configuration.
	TreeFile string `yaml:"tree_file"`
	// Timeout bounds RPC calls and file operations.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format,omitempty"`
	// Actions configures automated actions.
	Actions ActionsConfig `yaml:"actions"`
	// SMTP configures email delivery for mailto actions.
	SMTP SMTPConfig `yaml:"smtp"`
	// InfoPV configures info PV updates.
	InfoPV InfoPVConfig `yaml:"infopv"`
}

// ActionsConfig configures automated actions.
type ActionsConfig struct {
	// Followup lists detail prefixes of actions repeated when the alarm clears.
	Followup []string `yaml:"followup"`
	// Workers is the size of the shared action worker pool.
	Workers int `yaml:"workers"`
	// NotifyDisabled starts the engine with email suppressed.
	NotifyDisabled bool `yaml:"notify_disabled"`
	// CommandDirectory is the working directory of cmd actions.
	CommandDirectory string `yaml:"command_dir,omitempty"`
	// CommandTimeout kills cmd actions running longer.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// SMTPConfig configures the mail relay.
type SMTPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	From     string `yaml:"from,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	// Subject and Body override the notification templates.
	Subject string `yaml:"subject,omitempty"`
	Body    string `yaml:"body,omitempty"`
}

// InfoPVConfig configures info PV updates.
type InfoPVConfig struct {
	// GatewayURL receives PV writes over HTTP. Empty only logs them.
	GatewayURL string `yaml:"gateway_url,omitempty"`
	// GracePeriod is how long a failing write is retried.
	GracePeriod time.Duration `yaml:"grace_period"`
	// RetryInterval is the pause between retries.
	RetryInterval time.Duration `yaml:"retry_interval"`
	// MaxAlarms limits the alarms listed in a summary.
	MaxAlarms int `yaml:"max_alarms"`
	// Writers limits the PV writes running at once.
	Writers int `yaml:"writers"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-engine-settings.yaml"
	// DefaultStateFilename is the default filename for alarm states.
	DefaultStateFilename = "alarm-engine-state.json"
	// DefaultStateSaveDelay is the default delay before states are written.
	DefaultStateSaveDelay = 200 * time.Millisecond
	// DefaultTreeFilename is the default filename for the alarm tree.
	DefaultTreeFilename = "alarm-tree.yaml"
	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second
	// DefaultWorkers is the default action worker count.
	DefaultWorkers = 4
	// DefaultCommandTimeout is the default limit for cmd actions.
	DefaultCommandTimeout = time.Minute
	// DefaultSMTPPort is the default mail relay port.
	DefaultSMTPPort = 25
	// DefaultGracePeriod is the default info PV retry budget.
	DefaultGracePeriod = 10 * time.Second
	// DefaultRetryInterval is the default pause between info PV retries.
	DefaultRetryInterval = time.Second
	// DefaultMaxAlarms is the default summary length.
	DefaultMaxAlarms = 10
	// DefaultInfoPVWriters is the default number of concurrent PV writes.
	DefaultInfoPVWriters = 8
	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errNegativeWorkers is returned for a negative worker count.
	errNegativeWorkers = errors.New("actions.workers must not be negative")
)

// DefaultFollowup returns the follow-up prefixes used when none are set.
func DefaultFollowup() []string {
	return []string{"mailto:"}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if cfg.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics socket: %w", err)
		}
	}

	if cfg.InfoPV.GatewayURL != "" {
		if _, err := url.ParseRequestURI(cfg.InfoPV.GatewayURL); err != nil {
			return fmt.Errorf("invalid info PV gateway URI: %w", err)
		}
	}

	if cfg.Actions.Workers < 0 {
		return errNegativeWorkers
	}

	applyDefaults(cfg)

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if cfg.StateSaveDelay <= 0 {
		cfg.StateSaveDelay = DefaultStateSaveDelay
	}

	if cfg.TreeFile == "" {
		cfg.TreeFile = DefaultTreeFilename
	}

	if cfg.Actions.Followup == nil {
		cfg.Actions.Followup = DefaultFollowup()
	}

	if cfg.Actions.Workers == 0 {
		cfg.Actions.Workers = DefaultWorkers
	}

	if cfg.Actions.CommandTimeout <= 0 {
		cfg.Actions.CommandTimeout = DefaultCommandTimeout
	}

	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = DefaultSMTPPort
	}

	if cfg.InfoPV.GracePeriod <= 0 {
		cfg.InfoPV.GracePeriod = DefaultGracePeriod
	}

	if cfg.InfoPV.RetryInterval <= 0 {
		cfg.InfoPV.RetryInterval = DefaultRetryInterval
	}

	if cfg.InfoPV.MaxAlarms <= 0 {
		cfg.InfoPV.MaxAlarms = DefaultMaxAlarms
	}

	if cfg.InfoPV.Writers <= 0 {
		cfg.InfoPV.Writers = DefaultInfoPVWriters
	}
}
