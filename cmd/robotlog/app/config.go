package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/team4028/robot-telemetry/internal/robotmap"
	"github.com/team4028/robot-telemetry/internal/tsvlog"
)

const (
	defaultLogLevel      = "info"
	defaultDataDirectory = "data"
	defaultMaxBatchSize  = 100
	dbFileName           = "robot_telemetry.sqlite"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	RobotMap string        `yaml:"robotMap"` // robot map file, built-in map when empty
	Logging  LoggingConfig `yaml:"logging"`
	Storage  StorageConfig `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`

	// Application log file, rotated by size. Logs only go to stderr when empty.
	LogFile           string `yaml:"logFile"`
	LogFileMaxSizeMB  int    `yaml:"logFileMaxSizeMB"`
	LogFileMaxBackups int    `yaml:"logFileMaxBackups"`
}

// LoggingConfig represents telemetry log file settings
type LoggingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"` // overrides the robot map's directory
	QueueSize int    `yaml:"queueSize"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// DBPath returns the SQLite database file
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDirectory, dbFileName)
}

func (c StorageConfig) batchSize() int {
	if c.MaxBatchSize <= 0 {
		return defaultMaxBatchSize
	}
	return c.MaxBatchSize
}

// NewConfig returns the configuration used when no file is given
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: defaultLogLevel,
		},
		Logging: LoggingConfig{
			Enabled:   true,
			QueueSize: tsvlog.DefaultQueueSize,
		},
		Storage: StorageConfig{
			DataDirectory: defaultDataDirectory,
			MaxBatchSize:  defaultMaxBatchSize,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	c := NewConfig()
	if err = yaml.Unmarshal(p, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Relative paths are resolved against the configuration file
	base := filepath.Dir(path)
	for _, field := range []*string{&c.RobotMap, &c.Settings.LogFile, &c.Logging.Directory, &c.Storage.DataDirectory} {
		if *field != "" && !filepath.IsAbs(*field) {
			*field = filepath.Join(base, *field)
		}
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks settings that cannot be used as they are
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Settings.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Settings.LogFileMaxSizeMB < 0 || c.Settings.LogFileMaxBackups < 0 {
		errs = append(errs, errors.New("log file rotation limits must not be negative"))
	}
	if c.Logging.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("invalid logging queue size: %d", c.Logging.QueueSize))
	}
	if c.Storage.MaxBatchSize < 0 {
		errs = append(errs, fmt.Errorf("invalid storage batch size: %d", c.Storage.MaxBatchSize))
	}
	if c.Storage.Enabled && c.Storage.DataDirectory == "" {
		errs = append(errs, errors.New("storage data directory is required"))
	}

	return errors.Join(errs...)
}

// Level parses the configured log level, "info" when empty
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// LoadRobotMap loads the configured robot map or the built-in one
func (c *Config) LoadRobotMap() (*robotmap.Map, error) {
	if c.RobotMap == "" {
		return robotmap.Default()
	}
	return robotmap.Load(c.RobotMap)
}

// LogDirectory returns where telemetry logs of the robot are written
func (c *Config) LogDirectory(m *robotmap.Map) string {
	if c.Logging.Directory != "" {
		return c.Logging.Directory
	}
	return m.LogDirectory()
}
