package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/youtube-comments-etl/internal/validation"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration for the run ledger
	Database DatabaseConfig `yaml:"database"`

	// YouTube Data API configuration
	YouTube YouTubeConfig `yaml:"youtube"`

	// Pipeline configuration
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	SSLMode        string        `yaml:"sslmode"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
	MaxLifetime    time.Duration `yaml:"max_lifetime"`
	MigrationsPath string        `yaml:"migrations_path"`
}

// YouTubeConfig holds the comment API settings
type YouTubeConfig struct {
	APIKey string `yaml:"api_key"`
	// VideoID accepts a bare id or a watch/short URL
	VideoID string `yaml:"video_id"`
	// Endpoint overrides the API base URL, empty means the library default
	Endpoint string `yaml:"endpoint"`
}

// PipelineConfig holds workflow settings
type PipelineConfig struct {
	DataDir      string        `yaml:"data_dir"`
	Schedule     string        `yaml:"schedule"`
	Timezone     string        `yaml:"timezone"`
	RunTimeout   time.Duration `yaml:"run_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "pretty"
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    300 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           "5432",
			User:           "postgres",
			Password:       "postgres",
			Name:           "youtube_comments_etl",
			SSLMode:        "disable",
			MaxOpenConns:   10,
			MaxIdleConns:   2,
			MaxLifetime:    5 * time.Minute,
			MigrationsPath: "./migrations",
		},
		Pipeline: PipelineConfig{
			DataDir:      "./data",
			Schedule:     "@daily",
			Timezone:     "UTC",
			RunTimeout:   30 * time.Minute,
			PollInterval: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds configuration from defaults, the optional YAML file named by
// ETL_CONFIG_FILE, then environment variables, and validates the result
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read is Load without validation. Callers pick Validate or ValidateLocal.
func Read() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ETL_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxLifetime = getDurationEnv("DB_MAX_LIFETIME", c.Database.MaxLifetime)
	c.Database.MigrationsPath = getEnv("MIGRATIONS_PATH", c.Database.MigrationsPath)

	c.YouTube.APIKey = getEnv("YOUTUBE_API_KEY", c.YouTube.APIKey)
	c.YouTube.VideoID = getEnv("YOUTUBE_VIDEO_ID", c.YouTube.VideoID)
	c.YouTube.Endpoint = getEnv("YOUTUBE_API_ENDPOINT", c.YouTube.Endpoint)

	c.Pipeline.DataDir = getEnv("DATA_DIR", c.Pipeline.DataDir)
	c.Pipeline.Schedule = getEnv("PIPELINE_SCHEDULE", c.Pipeline.Schedule)
	c.Pipeline.Timezone = getEnv("PIPELINE_TIMEZONE", c.Pipeline.Timezone)
	c.Pipeline.RunTimeout = getDurationEnv("PIPELINE_RUN_TIMEOUT", c.Pipeline.RunTimeout)
	c.Pipeline.PollInterval = getDurationEnv("RUN_POLL_INTERVAL", c.Pipeline.PollInterval)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks every setting and normalizes the video id. All problems
// are reported together.
func (c *Config) Validate() error {
	return errors.Join(c.validateYouTube(), c.ValidateLocal())
}

func (c *Config) validateYouTube() error {
	var errs []error

	if c.YouTube.APIKey == "" {
		errs = append(errs, errors.New("YOUTUBE_API_KEY is required"))
	}
	if c.YouTube.VideoID == "" {
		errs = append(errs, errors.New("YOUTUBE_VIDEO_ID is required"))
	} else if id, err := validation.NormalizeVideoID(c.YouTube.VideoID); err != nil {
		errs = append(errs, fmt.Errorf("YOUTUBE_VIDEO_ID: %w", err))
	} else {
		c.YouTube.VideoID = id
	}

	return errors.Join(errs...)
}

// ValidateLocal checks the settings of stages that only touch the data
// directory. The YouTube section is not required.
func (c *Config) ValidateLocal() error {
	var errs []error

	if c.Pipeline.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if _, err := cron.ParseStandard(c.Pipeline.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid PIPELINE_SCHEDULE %q: %w", c.Pipeline.Schedule, err))
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid PIPELINE_TIMEZONE %q: %w", c.Pipeline.Timezone, err))
	}
	if c.Pipeline.RunTimeout <= 0 {
		errs = append(errs, errors.New("PIPELINE_RUN_TIMEOUT must be positive"))
	}
	if c.Pipeline.PollInterval <= 0 {
		errs = append(errs, errors.New("RUN_POLL_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

// Validate checks the settings needed to reach the run ledger
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
