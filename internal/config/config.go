package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		AutoConfirmDefault bool `yaml:"auto_confirm_default"`
		MaxAdvanceDays     int  `yaml:"max_advance_days"`
		MaxActivePerUser   int  `yaml:"max_active_per_user"`
		LockWaitMs         int  `yaml:"lock_wait_ms"`
		LockTTLSeconds     int  `yaml:"lock_ttl_seconds"`
		ConflictRetries    int  `yaml:"conflict_retries"`
	} `yaml:"booking"`

	Sweeper struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
	} `yaml:"sweeper"`

	Notifications struct {
		Rate      float64 `yaml:"rate"`
		Burst     int     `yaml:"burst"`
		QueueSize int     `yaml:"queue_size"`
	} `yaml:"notifications"`

	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig tunes the periodic database snapshots.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/reservas.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LockWait bounds how long a booking attempt waits for its slot lock.
func (c *Config) LockWait() time.Duration {
	if c.Booking.LockWaitMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Booking.LockWaitMs) * time.Millisecond
}

// LockTTL bounds how long a crashed holder can keep a slot locked in redis.
func (c *Config) LockTTL() time.Duration {
	if c.Booking.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Booking.LockTTLSeconds) * time.Second
}

// ConflictRetries is how many times a contended operation is retried
// internally before ErrConcurrency is surfaced.
func (c *Config) ConflictRetries() int {
	if c.Booking.ConflictRetries <= 0 {
		return 3
	}
	return c.Booking.ConflictRetries
}

// BackupInterval is the period between database snapshots.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// SweepInterval is the period of the completion sweep.
func (c *Config) SweepInterval() time.Duration {
	if c.Sweeper.IntervalMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Sweeper.IntervalMinutes) * time.Minute
}
