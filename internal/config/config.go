package config

import "time"

// TrackerConfig is the root configuration for a tracker instance.
type TrackerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Sources  SourcesConfig  `yaml:"sources"`
	Database DatabaseConfig `yaml:"database"`
	Updater  UpdaterConfig  `yaml:"updater"`
	Trend    TrendConfig    `yaml:"trend"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this tracker.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// SourcesConfig holds marketplace fetch settings shared by all site adapters.
type SourcesConfig struct {
	Timeout    time.Duration `yaml:"timeout"`     // Per-fetch deadline
	Delay      time.Duration `yaml:"delay"`       // Minimum gap between requests to one site
	Burst      int           `yaml:"burst"`       // Rate limiter burst
	UserAgents []string      `yaml:"user_agents"` // Identity pool, rotated per request
}

// DatabaseConfig holds the PostgreSQL connection for catalog and quote data.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// UpdaterConfig holds batch run settings.
type UpdaterConfig struct {
	Concurrency       int           `yaml:"concurrency"`         // Parallel update units
	MinUpdateInterval time.Duration `yaml:"min_update_interval"` // Skip products updated more recently
}

// TrendConfig holds trend predictor settings.
type TrendConfig struct {
	Window int `yaml:"window"` // Recent quotes considered per signal
}

// AlertsConfig holds alert evaluation settings.
type AlertsConfig struct {
	Cooldown time.Duration `yaml:"cooldown"` // Re-fire suppression for rules without their own
}

// ScheduleConfig holds the periodic run settings for daemon mode.
type ScheduleConfig struct {
	Cron string `yaml:"cron"` // Standard 5-field cron expression
}

// ServerConfig holds the read-surface HTTP server settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}
