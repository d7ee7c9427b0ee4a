package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFetchTimeout      = 30 * time.Second
	DefaultFetchDelay        = 2 * time.Second
	DefaultFetchBurst        = 1
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultConcurrency       = 5
	DefaultMinUpdateInterval = 6 * time.Hour
	DefaultTrendWindow       = 7
	DefaultAlertCooldown     = 24 * time.Hour
	DefaultCronSpec          = "0 */6 * * *"
	DefaultServerPort        = 8080
	DefaultServerMode        = "release"
)

// DefaultUserAgents is the identity pool used when the config supplies none.
// Rotating desktop browser strings, matching what the tracked sites expect.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

func (c *TrackerConfig) applyDefaults() {
	// Sources defaults
	if c.Sources.Timeout == 0 {
		c.Sources.Timeout = DefaultFetchTimeout
	}
	if c.Sources.Delay == 0 {
		c.Sources.Delay = DefaultFetchDelay
	}
	if c.Sources.Burst == 0 {
		c.Sources.Burst = DefaultFetchBurst
	}
	if len(c.Sources.UserAgents) == 0 {
		c.Sources.UserAgents = append([]string(nil), DefaultUserAgents...)
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Updater defaults
	if c.Updater.Concurrency == 0 {
		c.Updater.Concurrency = DefaultConcurrency
	}
	if c.Updater.MinUpdateInterval == 0 {
		c.Updater.MinUpdateInterval = DefaultMinUpdateInterval
	}

	// Trend defaults
	if c.Trend.Window == 0 {
		c.Trend.Window = DefaultTrendWindow
	}

	// Alerts defaults
	if c.Alerts.Cooldown == 0 {
		c.Alerts.Cooldown = DefaultAlertCooldown
	}

	// Schedule defaults
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultCronSpec
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Mode == "" {
		c.Server.Mode = DefaultServerMode
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
