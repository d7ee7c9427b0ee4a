package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *TrackerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Sources.Timeout <= 0 {
		return errors.New("sources.timeout must be > 0")
	}
	if c.Sources.Delay < 0 {
		return errors.New("sources.delay must be >= 0")
	}
	if c.Sources.Burst < 1 {
		return errors.New("sources.burst must be >= 1")
	}
	if len(c.Sources.UserAgents) == 0 {
		return errors.New("sources.user_agents must not be empty")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Updater.Concurrency < 1 {
		return errors.New("updater.concurrency must be >= 1")
	}
	if c.Updater.MinUpdateInterval < 0 {
		return errors.New("updater.min_update_interval must be >= 0")
	}

	if c.Trend.Window < 3 {
		return errors.New("trend.window must be >= 3")
	}

	if c.Alerts.Cooldown < 0 {
		return errors.New("alerts.cooldown must be >= 0")
	}

	if c.Schedule.Cron == "" {
		return errors.New("schedule.cron is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
