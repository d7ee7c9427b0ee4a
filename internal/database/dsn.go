package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/pricetrack/pricetrack/internal/config"
)

// DSN renders cfg as a postgres URL accepted by pgxpool.ParseConfig.
// Pool bounds ride along as pool_* query parameters, which pgxpool
// reads from the string.
func DSN(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		q.Set("pool_min_conns", strconv.Itoa(cfg.MinConns))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
