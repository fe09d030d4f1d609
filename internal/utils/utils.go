// Package utils holds the small parsing and error-classification helpers
// shared by config and the repositories.
package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const pgUniqueViolation = "23505"

// ParseDurationEnv reads "10s", "5m" or a bare number of seconds ("10").
// Quotes left around the value by .env editors are dropped.
func ParseDurationEnv(raw string) (time.Duration, error) {
	v := strings.Trim(strings.TrimSpace(raw), `"'`)
	if v == "" {
		return 0, errors.New("empty duration")
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}

// ParseRedisURL splits a redis:// or rediss:// URL into address, password and DB index.
func ParseRedisURL(raw string) (addr, password string, db int, err error) {
	raw = strings.TrimSpace(raw)
	// redis.ParseURL falls back to localhost for an empty host; a configured URL must name one.
	if u, perr := url.Parse(raw); perr == nil && u.Host == "" {
		return "", "", 0, errors.New("missing host in Redis URL")
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return "", "", 0, err
	}
	return opts.Addr, opts.Password, opts.DB, nil
}

// IsPGUniqueViolation reports whether err carries a Postgres unique_violation.
func IsPGUniqueViolation(err error) bool {
	var pge *pgconn.PgError
	return errors.As(err, &pge) && pge.Code == pgUniqueViolation
}

// IsMongoDuplicateKey reports whether err is an E11000 duplicate key error.
func IsMongoDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
