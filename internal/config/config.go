package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "DSMOVIE_"
	envFileVar = "DSMOVIE_CONFIG"
)

// Config captures all runtime configuration. Values are layered from
// defaults, an optional YAML file named by DSMOVIE_CONFIG, and DSMOVIE_*
// environment variables (DSMOVIE_DB_URL -> db_url).
type Config struct {
	Port             string `koanf:"port"`
	LogLevel         string `koanf:"log_level"`
	ReadTimeoutSecs  int    `koanf:"server_read_timeout"`
	WriteTimeoutSecs int    `koanf:"server_write_timeout"`
	IdleTimeoutSecs  int    `koanf:"server_idle_timeout"`

	JWTSecret   string   `koanf:"jwt_secret"`
	JWTTTLSecs  int      `koanf:"jwt_ttl_secs"`
	CORSOrigins []string `koanf:"cors_allowed_origins"`

	DBURL             string `koanf:"db_url"`
	DBMaxConns        int    `koanf:"db_max_conns"`
	DBMinConns        int    `koanf:"db_min_conns"`
	DBMaxIdleSecs     int    `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs     int    `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs int    `koanf:"db_conn_timeout_secs"`
	DBStatementCache  int    `koanf:"db_statement_cache_capacity"`
	DBSlowQueryMS     int    `koanf:"db_slow_query_ms"`

	ScoreMin              float64 `koanf:"score_min"`
	ScoreMax              float64 `koanf:"score_max"`
	ScoreRetryAttempts    int     `koanf:"score_retry_attempts"`
	ScoreRetryBackoffMS   int     `koanf:"score_retry_backoff_ms"`
	ScoreRateLimit        int     `koanf:"score_rate_limit"`
	ScoreRateLimitWindowS int     `koanf:"score_rate_limit_window_secs"`

	NATSURL string `koanf:"nats_url"`
}

// Defaults returns the configuration used before any file or env override.
func Defaults() Config {
	return Config{
		Port:                  "8080",
		LogLevel:              "info",
		ReadTimeoutSecs:       15,
		WriteTimeoutSecs:      15,
		IdleTimeoutSecs:       60,
		JWTTTLSecs:            3600,
		CORSOrigins:           []string{"*"},
		DBMaxConns:            20,
		DBMinConns:            2,
		DBMaxIdleSecs:         300,
		DBMaxLifeSecs:         3600,
		DBConnTimeoutSecs:     10,
		DBStatementCache:      256,
		DBSlowQueryMS:         250,
		ScoreMin:              0,
		ScoreMax:              5,
		ScoreRetryAttempts:    3,
		ScoreRetryBackoffMS:   10,
		ScoreRateLimit:        60,
		ScoreRateLimitWindowS: 60,
	}
}

// Load reads configuration, applying defaults and validation.
func Load() (Config, error) {
	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv(envFileVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if err := splitListValues(k); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// listKeys may be given as comma separated strings in the environment.
var listKeys = []string{"cors_allowed_origins"}

func splitListValues(k *koanf.Koanf) error {
	for _, key := range listKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("DSMOVIE_JWT_SECRET is required")
	}
	if c.DBURL == "" {
		return fmt.Errorf("DSMOVIE_DB_URL is required")
	}
	if c.JWTTTLSecs <= 0 {
		return fmt.Errorf("DSMOVIE_JWT_TTL_SECS must be positive")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DSMOVIE_DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DSMOVIE_DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DSMOVIE_DB_MIN_CONNS cannot exceed DSMOVIE_DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DSMOVIE_DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if c.DBSlowQueryMS < 0 {
		return fmt.Errorf("DSMOVIE_DB_SLOW_QUERY_MS must be non-negative")
	}
	if c.ScoreMin >= c.ScoreMax {
		return fmt.Errorf("DSMOVIE_SCORE_MIN must be lower than DSMOVIE_SCORE_MAX")
	}
	if c.ScoreRetryAttempts <= 0 {
		return fmt.Errorf("DSMOVIE_SCORE_RETRY_ATTEMPTS must be positive")
	}
	if c.ScoreRetryBackoffMS < 0 {
		return fmt.Errorf("DSMOVIE_SCORE_RETRY_BACKOFF_MS must be non-negative")
	}
	if c.ScoreRateLimit < 0 || c.ScoreRateLimitWindowS <= 0 {
		return fmt.Errorf("DSMOVIE_SCORE_RATE_LIMIT must be non-negative with a positive window")
	}
	return nil
}
