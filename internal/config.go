package internal

import (
	"fmt"
	"time"
)

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

type Config struct {
	Host       string `env:"HOST,default=0.0.0.0"`
	Port       int    `env:"PORT,default=12345"`
	WSPort     int    `env:"WS_PORT,default=0"`
	HealthPort int    `env:"HEALTH_PORT,default=0"`

	StoreDriver    string `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	PostgresURL    string `env:"POSTGRES_URL"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`

	HistoryLimit     int `env:"HISTORY_LIMIT,default=50"`
	LeaderboardLimit int `env:"LEADERBOARD_LIMIT,default=10"`
	SearchLimit      int `env:"SEARCH_LIMIT,default=20"`
	MaxFrameBytes    int `env:"MAX_FRAME_BYTES,default=65536"`

	ReadTimeout       time.Duration `env:"READ_TIMEOUT,default=10m"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthTokenSecret   string        `env:"AUTH_TOKEN_SECRET,required=true"`

	EnableModeration bool   `env:"ENABLE_MODERATION,default=true"`
	CensorCharacter  string `env:"CENSOR_CHARACTER,default=*"`

	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}

// Validate checks what the env tags cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required with STORE_DRIVER=%s", StoreBadger)
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required with STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreBadger, StorePostgres, c.StoreDriver)
	}
	if c.HistoryLimit <= 0 || c.LeaderboardLimit <= 0 || c.SearchLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT, LEADERBOARD_LIMIT and SEARCH_LIMIT must be positive")
	}
	if _, err := CharacterRune(c.CensorCharacter); err != nil {
		return err
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
