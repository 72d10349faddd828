package internal

import (
	"fmt"
	"presence-chat/errors"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=5000"`
	HealthPort           int           `env:"HEALTH_PORT,default=5001"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	SweepInterval        time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	StalenessThreshold   time.Duration `env:"STALENESS_THRESHOLD,default=10s"`
	SweepWorkers         int           `env:"SWEEP_WORKERS,default=8"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	AuthSecret           string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	RequireToken         bool          `env:"REQUIRE_TOKEN,default=false"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Validate rejects settings the runtime cannot work with.
func (c Config) Validate() error {
	durations := map[string]time.Duration{
		"SWEEP_INTERVAL":      c.SweepInterval,
		"STALENESS_THRESHOLD": c.StalenessThreshold,
		"METRIC_INTERVAL":     c.MetricInterval,
		"AUTH_TOKEN_DURATION": c.AuthTokenDuration,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", errors.ErrInvalidConfig, name, d)
		}
	}
	if c.SweepWorkers <= 0 {
		return fmt.Errorf("%w: SWEEP_WORKERS must be positive, got %d", errors.ErrInvalidConfig, c.SweepWorkers)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("%w: CONNECTION_BUFFER_SIZE must be positive, got %d", errors.ErrInvalidConfig, c.ConnectionBufferSize)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

// Words splits CENSORED_WORDS on commas, dropping blanks.
func (c Config) Words() []string {
	words := lo.Map(strings.Split(c.CensoredWords, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	})
	return lo.Compact(words)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
