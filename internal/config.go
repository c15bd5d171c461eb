// Package internal holds the server configuration and the storage inspector
// wiring shared by the binaries.
package internal

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=INFO"`
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	// DebugPort exposes the Badger inspector, 0 disables it.
	DebugPort int `env:"DEBUG_PORT,default=0"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	BufferSize       int           `env:"BUFFER_SIZE,default=256"`
	SinkTimeout      time.Duration `env:"SINK_TIMEOUT,default=2s"`
	SnapshotTimeout  time.Duration `env:"SNAPSHOT_TIMEOUT,default=5s"`
	SubscribeBackoff time.Duration `env:"SUBSCRIBE_BACKOFF,default=500ms"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=1s"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	CharReplacement  string `env:"CHARACTER_REPLACEMENT,default=*"`
	MaxContentLength int    `env:"MAX_CONTENT_LENGTH,default=2000"`

	NumberOfRunners int           `env:"NUMBER_OF_RUNNERS,default=4"`
	ExecutionDelay  time.Duration `env:"EXECUTION_DELAY,default=1500ms"`

	// MetricInterval of the health monitor, 0 disables it.
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=80"`
}

// LoadConfig reads the configuration from the environment and checks the
// values the tags cannot express.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	if _, err := CharacterRune(config.CharReplacement); err != nil {
		return Config{}, err
	}
	if config.BufferSize <= 0 || config.NumberOfRunners <= 0 || config.MaxContentLength <= 0 {
		return Config{}, fmt.Errorf("BUFFER_SIZE, NUMBER_OF_RUNNERS and MAX_CONTENT_LENGTH must be positive")
	}
	if config.LowCapacityThreshold < 1 || config.LowCapacityThreshold > 100 {
		return Config{}, fmt.Errorf("LOW_CAPACITY_THRESHOLD must be between 1 and 100, got %d", config.LowCapacityThreshold)
	}
	if len(config.JWTSecret) < 16 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 16 characters long")
	}
	return config, nil
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
