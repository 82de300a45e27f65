package config

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

const (
	NotificationSinkPostgres = "postgres"
	NotificationSinkLog      = "log"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	SessionSecret string
	SessionTTL    time.Duration

	QuorumJournalists int
	QuorumLeaders     int

	NotificationSink   string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	BusBuffer          int
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SERVICE_NAME", "summit")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("QUORUM_JOURNALISTS", 2)
	v.SetDefault("QUORUM_LEADERS", 1)
	v.SetDefault("NOTIFICATION_SINK", NotificationSinkPostgres)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("BUS_BUFFER", 128)

	cfg := Config{
		ServiceName: strings.TrimSpace(v.GetString("SERVICE_NAME")),
		HTTPPort:    strings.TrimSpace(v.GetString("HTTP_PORT")),
		PostgresDSN: strings.TrimSpace(v.GetString("POSTGRES_DSN")),

		SessionSecret: v.GetString("SESSION_SECRET"),
		SessionTTL:    v.GetDuration("SESSION_TTL"),

		QuorumJournalists: v.GetInt("QUORUM_JOURNALISTS"),
		QuorumLeaders:     v.GetInt("QUORUM_LEADERS"),

		NotificationSink:   strings.ToLower(strings.TrimSpace(v.GetString("NOTIFICATION_SINK"))),
		OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		OutboxBatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		BusBuffer:          v.GetInt("BUS_BUFFER"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.QuorumJournalists < 1 || c.QuorumLeaders < 1 {
		return fmt.Errorf("quorum thresholds must be at least 1, got journalists=%d leaders=%d", c.QuorumJournalists, c.QuorumLeaders)
	}
	switch c.NotificationSink {
	case NotificationSinkPostgres, NotificationSinkLog:
	default:
		return fmt.Errorf("unknown NOTIFICATION_SINK %q", c.NotificationSink)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	if c.OutboxBatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1")
	}
	if c.BusBuffer < 1 {
		return fmt.Errorf("BUS_BUFFER must be at least 1")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}
