package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://summit@localhost/summit")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "summit" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
	if cfg.QuorumJournalists != 2 || cfg.QuorumLeaders != 1 {
		t.Fatalf("expected 2/1 quorum, got %d/%d", cfg.QuorumJournalists, cfg.QuorumLeaders)
	}
	if cfg.OutboxPollInterval != 2*time.Second || cfg.OutboxBatchSize != 100 {
		t.Fatalf("unexpected outbox defaults: %s %d", cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.BusBuffer != 128 {
		t.Fatalf("expected bus buffer 128, got %d", cfg.BusBuffer)
	}
	if cfg.NotificationSink != NotificationSinkPostgres {
		t.Fatalf("expected postgres sink, got %s", cfg.NotificationSink)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUORUM_JOURNALISTS", "3")
	t.Setenv("QUORUM_LEADERS", "2")
	t.Setenv("BUS_BUFFER", "16")
	t.Setenv("NOTIFICATION_SINK", "LOG")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.QuorumJournalists != 3 || cfg.QuorumLeaders != 2 {
		t.Fatalf("expected 3/2 quorum, got %d/%d", cfg.QuorumJournalists, cfg.QuorumLeaders)
	}
	if cfg.BusBuffer != 16 {
		t.Fatalf("expected bus buffer 16, got %d", cfg.BusBuffer)
	}
	if cfg.NotificationSink != NotificationSinkLog || cfg.OutboxPollInterval != 500*time.Millisecond {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"QUORUM_LEADERS":    "0",
		"NOTIFICATION_SINK": "pager",
		"OUTBOX_BATCH_SIZE": "0",
		"BUS_BUFFER":        "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, value)
			}
		})
	}
}
