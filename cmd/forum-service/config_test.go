package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forum.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	t.Setenv("FORUM_JWT_SECRET", "0123456789abcdef-secret")
	path := writeConfig(t, `
auth:
  jwtSecret: ${FORUM_JWT_SECRET}
rateLimit:
  routes:
    question:
      userMax: 5
`)
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "0123456789abcdef-secret" {
		t.Fatalf("env not expanded: %q", cfg.Auth.JWTSecret)
	}
	if cfg.Store.Driver != storeDriverMemory || cfg.Server.Addr != defaultHTTPAddr {
		t.Fatalf("defaults not applied: %+v", cfg.Server)
	}
	if cfg.Workflow.NotifyOnSubmit == nil || !*cfg.Workflow.NotifyOnSubmit {
		t.Fatalf("notifyOnSubmit should default to true")
	}
	if cfg.Events.Topic != defaultEventsTopic || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected events/rate defaults: %q %v", cfg.Events.Topic, cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Routes.Question.UserMax != 5 {
		t.Fatalf("route limits not decoded: %+v", cfg.RateLimit.Routes)
	}
}

func TestLoadAppConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "short secret", body: "auth:\n  jwtSecret: short\n", want: "jwtSecret"},
		{name: "mysql without dsn", body: "auth:\n  jwtSecret: 0123456789abcdef\nstore:\n  driver: mysql\n", want: "dsn"},
		{name: "unknown driver", body: "auth:\n  jwtSecret: 0123456789abcdef\nstore:\n  driver: mongo\n", want: "unknown store driver"},
		{name: "kafka without brokers", body: "auth:\n  jwtSecret: 0123456789abcdef\nevents:\n  kafka:\n    enabled: true\n", want: "brokers"},
		{name: "mailer without smtp", body: "auth:\n  jwtSecret: 0123456789abcdef\nmailer:\n  enabled: true\n  from: noreply@example.com\n", want: "smtp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadAppConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestKafkaSettingsInline(t *testing.T) {
	cfg, err := loadAppConfig(writeConfig(t, `
auth:
  jwtSecret: 0123456789abcdef
events:
  topic: moderation
  kafka:
    enabled: true
    brokers: ["kafka:9092"]
    clientId: forum
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Events.Kafka.Brokers[0] != "kafka:9092" || cfg.Events.Kafka.ClientID != "forum" || cfg.Events.Topic != "moderation" {
		t.Fatalf("kafka settings not decoded: %+v", cfg.Events)
	}
}
