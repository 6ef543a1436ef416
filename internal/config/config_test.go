package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
timezone: Asia/Jakarta
logging:
  level: DEBUG
telegram:
  token: "123:abc"
scheduler:
  tick_interval: 30s
  rate_per_sec: 5
storage:
  driver: file
  message_path: ./messages.json
  status_path: ./status.json
status_recipients:
  - "100"
  - "200"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Asia/Jakarta" {
		t.Fatalf("Timezone = %q", cfg.Timezone)
	}
	if cfg.Scheduler.TickInterval != "30s" || cfg.Scheduler.RatePerSec != 5 {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if len(cfg.StatusRecipients) != 2 {
		t.Fatalf("StatusRecipients = %v", cfg.StatusRecipients)
	}
	if !cfg.Logging.ConsoleEnabled() {
		t.Fatal("console should default to enabled")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"t"},"logging":{"console":false}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.ConsoleEnabled() {
		t.Fatal("console explicitly disabled")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", "shceduler:\n  tick_interval: 30s\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"bad timezone", `{"timezone":"Mars/Olympus"}`},
		{"bad duration", `{"scheduler":{"tick_interval":"soon"}}`},
		{"negative duration", `{"scheduler":{"startup_delay":"-5s"}}`},
		{"bad driver", `{"storage":{"driver":"etcd"}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, "config.json", tt.body)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 60_000_000_000)
	if err != nil || d.Seconds() != 60 {
		t.Fatalf("default: d=%v err=%v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "15s", 0)
	if err != nil || d.Seconds() != 15 {
		t.Fatalf("explicit: d=%v err=%v", d, err)
	}
}
