package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("INTAKE_ADDR", ":9090")
	os.Setenv("BATCH_SIZE", "25")
	os.Setenv("MAX_CONCURRENT_REQUESTS", "16")
	os.Setenv("LLM_ADAPTER", "openai")
	defer os.Unsetenv("INTAKE_ADDR")
	defer os.Unsetenv("BATCH_SIZE")
	defer os.Unsetenv("MAX_CONCURRENT_REQUESTS")
	defer os.Unsetenv("LLM_ADAPTER")

	cfg := Load()

	if cfg.IntakeAddr != ":9090" {
		t.Errorf("IntakeAddr = %q, want %q", cfg.IntakeAddr, ":9090")
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.BatchSize)
	}
	if cfg.MaxConcurrentReqs != 16 {
		t.Errorf("MaxConcurrentReqs = %d, want 16", cfg.MaxConcurrentReqs)
	}
	if cfg.LLMAdapter != "openai" {
		t.Errorf("LLMAdapter = %q, want %q", cfg.LLMAdapter, "openai")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := Load()

	if cfg.RedisStream != "lead_events" {
		t.Errorf("RedisStream = %q, want %q", cfg.RedisStream, "lead_events")
	}
	if cfg.MinIdleTime != 1000*time.Millisecond {
		t.Errorf("MinIdleTime = %v, want 1000ms", cfg.MinIdleTime)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
}
