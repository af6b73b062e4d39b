package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.test")
	t.Setenv("GAME_REF", "park")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %s", cfg.PollInterval)
	}
	if cfg.MoveEpsilon != 0.00001 {
		t.Errorf("MoveEpsilon = %g", cfg.MoveEpsilon)
	}
	if cfg.StaleAfter != 30*time.Second {
		t.Errorf("StaleAfter = %s", cfg.StaleAfter)
	}
	if cfg.LocationSource != "feed" {
		t.Errorf("LocationSource = %q", cfg.LocationSource)
	}
	if cfg.MinMarkerSpacing != 200 {
		t.Errorf("MinMarkerSpacing = %g", cfg.MinMarkerSpacing)
	}
}

func TestLoadRequired(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("GAME_REF", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing BACKEND_URL")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown source", map[string]string{"LOCATION_SOURCE": "gps"}},
		{"replay without file", map[string]string{"LOCATION_SOURCE": "replay"}},
		{"zero interval", map[string]string{"POLL_INTERVAL": "0s"}},
		{"negative epsilon", map[string]string{"MOVE_EPSILON": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BACKEND_URL", "https://api.example.test")
			t.Setenv("GAME_REF", "park")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
