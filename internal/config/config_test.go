package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default mode is worker",
			check:  func(c *Config) bool { return c.Mode == "worker" },
			expect: "worker",
		},
		{
			name:   "default metrics host",
			check:  func(c *Config) bool { return c.MetricsHost == "0.0.0.0" },
			expect: "0.0.0.0",
		},
		{
			name:   "default metrics port",
			check:  func(c *Config) bool { return c.MetricsPort == 9090 },
			expect: "9090",
		},
		{
			name:   "default log level is info",
			check:  func(c *Config) bool { return c.LogLevel == "info" },
			expect: "info",
		},
		{
			name:   "default log format is json",
			check:  func(c *Config) bool { return c.LogFormat == "json" },
			expect: "json",
		},
		{
			name:   "default github API base URL",
			check:  func(c *Config) bool { return c.GitHubAPIBaseURL == "https://api.github.com" },
			expect: "https://api.github.com",
		},
		{
			name:   "default poll interval",
			check:  func(c *Config) bool { return c.IngestionPollInterval == "60" },
			expect: "60",
		},
		{
			name:   "default staleness threshold",
			check:  func(c *Config) bool { return c.StalenessThresholdMinutes == "5" },
			expect: "5",
		},
		{
			name:   "default avatar bucket",
			check:  func(c *Config) bool { return c.AvatarS3Bucket == "user-avatars" },
			expect: "user-avatars",
		},
		{
			name:   "metrics addr format",
			check:  func(c *Config) bool { return c.MetricsAddr() == "0.0.0.0:9090" },
			expect: "0.0.0.0:9090",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	t.Setenv("GHINGEST_MODE", "bogus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}
