package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"default empty format", "", false},
		{"text format", "text", false},
		{"json format", "json", false},
		{"invalid format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("log-format", tt.format)

			err := SetupLogging()
			if tt.wantErr && err == nil {
				t.Error("expected an error for invalid format")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
	viper.Reset()
}

func TestCreateMatcher(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	if CreateMatcher() == nil {
		t.Fatal("expected a matcher with defaults")
	}

	viper.Set("date-tolerance", 5)
	if CreateMatcher() == nil {
		t.Fatal("expected a matcher with overridden tolerance")
	}
}

func TestCreateServerConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cfg := CreateServerConfig()
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Error("expected default allowed origins")
	}

	viper.Set("port", 9090)
	viper.Set("allowed-origins", []string{"https://ops.example.com"})
	cfg = CreateServerConfig()
	if cfg.Port != 9090 {
		t.Errorf("expected overridden port 9090, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://ops.example.com" {
		t.Errorf("expected overridden origins, got %v", cfg.AllowedOrigins)
	}
}
