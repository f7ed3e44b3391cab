// Package config translates CLI flags and environment settings into the
// concrete configurations the service components consume.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"payment-reconciliation-service/internal/api"
	"payment-reconciliation-service/internal/matcher"
	"payment-reconciliation-service/pkg/logger"
)

// SetupLogging configures the global logger from the resolved flags.
// --verbose lowers the level to debug; --log-format selects text or json.
func SetupLogging() error {
	cfg := logger.DefaultConfig()

	if viper.GetBool("verbose") {
		cfg.Level = logger.DebugLevel
	}

	switch format := viper.GetString("log-format"); format {
	case "", "text":
		cfg.Format = logger.TextFormat
	case "json":
		cfg.Format = logger.JSONFormat
	default:
		return fmt.Errorf("invalid log format %q. Valid formats: text, json", format)
	}

	return logger.Configure(cfg)
}

// CreateMatcher builds the tiered matcher with CLI overrides applied.
func CreateMatcher() *matcher.TieredMatcher {
	cfg := matcher.DefaultConfig()

	if days := viper.GetInt("date-tolerance"); days > 0 {
		cfg.DateToleranceDays = days
	}

	return matcher.NewTieredMatcher(cfg)
}

// CreateServerConfig builds the HTTP server configuration from the resolved
// flags.
func CreateServerConfig() api.Config {
	cfg := api.DefaultConfig()

	if port := viper.GetInt("port"); port > 0 {
		cfg.Port = port
	}
	if origins := viper.GetStringSlice("allowed-origins"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	return cfg
}
