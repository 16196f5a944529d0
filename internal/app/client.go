package app

import (
	"fmt"

	"github.com/samvad-hq/coinify-go/internal/config"
	"github.com/samvad-hq/coinify-go/internal/logger"
	"github.com/samvad-hq/coinify-go/pkg/coinify"
)

// Version is reported as plugin_version and in the User-Agent.
var Version = "dev"

// NewCoinifyClient builds an API client from configuration.
func NewCoinifyClient(cfg *config.Config, log logger.Logger) (*coinify.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	client, err := coinify.New(cfg.APIKey, cfg.APISecret,
		coinify.WithBaseURL(cfg.BaseURL),
		coinify.WithTimeout(cfg.Timeout),
		coinify.WithLogger(log),
		coinify.WithUserAgent(cfg.AppName+"/"+Version),
	)
	if err != nil {
		return nil, fmt.Errorf("init coinify client: %w", err)
	}
	return client, nil
}
