package main

import (
	"fmt"
	"strings"

	"recode/internal/config"
)

// loadConfig resolves and validates the configuration for a command. A
// missing file is an error that points the user at `recode config init`.
func loadConfig(flagValue string) (*config.Config, string, error) {
	cfg, path, exists, err := config.Load(strings.TrimSpace(flagValue))
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if !exists {
		return nil, "", fmt.Errorf("no configuration found at %s; run `recode config init` to create one", path)
	}
	return cfg, path, nil
}
