package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// readConfigFile loads a flat YAML mapping of the same keys the environment uses:
//
//	PUBLIC_BASE_URL: https://gate.example.com
//	ALLOWED_REDIRECT_DOMAINS: example.com,example.org
func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return values, nil
}

// overlay prefers the environment and falls back to the file values.
func overlay(env LookupFunc, file map[string]string) LookupFunc {
	return func(key string) string {
		if v := env(key); v != "" {
			return v
		}
		return file[key]
	}
}
