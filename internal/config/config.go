package config

import (
	"fmt"
	"os"
	"strings"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() Environment
	GetBaseURL() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Storage
}

// LookupFunc resolves a configuration key. os.Getenv satisfies it.
type LookupFunc func(key string) string

// Load builds the process configuration from the environment, overlaid on the
// YAML file named by CONFIG_FILE when set. The result is immutable.
func Load() (Config, error) {
	lookup := LookupFunc(os.Getenv)
	if path := os.Getenv(configFileVar); path != "" {
		fileValues, err := readConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("[config Load] %w", err)
		}
		lookup = overlay(os.Getenv, fileValues)
	}
	return New(lookup)
}

// New builds a configuration from an arbitrary lookup, primarily for tests.
func New(lookup LookupFunc) (Config, error) {
	get := func(key, defaultValue string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return defaultValue
	}

	env, err := newEnvVars(get)
	if err != nil {
		return nil, err
	}
	oauth, err := newOAuth(get)
	if err != nil {
		return nil, err
	}
	security, err := newSecurity(get)
	if err != nil {
		return nil, err
	}
	storage, err := newStorage(get)
	if err != nil {
		return nil, err
	}

	return mainConfig{
		EnvVars:  env,
		Cors:     newCors(get),
		OAuth:    oauth,
		Security: security,
		Storage:  storage,
	}, nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
