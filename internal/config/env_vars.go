package config

import (
	"fmt"
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	baseURLVar     = "PUBLIC_BASE_URL"
	logLevelEnvVar = "LOG_LEVEL"
	configFileVar  = "CONFIG_FILE"
)

// Environment selects the security posture (https enforcement, loopback bans).
type Environment string

const (
	EnvDevelopment Environment = "DEV"
	EnvProduction  Environment = "PROD"
)

// ParseEnvironment accepts the spellings used across deployments. Anything
// that is not recognisably production is treated as development.
func ParseEnvironment(value string) Environment {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

type EnvVars struct {
	port     string
	appName  string
	env      Environment
	baseURL  string
	logLevel string
}

var _ EnvConfig = EnvVars{}

func newEnvVars(get func(string, string) string) (EnvVars, error) {
	port := get(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return EnvVars{
		port:     port,
		appName:  get(appNameVar, "Sponsor Gate"),
		env:      ParseEnvironment(get(envVar, string(EnvDevelopment))),
		baseURL:  strings.TrimRight(get(baseURLVar, "http://localhost:8080"), "/"),
		logLevel: get(logLevelEnvVar, "info"),
	}, nil
}

func (e EnvVars) GetPort() string {
	return e.port
}

func (e EnvVars) GetAppName() string {
	return e.appName
}

func (e EnvVars) GetEnv() Environment {
	return e.env
}

// GetBaseURL returns the public base URL of this service (e.g., "https://gate.example.com").
// The fixed OAuth callback and rewritten segment URIs are built from it.
func (e EnvVars) GetBaseURL() string {
	return e.baseURL
}

func (e EnvVars) GetLogLevel() string {
	return e.logLevel
}
