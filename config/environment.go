package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const (
	EnvironmentDevelopment = environmentDevelopment
	EnvironmentProduction  = environmentProduction
	EnvironmentStaging     = environmentStaging
)

// DefaultConfigPath is used when no -config flag is given.
const DefaultConfigPath = "config/config.yml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

var environmentAliases = map[string]string{
	"prod":  environmentProduction,
	"stag":  environmentStaging,
	"stage": environmentStaging,
	"dev":   environmentDevelopment,
}

// getAppEnvironment reads APP_ENV and defaults to development.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// resolveEnvSpecificPath swaps the default path for the environment specific
// one. Explicitly chosen paths are left alone.
func resolveEnvSpecificPath(path, defaultPath string, envPaths map[string]string) string {
	if path == "" {
		path = defaultPath
	}

	env := getAppEnvironment()
	if envPath, ok := envPaths[env]; ok {
		if path == defaultPath || path == envPath {
			return envPath
		}
	}

	return path
}

// AppEnvironment returns the normalised APP_ENV value.
func AppEnvironment() string {
	return getAppEnvironment()
}

// IsProductionLike reports whether env should fail fast on configuration
// problems such as a missing balances file.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}
