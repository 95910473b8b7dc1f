// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrEnvVariablesNotValid = errors.New("environment variables not valid")

// Env is the process configuration read from the environment.
type Env struct {
	// StorePath is the sqlite file holding connections, pipelines and runs.
	StorePath string `env:"UNISYNC_STORE_PATH" envDefault:"unisync.db"`
	// WorkspacePath is an optional workspace file applied at startup.
	WorkspacePath string `env:"UNISYNC_WORKSPACE_PATH"`
	// MappingPaths are files or directories of mapping files.
	MappingPaths []string `env:"UNISYNC_MAPPING_PATHS" envSeparator:","`
	// LockRedisURL selects the redis lock instead of the in-process one.
	LockRedisURL string `env:"UNISYNC_LOCK_REDIS_URL"`
	// LockTTL is the expiration of a redis lock; held locks are extended before it
	// elapses, so it bounds how long the lock of a crashed process blocks a pipeline.
	LockTTL time.Duration `env:"UNISYNC_LOCK_TTL" envDefault:"1m"`
	// DefaultPipelines enables the provisioning of the org default pipelines.
	DefaultPipelines bool `env:"UNISYNC_DEFAULT_PIPELINES" envDefault:"true"`
}

// LoadEnvFiles loads the variables of the .env files into the environment without
// overriding the ones already set.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// LoadEnv parses and validates the process configuration.
func LoadEnv() (Env, error) {
	envVars, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	if err := envVars.validate(); err != nil {
		return Env{}, err
	}
	return envVars, nil
}

func (e Env) validate() error {
	envError := make([]string, 0)

	if e.StorePath == "" {
		envError = append(envError, "UNISYNC_STORE_PATH must not be empty")
	}

	if e.LockRedisURL != "" {
		parsed, err := url.Parse(e.LockRedisURL)
		if err != nil || (parsed.Scheme != "redis" && parsed.Scheme != "rediss") {
			envError = append(envError, "UNISYNC_LOCK_REDIS_URL must be a redis:// or rediss:// url")
		}
	}

	if e.LockTTL < time.Second {
		envError = append(envError, "UNISYNC_LOCK_TTL must be at least 1s")
	}

	if len(envError) > 0 {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, strings.Join(envError, ", "))
	}
	return nil
}
