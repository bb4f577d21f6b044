// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads operator configuration from a config file and the
// environment via github.com/spf13/viper, following the dot/double-underscore
// key convention of spec §6.4.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ObserveMethod selects the ObserveLoop's operating mode.
type ObserveMethod string

const (
	ObserveMethodWatch ObserveMethod = "watch"
	ObserveMethodPoll  ObserveMethod = "poll"
	ObserveMethodNone  ObserveMethod = "none"
)

// Config is the fully resolved operator configuration.
type Config struct {
	RancherURL              string
	RancherToken            string
	RancherUsername         string
	RancherPassword         string
	RancherAllowInsecureSSL bool

	CleanupNamespaces bool

	ObserveMethod         ObserveMethod
	ClusterCheckInterval  time.Duration
	PollingInterval       time.Duration
}

// Load builds a *viper.Viper bound to the given config file (if any), the
// process environment, and defaults, then resolves it into a Config.
//
// Keys are accepted in any of three spellings: "Rancher.Url",
// "RANCHER_URL", or "Rancher__Url" — the last is normalized to the dotted
// form before binding, since environment variables cannot contain dots.
func Load(configFile string) (*Config, error) {
	v := viper.NewWithOptions()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("Rancher.AllowInsecureSsl", false)
	v.SetDefault("CleanupNamespaces", false)
	v.SetDefault("ObserveMethod", string(ObserveMethodWatch))
	v.SetDefault("ClusterCheckInterval", 5)
	v.SetDefault("PollingInterval", 2)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", configFile, err)
		}
	}

	normalizeDoubleUnderscoreEnv(v)

	method := ObserveMethod(strings.ToLower(v.GetString("ObserveMethod")))
	switch method {
	case ObserveMethodWatch, ObserveMethodPoll, ObserveMethodNone:
	default:
		return nil, fmt.Errorf("invalid ObserveMethod %q: must be watch, poll, or none", method)
	}

	cleanup := v.GetBool("CleanupNamespaces")
	if v.IsSet("Rancher.CleanupNamespaces") {
		cleanup = v.GetBool("Rancher.CleanupNamespaces")
	}

	return &Config{
		RancherURL:              v.GetString("Rancher.Url"),
		RancherToken:            v.GetString("Rancher.Token"),
		RancherUsername:         v.GetString("Rancher.Username"),
		RancherPassword:         v.GetString("Rancher.Password"),
		RancherAllowInsecureSSL: v.GetBool("Rancher.AllowInsecureSsl"),
		CleanupNamespaces:       cleanup,
		ObserveMethod:           method,
		ClusterCheckInterval:    time.Duration(v.GetInt("ClusterCheckInterval")) * time.Minute,
		PollingInterval:         time.Duration(v.GetInt("PollingInterval")) * time.Minute,
	}, nil
}

// normalizeDoubleUnderscoreEnv re-exposes every RANCHER__-prefixed
// environment-style key (double-underscore path separator) under its
// dotted equivalent, since viper's own EnvKeyReplacer only handles the
// single direction (dots -> underscores for lookup, not back).
func normalizeDoubleUnderscoreEnv(v *viper.Viper) {
	for _, key := range []string{
		"Rancher__Url", "Rancher__Token", "Rancher__Username", "Rancher__Password",
		"Rancher__AllowInsecureSsl", "Rancher__CleanupNamespaces",
	} {
		if !v.IsSet(key) {
			continue
		}
		dotted := strings.ReplaceAll(key, "__", ".")
		v.Set(dotted, v.Get(key))
	}
}
