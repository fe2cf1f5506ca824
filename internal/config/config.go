// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads Gatehouse configuration from defaults, an
// optional YAML file, and command-line flags, in that order of
// precedence (later wins).
package config

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Duration is a time.Duration that unmarshals from strings like "24h"
// in YAML and validates as a string in the config schema.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return oops.Code("CONFIG_INVALID_DURATION").With("value", string(text)).Wrap(err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// HasherConfig is the password hashing work factor.
type HasherConfig struct {
	Time      uint32 `koanf:"time" json:"time,omitempty" jsonschema:"minimum=1"`
	MemoryKiB uint32 `koanf:"memory_kib" json:"memory_kib,omitempty" jsonschema:"minimum=1024"`
	Threads   uint8  `koanf:"threads" json:"threads,omitempty" jsonschema:"minimum=1"`
}

// Params converts the config into auth.HasherParams. Zero values are
// filled with defaults by the hasher.
func (h HasherConfig) Params() auth.HasherParams {
	return auth.HasherParams{
		Time:    h.Time,
		Memory:  h.MemoryKiB,
		Threads: h.Threads,
	}
}

// Config is the process-wide Gatehouse configuration. The core treats
// all of it as fixed input supplied at startup.
type Config struct {
	DatabaseURL       string       `koanf:"database_url" json:"database_url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	SigningKey        string       `koanf:"signing_key" json:"signing_key,omitempty" jsonschema:"description=HMAC key for bearer tokens; at least 32 bytes"`
	TokenTTL          Duration     `koanf:"token_ttl" json:"token_ttl,omitempty" jsonschema:"description=Bearer token lifetime (Go duration)"`
	SessionTTL        Duration     `koanf:"session_ttl" json:"session_ttl,omitempty" jsonschema:"description=Session lifetime (Go duration)"`
	LogFormat         string       `koanf:"log_format" json:"log_format,omitempty" jsonschema:"enum=json,enum=text"`
	ObservabilityAddr string       `koanf:"observability_addr" json:"observability_addr,omitempty" jsonschema:"description=Listen address for /metrics and health probes"`
	Hasher            HasherConfig `koanf:"hasher" json:"hasher,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TokenTTL:          Duration(auth.DefaultTokenTTL),
		SessionTTL:        Duration(auth.DefaultSessionTTL),
		LogFormat:         "json",
		ObservabilityAddr: "127.0.0.1:9100",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (if non-empty; the file is schema-validated first), then any set
// flags. Flag names map to config keys with dashes replaced by
// underscores (--log-format sets log_format).
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := validateFile(path); err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, flagToKey(flags))
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return Config{}, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	return cfg, nil
}

// Validate checks the invariants the auth core relies on. Commands
// that touch neither the database nor tokens may skip it.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}
	if len(c.SigningKey) < auth.MinSigningKeyBytes {
		return oops.Code("CONFIG_INVALID").
			With("min_bytes", auth.MinSigningKeyBytes).
			Errorf("signing_key must be at least %d bytes", auth.MinSigningKeyBytes)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be json or text")
	}
	return nil
}

// flagToKey maps a pflag name to a koanf key: dashes become
// underscores, so flag spelling stays conventional.
func flagToKey(flags *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key := dashesToUnderscores(f.Name)
		return key, posflag.FlagVal(flags, f)
	}
}

func dashesToUnderscores(name string) string {
	out := []byte(name)
	for i := range out {
		if out[i] == '-' {
			out[i] = '_'
		}
	}
	return string(out)
}
