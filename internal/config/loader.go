package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "LEADSCORE"

// newViper builds a Viper instance with YAML input, LEADSCORE_ env binding and
// a "." → "_" key replacer so "dispatcher.max_concurrent" resolves to
// LEADSCORE_DISPATCHER_MAX_CONCURRENT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// Load reads the YAML file at configPath, merges LEADSCORE_* overrides,
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from LEADSCORE_* environment variables alone.
//
//	LEADSCORE_<SECTION>_<FIELD>   e.g.  LEADSCORE_MINIO_ENDPOINT
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrEnv loads configPath when it is set and falls back to LoadFromEnv.
func LoadOrEnv(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and calls onChange with the re-parsed Config on
// every write. Invalid revisions are reported to onError and skipped. Only
// settings that are safe to swap at runtime (log level) should be applied by
// the callback. Watch does not block.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on error. main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
