// README: Config loader: defaults, optional YAML file and COURIER_* env overrides via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"

	stagingBaseURL = "https://api.staging.grasspit.com/"
	prodBaseURL    = "https://api.grassp.it/"
)

var ErrUnknownEnv = errors.New("unknown environment")

type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type LocationConfig struct {
	TimeInterval      time.Duration `mapstructure:"time_interval"`
	DistanceInterval  float64       `mapstructure:"distance_interval"`
	PermissionGranted bool          `mapstructure:"permission_granted"`
	Record            bool          `mapstructure:"record"`
}

type Config struct {
	Env  string    `mapstructure:"env"`
	API  APIConfig `mapstructure:"api"`
	HTTP struct {
		Addr   string `mapstructure:"addr"`
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"http"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr          string `mapstructure:"addr"`
		SessionPrefix string `mapstructure:"session_prefix"`
	} `mapstructure:"redis"`
	NATS struct {
		URL           string `mapstructure:"url"`
		SubjectPrefix string `mapstructure:"subject_prefix"`
	} `mapstructure:"nats"`
	Maps struct {
		APIKey   string `mapstructure:"api_key"`
		Language string `mapstructure:"language"`
		Region   string `mapstructure:"region"`
	} `mapstructure:"maps"`
	Location LocationConfig `mapstructure:"location"`
	Driver   struct {
		RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	} `mapstructure:"driver"`
	Store struct {
		Strict bool `mapstructure:"strict"`
	} `mapstructure:"store"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// COURIER_; COURIER_CONFIG names an optional YAML file.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("env", EnvDev)
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.client_id", "grassp")
	v.SetDefault("api.client_secret", "grassp")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("http.addr", "127.0.0.1:8787")
	v.SetDefault("http.api_key", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.session_prefix", "courier:session:")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "courier.events")
	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.language", "en")
	v.SetDefault("maps.region", "us")
	v.SetDefault("location.time_interval", 30*time.Second)
	v.SetDefault("location.distance_interval", 0.0)
	v.SetDefault("location.permission_granted", true)
	v.SetDefault("location.record", false)
	v.SetDefault("driver.refresh_interval", 60*time.Second)
	v.SetDefault("store.strict", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigType("yaml")
	if path := os.Getenv("COURIER_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("COURIER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.API.BaseURL == "" {
		base, err := BaseURLFor(c.Env)
		if err != nil {
			return Config{}, err
		}
		c.API.BaseURL = base
	}
	return c, nil
}

// StrictStore reports whether the cache should panic on merge
// inconsistencies. Development always runs strict.
func (c Config) StrictStore() bool {
	return c.Store.Strict || c.Env == EnvDev
}

// BaseURLFor maps an environment name to the dispatch service root.
func BaseURLFor(env string) (string, error) {
	switch env {
	case EnvDev, EnvStaging:
		return stagingBaseURL, nil
	case EnvProd:
		return prodBaseURL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnv, env)
}
