package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Prefix is the key namespace every setting lives under.
const Prefix = "cache.redis"

// ProfileEnv names the environment variable holding the active profiles.
const ProfileEnv = "CACHE_PROFILE"

// LoadOptions tune where Load looks for settings.
type LoadOptions struct {
	// Path is an explicit config file. Empty => config.yaml in ".", "./config".
	Path string
	// Profile is a comma separated list of active profiles. Empty => $CACHE_PROFILE.
	Profile string
	// SkipDotEnv disables loading a .env file from the working directory.
	SkipDotEnv bool
}

// Load reads settings from the config file, the environment and defaults, in
// that order of precedence (environment wins), selects the topology from the
// active profiles and validates the result.
//
// Environment keys are the upper-cased key with dots replaced by underscores:
// cache.redis.commandTimeout => CACHE_REDIS_COMMANDTIMEOUT.
func Load(opts LoadOptions) (Settings, error) {
	if !opts.SkipDotEnv {
		_ = godotenv.Load()
	}

	v := viper.New()
	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.Path != "" {
			return Settings{}, &Error{Field: "file", Value: opts.Path, Reason: "cannot read config", Err: err}
		}
	}

	// Unmarshal (not UnmarshalKey) so env overrides of nested keys are honored.
	var root struct {
		Cache struct {
			Redis Settings `mapstructure:"redis"`
		} `mapstructure:"cache"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return Settings{}, &Error{Field: Prefix, Reason: "cannot decode settings", Err: err}
	}
	s := root.Cache.Redis

	profile := opts.Profile
	if profile == "" {
		profile = os.Getenv(ProfileEnv)
	}
	mode, err := ParseMode(profile)
	if err != nil {
		return Settings{}, err
	}
	s.Mode = mode

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(key("enable"), true)
	v.SetDefault(key("host"), "localhost")
	v.SetDefault(key("port"), 6379)
	v.SetDefault(key("database"), 0)
	v.SetDefault(key("commandTimeout"), "2s")
	v.SetDefault(key("shutdownTimeout"), "0s")
	v.SetDefault(key("timeToLive"), "10m")
	v.SetDefault(key("useSsl"), false)
	v.SetDefault(key("autoReconnect"), true)
	v.SetDefault(key("pingBeforeActivateConnection"), false)
}

// bindEnv registers every leaf key; Unmarshal only sees keys viper already
// knows about, so env-only settings would otherwise be dropped.
func bindEnv(v *viper.Viper) {
	for _, k := range []string{
		"enable", "host", "port", "username", "password", "database", "namespace",
		"commandTimeout", "shutdownTimeout", "timeToLive",
		"useSsl", "autoReconnect", "pingBeforeActivateConnection",
		"poolMaxTotal", "poolMaxIdle", "poolMinIdle", "poolMaxWait",
		"cluster.nodes", "sentinel.master", "sentinel.nodes", "sentinel.password",
	} {
		_ = v.BindEnv(key(k))
	}
}

func key(k string) string { return fmt.Sprintf("%s.%s", Prefix, k) }
