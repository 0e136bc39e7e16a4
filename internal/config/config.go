// Package config loads the gateway's runtime configuration from flags,
// environment variables, and an optional config file, layered by viper in
// that precedence order.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	GRPCListen string `mapstructure:"grpc_listen"`
	HTTPListen string `mapstructure:"http_listen"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	AllowedOrigin string `mapstructure:"allowed_origin"`

	// AuthzEnabled toggles JWS bearer-token parsing in internal/rpc; when
	// false every call runs under authz.Disabled.
	AuthzEnabled bool `mapstructure:"authz_enabled"`

	// MaxConnections bounds the Connect dispatcher's ConnectionQueue.
	MaxConnections int `mapstructure:"max_connections"`

	// MaxSubscriptionsPerDevice seeds subscription.New for devices that do
	// not report their own limit.
	MaxSubscriptionsPerDevice uint32 `mapstructure:"max_subscriptions_per_device"`

	LogLevel string `mapstructure:"log_level"`

	// ScytaleURL/ScytaleAuth name an upstream WRP endpoint and the
	// Authorization header value for a device.WRPCommandForwarder. They are
	// loaded but not read by cmd/catenagw, whose demo device has no
	// forwarding command.
	ScytaleURL  string `mapstructure:"scytale_url"`
	ScytaleAuth string `mapstructure:"scytale_auth"`
}

// Default returns the built-in baseline every layer overrides.
func Default() Config {
	return Config{
		GRPCListen:                ":8920",
		HTTPListen:                ":8921",
		ReadTimeout:               15 * time.Second,
		WriteTimeout:              15 * time.Second,
		IdleTimeout:               60 * time.Second,
		AuthzEnabled:              false,
		MaxConnections:            64,
		MaxSubscriptionsPerDevice: 32,
		LogLevel:                  "info",
	}
}

// Load builds a Config from, in increasing precedence: compiled-in
// defaults, an optional file named by configPath (ini/yaml/json/toml, any
// viper-supported format), environment variables prefixed CATENAGW_, and
// command-line flags already registered on fs.
func Load(fs *pflag.FlagSet, configPath string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("grpc_listen", def.GRPCListen)
	v.SetDefault("http_listen", def.HTTPListen)
	v.SetDefault("read_timeout", def.ReadTimeout)
	v.SetDefault("write_timeout", def.WriteTimeout)
	v.SetDefault("idle_timeout", def.IdleTimeout)
	v.SetDefault("allowed_origin", def.AllowedOrigin)
	v.SetDefault("authz_enabled", def.AuthzEnabled)
	v.SetDefault("max_connections", def.MaxConnections)
	v.SetDefault("max_subscriptions_per_device", def.MaxSubscriptionsPerDevice)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("scytale_url", def.ScytaleURL)
	v.SetDefault("scytale_auth", def.ScytaleAuth)

	v.SetEnvPrefix("catenagw")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	if fs != nil {
		// Flags are dashed (grpc-listen) while config keys are underscored
		// (grpc_listen); bind each flag under its config key.
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if bindErr == nil {
				bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
			}
		})
		if bindErr != nil {
			return Config{}, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RegisterFlags declares the gateway's command-line flags on fs; the
// caller must call fs.Parse before passing fs to Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("grpc-listen", "", "gRPC (Transport A) listen address")
	fs.String("http-listen", "", "HTTP/SSE (Transport B) listen address")
	fs.Bool("authz-enabled", false, "require and verify JWS bearer tokens")
	fs.Int("max-connections", 0, "maximum concurrent Connect sessions")
	fs.Uint32("max-subscriptions-per-device", 0, "default per-device subscription cap")
	fs.String("log-level", "", "zap log level (debug, info, warn, error)")
	fs.String("scytale-url", "", "upstream WRP endpoint for command forwarding")
	fs.String("scytale-auth", "", "upstream WRP endpoint authorization header value")
}
