// Package config loads streamgate configuration from flags, environment
// variables, and config files.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	DataDir       string              `mapstructure:"data_dir"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Policy        PolicyConfig        `mapstructure:"policy"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type StorageConfig struct {
	Catalog   BackendConfig `mapstructure:"catalog"`
	Directory BackendConfig `mapstructure:"directory"`
	Grants    BackendConfig `mapstructure:"grants"`
}

type BackendConfig struct {
	Backend string            `mapstructure:"backend"`
	Config  map[string]string `mapstructure:"config"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPProtocol   string `mapstructure:"otlp_protocol"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// PolicyConfig holds the tunable policy inputs: which roles bypass
// filtering, how the raw post visibility codes map onto tiers, and how
// long a per-type catalog lookup may run during bulk resolution.
type PolicyConfig struct {
	BypassRoles    []string                  `mapstructure:"bypass_roles"`
	PostVisibility PostVisibilityCodesConfig `mapstructure:"post_visibility"`
	ResolveTimeout time.Duration             `mapstructure:"resolve_timeout"`

	// Default permission sets applied by the decision API when a
	// request supplies an actor without explicit permissions.
	AnonymousPermissions     []string `mapstructure:"anonymous_permissions"`
	AuthenticatedPermissions []string `mapstructure:"authenticated_permissions"`
}

type PostVisibilityCodesConfig struct {
	Public    int64 `mapstructure:"public"`
	Community int64 `mapstructure:"community"`
	GroupOnly int64 `mapstructure:"group_only"`
	Excluded  int64 `mapstructure:"excluded"`
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".streamgate"
	}
	return filepath.Join(home, ".streamgate")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "text")
	v.SetDefault("observability.metrics_addr", ":9090")
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", "http")
	v.SetDefault("observability.service_name", "streamgate")
	v.SetDefault("observability.service_version", "dev")

	v.SetDefault("storage.catalog.backend", "sqlite")
	v.SetDefault("storage.directory.backend", "memory")
	v.SetDefault("storage.grants.backend", "memory")

	v.SetDefault("policy.bypass_roles", []string{"administrator", "contentmanager"})
	v.SetDefault("policy.post_visibility.public", 1)
	v.SetDefault("policy.post_visibility.community", 2)
	v.SetDefault("policy.post_visibility.group_only", 0)
	v.SetDefault("policy.post_visibility.excluded", 3)
	v.SetDefault("policy.resolve_timeout", 5*time.Second)
	v.SetDefault("policy.anonymous_permissions", []string{
		"access content", "view public posts", "access comments",
	})
	v.SetDefault("policy.authenticated_permissions", []string{
		"access content", "view public posts", "view community posts", "access comments",
	})
}

// BindServeFlags binds cobra flags to viper for the serve command.
func BindServeFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()
	f.String("data-dir", "", "data directory (default ~/.streamgate)")
	f.String("addr", "", "decision API listen address")
	f.String("config", "", "config file path")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (json, text)")
	f.String("metrics-addr", "", "metrics HTTP listen address")

	_ = v.BindPFlag("data_dir", f.Lookup("data-dir"))
	_ = v.BindPFlag("server.addr", f.Lookup("addr"))
	_ = v.BindPFlag("observability.log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("observability.log_format", f.Lookup("log-format"))
	_ = v.BindPFlag("observability.metrics_addr", f.Lookup("metrics-addr"))
}

// BindCommonFlags binds the flags shared by every command.
func BindCommonFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()
	f.String("config", "", "config file path")
	f.String("catalog", "", "catalog backend (memory, sqlite, badger)")
	f.String("directory", "", "directory backend (memory, redis)")
	f.String("grants", "", "grant source backend (memory, sqlite)")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (json, text)")

	_ = v.BindPFlag("storage.catalog.backend", f.Lookup("catalog"))
	_ = v.BindPFlag("storage.directory.backend", f.Lookup("directory"))
	_ = v.BindPFlag("storage.grants.backend", f.Lookup("grants"))
	_ = v.BindPFlag("observability.log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("observability.log_format", f.Lookup("log-format"))
}

// Load reads config from flags, env, and file, returning the merged Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("STREAMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("streamgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.streamgate")
		v.AddConfigPath("/etc/streamgate")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configFile != "" {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
