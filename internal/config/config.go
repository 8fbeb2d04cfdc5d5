package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("imagefeed version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Unsplash   UnsplashConfig   `mapstructure:"unsplash"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	TokenStore TokenStoreConfig `mapstructure:"token_store"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// UnsplashConfig holds the application credentials and API locations
type UnsplashConfig struct {
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	RedirectURI string `mapstructure:"redirect_uri"`
	Scope       string `mapstructure:"scope"`
	AuthURL     string `mapstructure:"auth_url"` // base of /oauth/authorize and /oauth/token
	APIURL      string `mapstructure:"api_url"`
	PerPage     int    `mapstructure:"per_page"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// TokenStoreBackend selects where the bearer token is persisted
type TokenStoreBackend string

const (
	TokenStoreFile   TokenStoreBackend = "file"
	TokenStoreRedis  TokenStoreBackend = "redis"
	TokenStoreMemory TokenStoreBackend = "memory"
)

type TokenStoreConfig struct {
	Backend  TokenStoreBackend `mapstructure:"backend"`
	Path     string            `mapstructure:"path"`
	TokenKey string            `mapstructure:"token_key"`
	Redis    RedisConfig       `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ServerMode string

const (
	ServerModeSSE   ServerMode = "sse"
	ServerModeSTDIO ServerMode = "stdio"
	ServerModeHTTP  ServerMode = "http"
)

type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Mode    ServerMode `mapstructure:"mode"`
	Name    string     `mapstructure:"name"`
	Version string     `mapstructure:"version"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// ErrMissingCredentials is returned by Load when the application keys are not configured
var ErrMissingCredentials = errors.New("unsplash access_key and secret_key are required")

// InitFlags initializes command line flags (without parsing)
func InitFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a config file")
	flags.String("mode", string(ServerModeSTDIO), "MCP server mode (stdio|sse|http)")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("unsplash.access_key", "")
	v.SetDefault("unsplash.secret_key", "")
	v.SetDefault("unsplash.redirect_uri", "urn:ietf:wg:oauth:2.0:oob")
	v.SetDefault("unsplash.scope", "public+read_user+write_likes")
	v.SetDefault("unsplash.auth_url", "https://unsplash.com")
	v.SetDefault("unsplash.api_url", "https://api.unsplash.com")
	v.SetDefault("unsplash.per_page", 10)

	v.SetDefault("http.timeout", 30*time.Second)

	v.SetDefault("token_store.backend", string(TokenStoreFile))
	v.SetDefault("token_store.path", filepath.Join(home, ".imagefeed", "token.yaml"))
	v.SetDefault("token_store.token_key", "Bearer Token")
	v.SetDefault("token_store.redis.addr", "localhost:6379")
	v.SetDefault("token_store.redis.password", "")
	v.SetDefault("token_store.redis.db", 0)
	v.SetDefault("token_store.redis.prefix", "imagefeed")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", string(ServerModeSTDIO))
	v.SetDefault("server.name", "imagefeed")
	v.SetDefault("server.version", version)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.disable_stacktrace", true)
}

// Load reads the configuration from defaults, config files, the environment
// and the given flag set, in increasing order of precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("IMAGEFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".imagefeed"))
		}
		v.AddConfigPath("/etc/imagefeed")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, everything can come from the environment
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Flags only win over the file when they were set explicitly
	if flags != nil && flags.Changed("mode") {
		switch mode := ServerMode(v.GetString("mode")); mode {
		case ServerModeSSE, ServerModeSTDIO, ServerModeHTTP:
			config.Server.Mode = mode
		default:
			return nil, fmt.Errorf("unsupported server mode: %s", mode)
		}
	}
	if flags != nil && flags.Changed("log-level") {
		config.Logging.Level = v.GetString("log-level")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings every command depends on
func (c *Config) Validate() error {
	if c.Unsplash.AccessKey == "" || c.Unsplash.SecretKey == "" {
		return fmt.Errorf("%w, please adjust the config or set IMAGEFEED_UNSPLASH_ACCESS_KEY and IMAGEFEED_UNSPLASH_SECRET_KEY", ErrMissingCredentials)
	}
	if c.Unsplash.PerPage <= 0 {
		return fmt.Errorf("unsplash.per_page must be positive, got %d", c.Unsplash.PerPage)
	}
	switch c.TokenStore.Backend {
	case TokenStoreFile, TokenStoreRedis, TokenStoreMemory:
	default:
		return fmt.Errorf("unsupported token store backend: %s", c.TokenStore.Backend)
	}
	return nil
}
