package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                  = "COFFEERUN"
	defaultHTTPAddress         = "0.0.0.0:8080"
	defaultDatabasePath        = "coffeerun.db"
	defaultLogLevel            = "info"
	defaultCookieName          = "coffeerun_session"
	defaultSessionTTLHours     = 168
	defaultMagicLinkTTLMinutes = 15
	defaultAdminEmail          = "admin@example.com"
	defaultFrontendURL         = "http://localhost:5173"
	defaultRedisAddr           = "localhost:6379"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	LogLevel      string
	SigningSecret string
	CookieName    string
	SessionTTL    time.Duration
	MagicLinkTTL  time.Duration
	AdminEmail    string
	FrontendURL   string
	ResendAPIKey  string
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SecureCookies bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.session_ttl_hours", defaultSessionTTLHours)
	configViper.SetDefault("auth.magic_link_ttl_minutes", defaultMagicLinkTTLMinutes)
	configViper.SetDefault("auth.admin_email", defaultAdminEmail)
	configViper.SetDefault("auth.secure_cookies", true)
	configViper.SetDefault("frontend.url", defaultFrontendURL)
	configViper.SetDefault("resend.api_key", "")
	configViper.SetDefault("redis.enabled", false)
	configViper.SetDefault("redis.addr", defaultRedisAddr)
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		LogLevel:      configViper.GetString("log.level"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		CookieName:    configViper.GetString("auth.cookie_name"),
		SessionTTL:    time.Duration(configViper.GetInt("auth.session_ttl_hours")) * time.Hour,
		MagicLinkTTL:  time.Duration(configViper.GetInt("auth.magic_link_ttl_minutes")) * time.Minute,
		AdminEmail:    configViper.GetString("auth.admin_email"),
		FrontendURL:   configViper.GetString("frontend.url"),
		ResendAPIKey:  configViper.GetString("resend.api_key"),
		RedisEnabled:  configViper.GetBool("redis.enabled"),
		RedisAddr:     configViper.GetString("redis.addr"),
		RedisPassword: configViper.GetString("redis.password"),
		RedisDB:       configViper.GetInt("redis.db"),
		SecureCookies: configViper.GetBool("auth.secure_cookies"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if strings.TrimSpace(c.AdminEmail) == "" {
		return fmt.Errorf("auth.admin_email is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl_hours must be positive")
	}
	if c.MagicLinkTTL <= 0 {
		return fmt.Errorf("auth.magic_link_ttl_minutes must be positive")
	}
	return nil
}
