package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Broker   BrokerConfig   `mapstructure:"broker"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	// Path is the sqlite database file; ":memory:" keeps it in process.
	Path       string `mapstructure:"path"`
	LogQueries bool   `mapstructure:"log_queries"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	PoolSize int    `mapstructure:"pool_size"`
}

type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	MaxAge     int    `mapstructure:"max_age"`
	// Store selects "redis" or "cookie".
	Store string `mapstructure:"store"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BrokerConfig names the built-in principals and the storage backend.
type BrokerConfig struct {
	Backend            string `mapstructure:"backend"`
	AdminGroup         string `mapstructure:"admin_group"`
	ProjectLeaderGroup string `mapstructure:"project_leader_group"`
	UsersGroup         string `mapstructure:"users_group"`
	GuestGroup         string `mapstructure:"guest_group"`
	AdminUser          string `mapstructure:"admin_user"`
	AdminPassword      string `mapstructure:"admin_password"`
	GuestUser          string `mapstructure:"guest_user"`
	OnlineProject      string `mapstructure:"online_project"`
	BcryptCost         int    `mapstructure:"bcrypt_cost"`
}

// Load reads configuration from defaults, an optional YAML file and
// BROKER_ prefixed environment variables, in increasing precedence.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration built from defaults alone
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// SetDefaults registers every known key so that environment overrides apply
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.gin_mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "broker")
	v.SetDefault("database.password", "brokerpassword")
	v.SetDefault("database.name", "cms_broker")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "broker.db")
	v.SetDefault("database.log_queries", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("session.secret", "default-secret-key-change-me")
	v.SetDefault("session.cookie_name", "broker_session")
	v.SetDefault("session.max_age", 86400*7)
	v.SetDefault("session.store", "redis")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("broker.backend", "gorm")
	v.SetDefault("broker.admin_group", "Administrators")
	v.SetDefault("broker.project_leader_group", "Projectmanager")
	v.SetDefault("broker.users_group", "Users")
	v.SetDefault("broker.guest_group", "Guests")
	v.SetDefault("broker.admin_user", "Admin")
	v.SetDefault("broker.admin_password", "admin")
	v.SetDefault("broker.guest_user", "Guest")
	v.SetDefault("broker.online_project", "Online")
	v.SetDefault("broker.bcrypt_cost", 10)
}

// Addr returns the server listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the Redis server address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether gin runs in release mode
func (c *ServerConfig) IsProduction() bool {
	return c.GinMode == "release"
}
