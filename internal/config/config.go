// Package config loads settings for docstored and the notes CLI.
//
// Values come from, in increasing priority: built-in defaults, an optional
// notekeeper.yaml, a .env file, and NOTES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store and client driver names.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
	DriverRemote = "remote"
)

// Config holds every setting of both binaries.
type Config struct {
	LogLevel string
	Server   ServerConfig
	Store    StoreConfig
	Redis    RedisConfig
	Client   ClientConfig
}

// ServerConfig configures docstored's listener and auth.
type ServerConfig struct {
	Addr       string
	JWTSecret  string
	TokenTTL   time.Duration
	LoginRate  int // requests per minute per peer
	LoginBurst int
	CORSOrigin string
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Driver        string
	SQLitePath    string
	MongoURI      string
	MongoTimeout  time.Duration
	UsersDatabase string
}

// RedisConfig points at the token revocation list. An empty Addr keeps revocations in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClientConfig configures the notes CLI.
type ClientConfig struct {
	Driver       string
	Endpoint     string
	DatabaseID   string
	CollectionID string
	SessionPath  string
	UserID       string
	Timeout      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.login_rate", 10)
	v.SetDefault("server.login_burst", 5)
	v.SetDefault("server.cors_origin", "*")

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite_path", "./data/notes.db")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_timeout", 10*time.Second)
	v.SetDefault("store.users_database", "notekeeper")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("client.driver", DriverRemote)
	v.SetDefault("client.endpoint", "http://localhost:8080")
	v.SetDefault("client.database_id", "default")
	v.SetDefault("client.collection_id", "notes")
	v.SetDefault("client.session_path", defaultSessionPath())
	v.SetDefault("client.user_id", "")
	v.SetDefault("client.timeout", time.Duration(0))
}

// bindEnv registers environment names that do not follow the NOTES_<KEY> pattern.
func bindEnv(v *viper.Viper) error {
	aliases := map[string][]string{
		"log_level":            {"NOTES_LOG_LEVEL", "LOG_LEVEL"},
		"client.database_id":   {"NOTES_CLIENT_DATABASE_ID", "NOTES_DATABASE_ID", "EXPO_PUBLIC_DATABASE_ID"},
		"client.collection_id": {"NOTES_CLIENT_COLLECTION_ID", "NOTES_COLLECTION_ID", "EXPO_PUBLIC_COLLECTION_ID"},
	}
	for key, names := range aliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the configuration. path names a config file; when empty,
// notekeeper.yaml is looked up in the working directory and the user config
// directory, and its absence is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("notekeeper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "notekeeper"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		LogLevel: v.GetString("log_level"),
		Server: ServerConfig{
			Addr:       v.GetString("server.addr"),
			JWTSecret:  v.GetString("server.jwt_secret"),
			TokenTTL:   v.GetDuration("server.token_ttl"),
			LoginRate:  v.GetInt("server.login_rate"),
			LoginBurst: v.GetInt("server.login_burst"),
			CORSOrigin: v.GetString("server.cors_origin"),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(v.GetString("store.driver")),
			SQLitePath:    v.GetString("store.sqlite_path"),
			MongoURI:      v.GetString("store.mongo_uri"),
			MongoTimeout:  v.GetDuration("store.mongo_timeout"),
			UsersDatabase: v.GetString("store.users_database"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Client: ClientConfig{
			Driver:       strings.ToLower(v.GetString("client.driver")),
			Endpoint:     v.GetString("client.endpoint"),
			DatabaseID:   v.GetString("client.database_id"),
			CollectionID: v.GetString("client.collection_id"),
			SessionPath:  v.GetString("client.session_path"),
			UserID:       v.GetString("client.user_id"),
			Timeout:      v.GetDuration("client.timeout"),
		},
	}
}

// ValidateServer checks the settings docstored needs.
func (c *Config) ValidateServer() error {
	if c.Server.JWTSecret == "" {
		return errors.New("server.jwt_secret is required (set NOTES_SERVER_JWT_SECRET)")
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl must be positive, got %s", c.Server.TokenTTL)
	}
	if c.Server.LoginRate <= 0 || c.Server.LoginBurst <= 0 {
		return errors.New("server.login_rate and server.login_burst must be positive")
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store.mongo_uri is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// ValidateClient checks the settings the notes CLI needs.
func (c *Config) ValidateClient() error {
	if c.Client.DatabaseID == "" || c.Client.CollectionID == "" {
		return errors.New("client.database_id and client.collection_id are required")
	}
	switch c.Client.Driver {
	case DriverRemote:
		if c.Client.Endpoint == "" {
			return errors.New("client.endpoint is required for the remote driver")
		}
		if c.Client.SessionPath == "" {
			return errors.New("client.session_path is required for the remote driver")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store.mongo_uri is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown client.driver %q", c.Client.Driver)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative, got %s", c.Client.Timeout)
	}
	return nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".notekeeper-session.json")
	}
	return filepath.Join(dir, "notekeeper", "session.json")
}
