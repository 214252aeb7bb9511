package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
)

type Config struct {
	PostgresURI         string   `toml:"postgres_uri" default:"postgres://localhost:5432/kanjou?sslmode=disable"`
	RedisURI            string   `toml:"redis_uri" default:"redis://localhost:6379/0"`
	MongoURI            string   `toml:"mongo_uri" default:"mongodb://localhost:27017/kanjou"`
	AMQPURL             string   `toml:"amqp_url"`
	JWTSecret           string   `toml:"jwt_secret" default:"your-secret-key-change-in-production"`
	Port                string   `toml:"port" default:"8080"`
	FrontendURL         string   `toml:"frontend_url" default:"http://localhost:3000"`
	AllowedOrigins      []string `toml:"allowed_origins"` // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	CloudinaryName      string   `toml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string   `toml:"cloudinary_api_key"`
	CloudinaryAPISecret string   `toml:"cloudinary_api_secret"`
	Host                string   `toml:"host" default:"http://localhost:8080"`
	AllowedHost         string   `toml:"-"` // Hostname only for strict host check (production only)
	Environment         string   `toml:"env" default:"development"`
	BackupSchedule      string   `toml:"backup_schedule" default:"0 3 * * *"` // cron spec, empty disables
	EncryptionKey       string   `toml:"encryption_key"`                         // base64 AES-256 key for consent IPs

	// First admin account, created or refreshed at startup when all three are set.
	AdminUsername string `toml:"admin_username"`
	AdminEmail    string `toml:"admin_email"`
	AdminPassword string `toml:"admin_password"`

	Log   Log   `toml:"log"`
	Agent Agent `toml:"agent"`
}

type Log struct {
	Level string `toml:"level" default:"info"`
	Path  string `toml:"path"` // empty logs to stdout
}

// Agent configures the sync agent that owns the local entry buffer.
type Agent struct {
	UserName        string        `toml:"user_name"`
	LocalStore      string        `toml:"local_store" default:"sqlite"` // "sqlite" or "redis"
	LocalPath       string        `toml:"local_path" default:"kanjou-local.db"`
	SyncInterval    time.Duration `toml:"sync_interval" default:"5m"`
	DeleteChunkSize int           `toml:"delete_chunk_size" default:"100"`
	MetricsAddr     string        `toml:"metrics_addr"`
	LocalOnly       bool          `toml:"local_only"` // never contact the remote store

	MaxLoginAttempts int           `toml:"max_login_attempts" default:"5"`
	LockoutDuration  time.Duration `toml:"lockout_duration" default:"30m"`
	SessionTTL       time.Duration `toml:"session_ttl" default:"24h"`
}

// Load builds the configuration from struct defaults, then the optional
// TOML file at path, then environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	cfg.fromEnv()
	cfg.resolveHosts()
	return cfg, nil
}

// MustLoad is Load for process startup.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) fromEnv() {
	c.Environment = strings.ToLower(strings.TrimSpace(getEnv("ENV", c.Environment)))
	c.Host = getEnv("HOST", c.Host)
	c.MongoURI = getEnv("MONGODB_URI", getEnv("MONGO_URI", c.MongoURI))
	// set but empty keeps the sync agent local-only
	if v, ok := os.LookupEnv("POSTGRES_URI"); ok {
		c.PostgresURI = strings.TrimSpace(v)
	}
	c.RedisURI = getEnv("REDIS_URI", c.RedisURI)
	c.AMQPURL = getEnv("AMQP_URL", getEnv("RABBITMQ_URL", c.AMQPURL))
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.Port = getEnv("PORT", c.Port)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.CloudinaryName = getEnv("CLOUDINARY_CLOUD_NAME", c.CloudinaryName)
	c.CloudinaryAPIKey = getEnv("CLOUDINARY_API_KEY", c.CloudinaryAPIKey)
	c.CloudinaryAPISecret = getEnv("CLOUDINARY_API_SECRET", c.CloudinaryAPISecret)
	c.BackupSchedule = getEnv("BACKUP_SCHEDULE", c.BackupSchedule)
	c.EncryptionKey = getEnv("ENCRYPTION_KEY", c.EncryptionKey)
	c.AdminUsername = getEnv("ADMIN_USERNAME", c.AdminUsername)
	c.AdminEmail = getEnv("ADMIN_EMAIL", c.AdminEmail)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Path = getEnv("LOG_PATH", c.Log.Path)

	c.Agent.UserName = getEnv("AGENT_USER_NAME", c.Agent.UserName)
	c.Agent.LocalStore = strings.ToLower(getEnv("AGENT_LOCAL_STORE", c.Agent.LocalStore))
	c.Agent.LocalPath = getEnv("AGENT_LOCAL_PATH", c.Agent.LocalPath)
	c.Agent.MetricsAddr = getEnv("AGENT_METRICS_ADDR", c.Agent.MetricsAddr)
	if v := os.Getenv("AGENT_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Agent.SyncInterval = d
		}
	}
	if v := os.Getenv("AGENT_DELETE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Agent.DeleteChunkSize = n
		}
	}

	if v := os.Getenv("AGENT_LOCAL_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Agent.LocalOnly = b
		}
	}

	if origins := parseOrigins(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 {
		c.AllowedOrigins = origins
	}
}

func (c *Config) resolveHosts() {
	// AllowedHost is only set in production; host check is skipped in development
	if c.IsProduction() {
		c.AllowedHost = bareHost(c.Host)
	}

	if len(c.AllowedOrigins) == 0 {
		for _, u := range []string{c.FrontendURL, getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, u)
			}
		}
	}
	// When HOST is a backend host (e.g. api.example.com), always add https://domain and https://www.domain
	hostForCORS := bareHost(c.Host)
	if hostForCORS != "" && hostForCORS != "localhost" {
		parts := strings.Split(hostForCORS, ".")
		if len(parts) >= 2 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(c.AllowedOrigins, origin) {
					c.AllowedOrigins = append(c.AllowedOrigins, origin)
				}
			}
		}
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:3000"}
	}
}

// bareHost strips scheme, path and port from a host URL.
func bareHost(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// CloudinaryEnabled reports whether all Cloudinary credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
