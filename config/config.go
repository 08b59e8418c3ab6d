package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort     string
	JWTSecret   string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string

	// Seed password for the first admin account when the users table is
	// empty. Registration itself is admin-only, so without this there is
	// no way to create the first account.
	BootstrapAdminPassword string

	// Gin framework configuration
	GinMode string
	GinPath string

	// Local file storage
	StorageDir      string
	MaxUploadSizeMB int

	// GPS preview sessions
	GPSSessionTTLMinutes int

	// Database backups
	BackupDir           string
	BackupCronSpec      string // empty disables scheduled backups
	BackupRetentionDays int

	// Receipt scanning service (black-box HTTP endpoint)
	ScanEndpoint       string
	ScanAPIKey         string
	ScanTimeoutSeconds int

	// Redis for caching and token blacklist
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
// A local .env file, when present, is loaded first without overwriting
// variables already set in the environment.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "fleetms"
	}
	if c.DBName == "" {
		c.DBName = "fleetms"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.StorageDir == "" {
		c.StorageDir = "storage"
	}
	if c.MaxUploadSizeMB == 0 {
		c.MaxUploadSizeMB = 10
	}
	if c.GPSSessionTTLMinutes == 0 {
		c.GPSSessionTTLMinutes = 30
	}
	if c.BackupDir == "" {
		c.BackupDir = "backups"
	}
	if c.BackupRetentionDays == 0 {
		c.BackupRetentionDays = 30
	}
	if c.ScanTimeoutSeconds == 0 {
		c.ScanTimeoutSeconds = 20
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

func applyEnvOverrides(c *AppConfig) {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.DatabaseURI = getEnv("DATABASE_URI", c.DatabaseURI)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)

	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AdminUsernames = getEnvList("ADMIN_USERNAMES", c.AdminUsernames)
	c.BootstrapAdminPassword = getEnv("BOOTSTRAP_ADMIN_PASSWORD", c.BootstrapAdminPassword)

	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.GinPath = getEnv("GIN_LOG_PATH", c.GinPath)

	c.StorageDir = getEnv("STORAGE_DIR", c.StorageDir)
	c.MaxUploadSizeMB = getEnvInt("MAX_UPLOAD_SIZE_MB", c.MaxUploadSizeMB)
	c.GPSSessionTTLMinutes = getEnvInt("GPS_SESSION_TTL_MINUTES", c.GPSSessionTTLMinutes)

	c.BackupDir = getEnv("BACKUP_DIR", c.BackupDir)
	c.BackupCronSpec = getEnv("BACKUP_CRON", c.BackupCronSpec)
	c.BackupRetentionDays = getEnvInt("BACKUP_RETENTION_DAYS", c.BackupRetentionDays)

	c.ScanEndpoint = getEnv("SCAN_ENDPOINT", c.ScanEndpoint)
	c.ScanAPIKey = getEnv("SCAN_API_KEY", c.ScanAPIKey)
	c.ScanTimeoutSeconds = getEnvInt("SCAN_TIMEOUT_SECONDS", c.ScanTimeoutSeconds)

	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnvInt("REDIS_PORT", c.RedisPort)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	c.LogCompress = getEnvBool("LOG_COMPRESS", c.LogCompress)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// loadJSONConfig reads a flat JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	return dec.Decode(out)
}
