package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Port     string
	RootDir  string // Root directory for the static fallback (index.html, app assets)
	MusicDir string // Directory holding .mp3 files, served under /musics/
	BaseURL  string // Origin the player and proxy talk to

	// Persisted player state
	StateBackend string // memory, redis or mysql
	StateProfile string // Key namespace, one per listener

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Offline cache
	CacheBackend   string // memory or minio
	CacheVersion   string
	OfflineEnabled bool
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	LocalTrackMaxBytes  int64
	ImportMaxBytes      int64
	ImportMaxConcurrent int
	ManifestReadTags    bool

	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	rootDir := getEnv("ROOT_DIR", ".")
	port := getEnv("PORT", "3000")

	return &Config{
		Port:         port,
		RootDir:      rootDir,
		MusicDir:     getEnv("MUSIC_DIR", filepath.Join(rootDir, "musics")),
		BaseURL:      getEnv("BASE_URL", "http://localhost:"+port),
		StateBackend: getEnv("STATE_BACKEND", "memory"),
		StateProfile: getEnv("STATE_PROFILE", "default"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "musicflow"),

		CacheBackend:   getEnv("CACHE_BACKEND", "memory"),
		CacheVersion:   getEnv("CACHE_VERSION", "v2"),
		OfflineEnabled: getEnvBool("OFFLINE_ENABLED", false),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "musicflow"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LocalTrackMaxBytes:  getEnvInt64("LOCAL_TRACK_MAX_BYTES", 3*1024*1024),
		ImportMaxBytes:      getEnvInt64("IMPORT_MAX_BYTES", 100<<20),
		ImportMaxConcurrent: getEnvInt("IMPORT_MAX_CONCURRENT", 5),
		ManifestReadTags:    getEnvBool("MANIFEST_READ_TAGS", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}
