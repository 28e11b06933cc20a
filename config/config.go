package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. Values come from the
// environment (optionally seeded from a .env file) with simple defaults.
type Config struct {
	// Database settings. DBDriver selects between the embedded sqlite
	// database and an external MySQL server.
	DBDriver   string // "sqlite" or "mysql"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Storage settings. StorageDriver selects where physical files go.
	StorageDriver  string // "local" or "minio"
	LibraryPath    string // base directory for the local storage driver
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Redis settings for the optional collection cache. Leaving the
	// address empty disables caching entirely.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel string
	LogPath  string

	// Default user applied when operations are not given an explicit one.
	UserID   string
	UserName string

	// Ingestion behavior
	SkipDuplicate     bool
	CopyToLibrary     bool
	AutoConvert       bool
	AutoResample      bool
	DefaultSampleRate int

	// Plugin data
	ReplacePluginData bool

	// Result delivery and batch processing
	StreamMode      bool
	StreamChunkSize int
	MaxThreads      int
	BatchSize       int
}

// DefaultUserID is the UUID assigned to the implicit single-user setup.
const DefaultUserID = "ffffffff-1111-2222-3333-1234567890ab"

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

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "phonolib"),
		SQLitePath: getEnv("SQLITE_PATH", "phonolib.db"),

		StorageDriver:  getEnv("STORAGE_DRIVER", "local"),
		LibraryPath:    getEnv("LIBRARY_PATH", "phonolib_library"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "phonolib"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),

		UserID:   getEnv("USER_ID", DefaultUserID),
		UserName: getEnv("USER_NAME", "phonolib"),

		SkipDuplicate:     getEnvBool("SKIP_DUPLICATE", true),
		CopyToLibrary:     getEnvBool("COPY_TO_LIBRARY", true),
		AutoConvert:       getEnvBool("AUTO_CONVERT", true),
		AutoResample:      getEnvBool("AUTO_RESAMPLE", false),
		DefaultSampleRate: getEnvInt("DEFAULT_SAMPLE_RATE", 44100),

		ReplacePluginData: getEnvBool("REPLACE_PLUGIN_DATA", true),

		StreamMode:      getEnvBool("STREAM_MODE", false),
		StreamChunkSize: getEnvInt("STREAM_CHUNK_SIZE", 1),
		MaxThreads:      getEnvInt("MAX_THREADS", 2),
		BatchSize:       getEnvInt("BATCH_SIZE", 10),
	}
}
