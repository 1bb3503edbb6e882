package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// MaxReceiptBytes is the hard upper bound for a receipt image (300 KB).
const MaxReceiptBytes int64 = 300 * 1024

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Receipts  ReceiptsConfig
	Clearance ClearanceConfig
	Cache     CacheConfig
	Mail      MailConfig
	Swagger   SwaggerConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	ResetExpiration   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// HTTPConfig bounds how long a single request may hold the server.
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ReceiptsConfig controls receipt storage, validation and signed downloads.
type ReceiptsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	AllowedExts      []string
}

// ClearanceConfig tunes the clearance workflow rules.
type ClearanceConfig struct {
	ExcludedUnits      []string
	SuperReviewerUnits []string
	MaxAcademicYear    int
	SlipSecret         string
	SlipTTL            time.Duration
}

// CacheConfig governs cache TTLs for read-mostly catalog data.
type CacheConfig struct {
	Enabled bool
	FeeTTL  time.Duration
}

// MailConfig configures outbound e-mail. An empty APIKey disables delivery.
type MailConfig struct {
	SendgridAPIKey string
	FromName       string
	FromAddress    string
	SubjectPrefix  string
	ResetURL       string
}

type SwaggerConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), 30*time.Minute),
		AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		ResetExpiration:   parseDuration(v.GetString("PASSWORD_RESET_EXPIRATION"), 30*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.HTTP = HTTPConfig{
		ReadTimeout:  parseDuration(v.GetString("HTTP_READ_TIMEOUT"), 15*time.Second),
		WriteTimeout: parseDuration(v.GetString("HTTP_WRITE_TIMEOUT"), 30*time.Second),
	}

	maxReceipt := v.GetInt64("RECEIPTS_MAX_FILE_SIZE")
	if maxReceipt <= 0 || maxReceipt > MaxReceiptBytes {
		maxReceipt = MaxReceiptBytes
	}
	cfg.Receipts = ReceiptsConfig{
		StorageDir:       v.GetString("RECEIPTS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("RECEIPTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("RECEIPTS_SIGNED_URL_TTL"), time.Hour),
		MaxFileSizeBytes: maxReceipt,
		AllowedMIMEs:     splitAndTrim(v.GetString("RECEIPTS_ALLOWED_MIME_TYPES")),
		AllowedExts:      splitAndTrim(v.GetString("RECEIPTS_ALLOWED_EXTENSIONS")),
	}

	cfg.Clearance = ClearanceConfig{
		ExcludedUnits:      splitAndTrim(v.GetString("CLEARANCE_EXCLUDED_UNITS")),
		SuperReviewerUnits: splitAndTrim(v.GetString("CLEARANCE_SUPER_REVIEWER_UNITS")),
		MaxAcademicYear:    v.GetInt("CLEARANCE_MAX_ACADEMIC_YEAR"),
		SlipSecret:         v.GetString("CLEARANCE_SLIP_SECRET"),
		SlipTTL:            parseDuration(v.GetString("CLEARANCE_SLIP_TTL"), 180*24*time.Hour),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		FeeTTL:  parseDuration(v.GetString("FEE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Mail = MailConfig{
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
		SubjectPrefix:  v.GetString("MAIL_SUBJECT_PREFIX"),
		ResetURL:       v.GetString("PASSWORD_RESET_URL"),
	}

	cfg.Swagger = SwaggerConfig{Enabled: v.GetBool("ENABLE_SWAGGER")}

	return cfg
}

// Validate reports configuration that would make the service unsafe to run.
func (c *Config) Validate() error {
	if c.Env == EnvProduction {
		if c.JWT.Secret == "" || c.JWT.Secret == "dev_secret" {
			return errors.New("JWT_SECRET must be set in production")
		}
		if c.Receipts.SignedURLSecret == "" || c.Receipts.SignedURLSecret == "dev_receipts_secret" {
			return errors.New("RECEIPTS_SIGNED_URL_SECRET must be set in production")
		}
		if c.Clearance.SlipSecret == "" || c.Clearance.SlipSecret == "dev_slip_secret" {
			return errors.New("CLEARANCE_SLIP_SECRET must be set in production")
		}
	}
	if c.Receipts.StorageDir == "" {
		return errors.New("RECEIPTS_STORAGE_DIR is required")
	}
	if c.Clearance.MaxAcademicYear <= 0 {
		return errors.New("CLEARANCE_MAX_ACADEMIC_YEAR must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "aju_clearance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("PASSWORD_RESET_EXPIRATION", "30m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("HTTP_READ_TIMEOUT", "15s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "30s")

	v.SetDefault("RECEIPTS_STORAGE_DIR", "./storage")
	v.SetDefault("RECEIPTS_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("RECEIPTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("RECEIPTS_MAX_FILE_SIZE", MaxReceiptBytes)
	v.SetDefault("RECEIPTS_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp")
	v.SetDefault("RECEIPTS_ALLOWED_EXTENSIONS", "jpg,jpeg,png,webp")

	v.SetDefault("CLEARANCE_EXCLUDED_UNITS", "ict")
	v.SetDefault("CLEARANCE_SUPER_REVIEWER_UNITS", "bursary,accounts")
	v.SetDefault("CLEARANCE_MAX_ACADEMIC_YEAR", 7)
	v.SetDefault("CLEARANCE_SLIP_SECRET", "dev_slip_secret")
	v.SetDefault("CLEARANCE_SLIP_TTL", "4320h")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("FEE_CACHE_TTL", "10m")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "AJU Clearance")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@aju.edu.ng")
	v.SetDefault("MAIL_SUBJECT_PREFIX", "[AJU Clearance] ")
	v.SetDefault("PASSWORD_RESET_URL", "http://localhost:3000/reset-password")

	v.SetDefault("ENABLE_SWAGGER", true)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
