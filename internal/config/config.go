package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvJWTSecret      = "JWT_SECRET"
	EnvJWTExpiry      = "JWT_EXPIRY"
	EnvAuthJWKSURL    = "AUTH_JWKS_URL"
	EnvAuthJWTSecret  = "AUTH_JWT_SECRET"
	EnvAuthIssuer     = "AUTH_ISSUER"
	EnvResendAPIKey   = "RESEND_API_KEY"
	EnvEmailFrom      = "EMAIL_FROM"
	EnvAppURL         = "APP_URL"
	EnvSupabaseURL    = "SUPABASE_URL"
	EnvSupabaseKey    = "SUPABASE_SERVICE_ROLE_KEY"
	EnvStorageBucket  = "STORAGE_BUCKET"
	EnvStorageDir     = "STORAGE_LOCAL_DIR"
	EnvCORSOrigins    = "CORS_ALLOWED_ORIGINS"
	EnvPlanCatalogURL = "PLAN_CATALOG_URL"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
// A .env file in the working directory is applied first when present;
// variables already set in the process environment win.
func LoadFromEnv() (AppConfig, error) {
	if errLoad := godotenv.Load(); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
		log.WithError(errLoad).Warn("config: load .env failed")
	}
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds the secret and expiry used for platform admin tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// AuthConfig describes how hosted-auth session tokens are verified.
// JWKSURL takes precedence; JWTSecret enables HS256 verification.
type AuthConfig struct {
	JWKSURL   string `yaml:"jwks-url"`
	JWTSecret string `yaml:"jwt-secret"`
	Issuer    string `yaml:"issuer"`
}

// EmailConfig holds outbound email settings.
type EmailConfig struct {
	ResendAPIKey string `yaml:"resend-api-key"`
	From         string `yaml:"from"`
	AppURL       string `yaml:"app-url"`
}

// StorageConfig holds photo object storage settings.
type StorageConfig struct {
	SupabaseURL string `yaml:"supabase-url"`
	ServiceKey  string `yaml:"service-key"`
	Bucket      string `yaml:"bucket"`
	LocalDir    string `yaml:"local-dir"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed-origins"`
}

// PlansConfig configures the plan catalog syncer.
type PlansConfig struct {
	CatalogURL   string        `yaml:"catalog-url"`
	SyncInterval time.Duration `yaml:"sync-interval"`
}

const (
	defaultEmailFrom     = "EventHub <onboarding@resend.dev>"
	defaultAppURL        = "http://localhost:3000"
	defaultStorageBucket = "event-photos"
	defaultStorageDir    = "./data/photos"
)

// readConfigFile unmarshals the YAML config into out. A missing file is not an error.
func readConfigFile(configPath string, out any) error {
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if errors.Is(errRead, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, out); errUnmarshal != nil {
		return fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return nil
}

// envOr returns the trimmed env value when set, otherwise fallback.
func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads admin JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LoadAuthConfig loads hosted-auth verification settings.
func LoadAuthConfig(configPath string) (AuthConfig, error) {
	type fileConfig struct {
		Auth AuthConfig `yaml:"auth"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return AuthConfig{}, errRead
	}
	return AuthConfig{
		JWKSURL:   envOr(EnvAuthJWKSURL, cfg.Auth.JWKSURL),
		JWTSecret: envOr(EnvAuthJWTSecret, cfg.Auth.JWTSecret),
		Issuer:    envOr(EnvAuthIssuer, cfg.Auth.Issuer),
	}, nil
}

// LoadEmailConfig loads outbound email settings.
func LoadEmailConfig(configPath string) (EmailConfig, error) {
	type fileConfig struct {
		Email EmailConfig `yaml:"email"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return EmailConfig{}, errRead
	}
	result := EmailConfig{
		ResendAPIKey: envOr(EnvResendAPIKey, cfg.Email.ResendAPIKey),
		From:         envOr(EnvEmailFrom, cfg.Email.From),
		AppURL:       envOr(EnvAppURL, cfg.Email.AppURL),
	}
	if result.From == "" {
		result.From = defaultEmailFrom
	}
	if result.AppURL == "" {
		result.AppURL = defaultAppURL
	}
	result.AppURL = strings.TrimRight(result.AppURL, "/")
	return result, nil
}

// LoadStorageConfig loads photo storage settings.
func LoadStorageConfig(configPath string) (StorageConfig, error) {
	type fileConfig struct {
		Storage StorageConfig `yaml:"storage"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return StorageConfig{}, errRead
	}
	result := StorageConfig{
		SupabaseURL: envOr(EnvSupabaseURL, cfg.Storage.SupabaseURL),
		ServiceKey:  envOr(EnvSupabaseKey, cfg.Storage.ServiceKey),
		Bucket:      envOr(EnvStorageBucket, cfg.Storage.Bucket),
		LocalDir:    envOr(EnvStorageDir, cfg.Storage.LocalDir),
	}
	if result.Bucket == "" {
		result.Bucket = defaultStorageBucket
	}
	if result.LocalDir == "" {
		result.LocalDir = defaultStorageDir
	}
	return result, nil
}

// LoadCORSConfig loads allowed browser origins. Env is a comma separated list.
func LoadCORSConfig(configPath string) (CORSConfig, error) {
	type fileConfig struct {
		CORS CORSConfig `yaml:"cors"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return CORSConfig{}, errRead
	}
	origins := cfg.CORS.AllowedOrigins
	if raw := strings.TrimSpace(os.Getenv(EnvCORSOrigins)); raw != "" {
		origins = strings.Split(raw, ",")
	}
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return CORSConfig{AllowedOrigins: cleaned}, nil
}

// defaultPlanSyncInterval applies when a catalog URL is set without an interval.
const defaultPlanSyncInterval = time.Hour

// LoadPlansConfig loads plan catalog sync settings.
func LoadPlansConfig(configPath string) (PlansConfig, error) {
	type fileConfig struct {
		Plans PlansConfig `yaml:"plans"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return PlansConfig{}, errRead
	}
	result := PlansConfig{
		CatalogURL:   envOr(EnvPlanCatalogURL, cfg.Plans.CatalogURL),
		SyncInterval: cfg.Plans.SyncInterval,
	}
	if result.SyncInterval <= 0 {
		result.SyncInterval = defaultPlanSyncInterval
	}
	return result, nil
}

// ServerConfig holds listener settings for the main server.
type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

// LoadServerConfig reads listener settings. A zero port means the caller's default applies.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	var cfg ServerConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return ServerConfig{}, errRead
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Port < 0 || cfg.Port > 65535 {
		return ServerConfig{}, fmt.Errorf("invalid port in config: %d", cfg.Port)
	}
	return cfg, nil
}
