package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Quota     QuotaConfig
	Generator GeneratorConfig
	Challenge ChallengeConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig
	Log       LogConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port            string
	Mode            string        // debug или release (gin)
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Enabled: без Redis сервис работает без блокировок и rate limiting
	Enabled bool `mapstructure:"enabled"`

	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: адрес для режима 'single', если Addrs пустой
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// AuthConfig содержит настройки проверки сессионных токенов
type AuthConfig struct {
	// PublicKeyPEM - публичный ключ провайдера идентификации (RS256)
	PublicKeyPEM string `mapstructure:"public_key_pem"`
	// HMACSecret - только для локальной разработки
	HMACSecret        string   `mapstructure:"hmac_secret"`
	AuthorizedParties []string `mapstructure:"authorized_parties"`
	CookieName        string   `mapstructure:"cookie_name"`
}

// QuotaConfig содержит настройки дневной квоты
type QuotaConfig struct {
	Default     int
	ResetWindow time.Duration `mapstructure:"reset_window"`
	// Mode: literal или atomic
	Mode     string
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	LockWait time.Duration `mapstructure:"lock_wait"`
}

// GeneratorConfig содержит настройки генератора вопросов
type GeneratorConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string
	Strict  bool
	Timeout time.Duration
}

// ChallengeConfig содержит настройки хранения вопросов
type ChallengeConfig struct {
	// Validation: validate (4 варианта и границы индекса) или lenient
	Validation string
}

// RateLimitConfig содержит лимит для генерации вопросов
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int `mapstructure:"max_requests"`
	Window      time.Duration
}

// CORSConfig содержит список разрешенных источников
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig содержит уровень и формат логов
type LogConfig struct {
	Level  string
	Format string
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения (lib/pq, golang-migrate)
func (d *DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// IsStrictValidation сообщает, нужно ли проверять форму вопроса при сохранении
func (c ChallengeConfig) IsStrictValidation() bool {
	return c.Validation != "lenient"
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8000")
	vip.SetDefault("server.mode", "debug")
	vip.SetDefault("server.read_timeout", "15s")
	vip.SetDefault("server.write_timeout", "60s")
	vip.SetDefault("server.shutdown_timeout", "10s")

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.max_open_conns", 25)
	vip.SetDefault("database.max_idle_conns", 10)
	vip.SetDefault("database.conn_max_lifetime", "1h")
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.enabled", false)
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")

	vip.SetDefault("auth.authorized_parties", []string{"http://localhost:5173", "http://localhost:5174"})
	vip.SetDefault("auth.cookie_name", "__session")

	vip.SetDefault("quota.default", 15)
	vip.SetDefault("quota.reset_window", "24h")
	vip.SetDefault("quota.mode", "literal")
	vip.SetDefault("quota.lock_ttl", "1m")
	vip.SetDefault("quota.lock_wait", "30s")

	vip.SetDefault("generator.model", "gemini-2.0-flash-lite")
	vip.SetDefault("generator.strict", false)
	vip.SetDefault("generator.timeout", "30s")

	vip.SetDefault("challenge.validation", "validate")

	vip.SetDefault("rate_limit.enabled", true)
	vip.SetDefault("rate_limit.max_requests", 10)
	vip.SetDefault("rate_limit.window", "1m")

	vip.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:5174"})

	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "json")
}

func bindEnv(vip *viper.Viper) {
	bindings := map[string]string{
		"server.port": "SERVER_PORT",
		"server.mode": "GIN_MODE",

		"database.host":     "DATABASE_HOST",
		"database.port":     "DATABASE_PORT",
		"database.user":     "DATABASE_USER",
		"database.password": "DATABASE_PASSWORD",
		"database.dbname":   "DATABASE_DBNAME",
		"database.sslmode":  "DATABASE_SSLMODE",

		"redis.enabled":     "REDIS_ENABLED",
		"redis.mode":        "REDIS_MODE",
		"redis.addrs":       "REDIS_ADDRS",
		"redis.addr":        "REDIS_ADDR",
		"redis.password":    "REDIS_PASSWORD",
		"redis.db":          "REDIS_DB",
		"redis.master_name": "REDIS_MASTER_NAME",

		"auth.public_key_pem":     "AUTH_PUBLIC_KEY_PEM",
		"auth.hmac_secret":        "AUTH_HMAC_SECRET",
		"auth.authorized_parties": "AUTH_AUTHORIZED_PARTIES",

		"quota.mode": "QUOTA_MODE",

		"generator.api_key": "GEMINI_API_KEY",
		"generator.model":   "GEMINI_MODEL",
		"generator.strict":  "GENERATOR_STRICT",

		"challenge.validation": "CHALLENGE_VALIDATION",

		"log.level":  "LOG_LEVEL",
		"log.format": "LOG_FORMAT",
	}
	for key, env := range bindings {
		_ = vip.BindEnv(key, env)
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase читает только настройки БД, без проверки остальных секций.
// Используется служебными утилитами.
func LoadDatabase(configPath string) (*DatabaseConfig, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete")
	}
	return &cfg.Database, nil
}

func read(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper без глобального состояния

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл необязателен: все секреты приходят из окружения
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				logrus.Infof("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры и допустимые значения
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Server.Mode == "release" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}

	if strings.TrimSpace(c.Auth.PublicKeyPEM) == "" && c.Auth.HMACSecret == "" {
		return fmt.Errorf("auth public key is required (check AUTH_PUBLIC_KEY_PEM env var)")
	}
	if c.Server.Mode == "release" && strings.TrimSpace(c.Auth.PublicKeyPEM) == "" {
		logrus.Warn("Auth: HMAC secret is used in release mode, configure AUTH_PUBLIC_KEY_PEM")
	}

	switch c.Quota.Mode {
	case "literal", "atomic":
	default:
		return fmt.Errorf("unsupported quota mode %q (expected literal or atomic)", c.Quota.Mode)
	}
	if c.Quota.Default <= 0 {
		return fmt.Errorf("quota.default must be positive, got %d", c.Quota.Default)
	}

	switch c.Challenge.Validation {
	case "validate", "lenient":
	default:
		return fmt.Errorf("unsupported challenge validation %q (expected validate or lenient)", c.Challenge.Validation)
	}

	if c.Generator.Strict && c.Generator.APIKey == "" {
		return fmt.Errorf("generator api key is required in strict mode (check GEMINI_API_KEY env var)")
	}

	if c.RateLimit.Enabled && c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive when rate limiting is enabled")
	}

	return nil
}
