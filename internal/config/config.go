package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"advisor/internal/marketdata"
	"advisor/internal/models"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	MarketData MarketDataConfig
	Engine     EngineConfig
	Scheduler  SchedulerConfig
	Logging    LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// MarketDataConfig - настройки провайдеров рыночных данных
type MarketDataConfig struct {
	// Sources - провайдеры в порядке приоритета опроса
	Sources []string

	// HTTPTimeout - общий таймаут HTTP клиента провайдеров
	HTTPTimeout time.Duration

	// PriceTTL - срок жизни закэшированной текущей цены
	PriceTTL time.Duration

	// HistoryTTL - срок жизни закэшированной исторической серии
	HistoryTTL time.Duration

	// SourceTimeout - таймаут одного вызова одного провайдера
	SourceTimeout time.Duration

	// RetryAttempts - попыток на провайдера до перехода к следующему
	RetryAttempts int
}

// EngineConfig - настройки конвейера рекомендаций
type EngineConfig struct {
	// HistoryWindow - окно истории для волатильности ("30d", "60d", "90d")
	HistoryWindow models.Window

	// VolatilityLookback - период скользящих min/max для support/resistance
	VolatilityLookback int

	// UseTechnicalLevels - подтягивать stop/take к support/resistance
	UseTechnicalLevels bool
}

// SchedulerConfig - расписание фоновых задач
type SchedulerConfig struct {
	// RefreshSpec - cron-выражение обновления открытых позиций
	RefreshSpec string

	// CleanupSpec - cron-выражение очистки журнала уведомлений
	CleanupSpec string

	// NotificationRetention - срок хранения уведомлений
	NotificationRetention time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "advisor"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		MarketData: MarketDataConfig{
			Sources:       getEnvAsList("MARKET_DATA_SOURCES", []string{"yahoo", "stooq"}),
			HTTPTimeout:   getEnvAsDuration("MARKET_DATA_HTTP_TIMEOUT", 15*time.Second),
			PriceTTL:      getEnvAsDuration("PRICE_TTL", 60*time.Second),
			HistoryTTL:    getEnvAsDuration("HISTORY_TTL", 1*time.Hour),
			SourceTimeout: getEnvAsDuration("SOURCE_TIMEOUT", 10*time.Second),
			RetryAttempts: getEnvAsInt("SOURCE_RETRY_ATTEMPTS", 2),
		},
		Engine: EngineConfig{
			HistoryWindow:      models.Window(getEnv("HISTORY_WINDOW", "30d")),
			VolatilityLookback: getEnvAsInt("VOLATILITY_LOOKBACK", 20),
			UseTechnicalLevels: getEnvAsBool("USE_TECHNICAL_LEVELS", false),
		},
		Scheduler: SchedulerConfig{
			RefreshSpec:           getEnv("REFRESH_SPEC", "@every 15m"),
			CleanupSpec:           getEnv("CLEANUP_SPEC", "0 3 * * *"),
			NotificationRetention: getEnvAsDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет диапазоны и согласованность параметров
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if len(c.MarketData.Sources) == 0 {
		return fmt.Errorf("MARKET_DATA_SOURCES must name at least one source")
	}
	for _, source := range c.MarketData.Sources {
		if !marketdata.IsSupported(source) {
			return fmt.Errorf("MARKET_DATA_SOURCES: unsupported source %q (supported: %s)",
				source, strings.Join(marketdata.SupportedSources, ", "))
		}
	}
	if c.MarketData.RetryAttempts < 0 || c.MarketData.RetryAttempts > 10 {
		return fmt.Errorf("SOURCE_RETRY_ATTEMPTS must be between 0 and 10, got %d", c.MarketData.RetryAttempts)
	}
	if c.MarketData.PriceTTL <= 0 {
		return fmt.Errorf("PRICE_TTL must be positive, got %v", c.MarketData.PriceTTL)
	}
	if c.MarketData.HistoryTTL <= 0 {
		return fmt.Errorf("HISTORY_TTL must be positive, got %v", c.MarketData.HistoryTTL)
	}
	if c.MarketData.SourceTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be positive, got %v", c.MarketData.SourceTimeout)
	}

	if _, err := c.Engine.HistoryWindow.Days(); err != nil {
		return fmt.Errorf("HISTORY_WINDOW: %w", err)
	}
	if c.Engine.VolatilityLookback < 2 {
		return fmt.Errorf("VOLATILITY_LOOKBACK must be at least 2, got %d", c.Engine.VolatilityLookback)
	}

	if c.Scheduler.NotificationRetention <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must be positive, got %v", c.Scheduler.NotificationRetention)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
