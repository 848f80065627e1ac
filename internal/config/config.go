// Package config предоставялет структуры и функцию для парсинга и загрузки конфига.
//
// Значения читаются из YAML-файла (CONFIG_PATH, необязателен), переменные окружения
// имеют приоритет над файлом.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvProduction - значение Env для боевого окружения.
const EnvProduction = "prod"

// InsecureDevSecretKey используется только если явно разрешено
// ALLOW_INSECURE_DEV_DEFAULTS и окружение не prod.
const InsecureDevSecretKey = "SuperSecretKey12345SuperSecretKey12345SuperSecretKey12345"

// Режимы регистрации пользователя.
const (
	RegistrationModeDirect = "direct"
	RegistrationModeQueued = "queued"
)

// ErrMissingSecretKey возвращается, когда секрет для подписи токенов не задан.
var ErrMissingSecretKey = errors.New("jwt secret key is not configured")

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	AllowInsecureDefaults   bool   `yaml:"allow_insecure_dev_defaults" env:"ALLOW_INSECURE_DEV_DEFAULTS"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	GRPCHealthAddress       string `yaml:"grpc_health_address" env:"GRPC_HEALTH_ADDRESS" env-default:":50051"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwt"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	Registration            `yaml:"registration"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	LoginRateLimit float64       `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT" env-default:"5"`
	LoginBurst     int           `yaml:"login_burst" env:"LOGIN_BURST" env-default:"10"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"secret_key" env:"JWT_KEY"`
	Issuer       string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"taskflow"`
	Audience     string        `yaml:"audience" env:"JWT_AUDIENCE" env-default:"taskflow"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"2h"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес означает, что хранилище статусов регистрации отключено.
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user" env:"REDIS_USER"`
	RedisDB          int           `yaml:"db" env:"REDIS_DB"`
	RedisMaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	RedisTimeout     time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT"`
}

// RabbitMQ структура для настройки подключения к брокеру.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// Registration описывает, как обрабатываются заявки на регистрацию.
type Registration struct {
	Mode string `yaml:"mode" env:"REGISTRATION_MODE" env-default:"direct"`
	// HashBeforeEnqueue заставляет API хэшировать пароль до постановки в очередь,
	// тогда в сообщении едет только хэш.
	HashBeforeEnqueue bool `yaml:"hash_before_enqueue" env:"REGISTRATION_HASH_BEFORE_ENQUEUE"`
	BcryptCost        int  `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// Load читает конфиг из файла CONFIG_PATH (если задан) и переменных окружения.
func Load() (*Config, error) {
	const op = "config.Load"
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.resolveSecret(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// IsProduction сообщает, запущен ли сервис в боевом окружении.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// QueuedRegistration сообщает, включена ли регистрация через очередь.
func (c *Config) QueuedRegistration() bool {
	return c.Mode == RegistrationModeQueued
}

func (c *Config) resolveSecret() error {
	if c.JWTSecretKey != "" {
		return nil
	}
	if c.AllowInsecureDefaults && !c.IsProduction() {
		c.JWTSecretKey = InsecureDevSecretKey
		return nil
	}
	return ErrMissingSecretKey
}

func (c *Config) validate() error {
	switch c.Mode {
	case RegistrationModeDirect, RegistrationModeQueued:
	default:
		return fmt.Errorf("unknown registration mode %q", c.Mode)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	return nil
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RegistrationMode: %s\n"+
			"HashBeforeEnqueue: %t\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  Issuer: %s\n"+
			"  Audience: %s\n"+
			"  TokenTTL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  Configured: %t\n",
		c.Env,
		c.Mode,
		c.HashBeforeEnqueue,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Issuer,
		c.Audience,
		c.TokenTTL,
		c.RedisAddress,
		c.RedisDB,
		c.RabbitMQURL != "",
	)
}
