// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Окружения, в которых может работать сервис.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	PaymentProvider         PaymentProvider `yaml:"payment_provider"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	SMTP                    SMTP            `yaml:"smtp"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"45s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"24h"`
}

// PaymentProvider настройки платёжного провайдера.
// SecretKey может быть пустым: его отсутствие обнаруживается при первой живой проверке платежа.
type PaymentProvider struct {
	BaseURL             string        `yaml:"base_url" env:"PAYMENT_PROVIDER_BASE_URL" env-default:"https://api.paystack.co"`
	SecretKey           string        `yaml:"secret_key" env:"PAYMENT_PROVIDER_SECRET_KEY"`
	Timeout             time.Duration `yaml:"timeout" env:"PAYMENT_PROVIDER_TIMEOUT" env-default:"30s"`
	TestReferencePrefix string        `yaml:"test_reference_prefix" env:"PAYMENT_TEST_REFERENCE_PREFIX" env-default:"test_"`
	TestAmount          string        `yaml:"test_amount" env:"PAYMENT_TEST_AMOUNT" env-default:"10.00"`
	TestCurrency        string        `yaml:"test_currency" env:"PAYMENT_TEST_CURRENCY" env-default:"NGN"`
}

// TestAmountDecimal возвращает фиксированную сумму тестовых платежей.
func (p PaymentProvider) TestAmountDecimal() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(p.TestAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config.TestAmountDecimal: %w", err)
	}
	return amount.Round(2), nil
}

// RabbitMQ настройки подключения к брокеру.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// SMTP настройки почтового сервера для отправки чеков.
type SMTP struct {
	Host string `yaml:"host" env:"SMTP_HOST"`
	Port string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User string `yaml:"user" env:"SMTP_USER"`
	Pass string `yaml:"pass" env:"SMTP_PASS"`
}

// RateLimit настройки ограничения частоты запросов.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

// MustLoad функция для загрузки конфига. Путь к файлу берётся из CONFIG_PATH,
// переменные окружения (в том числе из .env) перекрывают значения из файла.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла без завершения процесса.
func Load(configPath string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProd сообщает, запущен ли сервис в боевом окружении.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"PaymentProvider:\n"+
			"  BaseURL: %s\n"+
			"  SecretKey: %s\n"+
			"  Timeout: %s\n"+
			"  TestReferencePrefix: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"SMTP:\n"+
			"  Host: %s\n"+
			"  User: %s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.MigrationsPath,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.AddressRedis,
		c.User,
		mask(c.Password),
		c.DB,
		mask(c.JWTSecretKey),
		c.TokenTTL,
		c.PaymentProvider.BaseURL,
		mask(c.PaymentProvider.SecretKey),
		c.PaymentProvider.Timeout,
		c.PaymentProvider.TestReferencePrefix,
		mask(c.RabbitMQ.URL),
		c.SMTP.Host,
		c.SMTP.User,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
