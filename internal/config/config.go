// Package config reads service configuration from the environment with
// sensible local-dev fallbacks.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func NewPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnv("POSTGRES_PORT", "5432"),
		User:     getEnv("POSTGRES_USER", "user"),
		Password: getEnv("POSTGRES_PASSWORD", "pass"),
		DBName:   getEnv("POSTGRES_DATABASE", "payments"),
	}
}

func (c *PostgresConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

type GatewayConfig struct {
	BaseURL       string
	APIKey        string
	SecretKey     string
	ContractCode  string
	CurrencyCode  string
	RedirectURL   string
	WebhookSecret string

	RequestTimeout time.Duration
}

func NewGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		BaseURL:        getEnv("GATEWAY_BASE_URL", "https://sandbox.monnify.com/api/v1"),
		APIKey:         getEnv("GATEWAY_API_KEY", ""),
		SecretKey:      getEnv("GATEWAY_SECRET_KEY", ""),
		ContractCode:   getEnv("GATEWAY_CONTRACT_CODE", ""),
		CurrencyCode:   getEnv("GATEWAY_CURRENCY_CODE", "NGN"),
		RedirectURL:    getEnv("GATEWAY_REDIRECT_URL", "https://academy.web3nova.org/payments/callback"),
		WebhookSecret:  getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		RequestTimeout: getDurationEnv("GATEWAY_REQUEST_TIMEOUT", 30*time.Second),
	}
}

type KafkaConfig struct {
	Host               string
	NotificationsTopic string
}

func NewKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Host:               getEnv("KAFKA_HOST", "localhost"),
		NotificationsTopic: getEnv("KAFKA_NOTIFICATIONS_TOPIC", "payment_notifications"),
	}
}

type ServerConfig struct {
	HTTPAddr          string
	PaymentExpiryDays int
	SweepInterval     time.Duration
	OutboxInterval    time.Duration
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		HTTPAddr:          getEnv("HTTP_ADDR", ":7580"),
		PaymentExpiryDays: getIntEnv("PAYMENT_EXPIRY_DAYS", 3),
		SweepInterval:     getDurationEnv("SWEEP_INTERVAL", 10*time.Minute),
		OutboxInterval:    getDurationEnv("OUTBOX_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
