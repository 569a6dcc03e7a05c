/**
 * @description
 * This package handles the configuration management for both services. It uses
 * the Viper library to read configuration from environment variables, with an
 * optional .env file, providing a centralized way to manage settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// BankConfig holds the configuration for a bank service instance.
type BankConfig struct {
	ServerPort     string `mapstructure:"BANK_SERVER_PORT"`
	AdvertisedHost string `mapstructure:"BANK_ADVERTISED_HOST"`
	GatewayURL     string `mapstructure:"GATEWAY_URL"`
	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`
}

// GatewayConfig holds the configuration for the gateway service.
type GatewayConfig struct {
	ServerPort            string `mapstructure:"GATEWAY_SERVER_PORT"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	TokenTTLHours         int    `mapstructure:"TOKEN_TTL_HOURS"`
	AdminUsername         string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword         string `mapstructure:"ADMIN_PASSWORD"`
	InternalAPIKey        string `mapstructure:"INTERNAL_API_KEY"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix  string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RateLimitPerMinute    int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	TransferEventExchange string `mapstructure:"TRANSFER_EVENT_EXCHANGE"`
}

func load(path string, out interface{}) error {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("BANK_SERVER_PORT", "9090")
	viper.SetDefault("BANK_ADVERTISED_HOST", "localhost")
	viper.SetDefault("GATEWAY_URL", "http://localhost:8080")
	viper.SetDefault("GATEWAY_SERVER_PORT", "8080")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "strife:rate_limit")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("TRANSFER_EVENT_EXCHANGE", "strife.transfers")

	_ = viper.BindEnv("BANK_SERVER_PORT")
	_ = viper.BindEnv("BANK_ADVERTISED_HOST")
	_ = viper.BindEnv("GATEWAY_URL")
	_ = viper.BindEnv("GATEWAY_SERVER_PORT")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("TOKEN_TTL_HOURS")
	_ = viper.BindEnv("ADMIN_USERNAME")
	_ = viper.BindEnv("ADMIN_PASSWORD")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TRANSFER_EVENT_EXCHANGE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	return viper.Unmarshal(out)
}

// LoadBankConfig reads the bank service configuration from the environment.
func LoadBankConfig(path string) (config BankConfig, err error) {
	if err = load(path, &config); err != nil {
		return
	}
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.GatewayURL = strings.TrimRight(strings.TrimSpace(config.GatewayURL), "/")
	return
}

// LoadGatewayConfig reads the gateway service configuration from the environment.
func LoadGatewayConfig(path string) (config GatewayConfig, err error) {
	if err = load(path, &config); err != nil {
		return
	}
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "strife:rate_limit"
	}
	if config.TokenTTLHours <= 0 {
		config.TokenTTLHours = 24
	}
	if config.RateLimitPerMinute <= 0 {
		config.RateLimitPerMinute = 120
	}
	return
}
