/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	PayoutAPIBaseURL     string `mapstructure:"PAYOUT_API_BASE_URL"`
	PayoutAPIKey         string `mapstructure:"PAYOUT_API_KEY"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
	CommunityAccount     string `mapstructure:"COMMUNITY_ACCOUNT"`

	GuestFeeBps        uint16 `mapstructure:"GUEST_FEE_BPS"`
	MemberFeeBps       uint16 `mapstructure:"MEMBER_FEE_BPS"`
	NodeOperatorFeeBps uint16 `mapstructure:"NODE_OPERATOR_FEE_BPS"`
	MinTransferFeeWei  string `mapstructure:"MIN_TRANSFER_FEE_WEI"`
	MaxTransferFeeWei  string `mapstructure:"MAX_TRANSFER_FEE_WEI"`
	DailyLimitWei      string `mapstructure:"DAILY_LIMIT_WEI"`

	ScheduleCronSpec   string `mapstructure:"SCHEDULE_CRON_SPEC"`
	CollectionCronSpec string `mapstructure:"COLLECTION_CRON_SPEC"`
	SnapshotCronSpec   string `mapstructure:"SNAPSHOT_CRON_SPEC"`
	JobTimeoutSeconds  int    `mapstructure:"JOB_TIMEOUT_SECONDS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "pasifika:rate_limit")
	viper.SetDefault("GUEST_FEE_BPS", 100)
	viper.SetDefault("MEMBER_FEE_BPS", 50)
	viper.SetDefault("NODE_OPERATOR_FEE_BPS", 25)
	viper.SetDefault("MIN_TRANSFER_FEE_WEI", "100000000000000")
	viper.SetDefault("MAX_TRANSFER_FEE_WEI", "1000000000000000000")
	viper.SetDefault("DAILY_LIMIT_WEI", "100000000000000000000")
	viper.SetDefault("SCHEDULE_CRON_SPEC", "@every 1m")
	viper.SetDefault("COLLECTION_CRON_SPEC", "@every 5m")
	viper.SetDefault("SNAPSHOT_CRON_SPEC", "@hourly")
	viper.SetDefault("JOB_TIMEOUT_SECONDS", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAYOUT_API_BASE_URL")
	_ = viper.BindEnv("PAYOUT_API_KEY")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "LEDGER_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("COMMUNITY_ACCOUNT")
	_ = viper.BindEnv("GUEST_FEE_BPS")
	_ = viper.BindEnv("MEMBER_FEE_BPS")
	_ = viper.BindEnv("NODE_OPERATOR_FEE_BPS")
	_ = viper.BindEnv("MIN_TRANSFER_FEE_WEI")
	_ = viper.BindEnv("MAX_TRANSFER_FEE_WEI")
	_ = viper.BindEnv("DAILY_LIMIT_WEI")
	_ = viper.BindEnv("SCHEDULE_CRON_SPEC")
	_ = viper.BindEnv("COLLECTION_CRON_SPEC")
	_ = viper.BindEnv("SNAPSHOT_CRON_SPEC")
	_ = viper.BindEnv("JOB_TIMEOUT_SECONDS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("LEDGER_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "pasifika:rate_limit"
	}
	config.CommunityAccount = strings.ToLower(strings.TrimSpace(config.CommunityAccount))

	if config.JobTimeoutSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive job timeout configured; using default\" seconds=%d", config.JobTimeoutSeconds)
		config.JobTimeoutSeconds = 30
	}

	return
}
