package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stayloft/pkg/client"
	"stayloft/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	GatewayBaseURL        string
	GatewaySecretKey      string
	GatewayWebhookSecret  string
	GatewaySigTolerance   time.Duration
	GatewayCurrency       string
	GatewayPaymentMethods []string
	CheckoutSuccessURL    string
	CheckoutCancelURL     string
	CheckoutSessionExpiry time.Duration
	SlotLockTTL           time.Duration

	NotificationsTopic    string
	NotificationsDLQTopic string
	NotificationsGroupID  string
	MailRelayURL          string
	AdminNotifyEmail      string

	AdminEmail        string
	AdminPassword     string
	AdminSessionKey   string
	AdminSessionTTL   time.Duration
	AdminDeleteSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		GatewayBaseURL:        getEnvStr(EnvGatewayBaseURL, DefaultGatewayBaseURL),
		GatewaySecretKey:      getEnvStr(EnvGatewaySecretKey, ""),
		GatewayWebhookSecret:  getEnvStr(EnvGatewayWebhookSecret, ""),
		GatewaySigTolerance:   getEnvDuration(EnvGatewaySigTolerance, DefaultGatewaySigTolerance),
		GatewayCurrency:       getEnvStr(EnvGatewayCurrency, DefaultGatewayCurrency),
		GatewayPaymentMethods: splitCSV(getEnvStr(EnvGatewayPaymentMethods, DefaultGatewayPaymentMethods)),
		CheckoutSuccessURL:    getEnvStr(EnvCheckoutSuccessURL, ""),
		CheckoutCancelURL:     getEnvStr(EnvCheckoutCancelURL, ""),
		CheckoutSessionExpiry: getEnvDuration(EnvCheckoutSessionExpiry, DefaultCheckoutSessionExpiry),
		SlotLockTTL:           getEnvDuration(EnvSlotLockTTL, DefaultSlotLockTTL),

		NotificationsTopic:    getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		NotificationsDLQTopic: getEnvStr(EnvNotificationsDLQTopic, DefaultNotificationsDLQTopic),
		NotificationsGroupID:  getEnvStr(EnvNotificationsGroupID, DefaultNotificationsGroupID),
		MailRelayURL:          getEnvStr(EnvMailRelayURL, ""),
		AdminNotifyEmail:      getEnvStr(EnvAdminNotifyEmail, ""),

		AdminEmail:        getEnvStr(EnvAdminEmail, ""),
		AdminPassword:     getEnvStr(EnvAdminPassword, ""),
		AdminSessionKey:   getEnvStr(EnvAdminSessionKey, ""),
		AdminSessionTTL:   getEnvDuration(EnvAdminSessionTTL, DefaultAdminSessionTTL),
		AdminDeleteSecret: getEnvStr(EnvAdminDeleteSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if _, err := url.ParseRequestURI(cfg.GatewayBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("GatewayBaseURL must be a valid URL, got: %s", cfg.GatewayBaseURL))
	}
	if cfg.GatewaySigTolerance <= 0 {
		errors = append(errors, fmt.Sprintf("GatewaySigTolerance must be positive, got: %s", cfg.GatewaySigTolerance))
	}
	if len(cfg.GatewayCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("GatewayCurrency must be a 3-letter code, got: %s", cfg.GatewayCurrency))
	}
	if len(cfg.GatewayPaymentMethods) == 0 {
		errors = append(errors, "GatewayPaymentMethods cannot be empty")
	}
	if cfg.CheckoutSessionExpiry < 30*time.Minute || cfg.CheckoutSessionExpiry > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("CheckoutSessionExpiry must be between 30m and 24h, got: %s", cfg.CheckoutSessionExpiry))
	}
	if cfg.SlotLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("SlotLockTTL must be positive, got: %s", cfg.SlotLockTTL))
	}

	if cfg.NotificationsTopic == "" {
		errors = append(errors, "NotificationsTopic cannot be empty")
	}
	if cfg.NotificationsGroupID == "" {
		errors = append(errors, "NotificationsGroupID cannot be empty")
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.AdminSessionTTL <= 0 {
		errors = append(errors, fmt.Sprintf("AdminSessionTTL must be positive, got: %s", cfg.AdminSessionTTL))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"gateway_base_url", cfg.GatewayBaseURL,
		"gateway_secret_set", cfg.GatewaySecretKey != "",
		"gateway_webhook_secret_set", cfg.GatewayWebhookSecret != "",
		"gateway_signature_tolerance", cfg.GatewaySigTolerance,
		"gateway_currency", cfg.GatewayCurrency,
		"gateway_payment_methods", strings.Join(cfg.GatewayPaymentMethods, ","),
		"checkout_session_expiry", cfg.CheckoutSessionExpiry,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"notifications_topic", cfg.NotificationsTopic,
		"notifications_group_id", cfg.NotificationsGroupID,
		"mail_relay_url", cfg.MailRelayURL,
		"admin_session_key_set", cfg.AdminSessionKey != "",
		"admin_session_ttl", cfg.AdminSessionTTL,
		"admin_delete_secret_set", cfg.AdminDeleteSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
