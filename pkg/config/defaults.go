package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "stayloft"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultGatewayBaseURL        = "https://api.stripe.com"
	DefaultGatewaySigTolerance   = 300 * time.Second
	DefaultGatewayCurrency       = "usd"
	DefaultGatewayPaymentMethods = "card,link"
	DefaultCheckoutSessionExpiry = 30 * time.Minute
	DefaultSlotLockTTL           = 10 * time.Second

	DefaultNotificationsTopic    = "stayloft.notifications"
	DefaultNotificationsDLQTopic = "stayloft.notifications.dlq"
	DefaultNotificationsGroupID  = "stayloft-notifier"

	DefaultAdminSessionTTL = 12 * time.Hour

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
