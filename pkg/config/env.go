package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvGatewayBaseURL         = "GATEWAY_BASE_URL"
	EnvGatewaySecretKey       = "GATEWAY_SECRET_KEY"
	EnvGatewayWebhookSecret   = "GATEWAY_WEBHOOK_SECRET"
	EnvGatewaySigTolerance    = "GATEWAY_SIGNATURE_TOLERANCE"
	EnvGatewayCurrency        = "GATEWAY_CURRENCY"
	EnvGatewayPaymentMethods  = "GATEWAY_PAYMENT_METHODS"
	EnvCheckoutSuccessURL     = "CHECKOUT_SUCCESS_URL"
	EnvCheckoutCancelURL      = "CHECKOUT_CANCEL_URL"
	EnvCheckoutSessionExpiry  = "CHECKOUT_SESSION_EXPIRY"
	EnvSlotLockTTL            = "SLOT_LOCK_TTL"
	EnvNotificationsTopic     = "NOTIFICATIONS_TOPIC"
	EnvNotificationsDLQTopic  = "NOTIFICATIONS_DLQ_TOPIC"
	EnvNotificationsGroupID   = "NOTIFICATIONS_GROUP_ID"
	EnvMailRelayURL           = "MAIL_RELAY_URL"
	EnvAdminNotifyEmail       = "ADMIN_NOTIFY_EMAIL"
	EnvAdminEmail             = "ADMIN_EMAIL"
	EnvAdminPassword          = "ADMIN_PASSWORD"
	EnvAdminSessionKey        = "ADMIN_SESSION_KEY"
	EnvAdminSessionTTL        = "ADMIN_SESSION_TTL"
	EnvAdminDeleteSecret      = "ADMIN_DELETE_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
