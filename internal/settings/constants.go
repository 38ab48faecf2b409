package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the platform display name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback platform display name.
	DefaultSiteName = "EventHub"
	// UpgradeURLKey points denied tenants at the plan upgrade page.
	UpgradeURLKey = "UPGRADE_URL"
	// DefaultUpgradeURL is the fallback upgrade page.
	DefaultUpgradeURL = "/dashboard?upgrade=true"
	// PublicRateLimitKey controls requests per second per client on public endpoints.
	PublicRateLimitKey = "PUBLIC_RATE_LIMIT"
	// TenantRateLimitKey controls requests per second per tenant on authenticated endpoints.
	TenantRateLimitKey = "TENANT_RATE_LIMIT"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// BulkEmailDelayMillisKey is the pause between two bulk email sends.
	BulkEmailDelayMillisKey = "BULK_EMAIL_DELAY_MS"
	// DefaultPublicRateLimit is the fallback public rate limit (0 means unlimited).
	DefaultPublicRateLimit = 5
	// DefaultTenantRateLimit is the fallback tenant rate limit (0 means unlimited).
	DefaultTenantRateLimit = 20
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "eventhub:rl"
	// DefaultBulkEmailDelayMillis keeps bulk sends under two requests per second.
	DefaultBulkEmailDelayMillis = 600
)
