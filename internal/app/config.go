package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, CANVASD_FIELD_HMAC_KEY MUST be set (>= 32 bytes) and ban/invite
	// field hashing at rest must be HMAC-based.
	RequireFieldHMAC bool

	// Canvas session defaults, applied to every session the gateway creates.
	SessionBaseSizeLimit  uint
	SessionEmergencyExtra uint
	SessionMaxInvites     int
	SessionMaxInviteUses  int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("CANVASD_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("CANVASD_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("CANVASD_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CANVASD_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CANVASD_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("CANVASD_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("CANVASD_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("CANVASD_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("CANVASD_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CANVASD_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("CANVASD_READINESS_REQUIRE_DB", false),

		RequireFieldHMAC: EnvBool("CANVASD_REQUIRE_FIELD_HMAC", false),

		SessionBaseSizeLimit:  uint(EnvInt("CANVASD_SESSION_BASE_SIZE_LIMIT", 0)),
		SessionEmergencyExtra: uint(EnvInt("CANVASD_SESSION_EMERGENCY_EXTRA", 0)),
		SessionMaxInvites:     EnvInt("CANVASD_SESSION_MAX_INVITES", 100),
		SessionMaxInviteUses:  EnvInt("CANVASD_SESSION_MAX_INVITE_USES", 1000),
	}
}
