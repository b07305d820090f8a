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

	// Durable store. Empty means in-memory dev mode.
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Shared cache/presence/relay bus. Empty means process-local dev mode
	// (no cross-instance consistency).
	RedisURL string

	CacheCapacity int
	DefaultRooms  []string

	WSSendQueue         int
	WSWriteTimeout      time.Duration
	WSReadIdleTimeout   time.Duration
	WSHeartbeatInterval time.Duration
	WSHeartbeatTimeout  time.Duration
	WSRateEvents        int
	WSRateWindow        time.Duration

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("RIPPLE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("RIPPLE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("RIPPLE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("RIPPLE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("RIPPLE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("RIPPLE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("RIPPLE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("RIPPLE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("RIPPLE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("RIPPLE_DB_MIN_CONNS", 0),

		RedisURL: EnvString("RIPPLE_REDIS_URL", ""),

		CacheCapacity: EnvInt("RIPPLE_CACHE_CAPACITY", 50),
		DefaultRooms:  EnvCSV("RIPPLE_DEFAULT_ROOMS", "general,random,tech"),

		WSSendQueue:         EnvInt("RIPPLE_WS_SEND_QUEUE", 256),
		WSWriteTimeout:      EnvDuration("RIPPLE_WS_WRITE_TIMEOUT", 5*time.Second),
		WSReadIdleTimeout:   EnvDuration("RIPPLE_WS_READ_IDLE_TIMEOUT", 2*time.Minute),
		WSHeartbeatInterval: EnvDuration("RIPPLE_WS_HEARTBEAT_INTERVAL", 25*time.Second),
		WSHeartbeatTimeout:  EnvDuration("RIPPLE_WS_HEARTBEAT_TIMEOUT", 5*time.Second),
		WSRateEvents:        EnvInt("RIPPLE_WS_RATE_EVENTS", 120),
		WSRateWindow:        EnvDuration("RIPPLE_WS_RATE_WINDOW", 10*time.Second),

		ReadinessRequireDB: EnvBool("RIPPLE_READINESS_REQUIRE_DB", false),
	}
}
