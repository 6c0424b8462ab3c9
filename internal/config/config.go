package config // package config loads application configuration from environment variables

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Only DBPath is usually changed for a desktop
// install; everything else has a working default so a fresh checkout runs
// without a .env file.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	DBPath    string // SQLite database file
	LogLevel  string // debug | info | warn | error
	LogFormat string // text | json
	SeedDemo  bool   // seed demo zones and staff accounts on an empty database

	SessionSecret string        // HMAC key for session tokens
	SessionTTL    time.Duration // session token lifetime

	Lockout LockoutConfig
	Pickup  PickupConfig
	Cache   CacheConfig

	NotifyAdmins       bool // fan out a summary notification to admins on every transition
	AllowRoleAtProfile bool // profile completion may switch Resident to WasteCollector

	RabbitMQURL string // empty disables event publishing
}

// PickupConfig describes the operational window for new pickup requests.
type PickupConfig struct {
	MinLead      time.Duration // requested time must be at least this far in the future
	WindowStart  int           // first bookable hour (inclusive)
	WindowEnd    int           // closing hour (exclusive)
	SlotMinutes  int           // requested minutes must be a multiple of this
	ReasonMinLen int           // minimum length of a FAILED/CANCELLED reason
	Location     *time.Location
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory is loaded first when
// present; real environment variables win over it.
func Load() Config {
	_ = godotenv.Load()

	loc := time.Local
	if name := envStr("PICKUP_TZ", ""); name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		}
	}

	return Config{
		Env:           envStr("APP_ENV", "dev"),
		DBPath:        envStr("DB_PATH", "smart_waste.db"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogFormat:     envStr("LOG_FORMAT", "text"),
		SeedDemo:      envBool("SEED_DEMO", true),
		SessionSecret: envStr("SESSION_SECRET", "dev-secret-change-me"),
		SessionTTL:    time.Duration(envInt("SESSION_TTL_MIN", 480)) * time.Minute,
		Lockout:       LoadLockoutConfig(),
		Pickup: PickupConfig{
			MinLead:      envDur("PICKUP_MIN_LEAD", 30*time.Minute),
			WindowStart:  envInt("PICKUP_WINDOW_START", 8),
			WindowEnd:    envInt("PICKUP_WINDOW_END", 18),
			SlotMinutes:  envInt("PICKUP_SLOT_MIN", 30),
			ReasonMinLen: envInt("PICKUP_REASON_MIN_LEN", 3),
			Location:     loc,
		},
		Cache:              LoadCacheConfig(),
		NotifyAdmins:       envBool("NOTIFY_ADMINS", true),
		AllowRoleAtProfile: envBool("ALLOW_ROLE_AT_PROFILE", false),
		RabbitMQURL:        firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
	}
}

// NewLogger creates a structured logger with configurable level and format.
// level: "debug", "info", "warn", "error" (defaults to info if invalid)
// format: "json" for JSON output, anything else for human-readable text
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
