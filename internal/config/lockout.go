package config

import (
	"os"
	"strconv"
	"time"
)

// LockoutConfig controls attempt-based account lockout.  After Threshold
// consecutive failed logins the account is locked for Cooldown.
type LockoutConfig struct {
	Threshold int
	Cooldown  time.Duration
}

func LoadLockoutConfig() LockoutConfig {
	def := LockoutConfig{
		Threshold: envInt("LOCKOUT_THRESHOLD", 5),
		Cooldown:  envDur("LOCKOUT_COOLDOWN", 10*time.Minute),
	}
	if def.Threshold < 1 {
		def.Threshold = 1
	}
	if def.Cooldown <= 0 {
		def.Cooldown = 10 * time.Minute
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
