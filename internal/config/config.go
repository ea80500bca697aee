// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env holds the configuration values shared by every binary in the repo.
type Env struct {
	Region    string
	Endpoint  string // AWS_ENDPOINT_URL, e.g. http://localstack:4566
	Bucket    string
	Table     string
	UserIndex string

	PresignTTL time.Duration

	CognitoClientID string
	SessionSecret   string
	SessionTTL      time.Duration

	DevBypassAuth bool
	DevMode       bool

	UploadURLEndpoint string
	AnalysisEndpoint  string
	UploadURLTimeout  time.Duration
	TransferTimeout   time.Duration
	AnalysisTimeout   time.Duration
	SettleDelay       time.Duration

	APIPort        string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies is a comma-separated CIDR list whose X-Forwarded-For
	// the rate limiter believes. Empty keys on the TCP peer only.
	TrustedProxies string

	OrphanGrace   time.Duration
	JanitorDryRun bool

	LogLevel string
}

// MustLoad reads the environment variables and returns an Env struct.
// Values that fail to parse fall back to their defaults.
func MustLoad() Env {
	ttlSec, err := strconv.Atoi(get("PRESIGN_TTL_SECONDS", "900"))
	if err != nil || ttlSec <= 0 {
		ttlSec = 900
	}
	return Env{
		Region:    get("AWS_REGION", "us-east-1"),
		Endpoint:  get("AWS_ENDPOINT_URL", ""),
		Bucket:    get("S3_BUCKET", ""),
		Table:     get("DDB_TABLE", "ClaimProcessingResults"),
		UserIndex: get("DDB_USER_INDEX", "UserIdIndex"),

		PresignTTL: time.Duration(ttlSec) * time.Second,

		CognitoClientID: get("COGNITO_CLIENT_ID", ""),
		SessionSecret:   get("SESSION_SECRET", ""),
		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),

		DevBypassAuth: getBool("DEV_BYPASS_AUTH", false),
		DevMode:       getBool("DEV_MODE", false),

		UploadURLEndpoint: get("UPLOAD_URL_ENDPOINT", ""),
		AnalysisEndpoint:  get("ANALYSIS_ENDPOINT", ""),
		UploadURLTimeout:  getDuration("UPLOAD_URL_TIMEOUT", 10*time.Second),
		TransferTimeout:   getDuration("TRANSFER_TIMEOUT", 30*time.Second),
		AnalysisTimeout:   getDuration("ANALYSIS_TIMEOUT", 120*time.Second),
		SettleDelay:       getDuration("SETTLE_DELAY", time.Second),

		APIPort:        get("API_PORT", "8080"),
		RateLimitRPS:   getFloat("API_RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("API_RATE_LIMIT_BURST", 10),
		TrustedProxies: get("API_TRUSTED_PROXIES", ""),

		OrphanGrace:   getDuration("ORPHAN_GRACE", 24*time.Hour),
		JanitorDryRun: getBool("JANITOR_DRY_RUN", true),

		LogLevel: get("LOG_LEVEL", "info"),
	}
}

// Require panics if any of the named variables resolved to an empty value.
// Binaries call it at cold start for the settings they cannot run without.
func (e Env) Require(keys ...string) {
	for _, k := range keys {
		v, known := e.lookup(k)
		if !known {
			panic(fmt.Errorf("unknown env %s", k))
		}
		if v == "" {
			panic(fmt.Errorf("missing env %s", k))
		}
	}
}

func (e Env) lookup(k string) (string, bool) {
	switch k {
	case "AWS_REGION":
		return e.Region, true
	case "S3_BUCKET":
		return e.Bucket, true
	case "DDB_TABLE":
		return e.Table, true
	case "DDB_USER_INDEX":
		return e.UserIndex, true
	case "COGNITO_CLIENT_ID":
		return e.CognitoClientID, true
	case "SESSION_SECRET":
		return e.SessionSecret, true
	case "UPLOAD_URL_ENDPOINT":
		return e.UploadURLEndpoint, true
	case "ANALYSIS_ENDPOINT":
		return e.AnalysisEndpoint, true
	case "API_PORT":
		return e.APIPort, true
	default:
		return "", false
	}
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func getFloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil {
		return def
	}
	return f
}

func getBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getDuration accepts Go duration strings ("90s", "2m").
func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
