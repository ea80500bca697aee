package config

import (
	"testing"
	"time"
)

func TestMustLoadDefaults(t *testing.T) {
	for _, k := range []string{"DDB_TABLE", "DDB_USER_INDEX", "PRESIGN_TTL_SECONDS", "UPLOAD_URL_TIMEOUT", "TRANSFER_TIMEOUT", "ANALYSIS_TIMEOUT", "SETTLE_DELAY", "DEV_BYPASS_AUTH", "JANITOR_DRY_RUN", "API_TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}

	env := MustLoad()
	if env.Table != "ClaimProcessingResults" {
		t.Fatalf("expected default table, got %q", env.Table)
	}
	if env.UserIndex != "UserIdIndex" {
		t.Fatalf("expected default index, got %q", env.UserIndex)
	}
	if env.PresignTTL != 900*time.Second {
		t.Fatalf("expected 900s presign ttl, got %s", env.PresignTTL)
	}
	if env.UploadURLTimeout != 10*time.Second || env.TransferTimeout != 30*time.Second || env.AnalysisTimeout != 120*time.Second {
		t.Fatalf("unexpected step timeouts: %s %s %s", env.UploadURLTimeout, env.TransferTimeout, env.AnalysisTimeout)
	}
	if env.SettleDelay != time.Second {
		t.Fatalf("expected 1s settle delay, got %s", env.SettleDelay)
	}
	if env.DevBypassAuth {
		t.Fatalf("dev bypass must default to off")
	}
	if !env.JanitorDryRun {
		t.Fatalf("janitor must default to dry run")
	}
	if env.TrustedProxies != "" {
		t.Fatalf("no proxy should be trusted by default, got %q", env.TrustedProxies)
	}
}

func TestMustLoadOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_TIMEOUT", "3m")
	t.Setenv("PRESIGN_TTL_SECONDS", "60")
	t.Setenv("DEV_BYPASS_AUTH", "true")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("JANITOR_DRY_RUN", "false")

	env := MustLoad()
	if env.AnalysisTimeout != 3*time.Minute {
		t.Fatalf("expected 3m analysis timeout, got %s", env.AnalysisTimeout)
	}
	if env.PresignTTL != time.Minute {
		t.Fatalf("expected 60s presign ttl, got %s", env.PresignTTL)
	}
	if !env.DevBypassAuth {
		t.Fatalf("expected dev bypass on")
	}
	if env.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", env.RateLimitRPS)
	}
	if env.JanitorDryRun {
		t.Fatalf("expected janitor deletes enabled")
	}
}

func TestMustLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("TRANSFER_TIMEOUT", "soon")
	t.Setenv("PRESIGN_TTL_SECONDS", "-5")

	env := MustLoad()
	if env.TransferTimeout != 30*time.Second {
		t.Fatalf("expected fallback transfer timeout, got %s", env.TransferTimeout)
	}
	if env.PresignTTL != 900*time.Second {
		t.Fatalf("expected fallback presign ttl, got %s", env.PresignTTL)
	}
}

func TestRequirePanicsOnMissing(t *testing.T) {
	env := Env{Table: "t"}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for missing S3_BUCKET")
		}
	}()
	env.Require("DDB_TABLE", "S3_BUCKET")
}

func TestRequirePassesWhenSet(t *testing.T) {
	env := Env{Table: "t", SessionSecret: "s"}
	env.Require("DDB_TABLE", "SESSION_SECRET")
}
