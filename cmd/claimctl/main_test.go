package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/api"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/testutil"

	"github.com/xuri/excelize/v2"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeProfile(t *testing.T, p profile) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := p.save(path); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	return path
}

func TestLoginSavesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		var in api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "from-env" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(api.LoginResponse{Token: "tok", ExpiresIn: 3600, User: api.User{Email: in.Email}})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv("CLAIMCTL_PASSWORD", "from-env")

	code, out, errOut := execute(t, "-config", path, "-api", srv.URL, "login", "-email", "ana@example.com")
	if code != 0 {
		t.Fatalf("login exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "logged in as ana@example.com") {
		t.Fatalf("unexpected output %q", out)
	}

	p, err := loadProfile(path)
	if err != nil {
		t.Fatalf("loadProfile() error = %v", err)
	}
	if p.Token != "tok" || p.Email != "ana@example.com" || p.APIURL != srv.URL {
		t.Fatalf("profile not saved: %+v", p)
	}
	if !p.loggedIn(time.Now()) || p.loggedIn(time.Now().Add(2*time.Hour)) {
		t.Fatalf("unexpected token expiry %v", p.TokenExpires)
	}
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("profile should be owner-only: %v %v", info.Mode(), err)
	}
}

func TestLoginUnconfirmedPointsToVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Please verify your email first","code":"user_not_confirmed"}`))
	}))
	defer srv.Close()

	path := writeProfile(t, profile{APIURL: srv.URL})
	code, _, errOut := execute(t, "-config", path, "login", "-email", "ana@example.com", "-password", "pw")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "Please verify your email first") || !strings.Contains(errOut, "claimctl verify -email ana@example.com") {
		t.Fatalf("unexpected stderr %q", errOut)
	}
}

func TestHistoryRequiresLogin(t *testing.T) {
	path := writeProfile(t, profile{APIURL: "http://127.0.0.1:1"})
	code, _, errOut := execute(t, "-config", path, "history")
	if code != 2 || !strings.Contains(errOut, "not logged in") {
		t.Fatalf("exit %d stderr %q", code, errOut)
	}
}

func TestHistoryPrintsAndExports(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery, gotAuth = r.URL.RawQuery, r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{
			"claims": [{
				"claim_id": "CLAIM-7", "risk_score": 91, "risk_level": "CRITICAL",
				"recommendation": "REJECT", "user_id": "ana@example.com", "timestamp": 1760400000,
				"claim_summary": {"patient_name": "J. Doe", "policy_number": "P-1"},
				"fraud_indicators": {"detected": true, "severity": "critical", "indicators": ["altered dates", "duplicate bill"]}
			}],
			"pagination": {"page": 2, "limit": 5, "total": 6, "totalPages": 2}
		}`))
	}))
	defer srv.Close()

	path := writeProfile(t, profile{APIURL: srv.URL, Email: "ana@example.com", Token: "tok"})
	xlsx := filepath.Join(t.TempDir(), "history.xlsx")
	code, out, errOut := execute(t, "-config", path, "history", "-page", "2", "-limit", "5", "-risk", "CRITICAL", "-xlsx", xlsx)
	if code != 0 {
		t.Fatalf("history exit %d: %s", code, errOut)
	}
	if gotAuth != "Bearer tok" || gotQuery != "limit=5&page=2&risk_level=CRITICAL" {
		t.Fatalf("unexpected request auth=%q query=%q", gotAuth, gotQuery)
	}
	for _, want := range []string{"CLAIM-7", "2025-10-14", "CRITICAL", "J. Doe", "page 2 of 2 (6 claims)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}

	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(historySheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Claim ID" || rows[1][0] != "CLAIM-7" || rows[1][10] != "altered dates; duplicate bill" {
		t.Fatalf("unexpected sheet %v", rows)
	}
}

func TestSubmitPrintsProgressAndIndicators(t *testing.T) {
	var srv *httptest.Server
	var analysis api.AnalysisRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-url", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(api.UploadGrant{
			UploadURL: srv.URL + "/bucket/claims/x.pdf",
			Bucket:    "bucket",
			ObjectKey: "claims/x.pdf",
			ExpiresIn: 900,
		})
	})
	mux.HandleFunc("PUT /bucket/claims/x.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /process-claim", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&analysis)
		_, _ = w.Write([]byte(`{
			"status": "success", "claim_id": "CLAIM-9", "risk_score": 64, "risk_level": "HIGH",
			"recommendation": "DETAILED_INVESTIGATION", "processing_time_seconds": 41.5,
			"fraud_indicators": {"detected": true, "severity": "high", "confidence": 70, "indicators": ["upcoded procedure"]},
			"key_findings": ["amount exceeds policy limit"]
		}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	pdfPath := filepath.Join(t.TempDir(), "claim.pdf")
	if err := os.WriteFile(pdfPath, testutil.MinimalPDF(), 0o600); err != nil {
		t.Fatal(err)
	}
	path := writeProfile(t, profile{
		APIURL:            srv.URL,
		UploadURLEndpoint: srv.URL,
		AnalysisEndpoint:  srv.URL,
		Email:             "ana@example.com",
		Token:             "tok",
	})

	code, out, errOut := execute(t, "-config", path, "submit", "-claim-id", "CLAIM-9", pdfPath)
	if code != 0 {
		t.Fatalf("submit exit %d: %s", code, errOut)
	}
	if analysis.UserID != "ana@example.com" || analysis.ClaimID != "CLAIM-9" || analysis.S3Key != "claims/x.pdf" {
		t.Fatalf("unexpected analysis request %+v", analysis)
	}
	for _, want := range []string{
		"[ 10%] Getting upload URL...",
		"[100%] Complete!",
		"Risk score:      64/100 (HIGH)",
		"Processing time: 41.5s",
		"  - upcoded procedure",
		"  - amount exceeds policy limit",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestSubmitNeedsEndpoints(t *testing.T) {
	path := writeProfile(t, profile{APIURL: "http://x", Token: "tok"})
	code, _, errOut := execute(t, "-config", path, "submit", "claim.pdf")
	if code != 2 || !strings.Contains(errOut, "no processing endpoints configured") {
		t.Fatalf("exit %d stderr %q", code, errOut)
	}
}

func TestSubmittedAtAcceptsSecondsAndMillis(t *testing.T) {
	want := time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)
	if got := submittedAt(want.Unix()); !got.Equal(want) {
		t.Fatalf("seconds: got %v", got)
	}
	if got := submittedAt(want.UnixMilli()); !got.Equal(want) {
		t.Fatalf("millis: got %v", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Setenv("CLAIMCTL_CONFIG", filepath.Join(t.TempDir(), "c.yaml"))
	code, _, errOut := execute(t, "frobnicate")
	if code != 2 || !strings.Contains(errOut, "unknown command: frobnicate") {
		t.Fatalf("exit %d stderr %q", code, errOut)
	}
}
