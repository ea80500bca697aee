package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/metrics"

	"github.com/aws/aws-lambda-go/events"
)

// echo answers with the route name and the claimId path parameter.
func echo(name string) httpx.LambdaHandler {
	return func(_ context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return httpx.JSON(http.StatusOK, map[string]string{
			"route":   name,
			"claimId": req.PathParameters["claimId"],
			"reqId":   req.RequestContext.RequestID,
		})
	}
}

func testRouter(limiter *httpx.RateLimiter) http.Handler {
	h := handlers{
		UploadURL: echo("upload-url"),
		Auth:      echo("auth"),
		History:   echo("history"),
		Claim:     echo("claim"),
		Process:   echo("process"),
	}
	return newRouter(h, metrics.New("api-test"), limiter, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRouterDispatch(t *testing.T) {
	router := testRouter(nil)
	cases := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/upload-url", `"route":"upload-url"`},
		{http.MethodPost, "/api/auth/login", `"route":"auth"`},
		{http.MethodGet, "/api/claims/history", `"route":"history"`},
		{http.MethodGet, "/api/claims/CLAIM-42", `"claimId":"CLAIM-42"`},
		{http.MethodPost, "/api/process-claim", `"route":"process"`},
		{http.MethodGet, "/healthz", `"status":"ok"`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s %s: status %d", tc.method, tc.path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), tc.want) {
			t.Fatalf("%s %s: body %s lacks %s", tc.method, tc.path, rr.Body.String(), tc.want)
		}
		if rr.Header().Get(httpx.RequestIDHeader) == "" {
			t.Fatalf("%s %s: missing request id header", tc.method, tc.path)
		}
	}
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/upload-url", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router := testRouter(nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/claims/history", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "claims_http_requests_total") {
		t.Fatalf("metrics not exposed: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouterRateLimitsAPIButNotHealth(t *testing.T) {
	router := testRouter(httpx.NewRateLimiter(0.001, 1))
	call := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	if got := call("/api/claims/history"); got != http.StatusOK {
		t.Fatalf("first call: %d", got)
	}
	if got := call("/api/claims/history"); got != http.StatusTooManyRequests {
		t.Fatalf("second call: expected 429, got %d", got)
	}
	if got := call("/healthz"); got != http.StatusOK {
		t.Fatalf("healthz limited: %d", got)
	}
}
