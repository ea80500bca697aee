// Package main runs every dashboard route as one long-running HTTP server,
// including the direct claim submission that cannot sit behind the 29s
// API Gateway limit.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/authz"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/awsutil"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/claims"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/config"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/ddb"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/identity"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/logging"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/metrics"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/orchestrator"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/resilience"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/routes"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/session"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	env := config.MustLoad()
	env.Require("S3_BUCKET", "DDB_TABLE", "DDB_USER_INDEX", "COGNITO_CLIENT_ID", "SESSION_SECRET",
		"UPLOAD_URL_ENDPOINT", "ANALYSIS_ENDPOINT", "API_PORT")
	log := logging.New("api", env.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := awsutil.Load(ctx, env.Region, env.Endpoint)
	if err != nil {
		log.Error("load aws config", "error", err)
		os.Exit(1)
	}
	sessions, err := session.NewIssuer(env.SessionSecret, env.SessionTTL)
	if err != nil {
		log.Error("session issuer", "error", err)
		os.Exit(1)
	}

	m := metrics.New("api")
	guard := resilience.NewGuard(resilience.DefaultConfig(), log, m.SetBreakerOpen)
	// Deadlines are per step, so the shared client carries no Timeout.
	outbound := &http.Client{Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}}
	orch, err := orchestrator.New(orchestrator.ConfigFromEnv(env),
		orchestrator.WithHTTPClient(outbound),
		orchestrator.WithGuard(guard),
		orchestrator.WithLogger(log),
		orchestrator.WithObserver(func(outcome string, level models.RiskLevel, elapsed time.Duration) {
			m.RecordSubmission(outcome, string(level), elapsed)
		}),
	)
	if err != nil {
		log.Error("orchestrator", "error", err)
		os.Exit(1)
	}

	s3c := s3.NewFromConfig(cfg, awsutil.S3Options(env.Endpoint))
	repo := &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table, UserIndex: env.UserIndex}
	svc := claims.NewService(repo, log)
	auth := authz.Options{DevBypass: env.DevBypassAuth, Sessions: sessions}

	h := handlers{
		UploadURL: (&routes.UploadURL{Presigner: s3.NewPresignClient(s3c), Bucket: env.Bucket, TTL: env.PresignTTL, Log: log, DevMode: env.DevMode}).Handle,
		Auth: (&routes.Auth{
			Identity: identity.NewGateway(cognitoidentityprovider.NewFromConfig(cfg), env.CognitoClientID),
			Sessions: sessions,
			Log:      log,
			DevMode:  env.DevMode,
		}).Handle,
		History: (&routes.History{Claims: svc, Auth: auth, Log: log, DevMode: env.DevMode}).Handle,
		Claim:   (&routes.Claim{Claims: svc, Auth: auth, Log: log, DevMode: env.DevMode}).Handle,
		Process: (&routes.Process{Orchestrator: orch, Auth: auth, Log: log, DevMode: env.DevMode}).Handle,
	}
	proxies, err := httpx.ParseTrustedProxies(env.TrustedProxies)
	if err != nil {
		log.Error("API_TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	limiter := httpx.NewRateLimiter(env.RateLimitRPS, env.RateLimitBurst).TrustProxies(proxies)

	// A submission may legitimately take every step timeout back to back.
	longest := env.UploadURLTimeout + env.TransferTimeout + env.SettleDelay + env.AnalysisTimeout
	server := &http.Server{
		Addr:              ":" + env.APIPort,
		Handler:           newRouter(h, m, limiter, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      longest + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "port", env.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown error", "error", err)
	}
}
