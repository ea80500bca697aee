// Package main lists the caller's analysed claims (GET /api/claims/history).
package main

import (
	"context"
	"log/slog"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/authz"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/awsutil"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/claims"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/config"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/ddb"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/logging"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/routes"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/session"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func main() {
	env := config.MustLoad()
	env.Require("DDB_TABLE", "DDB_USER_INDEX", "SESSION_SECRET")
	log := logging.New("history", env.LogLevel)
	slog.SetDefault(log)

	cfg, err := awsutil.Load(context.Background(), env.Region, env.Endpoint)
	if err != nil {
		log.Error("load aws config", "error", err)
		panic(err)
	}
	sessions, err := session.NewIssuer(env.SessionSecret, env.SessionTTL)
	if err != nil {
		panic(err)
	}
	repo := &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table, UserIndex: env.UserIndex}

	h := &routes.History{
		Claims:  claims.NewService(repo, log),
		Auth:    authz.Options{DevBypass: env.DevBypassAuth, Sessions: sessions},
		Log:     log,
		DevMode: env.DevMode,
	}
	lambda.Start(h.Handle)
}
