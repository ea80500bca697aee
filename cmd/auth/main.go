// Package main serves the sign-in and account routes (/api/auth/*).
package main

import (
	"context"
	"log/slog"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/awsutil"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/config"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/identity"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/logging"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/routes"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/session"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

func main() {
	env := config.MustLoad()
	env.Require("COGNITO_CLIENT_ID", "SESSION_SECRET")
	log := logging.New("auth", env.LogLevel)
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

	// One client per cold start, shared by every invocation.
	cognito := cognitoidentityprovider.NewFromConfig(cfg)
	h := &routes.Auth{
		Identity: identity.NewGateway(cognito, env.CognitoClientID),
		Sessions: sessions,
		Log:      log,
		DevMode:  env.DevMode,
	}
	lambda.Start(h.Handle)
}
