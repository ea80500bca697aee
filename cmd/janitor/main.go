// Package main deletes uploaded claim PDFs that no stored result references.
// It runs on an EventBridge schedule.
package main

import (
	"context"
	"log/slog"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/awsutil"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/config"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/ddb"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/janitor"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/logging"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// App holds the sweeper built at cold start.
type App struct {
	sweeper *janitor.Janitor
	log     *slog.Logger
}

func main() {
	env := config.MustLoad()
	env.Require("S3_BUCKET", "DDB_TABLE")
	log := logging.New("janitor", env.LogLevel)
	slog.SetDefault(log)

	cfg, err := awsutil.Load(context.Background(), env.Region, env.Endpoint)
	if err != nil {
		log.Error("load aws config", "error", err)
		panic(err)
	}

	app := &App{
		sweeper: &janitor.Janitor{
			Store:  s3.NewFromConfig(cfg, awsutil.S3Options(env.Endpoint)),
			Keys:   &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table, UserIndex: env.UserIndex},
			Bucket: env.Bucket,
			Grace:  env.OrphanGrace,
			DryRun: env.JanitorDryRun,
			Log:    log,
		},
		log: log,
	}
	lambda.Start(app.handler)
}

// handler runs one sweep per scheduled event.
func (a *App) handler(ctx context.Context, ev events.CloudWatchEvent) (janitor.Report, error) {
	a.log.Info("sweep start", "event_id", ev.ID, "scheduled_at", ev.Time)
	rep, err := a.sweeper.Sweep(ctx)
	if err != nil {
		a.log.Error("sweep failed", "error", err)
		return rep, err
	}
	return rep, nil
}
