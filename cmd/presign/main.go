// Package main issues presigned PUT URLs for claim PDFs (POST /upload-url).
package main

import (
	"context"
	"log/slog"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/awsutil"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/config"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/logging"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/routes"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	env := config.MustLoad()
	env.Require("S3_BUCKET")
	log := logging.New("presign", env.LogLevel)
	slog.SetDefault(log)

	cfg, err := awsutil.Load(context.Background(), env.Region, env.Endpoint)
	if err != nil {
		log.Error("load aws config", "error", err)
		panic(err)
	}
	s3c := s3.NewFromConfig(cfg, awsutil.S3Options(env.Endpoint))

	h := &routes.UploadURL{
		Presigner: s3.NewPresignClient(s3c),
		Bucket:    env.Bucket,
		TTL:       env.PresignTTL,
		Log:       log,
		DevMode:   env.DevMode,
	}
	lambda.Start(h.Handle)
}
