// Package awsutil provides utilities for loading AWS configuration.
package awsutil

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Load loads the AWS configuration for region. A non-empty endpoint
// (AWS_ENDPOINT_URL, e.g. http://localstack:4566) is used as the base
// endpoint for every service client built from the returned config.
func Load(ctx context.Context, region, endpoint string) (aws.Config, error) {
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(region)}
	if endpoint != "" {
		opts = append(opts, awsCfg.WithBaseEndpoint(endpoint))
	}
	return awsCfg.LoadDefaultConfig(ctx, opts...)
}

// S3Options switches to path-style addressing when a custom endpoint is set;
// LocalStack does not serve virtual-hosted buckets.
func S3Options(endpoint string) func(*s3.Options) {
	return func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true
		}
	}
}
