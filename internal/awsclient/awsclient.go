// Package awsclient builds the AWS SDK clients used by the API and the admin CLI.
package awsclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options selects the region and, for local stacks, a custom endpoint.
type Options struct {
	Region   string
	Endpoint string
}

// LoadConfig resolves credentials through the default provider chain.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// NewDynamoDB returns a DynamoDB client, pointed at opts.Endpoint when set.
func NewDynamoDB(cfg aws.Config, opts Options) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
}

// NewS3 returns an S3 client. Custom endpoints use path-style addressing.
func NewS3(cfg aws.Config, opts Options) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// NewPresigner returns a presign client over a fresh S3 client.
func NewPresigner(cfg aws.Config, opts Options) *s3.PresignClient {
	return s3.NewPresignClient(NewS3(cfg, opts))
}
