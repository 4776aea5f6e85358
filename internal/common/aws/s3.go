// internal/common/aws/s3.go
package aws

import (
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options points the client at a non-AWS endpoint such as MinIO.
type S3Options struct {
	Endpoint     string
	UsePathStyle bool
}

func NewS3Client(cfg awssdk.Config, opts S3Options) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = awssdk.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
}
