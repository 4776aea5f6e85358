// internal/common/aws/config.go
package aws

import (
	"context"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	commonhttp "rent-predictor/internal/common/http"
)

// LoadConfig resolves credentials from the default chain and routes all SDK traffic
// through the shared HTTP client.
func LoadConfig(ctx context.Context, region string, timeout time.Duration) (awssdk.Config, error) {
	return config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithHTTPClient(commonhttp.NewClient(timeout)),
	)
}
