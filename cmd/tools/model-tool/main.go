// cmd/tools/model-tool/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"rent-predictor/internal/artifact"
	"rent-predictor/internal/common/aws"
)

func main() {
	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)
	predictCmd := flag.NewFlagSet("predict", flag.ExitOnError)
	uploadCmd := flag.NewFlagSet("upload", flag.ExitOnError)

	// Inspect command flags
	inspectFile := inspectCmd.String("model", "", "Path to model artifact (JSON)")

	// Predict command flags
	predictFile := predictCmd.String("model", "", "Path to model artifact (JSON)")
	inputFile := predictCmd.String("input", "", "Path to apartment input JSON (defaults when empty)")
	currency := predictCmd.String("currency", "USD", "Currency label for the formatted estimate")

	// Upload command flags
	uploadFile := uploadCmd.String("model", "", "Path to model artifact (JSON)")
	bucket := uploadCmd.String("bucket", "", "Target bucket")
	key := uploadCmd.String("key", "", "Target object key (e.g., models/rent.json)")
	region := uploadCmd.String("region", "us-east-1", "AWS region")
	endpoint := uploadCmd.String("endpoint", "", "S3-compatible endpoint (e.g., http://localhost:9000)")
	pathStyle := uploadCmd.Bool("path-style", false, "Use path-style addressing")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "inspect":
		inspectCmd.Parse(os.Args[2:])
		if *inspectFile == "" {
			fmt.Println("Error: -model is required for inspect.")
			inspectCmd.Usage()
			os.Exit(1)
		}
		exitOnError(inspectModel(os.Stdout, mustRead(*inspectFile)))

	case "predict":
		predictCmd.Parse(os.Args[2:])
		if *predictFile == "" {
			fmt.Println("Error: -model is required for predict.")
			predictCmd.Usage()
			os.Exit(1)
		}
		var input []byte
		if *inputFile != "" {
			input = mustRead(*inputFile)
		}
		exitOnError(predictLocal(ctx, os.Stdout, mustRead(*predictFile), input, *currency))

	case "upload":
		uploadCmd.Parse(os.Args[2:])
		if *uploadFile == "" || *bucket == "" || *key == "" {
			fmt.Println("Error: model, bucket, and key are required for upload.")
			uploadCmd.Usage()
			os.Exit(1)
		}

		awsCfg, err := aws.LoadConfig(ctx, *region, 60*time.Second)
		exitOnError(err)
		store := artifact.NewS3Store(aws.NewS3Client(awsCfg, aws.S3Options{
			Endpoint:     *endpoint,
			UsePathStyle: *pathStyle,
		}))

		exitOnError(uploadModel(ctx, store, *bucket, *key, mustRead(*uploadFile)))
		fmt.Printf("Uploaded %s to s3://%s/%s\n", *uploadFile, *bucket, *key)

	default:
		help()
		os.Exit(1)
	}
}

func mustRead(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	return data
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func help() {
	fmt.Println("Usage: model-tool <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  inspect   Show model type, feature schema and form coverage")
	fmt.Println("  predict   Run one prediction against a local model file")
	fmt.Println("  upload    Validate and upload a model artifact to S3")
}
