// cmd/tools/model-tool/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"rent-predictor/internal/artifact"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/common/validation"
	"rent-predictor/internal/models"
	"rent-predictor/internal/prediction"
)

type modelInfo struct {
	Type         string                    `json:"type"`
	FeatureCount int                       `json:"feature_count"`
	FeatureNames []string                  `json:"feature_names"`
	Coverage     prediction.SchemaCoverage `json:"coverage"`
}

type objectPutter interface {
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
}

func inspectModel(w io.Writer, data []byte) error {
	m, err := prediction.DecodeModel(data)
	if err != nil {
		return err
	}

	names := m.FeatureNames()
	return writeJSON(w, modelInfo{
		Type:         prediction.ModelType(m),
		FeatureCount: len(names),
		FeatureNames: names,
		Coverage:     prediction.CompareSchema(names),
	})
}

// predictLocal runs one prediction against a model file without any storage or sinks.
func predictLocal(ctx context.Context, w io.Writer, modelData, inputData []byte, currency string) error {
	m, err := prediction.DecodeModel(modelData)
	if err != nil {
		return err
	}

	parser, err := validation.NewApartmentValidator()
	if err != nil {
		return err
	}
	if len(inputData) == 0 {
		inputData = []byte("{}")
	}
	input, err := parser.Parse(inputData)
	if err != nil {
		return err
	}

	svc := prediction.NewService(artifact.Ready("model", m), prediction.Options{
		ModelKey: "local",
		Currency: currency,
	}, nil, logger.NewNoOpLogger())

	result, err := svc.Predict(ctx, prediction.Request{Input: input, Source: models.SourceCLI})
	if err != nil {
		return err
	}
	return writeJSON(w, result)
}

// uploadModel refuses artifacts the service could not decode.
func uploadModel(ctx context.Context, putter objectPutter, bucket, key string, data []byte) error {
	if _, err := prediction.DecodeModel(data); err != nil {
		return fmt.Errorf("refusing to upload: %w", err)
	}
	return putter.Put(ctx, bucket, key, "application/json", data)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
