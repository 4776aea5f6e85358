// internal/prediction/loader.go
package prediction

import (
	"context"
	"encoding/json"
	"fmt"

	"rent-predictor/internal/artifact"
	apperrors "rent-predictor/internal/common/errors"
)

type artifactHeader struct {
	Type string `json:"type"`
}

// DecodeModel parses a JSON model artifact and dispatches on its "type" field.
func DecodeModel(data []byte) (Model, error) {
	var header artifactHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, apperrors.NewModelDecodeFailedError(fmt.Sprintf("invalid artifact JSON: %v", err))
	}

	switch header.Type {
	case ModelTypeLinear:
		model := &LinearModel{}
		if err := json.Unmarshal(data, model); err != nil {
			return nil, apperrors.NewModelDecodeFailedError(err.Error())
		}
		if err := model.validate(); err != nil {
			return nil, apperrors.NewModelDecodeFailedError(err.Error())
		}
		return model, nil
	case ModelTypeTreeEnsemble:
		model := &TreeEnsemble{}
		if err := json.Unmarshal(data, model); err != nil {
			return nil, apperrors.NewModelDecodeFailedError(err.Error())
		}
		if err := model.validate(); err != nil {
			return nil, apperrors.NewModelDecodeFailedError(err.Error())
		}
		return model, nil
	default:
		return nil, apperrors.NewModelDecodeFailedError(fmt.Sprintf("%v: %q", ErrUnknownType, header.Type))
	}
}

// ModelType reports the artifact type of m, or "unknown".
func ModelType(m Model) string {
	if d, ok := m.(Describer); ok {
		return d.Type()
	}
	return "unknown"
}

// LoadModel fetches and decodes the model artifact.
func LoadModel(ctx context.Context, store artifact.Store, bucket, key string) (Model, error) {
	data, err := store.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return DecodeModel(data)
}

// NewModelResource wraps LoadModel in a load-once resource.
func NewModelResource(store artifact.Store, bucket, key string) *artifact.Resource[Model] {
	return artifact.NewResource("model", func(ctx context.Context) (Model, error) {
		return LoadModel(ctx, store, bucket, key)
	})
}
