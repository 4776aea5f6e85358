// internal/models/prediction.go
package models

import "time"

// Prediction sources
const (
	SourceHTTP  = "http"
	SourceZeebe = "zeebe"
	SourceCLI   = "cli"
)

// PredictionResult is the outcome of one build-then-predict call.
type PredictionResult struct {
	ID            string    `json:"prediction_id" db:"id"`
	PredictedRent float64   `json:"predicted_rent" db:"predicted_rent"`
	Currency      string    `json:"currency" db:"-"`
	Formatted     string    `json:"formatted" db:"-"`
	ModelKey      string    `json:"model_key" db:"model_key"`
	Source        string    `json:"source" db:"source"`
	Unmatched     []string  `json:"unmatched_columns,omitempty" db:"-"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PredictionRecord is a stored prediction together with the input that produced it.
type PredictionRecord struct {
	PredictionResult
	Input ApartmentInput `json:"input"`
}
