// internal/history/repository.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/models"
	"rent-predictor/internal/prediction"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS rent_predictions (
	id             UUID PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL,
	source         TEXT NOT NULL,
	model_key      TEXT NOT NULL,
	input          JSONB NOT NULL,
	predicted_rent DOUBLE PRECISION NOT NULL,
	currency       TEXT NOT NULL DEFAULT '',
	formatted      TEXT NOT NULL DEFAULT '',
	unmatched      TEXT[] NOT NULL DEFAULT '{}'
);
ALTER TABLE rent_predictions ADD COLUMN IF NOT EXISTS currency TEXT NOT NULL DEFAULT '';
ALTER TABLE rent_predictions ADD COLUMN IF NOT EXISTS formatted TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS rent_predictions_created_at_idx ON rent_predictions (created_at DESC);`

type predictionRow struct {
	ID            string         `db:"id"`
	CreatedAt     time.Time      `db:"created_at"`
	Source        string         `db:"source"`
	ModelKey      string         `db:"model_key"`
	Input         []byte         `db:"input"`
	PredictedRent float64        `db:"predicted_rent"`
	Currency      string         `db:"currency"`
	Formatted     string         `db:"formatted"`
	Unmatched     pq.StringArray `db:"unmatched"`
}

// Repository stores predictions in PostgreSQL. It also acts as a prediction sink.
type Repository struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewRepository(db *sqlx.DB, log logger.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.WithFields(map[string]interface{}{"component": "history"}),
	}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create rent_predictions: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, rec models.PredictionRecord) error {
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return apperrors.NewHistoryWriteFailedError(err)
	}

	unmatched := rec.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}

	query := `INSERT INTO rent_predictions (id, created_at, source, model_key, input, predicted_rent, currency, formatted, unmatched)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.CreatedAt, rec.Source, rec.ModelKey, input, rec.PredictedRent,
		rec.Currency, rec.Formatted, pq.Array(unmatched),
	)
	if err != nil {
		return apperrors.NewHistoryWriteFailedError(err)
	}
	return nil
}

// Recent returns the newest predictions first. limit is clamped to [1, MaxLimit].
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var rows []predictionRow
	query := `SELECT id, created_at, source, model_key, input, predicted_rent, currency, formatted, unmatched
	          FROM rent_predictions ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, apperrors.NewHistoryReadFailedError(err)
	}

	out := make([]models.PredictionRecord, 0, len(rows))
	for _, row := range rows {
		var input models.ApartmentInput
		if err := json.Unmarshal(row.Input, &input); err != nil {
			return nil, apperrors.NewHistoryReadFailedError(fmt.Errorf("decode input of %s: %w", row.ID, err))
		}
		out = append(out, models.PredictionRecord{
			PredictionResult: models.PredictionResult{
				ID:            row.ID,
				PredictedRent: row.PredictedRent,
				Currency:      row.Currency,
				Formatted:     row.Formatted,
				ModelKey:      row.ModelKey,
				Source:        row.Source,
				Unmatched:     []string(row.Unmatched),
				CreatedAt:     row.CreatedAt,
			},
			Input: input,
		})
	}
	return out, nil
}

func (r *Repository) Name() string { return "history" }

// Handle implements prediction.Sink.
func (r *Repository) Handle(ctx context.Context, req prediction.Request, result *models.PredictionResult) error {
	return r.Save(ctx, models.PredictionRecord{PredictionResult: *result, Input: req.Input})
}
