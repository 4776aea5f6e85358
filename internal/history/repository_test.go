package history

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/models"
	"rent-predictor/internal/prediction"
)

func setupRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(sqlx.NewDb(db, "postgres"), logger.NewTestLogger(t)), mock
}

func sampleResult() *models.PredictionResult {
	return &models.PredictionResult{
		ID:            "0b6c7a4e-8a43-4f7e-9d8a-3b1f0c2d5e6f",
		PredictedRent: 950.25,
		Currency:      "USD",
		Formatted:     "950.25 USD",
		ModelKey:      "models/rent.json",
		Source:        models.SourceHTTP,
		CreatedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRepository_EnsureSchema(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS rent_predictions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_HandleSavesRecord(t *testing.T) {
	repo, mock := setupRepository(t)
	result := sampleResult()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rent_predictions")).
		WithArgs(result.ID, result.CreatedAt, models.SourceHTTP, "models/rent.json", sqlmock.AnyArg(), 950.25, "USD", "950.25 USD", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := prediction.Request{Input: models.DefaultApartmentInput(), Source: models.SourceHTTP}
	require.NoError(t, repo.Handle(context.Background(), req, result))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "history", repo.Name())
}

func TestRepository_SaveError(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rent_predictions")).
		WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), models.PredictionRecord{PredictionResult: *sampleResult()})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeHistoryWriteFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Recent(t *testing.T) {
	repo, mock := setupRepository(t)

	input := models.DefaultApartmentInput()
	input.Neighborhood = "Fener Mah."
	inputJSON, err := json.Marshal(input)
	require.NoError(t, err)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "created_at", "source", "model_key", "input", "predicted_rent", "currency", "formatted", "unmatched"}).
		AddRow("id-2", created.Add(time.Minute), models.SourceZeebe, "models/rent.json", inputJSON, 1100.0, "USD", "1,100.00 USD", "{Parking_Carport}").
		AddRow("id-1", created, models.SourceHTTP, "models/rent.json", inputJSON, 990.0, "USD", "990.00 USD", "{}")

	mock.ExpectQuery(regexp.QuoteMeta("FROM rent_predictions ORDER BY created_at DESC LIMIT $1")).
		WithArgs(5).
		WillReturnRows(rows)

	got, err := repo.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "id-2", got[0].ID)
	assert.Equal(t, models.SourceZeebe, got[0].Source)
	assert.Equal(t, []string{"Parking_Carport"}, got[0].Unmatched)
	assert.Equal(t, "Fener Mah.", got[0].Input.Neighborhood)
	assert.Equal(t, "USD", got[0].Currency)
	assert.Equal(t, "1,100.00 USD", got[0].Formatted)
	assert.Equal(t, 990.0, got[1].PredictedRent)
	assert.Equal(t, "990.00 USD", got[1].Formatted)
	assert.Empty(t, got[1].Unmatched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecentClampsLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{MaxLimit + 1, MaxLimit},
		{7, 7},
	}

	for _, tt := range tests {
		repo, mock := setupRepository(t)
		mock.ExpectQuery("SELECT id, created_at").
			WithArgs(tt.want).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.Recent(context.Background(), tt.in)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestRepository_RecentQueryError(t *testing.T) {
	repo, mock := setupRepository(t)
	mock.ExpectQuery("SELECT id, created_at").WillReturnError(errors.New("relation does not exist"))

	_, err := repo.Recent(context.Background(), 10)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeHistoryReadFailed))
}

func TestRepository_SaveThenRecentKeepsCurrency(t *testing.T) {
	repo, mock := setupRepository(t)
	result := sampleResult()

	var saved []driver.Value
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rent_predictions")).
		WithArgs(captureArgs(&saved, 9)...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), models.PredictionRecord{
		PredictionResult: *result,
		Input:            models.DefaultApartmentInput(),
	}))
	require.Len(t, saved, 9)

	rows := sqlmock.NewRows([]string{"id", "created_at", "source", "model_key", "input", "predicted_rent", "currency", "formatted", "unmatched"}).
		AddRow(saved[0], saved[1], saved[2], saved[3], saved[4], saved[5], saved[6], saved[7], "{}")
	mock.ExpectQuery("SELECT id, created_at").WithArgs(1).WillReturnRows(rows)

	got, err := repo.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, result.Currency, got[0].Currency)
	assert.Equal(t, result.Formatted, got[0].Formatted)
	assert.Equal(t, result.PredictedRent, got[0].PredictedRent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// captureArg records whatever value the driver receives at its position.
type captureArg struct {
	dst *[]driver.Value
	idx int
}

func (c captureArg) Match(v driver.Value) bool {
	for len(*c.dst) <= c.idx {
		*c.dst = append(*c.dst, nil)
	}
	(*c.dst)[c.idx] = v
	return true
}

func captureArgs(dst *[]driver.Value, n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = captureArg{dst: dst, idx: i}
	}
	return args
}
