package prediction

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-predictor/internal/artifact"
	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/models"
)

type stubModel struct {
	names []string
	value float64
	err   error
	rows  [][]float64
}

func (m *stubModel) FeatureNames() []string { return m.names }

func (m *stubModel) Predict(row []float64) (float64, error) {
	m.rows = append(m.rows, row)
	return m.value, m.err
}

type recordingSink struct {
	name    string
	err     error
	results []*models.PredictionResult
	reqs    []Request
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(ctx context.Context, req Request, result *models.PredictionResult) error {
	s.reqs = append(s.reqs, req)
	s.results = append(s.results, result)
	return s.err
}

func newTestService(t *testing.T, model Model, opts Options) *Service {
	t.Helper()
	svc := NewService(artifact.Ready[Model]("model", model), opts, nil, logger.NewTestLogger(t))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "pred-1" }
	return svc
}

func TestService_Predict(t *testing.T) {
	model := &stubModel{names: trainingSchema(), value: 1234.5}
	history := &recordingSink{name: "history"}
	svc := newTestService(t, model, Options{ModelKey: "models/rent.json", Sinks: []Sink{history}})

	input := models.DefaultApartmentInput()
	result, err := svc.Predict(context.Background(), Request{Input: input, Source: models.SourceHTTP})
	require.NoError(t, err)

	assert.Equal(t, "pred-1", result.ID)
	assert.Equal(t, 1234.5, result.PredictedRent)
	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, "1,234.50 USD", result.Formatted)
	assert.Equal(t, "models/rent.json", result.ModelKey)
	assert.Equal(t, models.SourceHTTP, result.Source)
	assert.Empty(t, result.Unmatched)

	require.Len(t, model.rows, 1)
	assert.Equal(t, BuildFeatureVector(input, trainingSchema()).Row(), model.rows[0])

	require.Len(t, history.results, 1)
	assert.Same(t, result, history.results[0])
	assert.True(t, svc.Ready())
}

func TestService_PredictReportsUnmatchedColumns(t *testing.T) {
	model := &stubModel{names: []string{ColRooms, ColDeposit}, value: 700}
	svc := newTestService(t, model, Options{})

	result, err := svc.Predict(context.Background(), Request{Input: models.DefaultApartmentInput(), Source: models.SourceZeebe})
	require.NoError(t, err)

	assert.Equal(t, 700.0, result.PredictedRent)
	assert.Contains(t, result.Unmatched, "Neighborhood_Bahcelievler Mh.")
	assert.Contains(t, result.Unmatched, ColTotalArea)
}

func TestService_StrictSchemaRejectsMismatch(t *testing.T) {
	model := &stubModel{names: []string{ColRooms}, value: 700}
	sink := &recordingSink{name: "history"}
	svc := newTestService(t, model, Options{StrictSchema: true, Sinks: []Sink{sink}})

	_, err := svc.Predict(context.Background(), Request{Input: models.DefaultApartmentInput(), Source: models.SourceHTTP})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSchemaMismatch, stdErr.Code)
	assert.Contains(t, stdErr.Details, ColDeposit)
	assert.Empty(t, model.rows)
	assert.Empty(t, sink.results)
}

func TestService_StrictSchemaAcceptsFullMatch(t *testing.T) {
	model := &stubModel{names: trainingSchema(), value: 900}
	svc := newTestService(t, model, Options{StrictSchema: true})

	_, err := svc.Predict(context.Background(), Request{Input: models.DefaultApartmentInput(), Source: models.SourceHTTP})
	assert.NoError(t, err)
}

func TestService_PredictErrors(t *testing.T) {
	tests := []struct {
		name  string
		model *stubModel
	}{
		{"model error", &stubModel{names: []string{ColRooms}, err: errors.New("shape mismatch")}},
		{"nan", &stubModel{names: []string{ColRooms}, value: math.NaN()}},
		{"inf", &stubModel{names: []string{ColRooms}, value: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.model, Options{})

			_, err := svc.Predict(context.Background(), Request{Input: models.DefaultApartmentInput(), Source: models.SourceHTTP})
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePredictionFailed), "got %v", err)
		})
	}
}

func TestService_ModelNotLoaded(t *testing.T) {
	res := artifact.NewResource("model", func(ctx context.Context) (Model, error) {
		return nil, apperrors.NewArtifactAccessDeniedError("b", "k", errors.New("AccessDenied"))
	})
	svc := NewService(res, Options{}, nil, logger.NewTestLogger(t))

	_, err := svc.Predict(context.Background(), Request{Input: models.DefaultApartmentInput(), Source: models.SourceHTTP})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeModelNotLoaded))
	assert.False(t, svc.Ready())

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, string(apperrors.ErrCodeArtifactAccessDenied), stdErr.Metadata[apperrors.MetadataCause])
}

func TestService_SinkFailureDoesNotFailPrediction(t *testing.T) {
	failing := &recordingSink{name: "notify", err: errors.New("sns unavailable")}
	after := &recordingSink{name: "history"}
	svc := newTestService(t, &stubModel{names: trainingSchema(), value: 800}, Options{Sinks: []Sink{failing, after}})

	req := Request{Input: models.DefaultApartmentInput(), Source: models.SourceHTTP, NotifyEmail: "renter@example.com"}
	result, err := svc.Predict(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 800.0, result.PredictedRent)
	require.Len(t, after.results, 1)
	assert.Equal(t, "renter@example.com", failing.reqs[0].NotifyEmail)
}

func TestService_Format(t *testing.T) {
	svc := newTestService(t, &stubModel{}, Options{Currency: "USD"})

	assert.Equal(t, "850.00 USD", svc.Format(850))
	assert.Equal(t, "12,000.10 USD", svc.Format(12000.1))
	assert.Equal(t, "0.00 USD", svc.Format(0))
}
