// internal/prediction/service.go
package prediction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"rent-predictor/internal/artifact"
	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/common/metrics"
	"rent-predictor/internal/common/observability"
	"rent-predictor/internal/models"
)

// Request is one prediction call.
type Request struct {
	Input       models.ApartmentInput
	Source      string
	NotifyEmail string
}

// Sink receives successful predictions. Sink errors never fail the prediction.
type Sink interface {
	Name() string
	Handle(ctx context.Context, req Request, result *models.PredictionResult) error
}

type Options struct {
	ModelKey     string
	StrictSchema bool
	Currency     string
	Sinks        []Sink
}

type Service struct {
	model    *artifact.Resource[Model]
	modelKey string
	strict   bool
	currency string
	printer  *message.Printer
	sinks    []Sink
	obs      *observability.Observability
	log      logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(model *artifact.Resource[Model], opts Options, obs *observability.Observability, log logger.Logger) *Service {
	currency := opts.Currency
	if currency == "" {
		currency = "USD"
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Service{
		model:    model,
		modelKey: opts.ModelKey,
		strict:   opts.StrictSchema,
		currency: currency,
		printer:  message.NewPrinter(language.English),
		sinks:    opts.Sinks,
		obs:      obs,
		log:      log.WithFields(map[string]interface{}{"component": "prediction"}),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Ready reports whether the model has been loaded.
func (s *Service) Ready() bool {
	return s.model.Loaded()
}

func (s *Service) ModelKey() string {
	return s.modelKey
}

// Model returns the loaded model, wrapping load failures as MODEL_NOT_LOADED.
func (s *Service) Model(ctx context.Context) (Model, error) {
	m, err := s.model.Get(ctx)
	if err != nil {
		return nil, apperrors.NewModelNotLoadedError(err)
	}
	return m, nil
}

// Predict builds the feature vector for one input and runs the model on it.
func (s *Service) Predict(ctx context.Context, req Request) (*models.PredictionResult, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "prediction.Predict", attribute.String("source", req.Source))
	defer span.End()

	result, err := s.predict(ctx, req)

	status := "success"
	if err != nil {
		status = string(apperrors.Normalize(err).Code)
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	elapsed := time.Since(start)
	metrics.PredictionsTotal.WithLabelValues(req.Source, status).Inc()
	metrics.PredictionDuration.WithLabelValues(req.Source).Observe(elapsed.Seconds())
	s.obs.RecordPrediction(ctx, req.Source, status, elapsed)

	if err != nil {
		return nil, err
	}

	metrics.PredictedRent.Observe(result.PredictedRent)
	span.SetAttributes(attribute.Float64("predicted_rent", result.PredictedRent))

	s.runSinks(ctx, req, result)
	return result, nil
}

func (s *Service) predict(ctx context.Context, req Request) (*models.PredictionResult, error) {
	model, err := s.Model(ctx)
	if err != nil {
		return nil, err
	}

	vec := BuildFeatureVector(req.Input, model.FeatureNames())
	if len(vec.Unmatched) > 0 {
		for _, col := range vec.Unmatched {
			metrics.UnmatchedColumns.WithLabelValues(col).Inc()
		}
		if s.strict {
			return nil, apperrors.NewSchemaMismatchError(vec.Unmatched)
		}
		s.log.Debug("input columns missing from model schema", map[string]interface{}{
			"columns": vec.Unmatched,
		})
	}

	value, err := model.Predict(vec.Row())
	if err != nil {
		return nil, apperrors.NewPredictionFailedError(err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, apperrors.NewPredictionFailedError(fmt.Errorf("model returned non-finite value %v", value))
	}

	return &models.PredictionResult{
		ID:            s.newID(),
		PredictedRent: value,
		Currency:      s.currency,
		Formatted:     s.Format(value),
		ModelKey:      s.modelKey,
		Source:        req.Source,
		Unmatched:     vec.Unmatched,
		CreatedAt:     s.now(),
	}, nil
}

// Format renders an amount with English digit grouping, e.g. "1,234.50 USD".
func (s *Service) Format(value float64) string {
	return s.printer.Sprintf("%.2f %s", value, s.currency)
}

func (s *Service) runSinks(ctx context.Context, req Request, result *models.PredictionResult) {
	for _, sink := range s.sinks {
		if err := sink.Handle(ctx, req, result); err != nil {
			metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
			s.log.Warn("prediction sink failed", map[string]interface{}{
				"sink":         sink.Name(),
				"predictionId": result.ID,
				"error":        err.Error(),
			})
		}
	}
}
