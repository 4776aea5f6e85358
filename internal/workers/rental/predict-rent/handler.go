// internal/workers/rental/predict-rent/handler.go
package predictrent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/common/metrics"
	"rent-predictor/internal/models"
	"rent-predictor/internal/prediction"
)

const (
	TaskType = "predict-rent"

	completeFailedCode = "COMPLETE_FAILED"
)

type Predictor interface {
	Predict(ctx context.Context, req prediction.Request) (*models.PredictionResult, error)
}

type InputParser interface {
	FromMap(doc map[string]interface{}) (models.ApartmentInput, error)
	NotifyAddress(field string, raw interface{}) (string, error)
}

type Handler struct {
	config     *Config
	predictor  Predictor
	parser     InputParser
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, predictor Predictor, parser InputParser, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		predictor:  predictor,
		parser:     parser,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		h.fail(ctx, client, job, apperrors.NewParseError(err))
		return
	}

	output, err := h.Execute(ctx, inputFromVariables(vars))
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, completeFailedCode).Inc()
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	apartment, err := h.parser.FromMap(input.Apartment)
	if err != nil {
		return nil, err
	}
	notifyEmail, err := h.parser.NotifyAddress(NotifyEmailVariable, input.NotifyEmail)
	if err != nil {
		return nil, err
	}

	result, err := h.predictor.Predict(ctx, prediction.Request{
		Input:       apartment,
		Source:      models.SourceZeebe,
		NotifyEmail: notifyEmail,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		PredictionID:  result.ID,
		PredictedRent: result.PredictedRent,
		Currency:      result.Currency,
		Formatted:     result.Formatted,
		ModelKey:      result.ModelKey,
	}, nil
}

// completeJob leaves the job to time out and be retried by the broker when the command cannot be sent.
func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
