// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rent-predictor/internal/artifact"
	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/history"
	"rent-predictor/internal/models"
	"rent-predictor/internal/prediction"
)

// NotifyEmailField is the optional request field naming an estimate recipient.
const NotifyEmailField = "notify_email"

type Predictor interface {
	Ready() bool
	ModelKey() string
	Model(ctx context.Context) (prediction.Model, error)
	Predict(ctx context.Context, req prediction.Request) (*models.PredictionResult, error)
}

type InputParser interface {
	FromMap(doc map[string]interface{}) (models.ApartmentInput, error)
	NotifyAddress(field string, raw interface{}) (string, error)
}

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

type ImageSource interface {
	Get(ctx context.Context) (artifact.Image, error)
	Loaded() bool
}

// Deps are the collaborators behind the HTTP surface. Image and History may be nil.
type Deps struct {
	Predictor Predictor
	Parser    InputParser
	Image     ImageSource
	History   HistoryReader
}

// Handler serves the rent prediction endpoints
type Handler struct {
	deps Deps
	log  logger.Logger
}

func NewHandler(deps Deps, log logger.Logger) *Handler {
	return &Handler{
		deps: deps,
		log:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Ready handles GET /ready
func (h *Handler) Ready(c *gin.Context) {
	if !h.deps.Predictor.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "loading",
			"model":  h.deps.Predictor.ModelKey(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"model":  h.deps.Predictor.ModelKey(),
		"image":  h.deps.Image != nil && h.deps.Image.Loaded(),
	})
}

// Form handles GET /api/v1/form
func (h *Handler) Form(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": models.FormFields()})
}

// Model handles GET /api/v1/model
func (h *Handler) Model(c *gin.Context) {
	m, err := h.deps.Predictor.Model(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	names := m.FeatureNames()
	c.JSON(http.StatusOK, gin.H{
		"model_key":     h.deps.Predictor.ModelKey(),
		"type":          prediction.ModelType(m),
		"feature_names": names,
		"feature_count": len(names),
	})
}

// Predict handles POST /api/v1/predict
func (h *Handler) Predict(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.respondError(c, apperrors.NewParseError(err))
		return
	}

	doc := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			h.respondError(c, apperrors.NewInputValidationFailedError("request body must be a JSON object: "+err.Error()))
			return
		}
	}

	notifyEmail, err := h.popNotifyEmail(doc)
	if err != nil {
		h.respondError(c, err)
		return
	}

	input, err := h.deps.Parser.FromMap(doc)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.deps.Predictor.Predict(c.Request.Context(), prediction.Request{
		Input:       input,
		Source:      models.SourceHTTP,
		NotifyEmail: notifyEmail,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Image handles GET /api/v1/image
func (h *Handler) Image(c *gin.Context) {
	if h.deps.Image == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "IMAGE_DISABLED",
			"message": "no decorative image is configured",
		}})
		return
	}

	img, err := h.deps.Image.Get(c.Request.Context())
	if err != nil {
		stdErr := apperrors.Normalize(err)
		h.log.Warn("image unavailable", map[string]interface{}{"code": stdErr.Code, "error": stdErr.Error()})
		c.JSON(http.StatusServiceUnavailable, errorBody(stdErr))
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// Predictions handles GET /api/v1/predictions
func (h *Handler) Predictions(c *gin.Context) {
	if h.deps.History == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "HISTORY_DISABLED",
			"message": "prediction history is not configured",
		}})
		return
	}

	limit := history.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(c, apperrors.NewInputValidationFailedError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := h.deps.History.Recent(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": records,
		"count":       len(records),
	})
}

func (h *Handler) popNotifyEmail(doc map[string]interface{}) (string, error) {
	raw, ok := doc[NotifyEmailField]
	if !ok {
		return "", nil
	}
	delete(doc, NotifyEmailField)
	return h.deps.Parser.NotifyAddress(NotifyEmailField, raw)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"code":   stdErr.Code,
		"status": status,
		"path":   c.FullPath(),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(stdErr.Message, fields)
	} else {
		h.log.Debug(stdErr.Message, fields)
	}

	c.JSON(status, errorBody(stdErr))
}

func errorBody(err *apperrors.StandardError) gin.H {
	body := gin.H{
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Details != "" {
		body["details"] = err.Details
	}
	if fieldErrs, ok := err.Metadata["errors"]; ok {
		body["fields"] = fieldErrs
	}
	if cause, ok := err.Metadata[apperrors.MetadataCause]; ok {
		body["cause"] = cause
	}
	return gin.H{"error": body}
}
