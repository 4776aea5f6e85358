// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-predictor/internal/api"
	"rent-predictor/internal/artifact"
	"rent-predictor/internal/common/camunda"
	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/common/validation"
	"rent-predictor/internal/history"
	"rent-predictor/internal/prediction"

	predictrent "rent-predictor/internal/workers/rental/predict-rent"
)

const (
	testBucket   = "rent-models"
	testModelKey = "models/rent.json"
	testImageKey = "images/apartment.png"
)

// Two stumps: area <= 100 gives 800 else 1500, Fener Mah. adds 200.
const testModel = `{
	"type": "tree_ensemble",
	"feature_names": ["Total_Area_m2", "Neighborhood_Fener Mah.", "Rooms"],
	"base_score": 0,
	"trees": [
		[
			{"feature_idx": 0, "threshold": 100, "left_child": 1, "right_child": 2},
			{"is_leaf": true, "value": 800},
			{"is_leaf": true, "value": 1500}
		],
		[
			{"feature_idx": 1, "threshold": 0.5, "left_child": 1, "right_child": 2},
			{"is_leaf": true, "value": 0},
			{"is_leaf": true, "value": 200}
		]
	]
}`

var testImage = []byte("\x89PNG\r\n\x1a\n-image-bytes")

func init() {
	gin.SetMode(gin.TestMode)
}

// ==========================
// Test Environment
// ==========================

type testEnv struct {
	router  http.Handler
	svc     *prediction.Service
	parser  *validation.ApartmentValidator
	store   artifact.Store
	fetches *atomic.Int32
	redis   *redis.Client
	sqlMock sqlmock.Sqlmock
}

// fakeBucket serves the artifacts an S3 bucket would hold and counts origin reads.
func fakeBucket(fetches *atomic.Int32) artifact.Store {
	objects := map[string][]byte{
		testModelKey: []byte(testModel),
		testImageKey: testImage,
	}
	return artifact.StoreFunc(func(ctx context.Context, bucket, key string) ([]byte, error) {
		fetches.Add(1)
		data, ok := objects[key]
		if bucket != testBucket || !ok {
			return nil, apperrors.NewArtifactNotFoundError(bucket, key, nil)
		}
		return data, nil
	})
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	fetches := &atomic.Int32{}
	store, err := artifact.NewCachedStore(fakeBucket(fetches), artifact.CacheOptions{
		MemoryEntries: 4,
		Redis:         rdb,
		TTL:           time.Hour,
	}, log)
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	hist := history.NewRepository(sqlx.NewDb(db, "postgres"), log)

	svc := prediction.NewService(
		prediction.NewModelResource(store, testBucket, testModelKey),
		prediction.Options{ModelKey: testModelKey, Currency: "USD", Sinks: []prediction.Sink{hist}},
		nil, log,
	)

	parser, err := validation.NewApartmentValidator()
	require.NoError(t, err)

	image := artifact.NewResource("image", func(ctx context.Context) (artifact.Image, error) {
		return artifact.LoadImage(ctx, store, testBucket, testImageKey)
	})

	router := api.NewRouter(api.RouterConfig{
		ServiceName:    "rent-predictor",
		Version:        "e2e",
		AllowedOrigins: []string{"*"},
	}, api.NewHandler(api.Deps{
		Predictor: svc,
		Parser:    parser,
		Image:     image,
		History:   hist,
	}, log), log)

	return &testEnv{
		router:  router,
		svc:     svc,
		parser:  parser,
		store:   store,
		fetches: fetches,
		redis:   rdb,
		sqlMock: mock,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// ==========================
// HTTP Flow
// ==========================

func TestPredictionFlow(t *testing.T) {
	env := setupEnv(t)

	// Model loads lazily on first use.
	w := env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"type":"tree_ensemble"`)

	w = env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	insert := regexp.QuoteMeta("INSERT INTO rent_predictions")
	env.sqlMock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
	env.sqlMock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))

	tests := []struct {
		name string
		body string
		want float64
	}{
		{"defaults", `{}`, 800},
		{"large apartment in Fener", `{"total_area": 140, "neighborhood": "Fener Mah."}`, 1700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/predict", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var result map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.want, result["predicted_rent"])
			assert.Equal(t, "http", result["source"])
			assert.NotEmpty(t, result["prediction_id"])
			assert.NotEmpty(t, result["unmatched_columns"])
		})
	}

	w = env.do(http.MethodPost, "/api/v1/predict", `{"rooms": 42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.NoError(t, env.sqlMock.ExpectationsWereMet())
	assert.Equal(t, int32(1), env.fetches.Load())
}

func TestHistoryWriteFailureDoesNotFailPrediction(t *testing.T) {
	env := setupEnv(t)
	env.sqlMock.ExpectExec("INSERT INTO rent_predictions").WillReturnError(assert.AnError)

	w := env.do(http.MethodPost, "/api/v1/predict", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, env.sqlMock.ExpectationsWereMet())
}

func TestImageServedFromCache(t *testing.T) {
	env := setupEnv(t)

	for i := 0; i < 3; i++ {
		w := env.do(http.MethodGet, "/api/v1/image", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.Equal(t, testImage, w.Body.Bytes())
	}
	assert.Equal(t, int32(1), env.fetches.Load())

	cached, err := env.redis.Get(context.Background(), artifact.CacheKey(testBucket, testImageKey)).Bytes()
	require.NoError(t, err)
	assert.Equal(t, testImage, cached)
}

// A second replica sharing Redis never reads the bucket.
func TestReplicaSharesArtifactCache(t *testing.T) {
	env := setupEnv(t)
	_, err := env.svc.Model(context.Background())
	require.NoError(t, err)

	replicaFetches := &atomic.Int32{}
	replicaStore, err := artifact.NewCachedStore(fakeBucket(replicaFetches), artifact.CacheOptions{
		Redis: env.redis,
		TTL:   time.Hour,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	m, err := prediction.LoadModel(context.Background(), replicaStore, testBucket, testModelKey)
	require.NoError(t, err)
	assert.Len(t, m.FeatureNames(), 3)
	assert.Equal(t, int32(0), replicaFetches.Load())
}

// ==========================
// Zeebe Flow
// ==========================

const rentProcess = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:zeebe="http://camunda.org/schema/zeebe/1.0" id="rent-estimate-definitions" targetNamespace="http://bpmn.io/schema/bpmn">
  <bpmn:process id="rent-estimate" isExecutable="true">
    <bpmn:startEvent id="start">
      <bpmn:outgoing>to-predict</bpmn:outgoing>
    </bpmn:startEvent>
    <bpmn:serviceTask id="predict" name="Predict rent">
      <bpmn:extensionElements>
        <zeebe:taskDefinition type="predict-rent" />
      </bpmn:extensionElements>
      <bpmn:incoming>to-predict</bpmn:incoming>
      <bpmn:outgoing>to-end</bpmn:outgoing>
    </bpmn:serviceTask>
    <bpmn:endEvent id="end">
      <bpmn:incoming>to-end</bpmn:incoming>
    </bpmn:endEvent>
    <bpmn:sequenceFlow id="to-predict" sourceRef="start" targetRef="predict" />
    <bpmn:sequenceFlow id="to-end" sourceRef="predict" targetRef="end" />
  </bpmn:process>
</bpmn:definitions>`

// TestZeebeWorker needs a running broker: E2E_ZEEBE_ADDRESS=localhost:26500.
func TestZeebeWorker(t *testing.T) {
	address := os.Getenv("E2E_ZEEBE_ADDRESS")
	if address == "" || testing.Short() {
		t.Skip("E2E_ZEEBE_ADDRESS not set")
	}

	env := setupEnv(t)
	env.sqlMock.MatchExpectationsInOrder(false)
	env.sqlMock.ExpectExec("INSERT INTO rent_predictions").WillReturnResult(sqlmock.NewResult(0, 1))

	client, err := camunda.NewClient(address)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	zeebe := client.GetClient()
	_, err = zeebe.NewDeployResourceCommand().AddResource([]byte(rentProcess), "rent-estimate.bpmn").Send(ctx)
	require.NoError(t, err)

	handler := predictrent.NewHandler(predictrent.LoadConfig(), env.svc, env.parser, logger.NewTestLogger(t))
	w := camunda.NewWorker(zeebe, camunda.WorkerOptions{
		TaskType:       predictrent.TaskType,
		Name:           "e2e",
		MaxJobsActive:  1,
		Timeout:        30 * time.Second,
		FetchVariables: predictrent.FetchVariables(),
	}, handler.Handle, logger.NewTestLogger(t))
	defer w.Stop()

	outputs := runInstance(ctx, t, zeebe, map[string]interface{}{
		"total_area":   float64(120),
		"neighborhood": "Fener Mah.",
		"requestedBy":  "e2e",
	})

	assert.Equal(t, 1700.0, outputs["predictedRent"])
	assert.Equal(t, "1,700.00 USD", outputs["formatted"])
	assert.Equal(t, testModelKey, outputs["modelKey"])
}

func runInstance(ctx context.Context, t *testing.T, zeebe zbc.Client, vars map[string]interface{}) map[string]interface{} {
	t.Helper()
	cmd, err := zeebe.NewCreateInstanceCommand().
		BPMNProcessId("rent-estimate").
		LatestVersion().
		VariablesFromMap(vars)
	require.NoError(t, err)

	resp, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err)

	var outputs map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.GetVariables()), &outputs))
	return outputs
}
