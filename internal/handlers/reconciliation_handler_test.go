package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/pkg/logger"
	"invoice-reconciliation-backend/internal/routes"
)

type staticProvider struct{}

func (staticProvider) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Movement{},
		&models.Document{},
		&models.MatchDecision{},
		&models.AutomationJob{},
		&models.AutomationLogEntry{},
		&models.RunLease{},
		&models.TenantMatchingConfig{},
	))

	r := gin.New()
	routes.RegisterRoutes(r, db, staticProvider{}, logger.NewNop())
	return r, db
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartRunValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/reconciliation/runs", `{"tenant_id":"not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/reconciliation/runs", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRunAccepted(t *testing.T) {
	r, _ := newTestRouter(t)
	tenant := uuid.New()

	w := doJSON(r, http.MethodPost, "/api/reconciliation/runs",
		fmt.Sprintf(`{"tenant_id":%q}`, tenant))
	require.Equal(t, http.StatusAccepted, w.Code)

	var payload struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	_, err := uuid.Parse(payload.JobID)
	assert.NoError(t, err)
}

func TestStartRunConflictsWhileActive(t *testing.T) {
	r, db := newTestRouter(t)
	tenant := uuid.New()
	require.NoError(t, db.Create(&models.RunLease{
		TenantID:  tenant,
		JobID:     uuid.New(),
		ExpiresAt: time.Now().Add(time.Minute),
		CreatedAt: time.Now(),
	}).Error)

	w := doJSON(r, http.MethodPost, "/api/reconciliation/runs",
		fmt.Sprintf(`{"tenant_id":%q}`, tenant))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetJobStatusNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/reconciliation/runs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/reconciliation/runs/nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnmatchMovementNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/movements/"+uuid.NewString()+"/unmatch", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
