package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vividhyeok/mixpipeline/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	return store.New(db)
}

func TestGetJobNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newTestStore(t)
	h := NewJobsHandler(nil, st, discardLogger())

	router := gin.New()
	router.GET("/api/v1/jobs/:id", h.GetJob)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newTestStore(t)
	h := NewJobsHandler(nil, st, discardLogger())

	router := gin.New()
	router.GET("/api/v1/jobs/:id", h.GetJob)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-number", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitJobRequiresPlaylistRef(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newTestStore(t)
	h := NewJobsHandler(nil, st, discardLogger())

	router := gin.New()
	router.POST("/api/v1/jobs", h.SubmitJob)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPlanPreviewRejectsIncompleteJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newTestStore(t)
	job, err := st.CreateJob("playlist:pending-preview", store.AnalysisOptions{})
	require.NoError(t, err)

	h := NewJobsHandler(nil, st, discardLogger())
	router := gin.New()
	router.GET("/api/v1/jobs/:id/plan/preview", h.GetPlanPreview)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+itoa(job.ID)+"/plan/preview", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetPlanPreviewRejectsInvalidPosition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newTestStore(t)
	job, err := st.CreateJob("playlist:preview-badpos", store.AnalysisOptions{})
	require.NoError(t, err)
	job.Status = store.JobCompleted
	require.NoError(t, st.SaveJob(job))

	h := NewJobsHandler(nil, st, discardLogger())
	router := gin.New()
	router.GET("/api/v1/jobs/:id/plan/preview", h.GetPlanPreview)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+itoa(job.ID)+"/plan/preview?position=-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPlanPreviewNotFoundForMissingTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newTestStore(t)
	job, err := st.CreateJob("playlist:preview-notransitions", store.AnalysisOptions{})
	require.NoError(t, err)
	job.Status = store.JobCompleted
	require.NoError(t, st.SaveJob(job))

	h := NewJobsHandler(nil, st, discardLogger())
	router := gin.New()
	router.GET("/api/v1/jobs/:id/plan/preview", h.GetPlanPreview)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+itoa(job.ID)+"/plan/preview?position=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPlanRejectsIncompleteJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := newTestStore(t)
	job, err := st.CreateJob("playlist:pending-plan", store.AnalysisOptions{})
	require.NoError(t, err)

	h := NewJobsHandler(nil, st, discardLogger())
	router := gin.New()
	router.GET("/api/v1/jobs/:id/plan", h.GetPlan)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+itoa(job.ID)+"/plan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
