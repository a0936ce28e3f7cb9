package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/autoblog-publisher/internal/api"
	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/metrics"
	"github.com/autoblog-publisher/internal/mocks"
	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func setupTestRouter(posts ...*models.Post) (*gin.Engine, *mocks.MockPublishService, *mocks.MockPostService, *mocks.MockSchedulerService) {
	gin.SetMode(gin.TestMode)

	mockPublish := mocks.NewMockPublishService()
	mockPost := mocks.NewMockPostService(posts...)
	mockScheduler := &mocks.MockSchedulerService{}

	services := &service.Services{
		Publish:   mockPublish,
		Post:      mockPost,
		Scheduler: mockScheduler,
	}

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "8080"},
		Publish: config.PublishConfig{RunTimeout: time.Minute},
	}

	log := zerolog.Nop()
	router := api.NewRouter(services, cfg, prometheus.NewRegistry(), log)

	return router, mockPublish, mockPost, mockScheduler
}

func samplePost(slug, title string) *models.Post {
	return &models.Post{
		Slug:      slug,
		Title:     title,
		Body:      "Body of " + title,
		Excerpt:   "Excerpt of " + title,
		Revision:  1,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _, scheduler := setupTestRouter()
	scheduler.Next = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["next_scheduled_run"] != "2030-01-01T00:00:00Z" {
		t.Errorf("Expected next scheduled run, got %v", response["next_scheduled_run"])
	}
}

func TestHealthEndpoint_NoScheduler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	services := &service.Services{
		Publish: mocks.NewMockPublishService(),
		Post:    mocks.NewMockPostService(),
	}
	router := api.NewRouter(services, &config.Config{}, prometheus.NewRegistry(), zerolog.Nop())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var response map[string]interface{}
	decode(t, w, &response)
	if _, ok := response["next_scheduled_run"]; ok {
		t.Error("Expected no next_scheduled_run without a scheduler")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveRun("http", "success", time.Second)

	services := &service.Services{
		Publish: mocks.NewMockPublishService(),
		Post:    mocks.NewMockPostService(),
	}
	router := api.NewRouter(services, &config.Config{}, reg, zerolog.Nop())

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "autoblog_runs_total") {
		t.Errorf("Expected runs counter in output, got %s", w.Body.String())
	}
}

func TestGenerate_Success(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()

	req := httptest.NewRequest("GET", "/generate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]interface{}
	decode(t, w, &response)

	if response["slug"] != "test-post" {
		t.Errorf("Expected slug 'test-post', got %v", response["slug"])
	}
	if response["title"] != "Test Post" {
		t.Errorf("Expected title 'Test Post', got %v", response["title"])
	}
	if response["run_id"] != "test-run-id" {
		t.Errorf("Expected run_id 'test-run-id', got %v", response["run_id"])
	}
	if mockPublish.RunCount() != 1 {
		t.Errorf("Expected 1 run, got %d", mockPublish.RunCount())
	}
	if mockPublish.Requests[0].Trigger != models.TriggerHTTP {
		t.Errorf("Expected http trigger, got %s", mockPublish.Requests[0].Trigger)
	}
}

func TestGenerate_PostWithTopic(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()

	body := bytes.NewBufferString(`{"topic": "stoicism"}`)
	req := httptest.NewRequest("POST", "/generate", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := mockPublish.Requests[0].Topic; got != "stoicism" {
		t.Errorf("Expected topic 'stoicism', got %q", got)
	}
	if got := mockPublish.Requests[0].Trigger; got != models.TriggerHTTP {
		t.Errorf("Expected http trigger, got %s", got)
	}
}

func TestGenerate_PostWithoutBody(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()

	req := httptest.NewRequest("POST", "/generate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if mockPublish.Requests[0].Topic != "" {
		t.Errorf("Expected no topic, got %q", mockPublish.Requests[0].Topic)
	}
}

func TestGenerate_InvalidBody(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()

	req := httptest.NewRequest("POST", "/generate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if mockPublish.RunCount() != 0 {
		t.Error("Expected no run for an invalid body")
	}
}

func TestGenerate_RunFailure(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()
	mockPublish.RunFunc = func(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
		return &models.RunResult{RunID: "run-42", State: models.RunStateFailed},
			&service.RunError{RunID: "run-42", Reason: models.ReasonSourceUnavailable, Cause: errors.New("content store unreachable")}
	}

	req := httptest.NewRequest("GET", "/generate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)

	if response["error"] != string(models.ReasonSourceUnavailable) {
		t.Errorf("Expected error kind SourceUnavailable, got %v", response["error"])
	}
	if response["cause"] != "content store unreachable" {
		t.Errorf("Expected cause to be reported, got %v", response["cause"])
	}
	if response["run_id"] != "run-42" {
		t.Errorf("Expected run_id 'run-42', got %v", response["run_id"])
	}
}

func TestGenerate_ShuttingDown(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()
	mockPublish.RunFunc = func(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
		return nil, service.ErrShuttingDown
	}

	req := httptest.NewRequest("GET", "/generate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestListPosts(t *testing.T) {
	router, _, _, _ := setupTestRouter(
		samplePost("second-post", "Second Post"),
		samplePost("first-post", "First Post"),
	)

	req := httptest.NewRequest("GET", "/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var items []models.PostListItem
	decode(t, w, &items)

	if len(items) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(items))
	}
	if items[0].Slug != "second-post" || items[1].Slug != "first-post" {
		t.Errorf("Expected service order to be kept, got %s, %s", items[0].Slug, items[1].Slug)
	}
	if items[0].Excerpt != "Excerpt of Second Post" {
		t.Errorf("Expected excerpt, got %q", items[0].Excerpt)
	}
}

func TestListPosts_Empty(t *testing.T) {
	router, _, _, _ := setupTestRouter()

	req := httptest.NewRequest("GET", "/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty list, got %s", w.Body.String())
	}
}

func TestListPosts_StoreError(t *testing.T) {
	router, _, mockPost, _ := setupTestRouter()
	mockPost.ListErr = errors.New("boom")

	req := httptest.NewRequest("GET", "/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestGetPost(t *testing.T) {
	router, _, _, _ := setupTestRouter(samplePost("exploring-moral-luck", "Exploring Moral Luck"))

	req := httptest.NewRequest("GET", "/posts/exploring-moral-luck", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var post models.Post
	decode(t, w, &post)

	if post.Title != "Exploring Moral Luck" {
		t.Errorf("Expected title, got %q", post.Title)
	}
	if post.Body != "Body of Exploring Moral Luck" {
		t.Errorf("Expected body, got %q", post.Body)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	router, _, _, _ := setupTestRouter()

	req := httptest.NewRequest("GET", "/posts/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetPost_LegacyPath(t *testing.T) {
	router, _, _, _ := setupTestRouter(samplePost("old-post", "Old Post"))

	req := httptest.NewRequest("GET", "/blog-posts/old-post", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestRepublish(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()

	req := httptest.NewRequest("POST", "/posts/exploring-moral-luck/republish", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(mockPublish.Republished) != 1 || mockPublish.Republished[0] != "exploring-moral-luck" {
		t.Errorf("Expected republish of exploring-moral-luck, got %v", mockPublish.Republished)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	post, ok := response["post"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected post in response, got %v", response["post"])
	}
	if post["revision"] != float64(2) {
		t.Errorf("Expected revision 2, got %v", post["revision"])
	}
}

func TestRepublish_NotFound(t *testing.T) {
	router, mockPublish, _, _ := setupTestRouter()
	mockPublish.RepublishFunc = func(ctx context.Context, slug string) (*models.RunResult, error) {
		return nil, service.ErrPostNotFound
	}

	req := httptest.NewRequest("POST", "/posts/missing/republish", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _, _, _ := setupTestRouter()

	req := httptest.NewRequest("OPTIONS", "/generate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}

func TestRequestID(t *testing.T) {
	router, _, _, _ := setupTestRouter()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}

	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated request id")
	}
}
