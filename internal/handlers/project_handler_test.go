package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/roomify/backend/internal/config"
	"github.com/roomify/backend/internal/middleware"
	"github.com/roomify/backend/internal/models"
	"github.com/roomify/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHosting struct{}

func (stubHosting) Upload(ctx context.Context, urlOrDataURL, projectID, label string) (string, error) {
	return "https://cdn.example.com/projects/" + projectID + "/" + label + ".png", nil
}

type handlerFixture struct {
	router         *gin.Engine
	projectService *services.ProjectService
	mr             *miniredis.Miniredis
}

func setupHandlerTest(t *testing.T, aiURL string, authenticated bool) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		FrontendURL:       "http://localhost:3000",
		ListIncludePublic: true,
		AIBaseURL:         aiURL,
		AIProvider:        "gemini",
		AIModel:           "gemini-2.5-flash-image-preview",
		AIRenderWidth:     1024,
		AIRenderHeight:    1024,
		AITimeout:         5 * time.Second,
	}

	projectService := services.NewProjectService(client, stubHosting{}, cfg)
	renderService := services.NewRenderService(cfg)
	visualizerService := services.NewVisualizerService(projectService, renderService)
	exportService := services.NewExportService(cfg)
	handler := NewProjectHandler(projectService, visualizerService, exportService)

	router := gin.New()
	if authenticated {
		router.Use(func(c *gin.Context) {
			middleware.SetSession(c, &models.Session{UserID: "user-1", Username: "alice", Token: "test-token"})
		})
	}

	worker := router.Group("/api/projects")
	{
		worker.POST("/save", handler.SaveProject)
		worker.GET("/list", handler.ListProjects)
		worker.GET("/get", handler.GetProject)
	}
	projects := router.Group("/api/v1/projects")
	{
		projects.POST("", handler.CreateProject)
		projects.POST("/:id/share", handler.ShareProject)
		projects.POST("/:id/unshare", handler.UnshareProject)
		projects.POST("/:id/render", handler.RenderProject)
		projects.GET("/:id/share/qr.png", handler.ShareQR)
		projects.GET("/:id/export.pdf", handler.ExportPDF)
	}

	return &handlerFixture{router: router, projectService: projectService, mr: mr}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedProject(t *testing.T, f *handlerFixture, item *models.DesignItem) {
	t.Helper()
	item.Touch()
	_, err := f.projectService.SaveDirect(context.Background(), item, models.VisibilityPrivate)
	require.NoError(t, err)
}

type saveResponse struct {
	Saved   bool               `json:"saved"`
	ID      string             `json:"id"`
	Project *models.DesignItem `json:"project"`
	Error   string             `json:"error"`
	Status  int                `json:"status"`
}

func TestWorkerSaveAndGet(t *testing.T) {
	f := setupHandlerTest(t, "", true)

	w := doJSON(t, f.router, http.MethodPost, "/api/projects/save", gin.H{
		"project": gin.H{"id": "p1", "sourceImage": "https://cdn.example.com/projects/p1/source.png"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp saveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Saved)
	assert.Equal(t, "p1", resp.ID)
	require.NotNil(t, resp.Project)
	assert.NotEmpty(t, resp.Project.UpdatedAt)

	w = doJSON(t, f.router, http.MethodGet, "/api/projects/get?id=p1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Project *models.DesignItem `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Project)
	assert.Equal(t, "p1", got.Project.ID)
}

func TestWorkerSaveRejectsIncompletePayload(t *testing.T) {
	f := setupHandlerTest(t, "", true)

	cases := []gin.H{
		{},
		{"project": gin.H{"sourceImage": "https://x/src.png"}},
		{"project": gin.H{"id": "p1"}},
	}
	for _, body := range cases {
		w := doJSON(t, f.router, http.MethodPost, "/api/projects/save", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp saveResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Project not found", resp.Error)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
	}
}

func TestWorkerEndpointsRequireSession(t *testing.T) {
	f := setupHandlerTest(t, "", false)

	w := doJSON(t, f.router, http.MethodPost, "/api/projects/save", gin.H{
		"project": gin.H{"id": "p1", "sourceImage": "https://x/src.png"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, f.router, http.MethodGet, "/api/projects/list", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, f.router, http.MethodGet, "/api/projects/get?id=p1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWorkerGetMissingID(t *testing.T) {
	f := setupHandlerTest(t, "", true)

	w := doJSON(t, f.router, http.MethodGet, "/api/projects/get", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Project ID is required")

	w = doJSON(t, f.router, http.MethodGet, "/api/projects/get?id=nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkerListEmpty(t *testing.T) {
	f := setupHandlerTest(t, "", true)

	w := doJSON(t, f.router, http.MethodGet, "/api/projects/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"projects":[]}`, w.Body.String())
}

func TestCreateProjectEndpoint(t *testing.T) {
	f := setupHandlerTest(t, "", true)

	w := doJSON(t, f.router, http.MethodPost, "/api/v1/projects", gin.H{
		"project": gin.H{"id": "p1", "sourceImage": "data:image/png;base64,aGVsbG8="},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp saveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Saved)
	assert.Equal(t, "https://cdn.example.com/projects/p1/source.png", resp.Project.SourceImage)
	assert.Equal(t, "user-1", resp.Project.OwnerID)
}

func TestShareAndUnshareEndpoints(t *testing.T) {
	f := setupHandlerTest(t, "", true)
	seedProject(t, f, &models.DesignItem{ID: "p1", SourceImage: "https://x/src.png"})

	w := doJSON(t, f.router, http.MethodPost, "/api/v1/projects/p1/share", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Project *models.DesignItem `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Project.IsPublic)
	assert.Equal(t, "alice", resp.Project.SharedBy)

	// Already public: a second share hits the missing-private case
	w = doJSON(t, f.router, http.MethodPost, "/api/v1/projects/p1/share", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, f.router, http.MethodPost, "/api/v1/projects/p1/unshare", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Project.IsPublic)

	w = doJSON(t, f.router, http.MethodPost, "/api/v1/projects/p1/unshare", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type renderResponse struct {
	State        string             `json:"state"`
	Project      *models.DesignItem `json:"project"`
	CurrentImage string             `json:"currentImage"`
}

func TestRenderEndpoint(t *testing.T) {
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gin.H{"url": "data:image/png;base64,cmVuZGVyZWQ="})
	}))
	defer ai.Close()

	f := setupHandlerTest(t, ai.URL, true)
	seedProject(t, f, &models.DesignItem{ID: "p1", SourceImage: "data:image/png;base64,aGVsbG8="})

	w := doJSON(t, f.router, http.MethodPost, "/api/v1/projects/p1/render", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp renderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(services.StateReadyWithRender), resp.State)
	assert.Equal(t, "https://cdn.example.com/projects/p1/rendered.png", resp.CurrentImage)
	require.NotNil(t, resp.Project)
	assert.NotEmpty(t, resp.Project.RenderedImage)
}

func TestRenderEndpointReturnsExistingRender(t *testing.T) {
	aiCalls := 0
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		aiCalls++
		json.NewEncoder(w).Encode(gin.H{"url": "data:image/png;base64,cmVuZGVyZWQ="})
	}))
	defer ai.Close()

	f := setupHandlerTest(t, ai.URL, true)
	seedProject(t, f, &models.DesignItem{
		ID:            "p1",
		SourceImage:   "https://x/src.png",
		RenderedImage: "https://x/render.png",
	})

	w := doJSON(t, f.router, http.MethodPost, "/api/v1/projects/p1/render", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp renderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(services.StateReadyWithRender), resp.State)
	assert.Equal(t, 0, aiCalls)
}

func TestRenderEndpointMissingProject(t *testing.T) {
	f := setupHandlerTest(t, "", true)

	w := doJSON(t, f.router, http.MethodPost, "/api/v1/projects/nope/render", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareQREndpoint(t *testing.T) {
	f := setupHandlerTest(t, "", true)
	seedProject(t, f, &models.DesignItem{ID: "p1", SourceImage: "https://x/src.png"})

	w := doJSON(t, f.router, http.MethodGet, "/api/v1/projects/p1/share/qr.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestExportPDFEndpoint(t *testing.T) {
	f := setupHandlerTest(t, "", true)
	seedProject(t, f, &models.DesignItem{ID: "p1", Name: "Living Room", SourceImage: "https://x/src.png"})

	w := doJSON(t, f.router, http.MethodGet, "/api/v1/projects/p1/export.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}
