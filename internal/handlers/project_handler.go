package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomify/backend/internal/middleware"
	"github.com/roomify/backend/internal/models"
	"github.com/roomify/backend/internal/services"
)

type ProjectHandler struct {
	projectService    *services.ProjectService
	visualizerService *services.VisualizerService
	exportService     *services.ExportService
}

func NewProjectHandler(projectService *services.ProjectService, visualizerService *services.VisualizerService, exportService *services.ExportService) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projectService,
		visualizerService: visualizerService,
		exportService:     exportService,
	}
}

// jsonError writes the worker error shape: {error, status}
func jsonError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message, "status": status})
}

type saveProjectRequest struct {
	Project    *models.DesignItem       `json:"project"`
	Visibility models.ProjectVisibility `json:"visibility"`
}

// SaveProject is the worker save endpoint. The payload arrives with
// images already hosted; the worker only stamps updatedAt and writes
// the key-value record.
// POST /api/projects/save
func (h *ProjectHandler) SaveProject(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		jsonError(c, http.StatusUnauthorized, "Authentication failed")
		return
	}

	var req saveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "Project not found")
		return
	}
	if req.Project == nil || req.Project.ID == "" || req.Project.SourceImage == "" {
		jsonError(c, http.StatusBadRequest, "Project not found")
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPrivate
	}

	payload := *req.Project
	payload.Touch()

	saved, err := h.projectService.SaveDirect(c.Request.Context(), &payload, req.Visibility)
	if err != nil {
		jsonError(c, http.StatusInternalServerError, "Failed to save project")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"saved":   true,
		"id":      saved.ID,
		"project": saved,
	})
}

// ListProjects returns every project record under the store prefixes
// GET /api/projects/list
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		jsonError(c, http.StatusUnauthorized, "Authentication failed")
		return
	}

	projects, err := h.projectService.List(c.Request.Context())
	if err != nil {
		jsonError(c, http.StatusInternalServerError, "Failed to list projects")
		return
	}
	if projects == nil {
		projects = []*models.DesignItem{}
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProject looks up one project by id, private partition first
// GET /api/projects/get?id=
func (h *ProjectHandler) GetProject(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		jsonError(c, http.StatusUnauthorized, "Authentication failed")
		return
	}

	id := c.Query("id")
	if id == "" {
		jsonError(c, http.StatusBadRequest, "Project ID is required")
		return
	}

	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil {
		jsonError(c, http.StatusInternalServerError, "Failed to get project")
		return
	}
	if project == nil {
		jsonError(c, http.StatusNotFound, "Project not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// CreateProject is the full save path: host images, then persist via
// the configured transport
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	sess := middleware.GetSession(c)

	var req saveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Project == nil {
		jsonError(c, http.StatusBadRequest, "Project payload is required")
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPrivate
	}

	saved, err := h.projectService.Create(c.Request.Context(), sess, req.Project, req.Visibility)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingProjectID), errors.Is(err, services.ErrSourceNotResolvable):
			jsonError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrUnauthenticated):
			jsonError(c, http.StatusUnauthorized, "Authentication failed")
		default:
			jsonError(c, http.StatusInternalServerError, "Failed to save project")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"saved": true, "id": saved.ID, "project": saved})
}

// ShareProject moves a project to the public partition
// POST /api/v1/projects/:id/share
func (h *ProjectHandler) ShareProject(c *gin.Context) {
	sess := middleware.GetSession(c)
	id := c.Param("id")

	project, err := h.projectService.Share(c.Request.Context(), sess, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProjectNotPrivate):
			jsonError(c, http.StatusNotFound, "Project not found in private partition")
		case errors.Is(err, services.ErrUnauthenticated):
			jsonError(c, http.StatusUnauthorized, "Authentication failed")
		default:
			jsonError(c, http.StatusInternalServerError, "Failed to share project")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// UnshareProject moves a project back to the private partition
// POST /api/v1/projects/:id/unshare
func (h *ProjectHandler) UnshareProject(c *gin.Context) {
	sess := middleware.GetSession(c)
	id := c.Param("id")

	project, err := h.projectService.Unshare(c.Request.Context(), sess, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProjectNotPublic):
			jsonError(c, http.StatusNotFound, "Project not found in public partition")
		case errors.Is(err, services.ErrUnauthenticated):
			jsonError(c, http.StatusUnauthorized, "Authentication failed")
		default:
			jsonError(c, http.StatusInternalServerError, "Failed to unshare project")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// RenderProject loads the project into a fresh view and runs one
// generation if it does not have a render yet
// POST /api/v1/projects/:id/render
func (h *ProjectHandler) RenderProject(c *gin.Context) {
	sess := middleware.GetSession(c)
	id := c.Param("id")

	view := h.visualizerService.NewView(sess)
	if err := view.Open(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			jsonError(c, http.StatusNotFound, "Project not found")
			return
		}
		jsonError(c, http.StatusInternalServerError, "Failed to load project")
		return
	}

	if view.State() == services.StateReadyWithRender {
		c.JSON(http.StatusOK, gin.H{
			"state":        view.State(),
			"project":      view.Project(),
			"currentImage": view.CurrentImage(),
		})
		return
	}

	if err := view.Render(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, services.ErrRenderInProgress):
			jsonError(c, http.StatusConflict, "A render is already running for this project")
		case errors.Is(err, services.ErrNoSourceImage):
			jsonError(c, http.StatusBadRequest, "Project has no source image")
		default:
			jsonError(c, http.StatusInternalServerError, "Failed to render project")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":        view.State(),
		"project":      view.Project(),
		"currentImage": view.CurrentImage(),
	})
}

// ShareQR serves a QR code PNG for the project share link
// GET /api/v1/projects/:id/share/qr.png
func (h *ProjectHandler) ShareQR(c *gin.Context) {
	id := c.Param("id")

	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil || project == nil {
		jsonError(c, http.StatusNotFound, "Project not found")
		return
	}

	png, err := h.exportService.ShareQRPNG(project)
	if err != nil {
		jsonError(c, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s-share.png\"", project.ID))
	c.Data(http.StatusOK, "image/png", png)
}

// ExportPDF serves the project summary sheet
// GET /api/v1/projects/:id/export.pdf
func (h *ProjectHandler) ExportPDF(c *gin.Context) {
	id := c.Param("id")

	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil || project == nil {
		jsonError(c, http.StatusNotFound, "Project not found")
		return
	}

	pdf, err := h.exportService.ProjectPDF(project)
	if err != nil {
		jsonError(c, http.StatusInternalServerError, "Failed to export project")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.pdf\"", project.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
