package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/roomify/backend/internal/models"
)

// ViewState is the per-view lifecycle of an open project.
type ViewState string

const (
	StateLoading         ViewState = "loading"
	StateReadyNoRender   ViewState = "ready_no_render"
	StateRendering       ViewState = "rendering"
	StateReadyWithRender ViewState = "ready_with_render"
)

var (
	ErrRenderInProgress  = errors.New("a render is already running for this project")
	ErrRenderNotEligible = errors.New("view is not ready for a render")
	ErrNoSourceImage     = errors.New("project has no source image")
	ErrViewNotLoaded     = errors.New("no project loaded in this view")
)

type projectStore interface {
	GetByID(ctx context.Context, id string) (*models.DesignItem, error)
	Create(ctx context.Context, sess *models.Session, item *models.DesignItem, visibility models.ProjectVisibility) (*models.DesignItem, error)
}

type renderer interface {
	Generate(ctx context.Context, sourceImage string) (string, error)
}

// VisualizerService orchestrates load → generate → save for project
// views. The in-flight marker is keyed by project id, not per view, so
// two views of the same project cannot run duplicate generations.
type VisualizerService struct {
	store    projectStore
	renderer renderer

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewVisualizerService(store projectStore, renderer renderer) *VisualizerService {
	return &VisualizerService{
		store:    store,
		renderer: renderer,
		inflight: make(map[string]struct{}),
	}
}

func (s *VisualizerService) tryAcquire(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[projectID]; busy {
		return false
	}
	s.inflight[projectID] = struct{}{}
	return true
}

func (s *VisualizerService) release(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, projectID)
}

// NewView creates a view bound to one authenticated session.
func (s *VisualizerService) NewView(sess *models.Session) *ProjectView {
	return &ProjectView{svc: s, sess: sess}
}

// ProjectView is one open project: a small state machine whose
// transitions are driven by Open and Render. Every suspend point checks
// the epoch so a load started for project A never overwrites state
// after the view moved to project B.
type ProjectView struct {
	svc  *VisualizerService
	sess *models.Session

	mu              sync.Mutex
	epoch           int
	projectID       string
	state           ViewState
	project         *models.DesignItem
	currentImage    string
	renderAttempted bool
}

func (v *ProjectView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *ProjectView) Project() *models.DesignItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.project
}

func (v *ProjectView) CurrentImage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentImage
}

// Open loads a project into the view. Switching project ids invalidates
// any in-flight load or render result for the previous id.
func (v *ProjectView) Open(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingProjectID
	}

	v.mu.Lock()
	v.epoch++
	epoch := v.epoch
	v.projectID = id
	v.state = StateLoading
	v.project = nil
	v.currentImage = ""
	v.renderAttempted = false
	v.mu.Unlock()

	item, err := v.svc.store.GetByID(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.epoch != epoch {
		// View moved on while we were loading; drop the result.
		return nil
	}
	if err != nil {
		v.state = StateReadyNoRender
		return err
	}
	if item == nil {
		v.state = StateReadyNoRender
		return ErrProjectNotFound
	}

	v.project = item
	if item.RenderedImage != "" {
		v.state = StateReadyWithRender
		v.currentImage = item.RenderedImage
	} else {
		v.state = StateReadyNoRender
		v.currentImage = item.SourceImage
	}
	return nil
}

// Render runs at most one generation per load. On success the result is
// persisted immediately; display falls back to the raw generated image
// when the save does not come back with a hosted render.
func (v *ProjectView) Render(ctx context.Context) error {
	v.mu.Lock()
	if v.project == nil {
		v.mu.Unlock()
		return ErrViewNotLoaded
	}
	if v.state != StateReadyNoRender || v.renderAttempted {
		v.mu.Unlock()
		return ErrRenderNotEligible
	}
	if v.project.SourceImage == "" {
		v.mu.Unlock()
		return ErrNoSourceImage
	}
	projectID := v.projectID
	epoch := v.epoch
	source := v.project.SourceImage
	item := *v.project
	v.renderAttempted = true

	if !v.svc.tryAcquire(projectID) {
		v.mu.Unlock()
		return ErrRenderInProgress
	}
	v.state = StateRendering
	v.mu.Unlock()
	defer v.svc.release(projectID)

	rendered, err := v.svc.renderer.Generate(ctx, source)

	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.epoch == epoch {
			// Render discarded; prior image stays up.
			v.state = StateReadyNoRender
		}
		return err
	}

	// Persist best-effort: display is not blocked on the save outcome.
	item.RenderedImage = rendered
	displayImage := rendered
	visibility := models.VisibilityPrivate
	if item.IsPublic {
		visibility = models.VisibilityPublic
	}
	saved, saveErr := v.svc.store.Create(ctx, v.sess, &item, visibility)
	if saveErr != nil {
		log.Printf("failed to persist render for %s: %v", projectID, saveErr)
	} else if saved != nil && saved.RenderedImage != "" {
		displayImage = saved.RenderedImage
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.epoch != epoch {
		// Stale result: the view has moved to another project.
		return nil
	}
	if saved != nil {
		v.project = saved
	} else {
		v.project = &item
	}
	v.state = StateReadyWithRender
	v.currentImage = displayImage
	return nil
}
