package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/roomify/backend/internal/config"
	"github.com/roomify/backend/internal/models"
)

// saveTransport is the persistence path for project saves. Selected once
// when the store is built: remote worker HTTP when a base URL is
// configured, direct key-value writes otherwise.
type saveTransport interface {
	Save(ctx context.Context, sess *models.Session, item *models.DesignItem, visibility models.ProjectVisibility) (*models.DesignItem, error)
}

type directTransport struct {
	store *ProjectService
}

func (t directTransport) Save(ctx context.Context, _ *models.Session, item *models.DesignItem, visibility models.ProjectVisibility) (*models.DesignItem, error) {
	return t.store.SaveDirect(ctx, item, visibility)
}

// workerTransport POSTs saves to the remote worker endpoint and falls
// back to direct writes when the worker fails. The fallback is silent
// to callers: same return shape either way.
type workerTransport struct {
	baseURL  string
	client   *http.Client
	fallback directTransport
}

func newWorkerTransport(cfg *config.Config, store *ProjectService) *workerTransport {
	return &workerTransport{
		baseURL:  cfg.WorkerBaseURL,
		client:   &http.Client{Timeout: cfg.WorkerTimeout},
		fallback: directTransport{store},
	}
}

type workerSaveRequest struct {
	Project    *models.DesignItem       `json:"project"`
	Visibility models.ProjectVisibility `json:"visibility"`
}

type workerSaveResponse struct {
	Saved   bool               `json:"saved"`
	ID      string             `json:"id"`
	Project *models.DesignItem `json:"project"`
	Error   string             `json:"error,omitempty"`
	Status  int                `json:"status,omitempty"`
}

func (t *workerTransport) Save(ctx context.Context, sess *models.Session, item *models.DesignItem, visibility models.ProjectVisibility) (*models.DesignItem, error) {
	saved, err := t.saveRemote(ctx, sess, item, visibility)
	if err != nil {
		log.Printf("worker save failed for %s, falling back to direct storage: %v", item.ID, err)
		return t.fallback.Save(ctx, sess, item, visibility)
	}
	return saved, nil
}

func (t *workerTransport) saveRemote(ctx context.Context, sess *models.Session, item *models.DesignItem, visibility models.ProjectVisibility) (*models.DesignItem, error) {
	b, err := json.Marshal(workerSaveRequest{Project: item, Visibility: visibility})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/projects/save", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if sess != nil && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out workerSaveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("malformed worker response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Saved {
		if out.Error != "" {
			return nil, fmt.Errorf("worker rejected save: %s (%d)", out.Error, out.Status)
		}
		return nil, fmt.Errorf("worker save failed: %d", resp.StatusCode)
	}
	if out.Project == nil {
		return nil, fmt.Errorf("worker response missing project")
	}
	return out.Project, nil
}
