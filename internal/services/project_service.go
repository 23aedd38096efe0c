package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/roomify/backend/internal/config"
	"github.com/roomify/backend/internal/models"
	"github.com/roomify/backend/pkg/validation"
)

var (
	ErrMissingProjectID    = errors.New("project id is required")
	ErrSourceNotResolvable = errors.New("source image could not be resolved to a hosted URL")
	ErrProjectNotFound     = errors.New("project not found")
	ErrProjectNotPrivate   = errors.New("project is not in the private partition")
	ErrProjectNotPublic    = errors.New("project is not in the public partition")
	ErrUnauthenticated     = errors.New("authentication required")
)

// Hosting is the image hosting capability the store depends on
type Hosting interface {
	Upload(ctx context.Context, urlOrDataURL, projectID, label string) (string, error)
}

// ProjectService is the project store: CRUD and visibility moves over
// the two Redis partitions, optionally proxied through a remote worker
// for saves. The transport is picked once at construction; callers see
// the same behavior either way.
type ProjectService struct {
	redis     *redis.Client
	hosting   Hosting
	cfg       *config.Config
	transport saveTransport
}

func NewProjectService(redisClient *redis.Client, hosting Hosting, cfg *config.Config) *ProjectService {
	s := &ProjectService{
		redis:   redisClient,
		hosting: hosting,
		cfg:     cfg,
	}
	if cfg.WorkerBaseURL != "" {
		s.transport = newWorkerTransport(cfg, s)
	} else {
		s.transport = directTransport{s}
	}
	return s
}

// Create resolves hosted URLs for the item's images, strips transient
// fields, stamps updatedAt and persists. Returns nil (with an error)
// when the source image cannot be resolved: the record is not saved.
func (s *ProjectService) Create(ctx context.Context, sess *models.Session, item *models.DesignItem, visibility models.ProjectVisibility) (*models.DesignItem, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	if item == nil || item.ID == "" {
		return nil, ErrMissingProjectID
	}

	resolvedSource, err := s.hosting.Upload(ctx, item.SourceImage, item.ID, "source")
	if err != nil {
		if !validation.IsHostedURL(item.SourceImage) {
			log.Printf("failed to host source image for %s, skipping save: %v", item.ID, err)
			return nil, ErrSourceNotResolvable
		}
		log.Printf("failed to host source image for %s, keeping original URL: %v", item.ID, err)
		resolvedSource = item.SourceImage
	}

	// Render hosting is best-effort: a failed upload of an already
	// public render falls back to the original URL, anything else is
	// simply dropped.
	resolvedRender := ""
	if item.RenderedImage != "" {
		hostedRender, err := s.hosting.Upload(ctx, item.RenderedImage, item.ID, "rendered")
		if err != nil {
			log.Printf("failed to host rendered image for %s: %v", item.ID, err)
		}
		resolvedRender = hostedRender
		if resolvedRender == "" && validation.IsHostedURL(item.RenderedImage) {
			resolvedRender = item.RenderedImage
		}
	}

	payload := *item
	payload.SourceImage = resolvedSource
	payload.RenderedImage = resolvedRender
	payload.OwnerID = sess.UserID
	payload.StripTransient()
	if visibility == models.VisibilityPublic {
		payload.MarkShared(sess)
	} else {
		payload.MarkUnshared()
	}
	payload.Touch()

	return s.transport.Save(ctx, sess, &payload, visibility)
}

// GetByID looks up the private partition first, then the public one.
// Returns nil, nil when the id exists in neither.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.DesignItem, error) {
	if id == "" {
		return nil, ErrMissingProjectID
	}
	item, err := s.getKey(ctx, models.ProjectKeyPrefix+id)
	if err != nil || item != nil {
		return item, err
	}
	return s.getKey(ctx, models.PublicKeyPrefix+id)
}

// List returns every record under the project prefixes. The public
// partition is included unless configured off.
func (s *ProjectService) List(ctx context.Context) ([]*models.DesignItem, error) {
	items, err := s.scanPrefix(ctx, models.ProjectKeyPrefix)
	if err != nil {
		return nil, err
	}
	if s.cfg.ListIncludePublic {
		public, err := s.scanPrefix(ctx, models.PublicKeyPrefix)
		if err != nil {
			return nil, err
		}
		items = append(items, public...)
	}
	return items, nil
}

// Share moves a private record to the public partition. The public key
// is written before the private key is deleted, so a failed write
// leaves the record private and Share reports the error; a failed
// delete leaves double-residency for Reconcile to repair.
func (s *ProjectService) Share(ctx context.Context, sess *models.Session, id string) (*models.DesignItem, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	item, err := s.getKey(ctx, models.ProjectKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrProjectNotPrivate
	}

	item.MarkShared(sess)
	item.Touch()

	if err := s.setKey(ctx, item.PublicKey(), item); err != nil {
		return nil, fmt.Errorf("failed to write public record: %w", err)
	}
	if err := s.redis.Del(ctx, item.PrivateKey()).Err(); err != nil {
		log.Printf("inconsistency: project %s exists in both partitions after share (private delete failed: %v)", id, err)
	}
	return item, nil
}

// Unshare is the inverse move: clear sharing fields, write private,
// delete public.
func (s *ProjectService) Unshare(ctx context.Context, sess *models.Session, id string) (*models.DesignItem, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	item, err := s.getKey(ctx, models.PublicKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrProjectNotPublic
	}

	item.MarkUnshared()
	item.Touch()

	if err := s.setKey(ctx, item.PrivateKey(), item); err != nil {
		return nil, fmt.Errorf("failed to write private record: %w", err)
	}
	if err := s.redis.Del(ctx, item.PublicKey()).Err(); err != nil {
		log.Printf("inconsistency: project %s exists in both partitions after unshare (public delete failed: %v)", id, err)
	}
	return item, nil
}

// Reconcile repairs double-residency: for any id present in both
// partitions it keeps the copy with the newer updatedAt stamp (ties go
// to the public copy, matching the share direction) and deletes the
// other.
func (s *ProjectService) Reconcile(ctx context.Context) (int, error) {
	privates, err := s.scanPrefix(ctx, models.ProjectKeyPrefix)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, priv := range privates {
		pub, err := s.getKey(ctx, models.PublicKeyPrefix+priv.ID)
		if err != nil {
			return repaired, err
		}
		if pub == nil {
			continue
		}

		if priv.UpdatedTime().After(pub.UpdatedTime()) {
			if err := s.redis.Del(ctx, pub.PublicKey()).Err(); err != nil {
				return repaired, err
			}
			log.Printf("reconcile: project %s kept private copy, removed public", priv.ID)
		} else {
			if err := s.redis.Del(ctx, priv.PrivateKey()).Err(); err != nil {
				return repaired, err
			}
			log.Printf("reconcile: project %s kept public copy, removed private", priv.ID)
		}
		repaired++
	}
	return repaired, nil
}

// SaveDirect writes the already-resolved payload straight to the
// key-value store under the partition matching the visibility. Used by
// the direct transport and as the worker fallback, and by the worker
// HTTP handler itself.
func (s *ProjectService) SaveDirect(ctx context.Context, item *models.DesignItem, visibility models.ProjectVisibility) (*models.DesignItem, error) {
	key := item.PrivateKey()
	if visibility == models.VisibilityPublic {
		key = item.PublicKey()
	}
	if err := s.setKey(ctx, key, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ProjectService) getKey(ctx context.Context, key string) (*models.DesignItem, error) {
	raw, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item models.DesignItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("corrupt project record at %s: %w", key, err)
	}
	return &item, nil
}

func (s *ProjectService) setKey(ctx context.Context, key string, item *models.DesignItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, b, 0).Err()
}

func (s *ProjectService) scanPrefix(ctx context.Context, prefix string) ([]*models.DesignItem, error) {
	var items []*models.DesignItem
	iter := s.redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		item, err := s.getKey(ctx, iter.Val())
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
