package models

import "time"

// Storage key prefixes for the two project partitions.
const (
	ProjectKeyPrefix = "roomify_project_"
	PublicKeyPrefix  = "roomify_public_"
)

type ProjectVisibility string

const (
	VisibilityPrivate ProjectVisibility = "private"
	VisibilityPublic  ProjectVisibility = "public"
)

// DesignItem pairs a source floor-plan image with an optional AI render.
// A given id lives in exactly one partition: roomify_project_{id} while
// private, roomify_public_{id} while shared.
type DesignItem struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	SourceImage   string `json:"sourceImage"`
	RenderedImage string `json:"renderedImage,omitempty"`
	OwnerID       string `json:"ownerId,omitempty"`
	IsPublic      bool   `json:"isPublic"`
	SharedBy      string `json:"sharedBy,omitempty"`
	SharedByID    string `json:"sharedById,omitempty"`
	SharedAt      string `json:"sharedAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`

	// Transient client-side upload paths, stripped before persisting.
	SourcePath   string `json:"sourcePath,omitempty"`
	RenderedPath string `json:"renderedPath,omitempty"`
	PublicPath   string `json:"publicPath,omitempty"`
}

func (d *DesignItem) PrivateKey() string { return ProjectKeyPrefix + d.ID }

func (d *DesignItem) PublicKey() string { return PublicKeyPrefix + d.ID }

// StripTransient clears fields that must never reach storage.
func (d *DesignItem) StripTransient() {
	d.SourcePath = ""
	d.RenderedPath = ""
	d.PublicPath = ""
}

// Touch stamps the last-modified marker, ISO-8601 in UTC.
func (d *DesignItem) Touch() {
	d.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// MarkShared stamps the sharing fields for a partition move to public.
func (d *DesignItem) MarkShared(sess *Session) {
	d.IsPublic = true
	d.SharedBy = sess.Username
	d.SharedByID = sess.UserID
	d.SharedAt = time.Now().UTC().Format(time.RFC3339)
}

// MarkUnshared clears the sharing fields for the move back to private.
func (d *DesignItem) MarkUnshared() {
	d.IsPublic = false
	d.SharedBy = ""
	d.SharedByID = ""
	d.SharedAt = ""
}

// UpdatedTime parses the last-modified stamp; zero time when absent or
// malformed, which sorts it oldest during reconciliation.
func (d *DesignItem) UpdatedTime() time.Time {
	t, err := time.Parse(time.RFC3339, d.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
