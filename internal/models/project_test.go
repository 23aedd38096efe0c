package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionKeys(t *testing.T) {
	item := &DesignItem{ID: "abc"}
	assert.Equal(t, "roomify_project_abc", item.PrivateKey())
	assert.Equal(t, "roomify_public_abc", item.PublicKey())
}

func TestMarkSharedAndUnshared(t *testing.T) {
	item := &DesignItem{ID: "abc"}
	sess := &Session{UserID: "user-1", Username: "alice"}

	item.MarkShared(sess)
	assert.True(t, item.IsPublic)
	assert.Equal(t, "alice", item.SharedBy)
	assert.Equal(t, "user-1", item.SharedByID)
	assert.NotEmpty(t, item.SharedAt)

	item.MarkUnshared()
	assert.False(t, item.IsPublic)
	assert.Empty(t, item.SharedBy)
	assert.Empty(t, item.SharedByID)
	assert.Empty(t, item.SharedAt)
}

func TestStripTransient(t *testing.T) {
	item := &DesignItem{
		ID:           "abc",
		SourcePath:   "/tmp/a.png",
		RenderedPath: "/tmp/b.png",
		PublicPath:   "/tmp/c.png",
	}
	item.StripTransient()
	assert.Empty(t, item.SourcePath)
	assert.Empty(t, item.RenderedPath)
	assert.Empty(t, item.PublicPath)
}

func TestTouchAndUpdatedTime(t *testing.T) {
	item := &DesignItem{ID: "abc"}
	assert.True(t, item.UpdatedTime().IsZero())

	item.Touch()
	parsed, err := time.Parse(time.RFC3339, item.UpdatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, 5*time.Second)
	assert.False(t, item.UpdatedTime().IsZero())

	item.UpdatedAt = "not-a-timestamp"
	assert.True(t, item.UpdatedTime().IsZero())
}
