package services

import (
	"testing"

	"github.com/roomify/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostedURLDerivation(t *testing.T) {
	cases := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{
			name: "public base URL",
			cfg: &config.Config{
				HostingPublicURL: "https://cdn.roomify.app/",
				HostingBucket:    "roomify-images",
			},
			want: "https://cdn.roomify.app/projects/p1/source.png",
		},
		{
			name: "custom endpoint",
			cfg: &config.Config{
				HostingS3Endpoint: "http://localhost:9000",
				HostingS3Region:   "us-east-1",
				HostingBucket:     "roomify-images",
			},
			want: "http://localhost:9000/roomify-images/projects/p1/source.png",
		},
		{
			name: "plain AWS",
			cfg: &config.Config{
				HostingS3Region: "eu-central-1",
				HostingBucket:   "roomify-images",
			},
			want: "https://roomify-images.s3.eu-central-1.amazonaws.com/projects/p1/source.png",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewHostingService(tc.cfg)
			require.NoError(t, err)
			got := svc.hostedURL("projects/p1/source.png")
			assert.Equal(t, tc.want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestHostedURLEscapesKeySegments(t *testing.T) {
	svc, err := NewHostingService(&config.Config{
		HostingS3Endpoint: "http://localhost:9000",
		HostingS3Region:   "us-east-1",
		HostingBucket:     "roomify-images",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"http://localhost:9000/roomify-images/projects/p%201/source%3Fv=2.png",
		svc.hostedURL("projects/p 1/source?v=2.png"))

	svc.cfg.HostingS3Endpoint = ""
	svc.cfg.HostingPublicURL = "https://cdn.roomify.app"
	assert.Equal(t,
		"https://cdn.roomify.app/projects/p%201/source%3Fv=2.png",
		svc.hostedURL("projects/p 1/source?v=2.png"))
}
