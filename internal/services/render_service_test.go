package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/roomify/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderConfig(baseURL string) *config.Config {
	return &config.Config{
		AIBaseURL:      baseURL,
		AIAPIKey:       "test-key",
		AIProvider:     "gemini",
		AIModel:        "gemini-2.5-flash-image-preview",
		AIRenderWidth:  1024,
		AIRenderHeight: 1024,
		AITimeout:      5 * time.Second,
	}
}

func TestGenerateWithDataURL(t *testing.T) {
	var gotReq txt2imgRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/txt2img", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(txt2imgResponse{URL: "data:image/png;base64,cmVuZGVyZWQ="})
	}))
	defer server.Close()

	svc := NewRenderService(renderConfig(server.URL))
	out, err := svc.Generate(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,cmVuZGVyZWQ=", out)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "aGVsbG8=", gotReq.InputImage)
	assert.Equal(t, "image/png", gotReq.InputImageMimeType)
	assert.Equal(t, "gemini-2.5-flash-image-preview", gotReq.Model)
	assert.Equal(t, 1024, gotReq.Ratio.W)
	assert.Equal(t, 1024, gotReq.Ratio.H)
	assert.Contains(t, gotReq.Prompt, "floor plan")
}

func TestGenerateFetchesRemoteSource(t *testing.T) {
	var gotReq txt2imgRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/source.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("plan"))
	})
	mux.HandleFunc("/ai/txt2img", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(txt2imgResponse{URL: "data:image/png;base64,cmVuZGVyZWQ="})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := NewRenderService(renderConfig(server.URL))
	_, err := svc.Generate(context.Background(), server.URL+"/source.png")
	require.NoError(t, err)

	// "plan" base64-encoded
	assert.Equal(t, "cGxhbg==", gotReq.InputImage)
	assert.Equal(t, "image/png", gotReq.InputImageMimeType)
}

func TestGenerateNormalizesRemoteOutput(t *testing.T) {
	mux := http.NewServeMux()
	var renderedURL string
	mux.HandleFunc("/rendered.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("out"))
	})
	mux.HandleFunc("/ai/txt2img", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(txt2imgResponse{URL: renderedURL})
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	renderedURL = server.URL + "/rendered.jpg"

	svc := NewRenderService(renderConfig(server.URL))
	out, err := svc.Generate(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "data:image/jpeg;base64,"))
	assert.Equal(t, "data:image/jpeg;base64,b3V0", out)
}

func TestGenerateRejectsMalformedDataURL(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	svc := NewRenderService(renderConfig(server.URL))

	// No comma, no payload: fails before any network call
	_, err := svc.Generate(context.Background(), "data:image/png;base64")
	assert.ErrorIs(t, err, ErrInvalidImagePayload)
	assert.Equal(t, 0, calls)
}

func TestGenerateProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(txt2imgResponse{Error: "model overloaded"})
	}))
	defer server.Close()

	svc := NewRenderService(renderConfig(server.URL))
	_, err := svc.Generate(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewRenderService(renderConfig(server.URL))
	_, err := svc.Generate(context.Background(), "data:image/png;base64,aGVsbG8=")
	assert.Error(t, err)
}
