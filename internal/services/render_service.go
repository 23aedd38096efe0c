package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/roomify/backend/internal/config"
	"github.com/roomify/backend/pkg/validation"
)

// Style prompt sent with every generation request. Fixed on purpose:
// the render target is always the same photorealistic 3D treatment.
const renderPrompt = "Transform this 2D floor plan into a photorealistic 3D interior visualization. " +
	"Keep the room layout, walls and proportions exactly as drawn. Furnish each room in a modern, " +
	"neutral style with natural lighting, viewed from a three-quarter overhead perspective."

var ErrInvalidImagePayload = errors.New("invalid source image payload")

// RenderService sends a source image to the external AI image model and
// returns the generated render as a data URL. Single-shot: no retry, no
// streaming, no cancellation beyond the context deadline.
type RenderService struct {
	cfg    *config.Config
	client *http.Client
}

func NewRenderService(cfg *config.Config) *RenderService {
	return &RenderService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.AITimeout},
	}
}

type txt2imgRequest struct {
	Prompt             string   `json:"prompt"`
	Provider           string   `json:"provider"`
	Model              string   `json:"model"`
	InputImage         string   `json:"input_image"`
	InputImageMimeType string   `json:"input_image_mime_type"`
	Ratio              imgRatio `json:"ratio"`
}

type imgRatio struct {
	W int `json:"w"`
	H int `json:"h"`
}

type txt2imgResponse struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// Generate runs one render for the given source image (URL or data URL)
// and returns the generated image normalized to a data URL.
func (s *RenderService) Generate(ctx context.Context, sourceImage string) (string, error) {
	dataURL := sourceImage
	if !validation.IsDataURL(sourceImage) {
		var err error
		dataURL, err = s.FetchAsDataURL(ctx, sourceImage)
		if err != nil {
			return "", err
		}
	}

	base64Data, mimeType, err := validation.ParseDataURL(dataURL)
	if err != nil {
		return "", ErrInvalidImagePayload
	}

	reqBody := txt2imgRequest{
		Prompt:             renderPrompt,
		Provider:           s.cfg.AIProvider,
		Model:              s.cfg.AIModel,
		InputImage:         base64Data,
		InputImageMimeType: mimeType,
		Ratio:              imgRatio{W: s.cfg.AIRenderWidth, H: s.cfg.AIRenderHeight},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AIBaseURL+"/ai/txt2img", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.AIAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.AIAPIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("render request failed: %d", resp.StatusCode)
	}

	var out txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("malformed render response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("render request failed: %s", out.Error)
	}
	if out.URL == "" {
		return "", errors.New("render response missing image")
	}

	// The model may answer with a remote URL; normalize back to a data
	// URL for symmetry with the input.
	if validation.IsDataURL(out.URL) {
		return out.URL, nil
	}
	return s.FetchAsDataURL(ctx, out.URL)
}

// FetchAsDataURL downloads a remote image and base64-encodes it
func (s *RenderService) FetchAsDataURL(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch image: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
