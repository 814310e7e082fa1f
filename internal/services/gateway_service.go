// internal/services/gateway_service.go
package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	apperrors "github.com/salazarbot/salazar/internal/errors"
	"github.com/salazarbot/salazar/internal/llm"
	"github.com/salazarbot/salazar/internal/utils"
)

// GatewayService sits between the pipeline and the LLM backend. One
// logical generation walks an ordered model list and returns the first
// success; only when every model fails does the caller see an error.
type GatewayService struct {
	provider llm.Provider
	models   []string
	logger   *utils.Logger
	metrics  *utils.MetricsCollector

	httpClient *http.Client
}

// NewGatewayService creates a gateway over an initialized provider and
// its fallback model order.
func NewGatewayService(provider llm.Provider, models []string) *GatewayService {
	if len(models) == 0 && provider != nil {
		models = provider.GetSupportedModels()
	}
	return &GatewayService{
		provider: provider,
		models:   models,
		logger:   utils.GetLogger(),
		metrics:  utils.GetMetricsCollector(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ready reports whether a provider is configured.
func (s *GatewayService) Ready() bool {
	return s.provider != nil && len(s.models) > 0
}

// Generate runs one completion through the fallback chain. imageURLs are
// fetched and inlined; a failed fetch drops that image, it never fails
// the generation.
func (s *GatewayService) Generate(ctx context.Context, prompt string, imageURLs []string) (string, error) {
	if !s.Ready() {
		return "", apperrors.NewGatewayExhaustedError("no LLM provider configured", nil)
	}

	images := s.fetchImages(ctx, imageURLs)

	var lastErr error
	for _, model := range s.models {
		resp, err := s.provider.CompleteText(ctx, llm.CompletionRequest{
			Prompt: prompt,
			Model:  model,
			Images: images,
		})
		if err == nil {
			s.logger.Debug("Completion succeeded", map[string]interface{}{
				"model":  model,
				"tokens": resp.TokensUsed,
			})
			return resp.Text, nil
		}

		lastErr = err
		s.logger.Warn("Model failed, trying next", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})

		if ctx.Err() != nil {
			break
		}
	}

	s.metrics.IncrementCounter(utils.MetricGatewayExhausted)
	return "", apperrors.NewGatewayExhaustedError(
		fmt.Sprintf("all %d models failed", len(s.models)), lastErr)
}

// GenerateWith runs one completion against a single designated model,
// with no fallback. Used for the Q&A flow.
func (s *GatewayService) GenerateWith(ctx context.Context, model, prompt string) (string, error) {
	if s.provider == nil {
		return "", apperrors.NewGatewayExhaustedError("no LLM provider configured", nil)
	}

	resp, err := s.provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt: prompt,
		Model:  model,
	})
	if err != nil {
		s.metrics.IncrementCounter(utils.MetricGatewayExhausted)
		return "", apperrors.NewGatewayExhaustedError("designated model failed", err)
	}
	return resp.Text, nil
}

// fetchImages downloads each URL and inlines it as base64. Failures are
// logged and skipped.
func (s *GatewayService) fetchImages(ctx context.Context, urls []string) []llm.ImageData {
	var images []llm.ImageData
	for _, url := range urls {
		img, err := s.fetchImage(ctx, url)
		if err != nil {
			s.logger.Warn("Image fetch failed, skipping", map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
			continue
		}
		images = append(images, img)
	}
	return images
}

func (s *GatewayService) fetchImage(ctx context.Context, url string) (llm.ImageData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return llm.ImageData{}, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return llm.ImageData{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.ImageData{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return llm.ImageData{}, err
	}

	return llm.ImageData{
		MimeType: mimeTypeForURL(url),
		Data:     base64.StdEncoding.EncodeToString(body),
	}, nil
}

// mimeTypeForURL guesses the MIME type from the URL's extension,
// defaulting to PNG.
func mimeTypeForURL(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	switch strings.ToLower(path.Ext(url)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
