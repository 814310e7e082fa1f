// internal/services/image_search_service.go
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/salazarbot/salazar/internal/utils"
)

// ImageSearchService resolves a search query to one image URL. It backs
// the NPC webhook avatars (country flags); every failure is swallowed
// into an empty result, an avatar is never worth failing a reply over.
type ImageSearchService struct {
	httpClient *http.Client
	logger     *utils.Logger
}

// Image search scrapes the public image results page and picks the
// first original-image URL out of its metadata blobs.
var imageResultPattern = regexp.MustCompile(`\["(https?://[^"]+\.(?:png|jpg|jpeg|webp))",\d+,\d+\]`)

// NewImageSearchService creates an image search service.
func NewImageSearchService() *ImageSearchService {
	return &ImageSearchService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     utils.GetLogger(),
	}
}

// Search returns the first image URL for the query, or "" when nothing
// could be found.
func (s *ImageSearchService) Search(ctx context.Context, query string) string {
	searchURL := fmt.Sprintf(
		"https://www.google.com/search?tbm=isch&q=%s", url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("Image search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ""
	}

	if m := imageResultPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	return ""
}
