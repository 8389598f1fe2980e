package generator

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const unsplashBaseURL = "https://api.unsplash.com"

// ImageSearcher returns candidate image URLs for a query.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, limit int) []ImageCandidate
}

// ImageCandidate is one usable image with its attribution line.
type ImageCandidate struct {
	URL         string
	Description string
	Credit      string
}

// UnsplashClient searches Unsplash for article images. An unset key means
// zero candidates and zero network calls.
type UnsplashClient struct {
	logger *zap.Logger
	client *resty.Client
	apiKey string

	BaseURL string
}

func NewUnsplashClient(apiKey string, logger *zap.Logger) *UnsplashClient {
	return &UnsplashClient{
		logger: logger,
		client: resty.New().SetTimeout(15 * time.Second),
		apiKey: apiKey,
	}
}

func (c *UnsplashClient) SearchImages(ctx context.Context, query string, limit int) []ImageCandidate {
	if c.apiKey == "" || limit <= 0 {
		return nil
	}

	base := c.BaseURL
	if base == "" {
		base = unsplashBaseURL
	}

	var out struct {
		Results []struct {
			Description    string `json:"description"`
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
			} `json:"urls"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	resp, err := c.client.R().SetContext(ctx).
		SetHeader("Authorization", "Client-ID "+c.apiKey).
		SetQueryParam("query", query).
		SetQueryParam("per_page", "10").
		SetQueryParam("orientation", "landscape").
		SetResult(&out).
		Get(base + "/search/photos")
	if err != nil || resp.IsError() {
		c.logger.Warn("Image search failed, continuing without photos",
			zap.String("query", query),
			zap.Error(err))
		return nil
	}

	var candidates []ImageCandidate
	for _, r := range out.Results {
		if r.URLs.Regular == "" {
			continue
		}
		desc := r.Description
		if desc == "" {
			desc = r.AltDescription
		}
		candidates = append(candidates, ImageCandidate{
			URL:         r.URLs.Regular,
			Description: desc,
			Credit:      r.User.Name,
		})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates
}
