package generator

import (
	"context"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const perplexityBaseURL = "https://api.perplexity.ai"

var urlPattern = regexp.MustCompile(`https?://[^\s)\]"']+`)

// LinkDiscoverer finds authoritative external URLs for a topic.
type LinkDiscoverer interface {
	DiscoverLinks(ctx context.Context, topic string, limit int) []string
}

// PerplexityClient asks Perplexity for source links on a topic. Failures
// degrade to an empty result; link discovery is always best-effort.
type PerplexityClient struct {
	logger *zap.Logger
	client *resty.Client
	apiKey string

	BaseURL string
}

func NewPerplexityClient(apiKey string, logger *zap.Logger) *PerplexityClient {
	return &PerplexityClient{
		logger: logger,
		client: resty.New().SetTimeout(30 * time.Second),
		apiKey: apiKey,
	}
}

func (c *PerplexityClient) DiscoverLinks(ctx context.Context, topic string, limit int) []string {
	if c.apiKey == "" || limit <= 0 {
		return nil
	}

	base := c.BaseURL
	if base == "" {
		base = perplexityBaseURL
	}

	var out struct {
		Citations []string `json:"citations"`
		Choices   []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	resp, err := c.client.R().SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"model": "sonar",
			"messages": []map[string]string{
				{"role": "user", "content": "List authoritative sources about: " + topic},
			},
		}).
		SetResult(&out).
		Post(base + "/chat/completions")
	if err != nil || resp.IsError() {
		c.logger.Warn("Link discovery failed, continuing without external sources",
			zap.String("topic", topic),
			zap.Error(err))
		return nil
	}

	links := out.Citations
	if len(links) == 0 && len(out.Choices) > 0 {
		links = urlPattern.FindAllString(out.Choices[0].Message.Content, -1)
	}

	links = dedupeLinks(links)
	if len(links) > limit {
		links = links[:limit]
	}
	return links
}

func dedupeLinks(links []string) []string {
	seen := make(map[string]bool, len(links))
	var out []string
	for _, l := range links {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
