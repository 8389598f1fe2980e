package generator

import (
	"context"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/config"
	"github.com/inkcast/inkcast/internal/models"
)

// Generation states in escalation order. The chain always terminates in a
// result because the template state cannot fail.
const (
	StatePrimary  = "primary"
	StateFallback = "fallback"
	StateTemplate = "template"
)

// Request is one generation run.
type Request struct {
	Brand        *models.BrandProfile
	TopicHint    string
	AvoidPhrases []string

	// NoveltySeed biases phrasing away from earlier runs. Zero means pick
	// one at random.
	NoveltySeed int

	// InternalPages are same-site link candidates for the backlink pass.
	InternalPages []InternalPage
}

// Result is the generated, fully post-processed article.
type Result struct {
	Title       string
	HTMLContent string
	Markdown    string

	// State names the chain state that produced the raw content.
	State string
}

// Chain is the layered content generator: primary LLM, fallback LLM,
// deterministic template. Generate never returns an error.
type Chain struct {
	logger   *zap.Logger
	primary  TextCompleter
	fallback TextCompleter
	links    LinkDiscoverer
	post     *PostProcessor
}

func NewChain(cfg *config.GeneratorConfig, logger *zap.Logger) *Chain {
	return &Chain{
		logger:   logger,
		primary:  NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger),
		fallback: NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger),
		links:    NewPerplexityClient(cfg.PerplexityAPIKey, logger),
		post:     NewPostProcessor(NewUnsplashClient(cfg.UnsplashAPIKey, logger), logger),
	}
}

// NewChainWithClients wires explicit collaborators, used by tests.
func NewChainWithClients(primary, fallback TextCompleter, links LinkDiscoverer, post *PostProcessor, logger *zap.Logger) *Chain {
	return &Chain{
		logger:   logger,
		primary:  primary,
		fallback: fallback,
		links:    links,
		post:     post,
	}
}

// PostProcessor exposes the shared pass for matcher registration.
func (c *Chain) PostProcessor() *PostProcessor {
	return c.post
}

// Generate runs the chain. Unconfigured or failing providers move it to the
// next state; the template state guarantees a result.
func (c *Chain) Generate(ctx context.Context, req Request) *Result {
	seed := req.NoveltySeed
	if seed == 0 {
		seed = rand.Intn(1_000_000)
	}
	if seed < 0 {
		seed = -seed
	}

	topic := req.TopicHint
	if topic == "" && req.Brand != nil && len(req.Brand.Keywords) > 0 {
		topic = req.Brand.Keywords[seed%len(req.Brand.Keywords)]
	}

	var externalLinks []string
	if c.links != nil && topic != "" {
		externalLinks = c.links.DiscoverLinks(ctx, topic, 3)
	}

	brand := req.Brand
	if brand == nil {
		brand = &models.BrandProfile{}
	}

	raw, state := c.rawMarkdown(ctx, brand, topic, seed, req.AvoidPhrases, externalLinks)

	processed := c.post.Process(ctx, raw, ProcessInput{
		ExternalLinks: externalLinks,
		InternalPages: internalCandidates(brand, req.InternalPages),
		Keywords:      []string(brand.Keywords),
		ImageQuery:    topic,
	})

	c.logger.Info("Article generated",
		zap.String("state", state),
		zap.String("title", processed.Title),
		zap.Int("links_discovered", len(externalLinks)))

	return &Result{
		Title:       processed.Title,
		HTMLContent: processed.HTML,
		Markdown:    processed.Markdown,
		State:       state,
	}
}

func (c *Chain) rawMarkdown(ctx context.Context, brand *models.BrandProfile, topic string, seed int, avoidPhrases, externalLinks []string) (string, string) {
	prompt := buildPrompt(brand, topic, seed, avoidPhrases, externalLinks)

	if c.primary != nil && c.primary.Configured() {
		raw, err := c.primary.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(raw) != "" {
			return raw, StatePrimary
		}
		c.logger.Warn("Primary generation failed, falling back", zap.Error(err))
	}

	if c.fallback != nil && c.fallback.Configured() {
		raw, err := c.fallback.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(raw) != "" {
			return raw, StateFallback
		}
		c.logger.Warn("Fallback generation failed, using template", zap.Error(err))
	}

	return generateFromTemplate(brand, topic, seed), StateTemplate
}

// internalCandidates appends the brand's generic site pages after the
// caller-supplied related content, keeping the overlap-first priority.
func internalCandidates(brand *models.BrandProfile, pages []InternalPage) []InternalPage {
	out := append([]InternalPage{}, pages...)
	if brand.SiteURL != "" {
		site := strings.TrimRight(brand.SiteURL, "/")
		about := "About us"
		if brand.BrandName != "" {
			about = "About " + brand.BrandName
		}
		out = append(out,
			InternalPage{Title: "Our blog", URL: site + "/blog"},
			InternalPage{Title: about, URL: site + "/about"},
		)
	}
	return out
}
