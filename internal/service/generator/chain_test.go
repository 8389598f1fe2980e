package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/internal/models"
	"github.com/inkcast/inkcast/pkg/util"
)

type fakeCompleter struct {
	configured bool
	output     string
	err        error
	calls      int
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) Complete(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

type fakeLinks struct{ links []string }

func (f *fakeLinks) DiscoverLinks(context.Context, string, int) []string { return f.links }

type fakeImages struct{ candidates []ImageCandidate }

func (f *fakeImages) SearchImages(context.Context, string, int) []ImageCandidate {
	return f.candidates
}

func testBrand() *models.BrandProfile {
	return &models.BrandProfile{
		UserID:    "user-1",
		BrandName: "Acme",
		Industry:  "software",
		Audience:  "engineering leads",
		Tone:      "practical",
		Keywords:  models.StringArray{"devops", "testing"},
		SiteURL:   "https://acme.example.com",
	}
}

func newTestChain(primary, fallback TextCompleter, links LinkDiscoverer, images ImageSearcher) *Chain {
	if links == nil {
		links = &fakeLinks{}
	}
	return NewChainWithClients(primary, fallback, links,
		NewPostProcessor(images, zap.NewNop()), zap.NewNop())
}

const llmOutput = `Title: Shipping Faster Without Breaking Things

Modern teams want speed and safety at once. Read the [DORA research](https://dora.dev) and the [SRE book](https://sre.google/books/).

## Build a pipeline you trust

Automation removes argument from deployment decisions.

## Keep changes small

Small diffs are easier to review and safer to roll back.
`

func TestChainUsesPrimaryWhenConfigured(t *testing.T) {
	primary := &fakeCompleter{configured: true, output: llmOutput}
	fallback := &fakeCompleter{configured: true, output: "Title: unused\n\nbody"}
	chain := newTestChain(primary, fallback, nil, &fakeImages{})

	result := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: 7})

	assert.Equal(t, StatePrimary, result.State)
	assert.Equal(t, "Shipping Faster Without Breaking Things", result.Title)
	assert.Zero(t, fallback.calls)
	assert.NotEmpty(t, result.HTMLContent)
}

func TestChainFallsBackOnPrimaryFailure(t *testing.T) {
	primary := &fakeCompleter{configured: true, err: &LLMError{Provider: "anthropic", Status: 529, Body: "overloaded"}}
	fallback := &fakeCompleter{configured: true, output: llmOutput}
	chain := newTestChain(primary, fallback, nil, &fakeImages{})

	result := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: 7})

	assert.Equal(t, StateFallback, result.State)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestChainSkipsUnconfiguredPrimary(t *testing.T) {
	primary := &fakeCompleter{configured: false}
	fallback := &fakeCompleter{configured: true, output: llmOutput}
	chain := newTestChain(primary, fallback, nil, &fakeImages{})

	result := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: 7})

	assert.Equal(t, StateFallback, result.State)
	assert.Zero(t, primary.calls, "unconfigured providers must not be called")
}

func TestChainTerminatesInTemplate(t *testing.T) {
	primary := &fakeCompleter{configured: true, err: errors.New("network down")}
	fallback := &fakeCompleter{configured: true, err: errors.New("network down")}
	chain := newTestChain(primary, fallback, nil, &fakeImages{})

	result := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: 7})

	require.NotNil(t, result)
	assert.Equal(t, StateTemplate, result.State)
	assert.NotEmpty(t, result.Title)
	assert.NotEmpty(t, result.HTMLContent)
}

func TestTemplateArticleMeetsContentGuarantees(t *testing.T) {
	chain := newTestChain(&fakeCompleter{}, &fakeCompleter{}, nil, &fakeImages{})

	for seed := 1; seed <= 6; seed++ {
		result := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: seed})

		headings := strings.Count(result.Markdown, "\n## ") + boolToInt(strings.HasPrefix(result.Markdown, "## "))
		assert.GreaterOrEqual(t, headings, 4, "seed %d", seed)
		assert.GreaterOrEqual(t, util.CountMarkdownLinks(result.Markdown), 2, "seed %d", seed)
		assert.Equal(t, 2, util.CountMarkdownImages(result.Markdown), "seed %d", seed)
		assert.NotEmpty(t, result.Title, "seed %d", seed)
	}
}

func TestTemplateRotatesWithSeed(t *testing.T) {
	chain := newTestChain(&fakeCompleter{}, &fakeCompleter{}, nil, &fakeImages{})

	a := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: 1})
	b := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: 2})

	assert.NotEqual(t, a.Title, b.Title)
}

func TestChainPassesDiscoveredLinksIntoProcessing(t *testing.T) {
	links := &fakeLinks{links: []string{"https://research.example.com/report"}}
	// Primary output with no links forces the further-reading block.
	primary := &fakeCompleter{configured: true, output: "Title: Sparse\n\nA short body with no links.\n\n## One\n\ntext\n"}
	chain := newTestChain(primary, &fakeCompleter{}, links, &fakeImages{})

	result := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: 3})

	assert.Contains(t, result.Markdown, "https://research.example.com/report")
	assert.Contains(t, result.Markdown, "## Further reading")
}

func TestChainToleratesNegativeSeed(t *testing.T) {
	chain := newTestChain(&fakeCompleter{}, &fakeCompleter{}, nil, &fakeImages{})

	result := chain.Generate(context.Background(), Request{Brand: testBrand(), NoveltySeed: -3})

	require.NotNil(t, result)
	assert.Equal(t, StateTemplate, result.State)
	assert.NotEmpty(t, result.Title)
}

func TestChainNeverReturnsNilWithEmptyBrand(t *testing.T) {
	chain := newTestChain(&fakeCompleter{}, &fakeCompleter{}, nil, &fakeImages{})

	result := chain.Generate(context.Background(), Request{})

	require.NotNil(t, result)
	assert.Equal(t, StateTemplate, result.State)
	assert.NotEmpty(t, result.Title)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
