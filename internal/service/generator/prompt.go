package generator

import (
	"fmt"
	"strings"

	"github.com/inkcast/inkcast/internal/models"
)

// buildPrompt assembles the single-string brand-aware prompt. The novelty
// seed biases the model away from reusing earlier phrasing; avoidPhrases
// lists openings from recent articles the model must not repeat.
func buildPrompt(brand *models.BrandProfile, topicHint string, noveltySeed int, avoidPhrases, externalLinks []string) string {
	var b strings.Builder

	b.WriteString("Write a complete blog article in markdown.\n\n")

	b.WriteString("Brand context:\n")
	if brand.BrandName != "" {
		fmt.Fprintf(&b, "- Brand: %s\n", brand.BrandName)
	}
	if brand.Industry != "" {
		fmt.Fprintf(&b, "- Industry: %s\n", brand.Industry)
	}
	if brand.Audience != "" {
		fmt.Fprintf(&b, "- Audience: %s\n", brand.Audience)
	}
	if brand.Tone != "" {
		fmt.Fprintf(&b, "- Tone: %s\n", brand.Tone)
	}
	if brand.Voice != "" {
		fmt.Fprintf(&b, "- Voice: %s\n", brand.Voice)
	}
	if len(brand.Keywords) > 0 {
		fmt.Fprintf(&b, "- Target keywords: %s\n", strings.Join(brand.Keywords, ", "))
	}

	if topicHint != "" {
		fmt.Fprintf(&b, "\nTopic: %s\n", topicHint)
	} else {
		b.WriteString("\nPick a topic your audience searches for in this industry.\n")
	}

	fmt.Fprintf(&b, "\nVariation seed: %d. Use it to vary structure and angle from previous articles.\n", noveltySeed)

	if len(avoidPhrases) > 0 {
		b.WriteString("Do not open with or reuse any of these phrasings:\n")
		for _, p := range avoidPhrases {
			fmt.Fprintf(&b, "- %q\n", p)
		}
	}

	if len(externalLinks) > 0 {
		b.WriteString("\nCite these sources as markdown links where relevant:\n")
		for _, l := range externalLinks {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	b.WriteString(`
Requirements:
- Start with a line "Title: <the article title>".
- 800-1200 words, markdown headings for each section.
- Write for humans; no meta commentary about keywords or brand alignment.
- Include at least 2 markdown hyperlinks in the body.
`)

	return b.String()
}
