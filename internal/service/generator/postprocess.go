package generator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/russross/blackfriday/v2"
	"go.uber.org/zap"

	"github.com/inkcast/inkcast/pkg/util"
)

const (
	minBodyLinks   = 2
	bodyImageCount = 2

	placeholderImageURL = "https://placehold.co/1200x630"
)

// Curated external sources used when link discovery yields nothing but the
// article still needs its minimum outbound links.
var curatedExternalLinks = []struct {
	Title string
	URL   string
}{
	{"Content Marketing Institute", "https://contentmarketinginstitute.com/articles/"},
	{"Think with Google", "https://www.thinkwithgoogle.com/"},
	{"HubSpot Blog", "https://blog.hubspot.com/marketing"},
}

// InternalPage is a same-site link candidate: another article or a generic
// site page.
type InternalPage struct {
	Title    string
	URL      string
	Keywords []string
}

// SectionMatcher decides whether a markdown section (by its heading) must be
// removed from generated output.
type SectionMatcher func(heading string) bool

// SentenceMatcher decides whether a single line is meta boilerplate.
type SentenceMatcher func(line string) bool

// HeadingMatcher builds a SectionMatcher that drops sections whose heading
// contains the phrase, case-insensitively.
func HeadingMatcher(phrase string) SectionMatcher {
	lower := strings.ToLower(phrase)
	return func(heading string) bool {
		return strings.Contains(strings.ToLower(heading), lower)
	}
}

// PatternMatcher builds a SentenceMatcher from a regular expression.
func PatternMatcher(pattern string) SentenceMatcher {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}

func defaultSectionMatchers() []SectionMatcher {
	return []SectionMatcher{
		HeadingMatcher("keywords used"),
		HeadingMatcher("brand alignment"),
		HeadingMatcher("seo notes"),
		HeadingMatcher("meta description"),
	}
}

func defaultSentenceMatchers() []SentenceMatcher {
	return []SentenceMatcher{
		PatternMatcher(`(?i)^as an ai`),
		PatternMatcher(`(?i)this article (?:was written|aligns|incorporates)`),
		PatternMatcher(`(?i)^(?:note|disclaimer):\s`),
		PatternMatcher(`(?i)the above (?:article|content) (?:uses|targets) the keyword`),
	}
}

// PostProcessor normalizes raw generated markdown into a publishable
// article. Matcher lists are pluggable so new boilerplate patterns never
// touch the generation states.
type PostProcessor struct {
	logger           *zap.Logger
	images           ImageSearcher
	sectionMatchers  []SectionMatcher
	sentenceMatchers []SentenceMatcher
}

func NewPostProcessor(images ImageSearcher, logger *zap.Logger) *PostProcessor {
	return &PostProcessor{
		logger:           logger,
		images:           images,
		sectionMatchers:  defaultSectionMatchers(),
		sentenceMatchers: defaultSentenceMatchers(),
	}
}

// AddSectionMatcher registers an extra disallowed-section matcher.
func (p *PostProcessor) AddSectionMatcher(m SectionMatcher) {
	p.sectionMatchers = append(p.sectionMatchers, m)
}

// AddSentenceMatcher registers an extra boilerplate sentence matcher.
func (p *PostProcessor) AddSentenceMatcher(m SentenceMatcher) {
	p.sentenceMatchers = append(p.sentenceMatchers, m)
}

// ProcessInput carries everything the pass needs besides the raw markdown.
type ProcessInput struct {
	ExternalLinks []string
	InternalPages []InternalPage
	Keywords      []string
	ImageQuery    string
}

// ProcessedArticle is the publishable result.
type ProcessedArticle struct {
	Title    string
	Markdown string
	HTML     string
}

// Process runs the full pass: title extraction, boilerplate removal, link
// guarantees, image insertion, HTML conversion.
func (p *PostProcessor) Process(ctx context.Context, raw string, in ProcessInput) *ProcessedArticle {
	title, body := extractTitle(raw)
	body = p.stripDisallowedSections(body)
	body = p.stripBoilerplateSentences(body)
	body = p.ensureLinks(body, in)
	body = p.insertImages(ctx, body, in.ImageQuery, title)

	html := blackfriday.Run([]byte(body),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.CommonHTMLFlags | blackfriday.Safelink | blackfriday.NoreferrerLinks,
		})))

	return &ProcessedArticle{
		Title:    title,
		Markdown: body,
		HTML:     string(html),
	}
}

// extractTitle takes the title from an explicit "Title:" line, else the
// first level-1 heading, else a default. The consumed line leaves the body.
func extractTitle(raw string) (string, string) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Title:") {
			title := strings.TrimSpace(strings.TrimPrefix(trimmed, "Title:"))
			title = strings.Trim(title, `"#* `)
			rest := append(append([]string{}, lines[:i]...), lines[i+1:]...)
			return title, strings.TrimSpace(strings.Join(rest, "\n"))
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			title := strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			rest := append(append([]string{}, lines[:i]...), lines[i+1:]...)
			return title, strings.TrimSpace(strings.Join(rest, "\n"))
		}
	}

	return "Untitled Article", strings.TrimSpace(raw)
}

// stripDisallowedSections removes every section whose heading matches a
// disallowed matcher, up to the next heading of the same or higher level.
func (p *PostProcessor) stripDisallowedSections(body string) string {
	lines := strings.Split(body, "\n")
	var out []string
	skipLevel := 0

	for _, line := range lines {
		level, heading := headingOf(line)
		if level > 0 {
			if skipLevel > 0 && level <= skipLevel {
				skipLevel = 0
			}
			if skipLevel == 0 && p.disallowed(heading) {
				skipLevel = level
				continue
			}
		}
		if skipLevel > 0 {
			continue
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

func (p *PostProcessor) disallowed(heading string) bool {
	for _, m := range p.sectionMatchers {
		if m(heading) {
			return true
		}
	}
	return false
}

func (p *PostProcessor) stripBoilerplateSentences(body string) string {
	lines := strings.Split(body, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		matched := false
		for _, m := range p.sentenceMatchers {
			if trimmed != "" && m(trimmed) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, line)
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ensureLinks tops the body up to the minimum outbound link count with a
// further-reading block, then makes sure at least one internal link exists.
// Priority: discovered external URLs, curated list; related internal pages
// by keyword overlap, then generic site pages.
func (p *PostProcessor) ensureLinks(body string, in ProcessInput) string {
	if util.CountMarkdownLinks(body) < minBodyLinks {
		var block []string
		block = append(block, "", "## Further reading", "")
		if len(in.ExternalLinks) > 0 {
			for _, link := range in.ExternalLinks {
				block = append(block, fmt.Sprintf("- [%s](%s)", linkLabel(link), link))
			}
		} else {
			for _, link := range curatedExternalLinks {
				block = append(block, fmt.Sprintf("- [%s](%s)", link.Title, link.URL))
			}
		}
		body = body + "\n" + strings.Join(block, "\n") + "\n"
	}

	if pages := rankInternalPages(in.InternalPages, in.Keywords); len(pages) > 0 && !containsInternalLink(body, pages) {
		var block []string
		block = append(block, "", "## Related reading", "")
		for i, page := range pages {
			if i >= 2 {
				break
			}
			block = append(block, fmt.Sprintf("- [%s](%s)", page.Title, page.URL))
		}
		body = body + "\n" + strings.Join(block, "\n") + "\n"
	}

	return body
}

// rankInternalPages orders candidates by keyword overlap. Pages with no
// keywords (generic site pages) rank last but stay eligible.
func rankInternalPages(pages []InternalPage, keywords []string) []InternalPage {
	ranked := append([]InternalPage{}, pages...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return util.KeywordOverlap(ranked[i].Keywords, keywords) > util.KeywordOverlap(ranked[j].Keywords, keywords)
	})
	return ranked
}

func containsInternalLink(body string, pages []InternalPage) bool {
	for _, page := range pages {
		if page.URL != "" && strings.Contains(body, page.URL) {
			return true
		}
	}
	return false
}

// insertImages places exactly two image references at roughly the 25% and
// 65% line offsets. Fewer candidates than two reuses the last one or falls
// back to a placeholder; the count never varies.
func (p *PostProcessor) insertImages(ctx context.Context, body, query, title string) string {
	if query == "" {
		query = title
	}

	var candidates []ImageCandidate
	if p.images != nil {
		candidates = p.images.SearchImages(ctx, query, bodyImageCount)
	}

	refs := make([]string, bodyImageCount)
	for i := 0; i < bodyImageCount; i++ {
		var c ImageCandidate
		switch {
		case i < len(candidates):
			c = candidates[i]
		case len(candidates) > 0:
			c = candidates[len(candidates)-1]
		default:
			c = ImageCandidate{URL: placeholderImageURL, Description: title}
		}

		alt := c.Description
		if alt == "" {
			alt = title
		}
		ref := fmt.Sprintf("![%s](%s)", alt, c.URL)
		if c.Credit != "" {
			ref += fmt.Sprintf("\n*Photo by %s on Unsplash*", c.Credit)
		}
		refs[i] = ref
	}

	lines := strings.Split(body, "\n")
	first := insertionPoint(lines, len(lines)*25/100)
	second := insertionPoint(lines, len(lines)*65/100)

	var out []string
	for i, line := range lines {
		out = append(out, line)
		if i == first {
			out = append(out, "", refs[0], "")
		}
		if i == second && second != first {
			out = append(out, "", refs[1], "")
		}
	}
	if second == first {
		out = append(out, "", refs[1], "")
	}

	return strings.Join(out, "\n")
}

// insertionPoint walks forward from the target offset to the next blank
// line so images never split a paragraph.
func insertionPoint(lines []string, target int) int {
	if target >= len(lines) {
		target = len(lines) - 1
	}
	for i := target; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			return i
		}
	}
	return len(lines) - 1
}

func headingOf(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed[level:])
}

func linkLabel(rawURL string) string {
	label := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	label = strings.TrimPrefix(label, "www.")
	if idx := strings.IndexByte(label, '/'); idx > 0 {
		label = label[:idx]
	}
	return label
}
