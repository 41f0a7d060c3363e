// Package plan turns free-form text into a slide plan by prompting an LLM
// provider for strict JSON and validating what comes back.
package plan

// LayoutHint suggests which template layout family a slide should use.
// Hints outside the enumerated set normalize to LayoutTitleAndContent.
type LayoutHint string

const (
	LayoutTitleAndContent LayoutHint = "title_and_content"
	LayoutTitleOnly       LayoutHint = "title_only"
	LayoutSectionHeader   LayoutHint = "section_header"
	LayoutTwoContent      LayoutHint = "two_content"
	LayoutQuote           LayoutHint = "quote"
	LayoutComparison      LayoutHint = "comparison"
	LayoutTimeline        LayoutHint = "timeline"
	LayoutProcess         LayoutHint = "process"
	LayoutOverview        LayoutHint = "overview"
	LayoutSummary         LayoutHint = "summary"
)

// MaxSlides clamps the length of any accepted slide plan.
const MaxSlides = 30

var validHints = map[LayoutHint]bool{
	LayoutTitleAndContent: true,
	LayoutTitleOnly:       true,
	LayoutSectionHeader:   true,
	LayoutTwoContent:      true,
	LayoutQuote:           true,
	LayoutComparison:      true,
	LayoutTimeline:        true,
	LayoutProcess:         true,
	LayoutOverview:        true,
	LayoutSummary:         true,
}

// Slide is one planned slide as produced by the provider.
type Slide struct {
	Title      string     `json:"title"`
	Bullets    []string   `json:"bullets"`
	LayoutHint LayoutHint `json:"layout_hint"`
	Notes      string     `json:"notes"`
}

// Plan is an ordered sequence of slides. It has no identity beyond position
// and no lifetime beyond the request that produced it.
type Plan []Slide

// Request carries the caller's inputs for one plan generation.
// Provider selection and credentials are handled by the factory before a
// Generator is constructed, so they do not appear here.
type Request struct {
	// Text is the source text to convert. Truncated to MaxTextChars before
	// it reaches the provider.
	Text string

	// Guidance optionally steers tone and structure.
	Guidance string

	// IncludeNotes asks the provider for speaker notes per slide.
	IncludeNotes bool
}

// normalize applies the post-parse guarantees: at most MaxSlides entries,
// every slide carries a valid layout hint, and, when notes were requested,
// every slide carries a notes key (empty string when the provider omitted it,
// which is already the zero value after unmarshaling).
func normalize(slides []Slide, includeNotes bool) Plan {
	if len(slides) > MaxSlides {
		slides = slides[:MaxSlides]
	}
	for i := range slides {
		if !validHints[slides[i].LayoutHint] {
			slides[i].LayoutHint = LayoutTitleAndContent
		}
		if !includeNotes {
			slides[i].Notes = ""
		}
	}
	return Plan(slides)
}
