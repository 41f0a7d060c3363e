// Package deck renders a slide plan into a PowerPoint file built on the
// user's own template. The template's masters, layouts, theme, and media are
// preserved; its existing slides are discarded and rebuilt from the plan.
package deck

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xostack/deckgen/plan"
)

// layoutPrefs maps a layout hint to template layout names tried in order.
// Matching is case-insensitive substring, so "Title and Content 2" satisfies
// a "Title and Content" preference.
var layoutPrefs = map[plan.LayoutHint][]string{
	plan.LayoutTitleAndContent: {"Title and Content", "Content with Caption", "Title and Content (2)", "Title and Content 2"},
	plan.LayoutTitleOnly:       {"Title Only", "Blank Title", "Title"},
	plan.LayoutSectionHeader:   {"Section Header", "Section Title", "Title Slide"},
	plan.LayoutTwoContent:      {"Two Content", "Two Content and Title", "Comparison"},
	plan.LayoutQuote:           {"Quote", "Title Only"},
	plan.LayoutComparison:      {"Comparison", "Two Content"},
	plan.LayoutTimeline:        {"Title and Content", "Two Content"},
	plan.LayoutProcess:         {"Title and Content", "Two Content"},
	plan.LayoutOverview:        {"Title and Content", "Title Only"},
	plan.LayoutSummary:         {"Title and Content", "Title Only"},
}

var defaultLayoutPrefs = []string{"Title and Content", "Title Only"}

// BuildIssue records one non-fatal problem hit while building a slide. The
// slide still ships; the issue tells the caller what was left out.
type BuildIssue struct {
	SlideIndex int    `json:"slide_index"`
	Stage      string `json:"stage"`
	Reason     string `json:"reason"`
}

// BuildReport aggregates every issue from a build. An empty report means
// every slide rendered exactly as planned.
type BuildReport struct {
	SlideCount int          `json:"slide_count"`
	Issues     []BuildIssue `json:"issues,omitempty"`
}

func (r *BuildReport) add(slideIndex int, stage, format string, args ...interface{}) {
	r.Issues = append(r.Issues, BuildIssue{
		SlideIndex: slideIndex,
		Stage:      stage,
		Reason:     fmt.Sprintf(format, args...),
	})
}

// Builder turns slide plans into finished decks. It holds no per-build
// state, so one Builder serves concurrent requests.
type Builder struct {
	log zerolog.Logger
}

func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log}
}

// Build produces a deck from the template bytes and the plan. Structural
// failures (unreadable template, no layouts, unserializable output) return
// an error; per-slide content failures are collected in the report instead
// of aborting the build.
func (b *Builder) Build(templateBytes []byte, slides plan.Plan) ([]byte, *BuildReport, error) {
	pr, err := openPresentation(templateBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("open template: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pool, err := harvestImages(pr, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("harvest template images: %w", err)
	}
	if err := pr.purgeSlides(); err != nil {
		return nil, nil, fmt.Errorf("purge template slides: %w", err)
	}
	notesMaster, hasNotesMaster := pr.notesMasterPath()

	b.log.Debug().
		Int("layouts", len(pr.layouts)).
		Int("images", len(pool)).
		Bool("notes_master", hasNotesMaster).
		Msg("template opened")

	report := &BuildReport{SlideCount: len(slides)}
	var pending []*slide

	for idx, sd := range slides {
		layout := b.pickLayout(pr, sd.LayoutHint)
		s, err := pr.addSlide(layout)
		if err != nil {
			return nil, nil, fmt.Errorf("add slide %d: %w", idx+1, err)
		}
		pending = append(pending, s)

		if err := s.setTitle(sd.Title); err != nil {
			report.add(idx, "title", "%v", err)
		}
		if err := s.setBullets(sd.Bullets); err != nil {
			report.add(idx, "bullets", "%v", err)
		}

		if sd.Notes != "" {
			if hasNotesMaster {
				if err := s.attachNotes(sd.Notes, notesMaster); err != nil {
					report.add(idx, "notes", "%v", err)
				}
			} else {
				report.add(idx, "notes", "template has no notes master")
			}
		}

		if len(pool) > 0 && (idx%3 == 0 || len(sd.Bullets) <= 2) {
			asset := pool[idx%len(pool)]
			if err := s.addPicture(asset, inches(0.4), inches(5.2), inches(1.2)); err != nil {
				report.add(idx, "image", "%v", err)
			}
		}
	}

	out, err := pr.save(pending)
	if err != nil {
		return nil, nil, fmt.Errorf("serialize deck: %w", err)
	}

	b.log.Info().
		Int("slides", report.SlideCount).
		Int("issues", len(report.Issues)).
		Msg("deck built")
	return out, report, nil
}

// pickLayout resolves a hint against the template's layout names. Unmatched
// hints fall back to anything title-like, then to the first layout.
func (b *Builder) pickLayout(pr *presentation, hint plan.LayoutHint) layoutRef {
	prefs, ok := layoutPrefs[hint]
	if !ok {
		prefs = defaultLayoutPrefs
	}
	for _, want := range prefs {
		for _, l := range pr.layouts {
			if strings.Contains(strings.ToLower(l.Name), strings.ToLower(want)) {
				return l
			}
		}
	}
	for _, l := range pr.layouts {
		if strings.Contains(strings.ToLower(l.Name), "title") {
			return l
		}
	}
	return pr.layouts[0]
}
