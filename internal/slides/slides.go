// Package slides derives a slide sequence from reviewed whiteboard content.
package slides

import (
	"fmt"
	"strings"

	"github.com/boarddeck/boarddeck/internal/models"
)

const (
	// DefaultTitle titles the slide built from text that precedes any heading.
	DefaultTitle = "Whiteboard Notes"

	maxBullets     = 6
	titleMaxLen    = 60
	minimalSlides  = 5
	detailedSlides = 8
	detailedMax    = 12
)

// Options controls derivation.
type Options struct {
	Settings       models.ExportSettings
	SourceImageURL string
}

type section struct {
	title    string
	bullets  []string
	diagrams []models.Diagram
}

// Build turns content into slides. Text sections come first, then one slide per diagram.
// Slide count settings only apply when auto-organize is on; otherwise blocks map one to one.
func Build(content models.ExtractedContent, opts Options) []models.Slide {
	blocks := parseBlocks([]byte(content.Text))
	diagrams := diagramSections(content.Diagrams)

	var secs []section
	if opts.Settings.AutoOrganizeContent {
		secs = organize(blocks)
		switch opts.Settings.SlideCount {
		case models.SlideCountMinimal:
			diagrams = collapseDiagrams(diagrams, minimalSlides-1)
			secs = mergeDown(secs, max(1, minimalSlides-len(diagrams)))
		case models.SlideCountDetailed:
			diagrams = collapseDiagrams(diagrams, detailedMax-1)
			secs = expand(secs, detailedSlides-len(diagrams))
			secs = mergeDown(secs, max(1, detailedMax-len(diagrams)))
		default:
			secs = splitLong(secs, maxBullets)
		}
	} else {
		secs = perBlock(blocks)
	}

	all := append(secs, diagrams...)
	if opts.Settings.IncludeSourceImage && opts.SourceImageURL != "" && len(all) == 0 {
		all = []section{{title: DefaultTitle}}
	}

	out := make([]models.Slide, len(all))
	for i, s := range all {
		out[i] = models.Slide{
			ID:       fmt.Sprintf("slide-%d", i+1),
			Title:    s.title,
			Content:  strings.Join(s.bullets, "\n"),
			Bullets:  s.bullets,
			Diagrams: s.diagrams,
		}
	}
	if len(out) > 0 && opts.Settings.IncludeSourceImage {
		out[0].ImageURL = opts.SourceImageURL
	}
	return out
}

// organize groups blocks under headings. Short single-line paragraphs that end in a
// colon or introduce a list are treated as headings, which is how whiteboards are written.
func organize(blocks []block) []section {
	var secs []section
	add := func(lines ...string) {
		if len(secs) == 0 {
			secs = append(secs, section{title: DefaultTitle})
		}
		last := &secs[len(secs)-1]
		last.bullets = append(last.bullets, lines...)
	}

	for i, b := range blocks {
		switch {
		case b.heading && b.level <= 2:
			secs = append(secs, section{title: b.lines[0]})
		case b.heading:
			add(b.lines[0])
		case headingLike(blocks, i):
			secs = append(secs, section{title: strings.TrimSuffix(b.lines[0], ":")})
		default:
			add(b.lines...)
		}
	}
	return secs
}

func headingLike(blocks []block, i int) bool {
	b := blocks[i]
	if b.list || len(b.lines) != 1 || len(b.lines[0]) > titleMaxLen {
		return false
	}
	if strings.HasSuffix(b.lines[0], ":") && len(b.lines[0]) > 1 {
		return true
	}
	return i+1 < len(blocks) && blocks[i+1].list
}

// perBlock makes one slide per content block in source order. Headings title the blocks that follow them.
func perBlock(blocks []block) []section {
	var secs []section
	title := DefaultTitle
	pending := false
	for _, b := range blocks {
		if b.heading {
			if pending {
				secs = append(secs, section{title: title})
			}
			title = b.lines[0]
			pending = true
			continue
		}
		secs = append(secs, section{title: title, bullets: b.lines})
		pending = false
	}
	if pending {
		secs = append(secs, section{title: title})
	}
	return secs
}

func diagramSections(diagrams []models.Diagram) []section {
	out := make([]section, 0, len(diagrams))
	for _, d := range diagrams {
		out = append(out, section{title: d.Title(), diagrams: []models.Diagram{d}})
	}
	return out
}

// collapseDiagrams puts every diagram on one slide when there are more than limit.
func collapseDiagrams(secs []section, limit int) []section {
	if len(secs) <= limit {
		return secs
	}
	merged := section{title: "Diagrams"}
	for _, s := range secs {
		merged.diagrams = append(merged.diagrams, s.diagrams...)
	}
	return []section{merged}
}

// mergeDown merges the adjacent pair with the fewest bullets until at most n sections remain.
// A merged-away title is kept as a bullet so nothing is dropped.
func mergeDown(secs []section, n int) []section {
	for len(secs) > n && len(secs) > 1 {
		best := 0
		for i := 1; i < len(secs)-1; i++ {
			if len(secs[i].bullets)+len(secs[i+1].bullets) < len(secs[best].bullets)+len(secs[best+1].bullets) {
				best = i
			}
		}
		a, b := secs[best], secs[best+1]
		merged := section{title: a.title, bullets: append([]string(nil), a.bullets...)}
		if b.title != DefaultTitle && baseTitle(b.title) != baseTitle(a.title) {
			merged.bullets = append(merged.bullets, b.title)
		}
		merged.bullets = append(merged.bullets, b.bullets...)

		next := make([]section, 0, len(secs)-1)
		next = append(next, secs[:best]...)
		next = append(next, merged)
		secs = append(next, secs[best+2:]...)
	}
	return secs
}

// expand splits the largest section in half until there are target sections or nothing left to split.
func expand(secs []section, target int) []section {
	for len(secs) < target {
		best := -1
		for i, s := range secs {
			if len(s.bullets) > 1 && (best < 0 || len(s.bullets) > len(secs[best].bullets)) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		s := secs[best]
		half := (len(s.bullets) + 1) / 2
		first := section{title: s.title, bullets: s.bullets[:half:half]}
		second := section{title: continued(s.title), bullets: s.bullets[half:]}

		next := make([]section, 0, len(secs)+1)
		next = append(next, secs[:best]...)
		next = append(next, first, second)
		secs = append(next, secs[best+1:]...)
	}
	return secs
}

// splitLong breaks sections with more than limit bullets into continuation slides.
func splitLong(secs []section, limit int) []section {
	var out []section
	for _, s := range secs {
		if len(s.bullets) <= limit {
			out = append(out, s)
			continue
		}
		for i := 0; i < len(s.bullets); i += limit {
			title := s.title
			if i > 0 {
				title = continued(s.title)
			}
			out = append(out, section{title: title, bullets: s.bullets[i:min(i+limit, len(s.bullets))]})
		}
	}
	return out
}

func continued(title string) string {
	return baseTitle(title) + " (cont.)"
}

func baseTitle(title string) string {
	return strings.TrimSuffix(title, " (cont.)")
}
