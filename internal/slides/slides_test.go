package slides

import (
	"fmt"
	"strings"
	"testing"

	"github.com/boarddeck/boarddeck/internal/models"
)

func settings(auto bool, count models.SlideCount) models.ExportSettings {
	s := models.DefaultExportSettings()
	s.AutoOrganizeContent = auto
	s.SlideCount = count
	s.IncludeSourceImage = false
	return s
}

func titles(slides []models.Slide) []string {
	out := make([]string, len(slides))
	for i, s := range slides {
		out[i] = s.Title
	}
	return out
}

func TestBuildSections(t *testing.T) {
	text := `Kickoff notes from Monday

# Goals
- ship beta
- hire designer

## Risks
Budget is tight
Timeline slips

Next steps:

call vendor`

	got := Build(models.ExtractedContent{Text: text}, Options{Settings: settings(true, models.SlideCountAuto)})

	want := []string{DefaultTitle, "Goals", "Risks", "Next steps"}
	if strings.Join(titles(got), "|") != strings.Join(want, "|") {
		t.Fatalf("titles = %q, want %q", titles(got), want)
	}
	if got[0].Content != "Kickoff notes from Monday" {
		t.Errorf("title slide body = %q", got[0].Content)
	}
	if strings.Join(got[1].Bullets, "|") != "ship beta|hire designer" {
		t.Errorf("goals bullets = %q", got[1].Bullets)
	}
	if strings.Join(got[2].Bullets, "|") != "Budget is tight|Timeline slips" {
		t.Errorf("risks bullets = %q", got[2].Bullets)
	}
	for i, s := range got {
		if s.ID != fmt.Sprintf("slide-%d", i+1) {
			t.Errorf("slide %d id = %q", i, s.ID)
		}
	}
}

func TestHeadingLikeParagraphBeforeList(t *testing.T) {
	got := Build(models.ExtractedContent{Text: "Action items\n- a\n- b"}, Options{Settings: settings(true, models.SlideCountAuto)})
	if len(got) != 1 || got[0].Title != "Action items" || len(got[0].Bullets) != 2 {
		t.Errorf("unexpected slides %+v", got)
	}
}

func TestBuildWithoutAutoOrganize(t *testing.T) {
	text := "# Plan\n\nfirst block\n\nsecond block\n\n# Empty\n\n# Last\n\nthird"
	got := Build(models.ExtractedContent{Text: text}, Options{Settings: settings(false, models.SlideCountMinimal)})

	want := []string{"Plan", "Plan", "Empty", "Last"}
	if strings.Join(titles(got), "|") != strings.Join(want, "|") {
		t.Fatalf("titles = %q, want %q", titles(got), want)
	}
	if got[1].Content != "second block" || len(got[2].Bullets) != 0 {
		t.Errorf("unexpected slides %+v", got)
	}
}

func manySections(n, bullets int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "## Section %d\n", i+1)
		for j := 0; j < bullets; j++ {
			fmt.Fprintf(&b, "- item %d.%d\n", i+1, j+1)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func allText(slides []models.Slide) string {
	var parts []string
	for _, s := range slides {
		parts = append(parts, s.Title)
		parts = append(parts, s.Bullets...)
	}
	return strings.Join(parts, "\n")
}

func TestSlideCount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		diagrams int
		count    models.SlideCount
		min, max int
	}{
		{name: "minimal merges", text: manySections(9, 2), count: models.SlideCountMinimal, min: 3, max: 5},
		{name: "minimal with diagrams", text: manySections(9, 2), diagrams: 2, count: models.SlideCountMinimal, min: 3, max: 5},
		{name: "minimal collapses many diagrams", text: manySections(2, 2), diagrams: 7, count: models.SlideCountMinimal, min: 3, max: 5},
		{name: "detailed splits", text: manySections(2, 10), count: models.SlideCountDetailed, min: 8, max: 12},
		{name: "detailed merges", text: manySections(20, 1), count: models.SlideCountDetailed, min: 8, max: 12},
		{name: "detailed short content stays short", text: "# One\n- only", count: models.SlideCountDetailed, min: 1, max: 1},
		{name: "minimal short content stays short", text: "just one line", count: models.SlideCountMinimal, min: 1, max: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := models.ExtractedContent{Text: tt.text}
			for i := 0; i < tt.diagrams; i++ {
				content.Diagrams = append(content.Diagrams, models.Diagram{ID: fmt.Sprintf("d%d", i), Type: models.KindBox})
			}
			got := Build(content, Options{Settings: settings(true, tt.count)})
			if len(got) < tt.min || len(got) > tt.max {
				t.Fatalf("got %d slides, want %d..%d: %q", len(got), tt.min, tt.max, titles(got))
			}

			all := allText(got)
			for _, line := range strings.Split(tt.text, "\n") {
				line = strings.TrimLeft(line, "#- ")
				if line != "" && !strings.Contains(all, line) {
					t.Errorf("content %q dropped", line)
				}
			}
			var kept int
			for _, s := range got {
				kept += len(s.Diagrams)
			}
			if kept != tt.diagrams {
				t.Errorf("kept %d diagrams, want %d", kept, tt.diagrams)
			}
		})
	}
}

func TestAutoSplitsLongSections(t *testing.T) {
	got := Build(models.ExtractedContent{Text: manySections(1, 14)}, Options{Settings: settings(true, models.SlideCountAuto)})
	want := []string{"Section 1", "Section 1 (cont.)", "Section 1 (cont.)"}
	if strings.Join(titles(got), "|") != strings.Join(want, "|") {
		t.Errorf("titles = %q, want %q", titles(got), want)
	}
}

func TestDiagramSlidesAndSourceImage(t *testing.T) {
	s := settings(true, models.SlideCountAuto)
	s.IncludeSourceImage = true
	content := models.ExtractedContent{
		Text: "# Intro\nhello",
		Diagrams: []models.Diagram{
			{ID: "a", Type: models.KindFlowchart, Label: "Signup flow"},
			{ID: "b", Type: models.KindTable},
		},
	}

	got := Build(content, Options{Settings: s, SourceImageURL: "/uploads/board.png"})
	if len(got) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(got))
	}
	if got[0].ImageURL != "/uploads/board.png" || got[1].ImageURL != "" {
		t.Errorf("source image should be on the first slide only")
	}
	if got[1].Title != "Signup flow" || got[2].Title != "Table diagram" {
		t.Errorf("diagram titles = %q", titles(got))
	}
	if len(got[2].Diagrams) != 1 || got[2].Diagrams[0].ID != "b" {
		t.Errorf("diagram slide should carry its diagram: %+v", got[2])
	}

	s.IncludeSourceImage = false
	if got := Build(content, Options{Settings: s, SourceImageURL: "/uploads/board.png"}); got[0].ImageURL != "" {
		t.Error("source image included while disabled")
	}
}

func TestEmptyContentWithImage(t *testing.T) {
	s := settings(true, models.SlideCountAuto)
	s.IncludeSourceImage = true
	got := Build(models.ExtractedContent{}, Options{Settings: s, SourceImageURL: "/uploads/x.png"})
	if len(got) != 1 || got[0].ImageURL != "/uploads/x.png" || got[0].Title != DefaultTitle {
		t.Errorf("unexpected %+v", got)
	}
	if got := Build(models.ExtractedContent{}, Options{Settings: settings(true, models.SlideCountAuto)}); len(got) != 0 {
		t.Errorf("expected no slides, got %d", len(got))
	}
}
