package review

import (
	"errors"
	"reflect"
	"testing"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
)

func sampleContent() models.ExtractedContent {
	return models.ExtractedContent{
		Text: "# Meeting Notes\n\n## Action Items\n- Research competitor pricing",
		Diagrams: []models.Diagram{
			{ID: "d1", Type: models.KindFlowchart, Coordinates: []models.Point{{X: 10, Y: 10}, {X: 100, Y: 100}}, Label: "User Flow Diagram"},
			{ID: "d2", Type: models.KindBox, Coordinates: []models.Point{{X: 300, Y: 200}, {X: 400, Y: 300}}, Label: "Revenue Model"},
		},
	}
}

func TestCancelRestoresCommittedText(t *testing.T) {
	content := sampleContent()
	e := NewEditor(content)

	if err := e.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if err := e.SetDraft("garbage"); err != nil {
		t.Fatalf("SetDraft: %v", err)
	}
	if err := e.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if e.Mode() != ModeViewing {
		t.Errorf("expected viewing, got %s", e.Mode())
	}
	if e.Text() != content.Text || e.Draft() != content.Text {
		t.Errorf("cancel did not restore extracted text: %q", e.Text())
	}
}

func TestCancelAfterSaveRestoresLastSave(t *testing.T) {
	e := NewEditor(sampleContent())

	_ = e.BeginEdit()
	_ = e.SetDraft("first save")
	if err := e.Save(nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_ = e.BeginEdit()
	_ = e.SetDraft("discarded")
	_ = e.Cancel()

	if e.Text() != "first save" {
		t.Errorf("expected last committed text, got %q", e.Text())
	}
}

func TestSaveCallsHandlerOnceWithOriginalDiagrams(t *testing.T) {
	content := sampleContent()
	e := NewEditor(content)
	_ = e.BeginEdit()
	_ = e.SetDraft("edited text")

	calls := 0
	var got Changes
	err := e.Save(func(c Changes) error {
		calls++
		got = c
		return nil
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if got.Text != "edited text" {
		t.Errorf("handler got text %q", got.Text)
	}
	if !reflect.DeepEqual(got.Diagrams, content.Diagrams) {
		t.Errorf("diagrams changed: %+v", got.Diagrams)
	}
	if e.CommittedText() != "edited text" || e.Mode() != ModeViewing {
		t.Errorf("unexpected state after save: %q %s", e.CommittedText(), e.Mode())
	}
}

func TestSaveHandlerErrorKeepsEditing(t *testing.T) {
	e := NewEditor(sampleContent())
	_ = e.BeginEdit()
	_ = e.SetDraft("edited")

	err := e.Save(func(Changes) error { return errors.New("store down") })
	if err == nil {
		t.Fatalf("expected error")
	}
	if e.Mode() != ModeEditing || e.Draft() != "edited" {
		t.Errorf("editor should stay in editing with draft intact")
	}
	if e.CommittedText() == "edited" {
		t.Errorf("failed save must not commit")
	}
}

func TestInvalidTransitions(t *testing.T) {
	e := NewEditor(sampleContent())

	for name, fn := range map[string]func() error{
		"save":   func() error { return e.Save(nil) },
		"cancel": e.Cancel,
		"draft":  func() error { return e.SetDraft("x") },
	} {
		if err := fn(); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("%s while viewing: expected invalid input, got %v", name, err)
		}
	}

	_ = e.BeginEdit()
	if err := e.BeginEdit(); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("double BeginEdit: expected invalid input, got %v", err)
	}
}

func TestSelectDiagram(t *testing.T) {
	tests := []struct {
		name   string
		clicks []string
		want   string
	}{
		{"same twice deselects", []string{"d1", "d1"}, ""},
		{"different replaces", []string{"d1", "d2"}, "d2"},
		{"single", []string{"d2"}, "d2"},
		{"three clicks", []string{"d1", "d1", "d1"}, "d1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEditor(sampleContent())
			for _, id := range tt.clicks {
				if err := e.SelectDiagram(id); err != nil {
					t.Fatalf("SelectDiagram(%q): %v", id, err)
				}
			}
			if e.Selected() != tt.want {
				t.Errorf("selected = %q, want %q", e.Selected(), tt.want)
			}
		})
	}
}

func TestSelectUnknownDiagram(t *testing.T) {
	e := NewEditor(sampleContent())
	if err := e.SelectDiagram("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRelabelDiagram(t *testing.T) {
	e := NewEditor(sampleContent())

	var emitted Changes
	err := e.RelabelDiagram("d2", "Pricing", func(c Changes) error {
		emitted = c
		return nil
	})
	if err != nil {
		t.Fatalf("RelabelDiagram: %v", err)
	}
	if emitted.Diagrams[1].Label != "Pricing" || e.Diagrams()[1].Label != "Pricing" {
		t.Errorf("label not applied")
	}

	_ = e.BeginEdit()
	if err := e.RelabelDiagram("d1", "x", nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected invalid input while editing, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	content := sampleContent()
	e := Restore(content, "committed", models.ReviewState{Mode: "editing", Draft: "draft", SelectedDiagram: "d1"})

	if e.Mode() != ModeEditing || e.Draft() != "draft" || e.Selected() != "d1" {
		t.Errorf("unexpected restored state %+v", e.State())
	}
	_ = e.Cancel()
	if e.Text() != "committed" {
		t.Errorf("cancel after restore returned %q", e.Text())
	}
}
