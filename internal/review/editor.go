package review

import (
	"fmt"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
)

// Mode is the editor's position in the viewing/editing cycle.
type Mode string

const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

// Changes is what a save emits to the caller's handler.
type Changes struct {
	Text     string           `json:"text"`
	Diagrams []models.Diagram `json:"diagrams"`
}

// SaveHandler receives the saved content. Returning an error keeps the editor in editing mode.
type SaveHandler func(Changes) error

// Editor tracks the edit state for one extraction result.
// Cancel always restores the last committed text, which starts as the extracted text.
type Editor struct {
	mode      Mode
	committed string
	draft     string
	diagrams  []models.Diagram
	selected  string
}

// NewEditor starts in viewing mode with the extracted content committed.
func NewEditor(content models.ExtractedContent) *Editor {
	c := content.Clone()
	return &Editor{
		mode:      ModeViewing,
		committed: c.Text,
		draft:     c.Text,
		diagrams:  c.Diagrams,
	}
}

// Restore rebuilds an editor from a persisted session.
func Restore(content models.ExtractedContent, committed string, state models.ReviewState) *Editor {
	e := NewEditor(content)
	e.committed = committed
	e.draft = committed
	if Mode(state.Mode) == ModeEditing {
		e.mode = ModeEditing
		e.draft = state.Draft
	}
	if content.FindDiagram(state.SelectedDiagram) >= 0 {
		e.selected = state.SelectedDiagram
	}
	return e
}

func (e *Editor) Mode() Mode            { return e.mode }
func (e *Editor) CommittedText() string { return e.committed }
func (e *Editor) Draft() string         { return e.draft }

// Text is what the review surface shows: the draft while editing, the committed text otherwise.
func (e *Editor) Text() string {
	if e.mode == ModeEditing {
		return e.draft
	}
	return e.committed
}

// Diagrams returns a copy of the current diagram list.
func (e *Editor) Diagrams() []models.Diagram {
	return models.ExtractedContent{Diagrams: e.diagrams}.Clone().Diagrams
}

// Selected returns the selected diagram id, or "" when nothing is selected.
func (e *Editor) Selected() string { return e.selected }

func (e *Editor) BeginEdit() error {
	if e.mode != ModeViewing {
		return apperr.InvalidInput("cannot begin editing while %s", e.mode)
	}
	e.mode = ModeEditing
	e.draft = e.committed
	return nil
}

func (e *Editor) SetDraft(text string) error {
	if e.mode != ModeEditing {
		return apperr.InvalidInput("cannot change text while %s", e.mode)
	}
	e.draft = text
	return nil
}

// Cancel discards the draft and returns to viewing.
func (e *Editor) Cancel() error {
	if e.mode != ModeEditing {
		return apperr.InvalidInput("nothing to cancel while %s", e.mode)
	}
	e.draft = e.committed
	e.mode = ModeViewing
	return nil
}

// Save calls handler exactly once with the draft text and the unchanged diagram list.
func (e *Editor) Save(handler SaveHandler) error {
	if e.mode != ModeEditing {
		return apperr.InvalidInput("nothing to save while %s", e.mode)
	}
	if handler != nil {
		if err := handler(Changes{Text: e.draft, Diagrams: e.Diagrams()}); err != nil {
			return fmt.Errorf("save handler: %w", err)
		}
	}
	e.committed = e.draft
	e.mode = ModeViewing
	return nil
}

// SelectDiagram toggles the selection: the same id twice clears it, another id replaces it.
func (e *Editor) SelectDiagram(id string) error {
	if (models.ExtractedContent{Diagrams: e.diagrams}).FindDiagram(id) < 0 {
		return apperr.NotFound("diagram %q not found", id)
	}
	if e.selected == id {
		e.selected = ""
		return nil
	}
	e.selected = id
	return nil
}

// RelabelDiagram corrects a diagram label and emits the change through handler.
func (e *Editor) RelabelDiagram(id, label string, handler SaveHandler) error {
	if e.mode != ModeViewing {
		return apperr.InvalidInput("finish editing text before relabelling diagrams")
	}
	idx := (models.ExtractedContent{Diagrams: e.diagrams}).FindDiagram(id)
	if idx < 0 {
		return apperr.NotFound("diagram %q not found", id)
	}
	next := e.Diagrams()
	next[idx].Label = label
	if handler != nil {
		if err := handler(Changes{Text: e.committed, Diagrams: next}); err != nil {
			return fmt.Errorf("save handler: %w", err)
		}
	}
	e.diagrams = next
	return nil
}

// State returns the persistable form of the editor.
func (e *Editor) State() models.ReviewState {
	return models.ReviewState{
		Mode:            string(e.mode),
		Draft:           e.draft,
		SelectedDiagram: e.selected,
	}
}
