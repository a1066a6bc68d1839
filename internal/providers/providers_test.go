package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
)

type stubModel struct {
	replies []string
	errs    []error
	calls   int
	last    Config
}

func (s *stubModel) Name() string { return "stub" }

func (s *stubModel) Generate(_ context.Context, cfg Config, _ Image) (string, error) {
	i := s.calls
	s.calls++
	s.last = cfg
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return s.replies[len(s.replies)-1], nil
}

func TestParseDiagramResponse(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantCount int
		wantKind  models.DiagramKind
		wantErr   bool
	}{
		{
			name:      "object in code fence",
			response:  "```json\n{\"diagrams\":[{\"type\":\"Flow Chart\",\"label\":\"User Flow\",\"coordinates\":[{\"x\":10,\"y\":10},{\"x\":100,\"y\":100}]}]}\n```",
			wantCount: 1,
			wantKind:  models.KindFlowchart,
		},
		{
			name:      "bare array",
			response:  `[{"type":"box","label":"Revenue Model","coordinates":[{"x":300,"y":200},{"x":400,"y":300}]}]`,
			wantCount: 1,
			wantKind:  models.KindBox,
		},
		{
			name:      "box form",
			response:  `{"diagrams":[{"type":"table","box":{"x":5,"y":5,"width":10,"height":20}}]}`,
			wantCount: 1,
			wantKind:  models.KindTable,
		},
		{
			name:      "chatter around object",
			response:  "Sure! {\"diagrams\": []} Hope that helps.",
			wantCount: 0,
		},
		{
			name:      "empty",
			response:  "",
			wantCount: 0,
		},
		{
			name:      "prose without json",
			response:  "No diagrams found.",
			wantCount: 0,
		},
		{
			name:     "truncated object",
			response: `{"diagrams": [{"type": "box"`,
			wantErr:  true,
		},
		{
			name:     "malformed array",
			response: `[{"type": box}]`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDiagramResponse(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Fatalf("got %d diagrams, want %d", len(got), tt.wantCount)
			}
			if tt.wantCount > 0 && got[0].Type != tt.wantKind {
				t.Errorf("kind = %q, want %q", got[0].Type, tt.wantKind)
			}
			if tt.name == "box form" && len(got[0].Coordinates) != 4 {
				t.Errorf("box should become four corners, got %v", got[0].Coordinates)
			}
		})
	}
}

func TestCleanOCRResponse(t *testing.T) {
	got := CleanOCRResponse("```markdown\nHere is the text:\n# Notes\n- a\n```")
	if got != "# Notes\n- a" {
		t.Errorf("got %q", got)
	}
}

func TestVisionUsesPrompts(t *testing.T) {
	m := &stubModel{replies: []string{"# Board", `{"diagrams":[]}`}}
	v := NewVision(m, "llava")

	text, err := v.ExtractText(context.Background(), Image{})
	if err != nil || text != "# Board" {
		t.Fatalf("ExtractText = %q, %v", text, err)
	}
	if m.last.Model != "llava" || m.last.Temperature != 0 {
		t.Errorf("unexpected OCR config %+v", m.last)
	}

	diagrams, err := v.DetectDiagrams(context.Background(), Image{Width: 640, Height: 480})
	if err != nil || len(diagrams) != 0 {
		t.Fatalf("DetectDiagrams = %v, %v", diagrams, err)
	}
	if v.Name() != "stub:llava" {
		t.Errorf("Name() = %q", v.Name())
	}
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

	t.Run("retries transient then succeeds", func(t *testing.T) {
		m := &stubModel{
			replies: []string{"", "text"},
			errs:    []error{apperr.Upstream(errors.New("503"), true, "busy")},
		}
		e := RetryText(NewVision(m, "x"), policy)
		got, err := e.ExtractText(context.Background(), Image{})
		if err != nil || got != "text" {
			t.Fatalf("got %q, %v", got, err)
		}
		if m.calls != 2 {
			t.Errorf("calls = %d, want 2", m.calls)
		}
	})

	t.Run("does not retry permanent", func(t *testing.T) {
		m := &stubModel{
			replies: []string{""},
			errs:    []error{apperr.Upstream(errors.New("401"), false, "bad key")},
		}
		d := RetryDiagrams(NewVision(m, "x"), policy)
		if _, err := d.DetectDiagrams(context.Background(), Image{}); err == nil {
			t.Fatalf("expected error")
		}
		if m.calls != 1 {
			t.Errorf("calls = %d, want 1", m.calls)
		}
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		transient := apperr.Upstream(nil, true, "timeout")
		m := &stubModel{replies: []string{""}, errs: []error{transient, transient, transient, transient}}
		e := RetryText(NewVision(m, "x"), policy)
		if _, err := e.ExtractText(context.Background(), Image{}); !apperr.IsTransient(err) {
			t.Fatalf("expected transient error, got %v", err)
		}
		if m.calls != 3 {
			t.Errorf("calls = %d, want 3", m.calls)
		}
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		transient := apperr.Upstream(nil, true, "timeout")
		m := &stubModel{replies: []string{""}, errs: []error{transient, transient, transient}}
		slow := RetryPolicy{Attempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		_, err := RetryText(NewVision(m, "x"), slow).ExtractText(ctx, Image{})
		if !errors.Is(err, context.Canceled) || apperr.IsTransient(err) {
			t.Fatalf("expected permanent cancellation, got %v", err)
		}
		if m.calls != 1 {
			t.Errorf("calls = %d, want 1", m.calls)
		}
	})
}

func TestRetryBackoffBounded(t *testing.T) {
	bo := RetryPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond}.backoff()
	for i := 0; i < 10; i++ {
		if d := bo.Pause(); d <= 0 || d > 40*time.Millisecond {
			t.Fatalf("pause %d = %v, want within (0, 40ms]", i, d)
		}
	}
}

func TestVisionProseDiagramReplyKeepsText(t *testing.T) {
	m := &stubModel{replies: []string{"# Roadmap\n- q1", "I don't see any diagrams on this board."}}
	v := NewVision(m, "llava")

	text, err := v.ExtractText(context.Background(), Image{})
	if err != nil || text != "# Roadmap\n- q1" {
		t.Fatalf("ExtractText = %q, %v", text, err)
	}
	diagrams, err := v.DetectDiagrams(context.Background(), Image{Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("prose reply should not fail detection: %v", err)
	}
	if diagrams == nil || len(diagrams) != 0 {
		t.Errorf("diagrams = %#v, want empty slice", diagrams)
	}
}
