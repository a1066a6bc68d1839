package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/artifacts"
	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/exporter"
	"github.com/boarddeck/boarddeck/internal/extraction"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/storage"
	"github.com/boarddeck/boarddeck/internal/themes"
)

type fakeExtractor struct {
	content models.ExtractedContent
	err     error
}

func (f fakeExtractor) Extract(ctx context.Context, data []byte) (*extraction.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &extraction.Result{Content: f.content.Clone()}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var extracted = models.ExtractedContent{
	Text: "# Plan\n- design\n- build",
	Diagrams: []models.Diagram{{
		ID:          "diagram-1",
		Type:        models.KindBox,
		Coordinates: []models.Point{{X: 2, Y: 2}, {X: 20, Y: 2}, {X: 20, Y: 15}, {X: 2, Y: 15}},
	}},
}

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T, ext Extractor, extErr error) *testServer {
	t.Helper()
	cfg := &config.Config{
		UploadsDir:     t.TempDir(),
		MaxUploadBytes: 1 << 20,
		DefaultTheme:   "light",
		DefaultLayout:  "prof-1",
		AllowedOrigins: "*",
	}
	catalog, err := themes.Default()
	if err != nil {
		t.Fatal(err)
	}
	store, err := artifacts.NewLocalStore(t.TempDir(), "/exports")
	if err != nil {
		t.Fatal(err)
	}
	h := New(cfg, storage.NewMemory(), exporter.NewService(catalog, store), catalog).
		WithExtractor(func(ProviderChoice) (Extractor, error) {
			if extErr != nil {
				return nil, extErr
			}
			return ext, nil
		})
	return &testServer{t: t, router: h.Router(store)}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *testServer) upload(data []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.uploadTo("/api/upload", data)
}

func (s *testServer) uploadTo(path string, data []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "board.png")
	if err != nil {
		s.t.Fatal(err)
	}
	fw.Write(data)
	mw.WriteField("provider", "ollama")
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

type sessionBody struct {
	models.Session
	Text string `json:"text"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (s *testServer) createSession() string {
	s.t.Helper()
	w := s.upload(pngBytes(s.t))
	if w.Code != http.StatusCreated {
		s.t.Fatalf("upload status = %d body = %s", w.Code, w.Body)
	}
	return decode[struct {
		SessionID string `json:"session_id"`
	}](s.t, w).SessionID
}

func TestUploadCreatesSession(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	id := srv.createSession()

	w := srv.do(http.MethodGet, "/api/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[sessionBody](t, w)
	if got.Text != extracted.Text || got.CommittedText != extracted.Text {
		t.Errorf("text = %q committed = %q", got.Text, got.CommittedText)
	}
	if got.Review.Mode != "viewing" || got.Template != "prof-1" || got.Settings.Theme != "light" {
		t.Errorf("unexpected session %+v", got.Session)
	}
	if got.Image.Width != 40 || got.Image.MimeType != "image/png" || !strings.HasPrefix(got.Image.URL, "/uploads/") {
		t.Errorf("image = %+v", got.Image)
	}

	if w := srv.do(http.MethodGet, got.Image.URL, nil); w.Code != http.StatusOK {
		t.Errorf("uploaded image not served: %d", w.Code)
	}

	list := decode[[]sessionBody](t, srv.do(http.MethodGet, "/api/sessions", nil))
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("list = %+v", list)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		ext    Extractor
		extErr error
		data   []byte
		want   int
	}{
		{"not an image", fakeExtractor{}, nil, []byte("hello world"), http.StatusBadRequest},
		{"provider down", fakeExtractor{err: apperr.Upstream(nil, true, "ollama unreachable")}, nil, nil, http.StatusBadGateway},
		{"unknown provider", nil, apperr.InvalidInput("unsupported provider: foo"), nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.ext, tt.extErr)
			data := tt.data
			if data == nil {
				data = pngBytes(t)
			}
			w := srv.upload(data)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body)
			}
			if decode[map[string]string](t, w)["error"] == "" {
				t.Error("missing error message")
			}
			if list := decode[[]sessionBody](t, srv.do(http.MethodGet, "/api/sessions", nil)); len(list) != 0 {
				t.Errorf("failed upload created %d sessions", len(list))
			}
		})
	}
}

func TestUploadFromURL(t *testing.T) {
	data := pngBytes(t)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer remote.Close()

	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	w := srv.do(http.MethodPost, "/api/upload", map[string]string{"image_url": remote.URL + "/board.png"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}

	if w := srv.do(http.MethodPost, "/api/upload", map[string]string{"image_url": ""}); w.Code != http.StatusBadRequest {
		t.Errorf("empty url status = %d", w.Code)
	}
}

func TestReviewFlow(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	id := srv.createSession()
	base := "/api/sessions/" + id

	// drafts require editing mode
	if w := srv.do(http.MethodPut, base+"/draft", map[string]string{"text": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("draft while viewing = %d", w.Code)
	}

	steps := []struct {
		method, path string
		body         any
		mode, text   string
	}{
		{http.MethodPost, "/edit", nil, "editing", extracted.Text},
		{http.MethodPut, "/draft", map[string]string{"text": "throwaway"}, "editing", "throwaway"},
		{http.MethodPost, "/cancel", nil, "viewing", extracted.Text},
		{http.MethodPost, "/edit", nil, "editing", extracted.Text},
		{http.MethodPut, "/draft", map[string]string{"text": "# Plan\n- design\n- ship"}, "editing", "# Plan\n- design\n- ship"},
		{http.MethodPost, "/save", nil, "viewing", "# Plan\n- design\n- ship"},
		{http.MethodPost, "/edit", nil, "editing", "# Plan\n- design\n- ship"},
		{http.MethodPost, "/cancel", nil, "viewing", "# Plan\n- design\n- ship"},
	}
	for _, st := range steps {
		w := srv.do(st.method, base+st.path, st.body)
		if w.Code != http.StatusOK {
			t.Fatalf("%s %s = %d (%s)", st.method, st.path, w.Code, w.Body)
		}
		got := decode[sessionBody](t, w)
		if got.Review.Mode != st.mode || got.Text != st.text {
			t.Fatalf("after %s: mode=%s text=%q", st.path, got.Review.Mode, got.Text)
		}
	}

	got := decode[sessionBody](t, srv.do(http.MethodGet, base, nil))
	if got.Content.Text != "# Plan\n- design\n- ship" || len(got.Content.Diagrams) != 1 {
		t.Errorf("saved content = %+v", got.Content)
	}
}

func TestDiagramSelectionAndRelabel(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	base := "/api/sessions/" + srv.createSession()

	sel := decode[sessionBody](t, srv.do(http.MethodPost, base+"/select", map[string]string{"diagram_id": "diagram-1"}))
	if sel.Review.SelectedDiagram != "diagram-1" {
		t.Errorf("selected = %q", sel.Review.SelectedDiagram)
	}
	sel = decode[sessionBody](t, srv.do(http.MethodPost, base+"/select", map[string]string{"diagram_id": "diagram-1"}))
	if sel.Review.SelectedDiagram != "" {
		t.Errorf("second select should clear, got %q", sel.Review.SelectedDiagram)
	}
	if w := srv.do(http.MethodPost, base+"/select", map[string]string{"diagram_id": "nope"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown diagram = %d", w.Code)
	}

	w := srv.do(http.MethodPut, base+"/diagrams/diagram-1", map[string]string{"label": " Architecture "})
	if w.Code != http.StatusOK {
		t.Fatalf("relabel = %d (%s)", w.Code, w.Body)
	}
	if got := decode[sessionBody](t, w); got.Content.Diagrams[0].Label != "Architecture" {
		t.Errorf("label = %q", got.Content.Diagrams[0].Label)
	}
}

func TestSettingsAndTemplate(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	base := "/api/sessions/" + srv.createSession()

	tests := []struct {
		name  string
		key   string
		value any
		want  int
	}{
		{"bool", "high_contrast", true, http.StatusOK},
		{"string bool", "includeSourceImage", "false", http.StatusOK},
		{"slide count", "slide_count", "minimal", http.StatusOK},
		{"theme", "theme", "dark", http.StatusOK},
		{"unknown theme", "theme", "neon", http.StatusBadRequest},
		{"unknown key", "font", "comic", http.StatusBadRequest},
		{"wrong type", "accessibility", 3, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(http.MethodPatch, base+"/settings", map[string]any{"key": tt.key, "value": tt.value})
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body)
			}
		})
	}

	settings := decode[sessionBody](t, srv.do(http.MethodGet, base, nil)).Settings
	want := models.ExportSettings{IncludeSourceImage: false, AutoOrganizeContent: true, SlideCount: models.SlideCountMinimal,
		Theme: "dark", Accessibility: true, HighContrast: true}
	if settings != want {
		t.Errorf("settings = %+v", settings)
	}

	if w := srv.do(http.MethodPut, base+"/template", map[string]string{"template": "CREATIVE-1"}); w.Code != http.StatusOK {
		t.Errorf("template = %d", w.Code)
	} else if got := decode[sessionBody](t, w); got.Template != "creative-1" {
		t.Errorf("template = %q", got.Template)
	}
	if w := srv.do(http.MethodPut, base+"/template", map[string]string{"template": "retro"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown template = %d", w.Code)
	}
}

func TestSlidesAndExport(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	id := srv.createSession()
	base := "/api/sessions/" + id

	deck := decode[[]models.Slide](t, srv.do(http.MethodGet, base+"/slides", nil))
	if len(deck) != 2 || deck[0].Title != "Plan" || len(deck[1].Diagrams) != 1 {
		t.Fatalf("slides = %+v", deck)
	}
	if !strings.HasPrefix(deck[0].ImageURL, "/uploads/") {
		t.Errorf("first slide image = %q", deck[0].ImageURL)
	}

	for _, format := range []string{"pptx", "pdf"} {
		t.Run(format, func(t *testing.T) {
			w := srv.do(http.MethodPost, base+"/export", map[string]string{"format": format})
			if w.Code != http.StatusOK {
				t.Fatalf("export = %d (%s)", w.Code, w.Body)
			}
			res := decode[models.ExportResult](t, w)
			if err := res.Validate(); err != nil || !res.OK() {
				t.Fatalf("result = %+v", res)
			}
			if !strings.HasSuffix(*res.URL, "."+format) {
				t.Errorf("url = %s", *res.URL)
			}

			dl := srv.do(http.MethodGet, *res.URL, nil)
			if dl.Code != http.StatusOK || dl.Body.Len() == 0 {
				t.Errorf("download = %d, %d bytes", dl.Code, dl.Body.Len())
			}

			got := decode[sessionBody](t, srv.do(http.MethodGet, base, nil))
			if got.LastExport == nil || *got.LastExport.URL != *res.URL {
				t.Errorf("last export not recorded: %+v", got.LastExport)
			}
		})
	}

	w := srv.do(http.MethodPost, base+"/export", map[string]string{"format": "docx"})
	res := decode[models.ExportResult](t, w)
	if w.Code != http.StatusOK || res.OK() || res.Error == nil {
		t.Errorf("bad format result = %d %+v", w.Code, res)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	base := "/api/sessions/" + srv.createSession()

	if w := srv.do(http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	for _, path := range []string{base, base + "/slides"} {
		if w := srv.do(http.MethodGet, path, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET %s after delete = %d", path, w.Code)
		}
	}
	if w := srv.do(http.MethodPost, base+"/edit", nil); w.Code != http.StatusNotFound {
		t.Errorf("edit after delete = %d", w.Code)
	}
}

func TestCatalogAndHealth(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{}, nil)
	if w := srv.do(http.MethodGet, "/healthcheck", nil); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("healthcheck = %d %q", w.Code, w.Body)
	}
	cat := decode[themes.Catalog](t, srv.do(http.MethodGet, "/api/catalog", nil))
	if len(cat.Templates) != 4 || len(cat.Themes) != 4 {
		t.Errorf("catalog = %+v", cat)
	}
}

func TestSplitOrigins(t *testing.T) {
	if got := splitOrigins(" https://a.example , https://b.example,"); len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("splitOrigins = %v", got)
	}
	if got := splitOrigins(""); len(got) != 1 || got[0] != "*" {
		t.Errorf("empty origins = %v", got)
	}
}

func TestReplaceImage(t *testing.T) {
	srv := newTestServer(t, fakeExtractor{content: extracted}, nil)
	id := srv.createSession()

	steps := []struct {
		method, path string
		body         any
	}{
		{http.MethodPut, "/api/sessions/" + id + "/template", map[string]string{"template": "creative-1"}},
		{http.MethodPatch, "/api/sessions/" + id + "/settings", map[string]any{"key": "theme", "value": "dark"}},
		{http.MethodPost, "/api/sessions/" + id + "/edit", nil},
		{http.MethodPut, "/api/sessions/" + id + "/draft", map[string]string{"text": "# Edited"}},
		{http.MethodPost, "/api/sessions/" + id + "/save", nil},
	}
	for _, st := range steps {
		if w := srv.do(st.method, st.path, st.body); w.Code != http.StatusOK {
			t.Fatalf("%s %s = %d %s", st.method, st.path, w.Code, w.Body)
		}
	}

	w := srv.uploadTo("/api/sessions/"+id+"/image", pngBytes(t))
	if w.Code != http.StatusOK {
		t.Fatalf("replace status = %d body = %s", w.Code, w.Body)
	}
	got := decode[sessionBody](t, w)
	if got.ID != id || got.CommittedText != extracted.Text || got.Text != extracted.Text {
		t.Errorf("content not reset: id=%s committed=%q", got.ID, got.CommittedText)
	}
	if got.Template != "creative-1" || got.Settings.Theme != "dark" {
		t.Errorf("template/settings not kept: %s %s", got.Template, got.Settings.Theme)
	}
	if got.Review.Mode != "viewing" || got.LastExport != nil {
		t.Errorf("review = %+v last export = %+v", got.Review, got.LastExport)
	}

	if w := srv.uploadTo("/api/sessions/missing/image", pngBytes(t)); w.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d", w.Code)
	}
}
