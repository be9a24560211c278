package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/gallery"
	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/pipeline"
	"github.com/matzehuels/storyweave/pkg/store"
	"github.com/matzehuels/storyweave/pkg/validate"
)

const cellar = `{
  "title": "The Cellar",
  "start": "top",
  "allowBackNavigation": true,
  "showProgress": true,
  "nodes": {
    "top": {"label": "Node 1", "text": "Stairs lead down.", "options": [{"text": "Descend", "next": "bottom"}], "createdAt": 1},
    "bottom": {"label": "Node 2", "text": "Damp and dark.", "options": [], "createdAt": 2}
  }
}`

type fixture struct {
	srv    *httptest.Server
	cache  *countCache
	states store.Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{cache: newCountCache(), states: store.NewMemoryStore()}
	runner := pipeline.NewRunner(f.cache, nil, nil)
	s := New(runner, append([]Option{WithStore(f.states)}, opts...)...)
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func envelope(story string, options string) string {
	if options == "" {
		options = "{}"
	}
	return `{"story": ` + story + `, "options": ` + options + `}`
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	noLabel := strings.Replace(cellar, `"label": "Node 1", `, "", 1)
	tests := []struct {
		name  string
		query string
		body  string
		valid bool
		code  errors.Code
	}{
		{"loose ok", "", noLabel, true, ""},
		{"strict missing label", "?mode=strict", noLabel, false, errors.ErrCodeSchemaViolation},
		{"strict ok", "?mode=strict", cellar, true, ""},
		{"garbage", "", "{", false, errors.ErrCodeMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/api/v1/validate"+tt.query, tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			var got validate.Result
			json.NewDecoder(resp.Body).Decode(&got)
			if got.Valid != tt.valid || got.Code != tt.code {
				t.Errorf("result = %+v, want valid=%v code=%s", got, tt.valid, tt.code)
			}
		})
	}

	resp := f.do(t, http.MethodPost, "/api/v1/validate?mode=lenient", cellar)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want 400", resp.StatusCode)
	}
}

func TestLayout(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/layout", envelope(cellar, `{"direction": "LR"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache = %q, want miss", got)
	}
	var res layout.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res.Nodes) != 3 {
		t.Errorf("layout has %d boxes, want 3 (2 passages, 1 choice)", len(res.Nodes))
	}

	resp = f.do(t, http.MethodPost, "/api/v1/layout", envelope(cellar, `{"direction": "LR"}`))
	if got := resp.Header.Get("X-Cache"); got != "hit" {
		t.Errorf("second X-Cache = %q, want hit", got)
	}
}

func TestDiagram(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/diagram/svg", envelope(cellar, ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("<svg")) {
		t.Errorf("body = %.40q, want svg", body)
	}
}

func TestErrorStatus(t *testing.T) {
	f := newFixture(t)
	dangling := strings.Replace(cellar, `"next": "bottom"`, `"next": "cave"`, 1)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   errors.Code
	}{
		{"bad format", http.MethodPost, "/api/v1/diagram/gif", envelope(cellar, ""), 400, errors.ErrCodeInvalidInput},
		{"bad style", http.MethodPost, "/api/v1/diagram/svg", envelope(cellar, `{"style": "crayon"}`), 400, errors.ErrCodeInvalidInput},
		{"no story", http.MethodPost, "/api/v1/layout", `{}`, 400, errors.ErrCodeInvalidInput},
		{"malformed", http.MethodPost, "/api/v1/layout", `{"story": `, 400, errors.ErrCodeMalformedInput},
		{"strict dangling", http.MethodPost, "/api/v1/layout", envelope(dangling, `{"mode": "strict"}`), 400, errors.ErrCodeDanglingReference},
		{"export dangling", http.MethodPost, "/api/v1/export/json", dangling, 400, errors.ErrCodeDanglingReference},
		{"export format", http.MethodPost, "/api/v1/export/pdf", cellar, 400, errors.ErrCodeInvalidInput},
		{"unknown route", http.MethodGet, "/api/v2/nothing", "", 404, errors.ErrCodeNotFound},
		{"missing state", http.MethodGet, "/api/v1/state/storyEditorState", "", 404, errors.ErrCodeNotFound},
		{"bad key", http.MethodGet, "/api/v1/state/..hidden", "", 400, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := decodeError(t, resp).Error.Code; got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	f := newFixture(t, WithConfig(Config{MaxBodyBytes: 64}))
	resp := f.do(t, http.MethodPost, "/api/v1/validate", cellar)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
	if got := decodeError(t, resp).Error.Code; got != errors.ErrCodeSizeLimitExceeded {
		t.Errorf("code = %s", got)
	}
}

func TestNodeLimit(t *testing.T) {
	f := newFixture(t, WithMaxNodes(1))
	resp := f.do(t, http.MethodPost, "/api/v1/layout", envelope(cellar, ""))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/export/html", cellar)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="The_Cellar.html"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("The Cellar")) {
		t.Error("exported page does not mention the title")
	}
}

func TestPlay(t *testing.T) {
	f := newFixture(t)

	play := func(body string) playResponse {
		t.Helper()
		resp := f.do(t, http.MethodPost, "/api/v1/play", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		var out playResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return out
	}

	start := play(`{"story": ` + cellar + `}`)
	if start.State.CurrentNodeID != "top" || start.Ending || start.CanGoBack {
		t.Fatalf("start = %+v", start)
	}
	if start.Progress == nil || *start.Progress != 0.5 {
		t.Errorf("start progress = %v, want 0.5", start.Progress)
	}

	state, _ := json.Marshal(start.State)
	next := play(`{"state": ` + string(state) + `, "action": "select", "option": 0}`)
	if !next.Moved || next.State.CurrentNodeID != "bottom" || !next.Ending || !next.CanGoBack {
		t.Errorf("after select = %+v", next)
	}

	state, _ = json.Marshal(next.State)
	back := play(`{"state": ` + string(state) + `, "action": "back"}`)
	if back.State.CurrentNodeID != "top" {
		t.Errorf("after back current = %q", back.State.CurrentNodeID)
	}

	resp := f.do(t, http.MethodPost, "/api/v1/play", `{"story": `+cellar+`, "action": "jump"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown action status = %d", resp.StatusCode)
	}
}

func TestState(t *testing.T) {
	f := newFixture(t)
	path := "/api/v1/state/" + store.KeyEditorState

	if resp := f.do(t, http.MethodPut, path, "not json"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("PUT garbage status = %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPut, path, cellar); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}
	resp := f.do(t, http.MethodGet, path, "")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != cellar {
		t.Errorf("GET = %d %q", resp.StatusCode, body)
	}
	if resp := f.do(t, http.MethodDelete, path, ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, path, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d", resp.StatusCode)
	}
}

func TestGallery(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.json":
			w.Write([]byte(`[{"id": "cellar", "story": ` + cellar + `}, {"broken": true}]`))
		case "/object.json":
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer upstream.Close()

	f := newFixture(t, WithGallery(gallery.NewClient(gallery.WithRetry(1, 0)), upstream.URL+"/ok.json"))

	resp := f.do(t, http.MethodGet, "/api/v1/gallery", "")
	var entries []gallery.Entry
	json.NewDecoder(resp.Body).Decode(&entries)
	if resp.StatusCode != http.StatusOK || len(entries) != 1 || entries[0].ID != "cellar" {
		t.Errorf("GET gallery = %d %+v", resp.StatusCode, entries)
	}

	tests := []struct {
		path   string
		status int
	}{
		{"/object.json", http.StatusBadRequest},
		{"/denied.json", http.StatusBadGateway},
	}
	for _, tt := range tests {
		resp := f.do(t, http.MethodGet, "/api/v1/gallery?url="+upstream.URL+tt.path, "")
		if resp.StatusCode != tt.status {
			t.Errorf("gallery %s status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
	}
}
