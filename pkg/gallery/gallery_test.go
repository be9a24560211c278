package gallery

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/storyweave/pkg/cache"
	"github.com/matzehuels/storyweave/pkg/errors"
)

const manifest = `[
  {"id": "cave", "story": {"title": "The Cave", "description": "Go in.", "start": "a",
    "nodes": {"a": {"text": "Dark.", "options": [], "createdAt": 1}}}},
  {"title": "Bare", "start": "x",
    "nodes": {"x": {"text": "Hi.", "options": [{"text": "Again", "next": "x"}], "createdAt": 1}}},
  {"id": "broken", "story": {"start": "a", "nodes": {}}},
  {"id": "dangling", "story": {"start": "a",
    "nodes": {"a": {"text": "Lost.", "options": [{"text": "On", "next": "nowhere"}], "createdAt": 1}}}},
  {"id": "unlinked", "story": {"start": "a",
    "nodes": {"a": {"text": "Wait.", "options": [{"text": "Later", "next": null}], "createdAt": 1}}}},
  42,
  {"story": {"start": "n", "nodes": {"n": {"text": "Untitled one.", "options": [], "createdAt": 3}}}}
]`

func TestParse(t *testing.T) {
	entries, err := Parse([]byte(manifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Parse() = %d entries, want 3", len(entries))
	}
	if entries[0].ID != "cave" || entries[0].Title() != "The Cave" || entries[0].Story.Description != "Go in." {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].ID != "Bare" {
		t.Errorf("bare entry id = %q, want title fallback", entries[1].ID)
	}
	if entries[2].ID == "" || entries[2].Title() != "Untitled" {
		t.Errorf("entries[2] = id %q title %q", entries[2].ID, entries[2].Title())
	}
}

func TestParseDropsUnresolvedOptions(t *testing.T) {
	entries, err := Parse([]byte(manifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for _, e := range entries {
		if e.ID == "dangling" || e.ID == "unlinked" {
			t.Errorf("Parse() kept %q, whose option does not resolve", e.ID)
		}
		for id, n := range e.Story.Nodes {
			for _, o := range n.Options {
				if !e.Story.Has(o.Next) {
					t.Errorf("entry %q node %s links to %q", e.ID, id, o.Next)
				}
			}
		}
	}
}

func TestParseNotArray(t *testing.T) {
	for _, in := range []string{`{"a": 1}`, `null`, `"x"`} {
		_, err := Parse([]byte(in))
		if !errors.Is(err, errors.ErrCodeMalformedInput) || errors.UserMessage(err) != "Manifest must be an array." {
			t.Errorf("Parse(%s) error = %v", in, err)
		}
	}
	if _, err := Parse([]byte(`[`)); !errors.Is(err, errors.ErrCodeMalformedInput) {
		t.Errorf("Parse(truncated) error = %v", err)
	}
}

func TestParseNumericID(t *testing.T) {
	entries, err := Parse([]byte(`[{"id": 7, "story": {"start": "a", "nodes": {"a": {"text": "", "options": [], "createdAt": 1}}}}]`))
	if err != nil || len(entries) != 1 || entries[0].ID != "7" {
		t.Errorf("Parse() = %+v, %v", entries, err)
	}
}

func TestClientFetch(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Write([]byte(manifest))
	}))
	defer srv.Close()

	entries, err := NewClient().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Fetch() = %d entries, want 3", len(entries))
	}
	if accept != "application/json" {
		t.Errorf("Accept = %q", accept)
	}
}

func TestClientStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     errors.Code
		sentinel error
		calls    int32
	}{
		{"not found", http.StatusNotFound, errors.ErrCodeNotFound, ErrNotFound, 1},
		{"forbidden", http.StatusForbidden, errors.ErrCodeNetwork, ErrNetwork, 1},
		{"server error retried", http.StatusBadGateway, errors.ErrCodeNetwork, ErrNetwork, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(WithRetry(3, time.Millisecond))
			_, err := c.Fetch(context.Background(), srv.URL)
			if !errors.Is(err, tt.code) || !stderrors.Is(err, tt.sentinel) {
				t.Errorf("Fetch() error = %v, want %s", err, tt.code)
			}
			if got := calls.Load(); got != tt.calls {
				t.Errorf("requests = %d, want %d", got, tt.calls)
			}
		})
	}
}

func TestClientRecoversAfterRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	entries, err := NewClient(WithRetry(3, time.Millisecond)).Fetch(context.Background(), srv.URL)
	if err != nil || len(entries) != 0 {
		t.Errorf("Fetch() = %v, %v", entries, err)
	}
}

func TestClientCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(manifest))
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(WithCache(fc, time.Hour))
	ctx := context.Background()
	for range 2 {
		if _, err := c.Fetch(ctx, srv.URL); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("requests = %d, want 1 with cache", got)
	}
	if _, err := c.FetchRaw(ctx, srv.URL, true); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("requests = %d, want 2 after refresh", got)
	}
}

func TestClientRejectsURL(t *testing.T) {
	_, err := NewClient().Fetch(context.Background(), "file:///etc/passwd")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Fetch(file://) error = %v", err)
	}
}

func TestLoaderDiscardsStale(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			<-release
		}
		w.Write([]byte(manifest))
	}))
	defer srv.Close()

	l := NewLoader(NewClient())
	var delivered atomic.Int32
	var fastEntries atomic.Int32
	l.Load(context.Background(), srv.URL+"/slow", func([]Entry, error) { delivered.Add(1) })
	l.Load(context.Background(), srv.URL+"/fast", func(e []Entry, err error) {
		if err == nil {
			fastEntries.Store(int32(len(e)))
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for fastEntries.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	l.Wait()

	if delivered.Load() != 0 {
		t.Error("stale result was delivered")
	}
	if fastEntries.Load() != 3 {
		t.Errorf("latest load delivered %d entries, want 3", fastEntries.Load())
	}
}

func TestLoaderDetach(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	l := NewLoader(NewClient())
	var delivered atomic.Bool
	l.Load(context.Background(), srv.URL, func([]Entry, error) { delivered.Store(true) })
	l.Detach()
	close(release)
	l.Wait()
	if delivered.Load() {
		t.Error("result delivered after Detach")
	}
}

func TestLoaderDetachWaitsForDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	l := NewLoader(NewClient())
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	l.Load(context.Background(), srv.URL, func([]Entry, error) {
		close(entered)
		<-release
		finished.Store(true)
	})
	<-entered

	detached := make(chan struct{})
	go func() {
		l.Detach()
		close(detached)
	}()
	select {
	case <-detached:
		t.Fatal("Detach() returned while a delivery was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-detached
	if !finished.Load() {
		t.Error("Detach() returned before the running delivery finished")
	}
	l.Wait()
}
