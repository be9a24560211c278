package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/storyweave/pkg/story"
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

// newTestCLI returns a CLI whose config, state and cache live in a temp
// dir, and the buffer its commands print to.
func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	c := New(io.Discard, log.InfoLevel)
	var out bytes.Buffer
	c.SetOutput(&out)
	return c, &out
}

func run(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func mustRun(t *testing.T, c *CLI, args ...string) {
	t.Helper()
	if err := run(t, c, args...); err != nil {
		t.Fatalf("storyweave %s: %v", strings.Join(args, " "), err)
	}
}

func writeStory(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cellar.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateCommand(t *testing.T) {
	c, out := newTestCLI(t)
	path := writeStory(t, cellar)

	mustRun(t, c, "validate", path, "--strict")
	for _, want := range []string{"Valid story (strict)", "The Cellar", "Node 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	noLabel := writeStory(t, strings.Replace(cellar, `"label": "Node 1", `, "", 1))
	if err := run(t, c, "validate", noLabel, "--strict"); err == nil {
		t.Error("strict validation accepted a node without a label")
	}
	if err := run(t, c, "validate", noLabel); err != nil {
		t.Errorf("loose validation failed: %v", err)
	}
}

func TestValidateStdin(t *testing.T) {
	c, out := newTestCLI(t)
	c.SetInput(strings.NewReader(cellar))
	mustRun(t, c, "validate", "-")
	if !strings.Contains(out.String(), "Valid story (loose)") {
		t.Errorf("output = %s", out.String())
	}
}

func TestDiagramCommand(t *testing.T) {
	c, _ := newTestCLI(t)
	path := writeStory(t, cellar)

	mustRun(t, c, "diagram", path, "-f", "svg,json")
	base := strings.TrimSuffix(path, ".json")

	svg, err := os.ReadFile(base + ".svg")
	if err != nil || !bytes.HasPrefix(svg, []byte("<svg")) {
		t.Fatalf("svg = %.20q, %v", svg, err)
	}
	if _, err := os.Stat(base + ".layout.json"); err != nil {
		t.Fatal(err)
	}
	original, _ := os.ReadFile(path)
	if string(original) != cellar {
		t.Error("diagram overwrote the input story")
	}

	out := filepath.Join(t.TempDir(), "from-layout.svg")
	mustRun(t, c, "diagram", base+".layout.json", "--from-layout", "-o", out)
	again, err := os.ReadFile(out)
	if err != nil || !bytes.HasPrefix(again, []byte("<svg")) {
		t.Errorf("diagram from the saved layout = %.20q, %v", again, err)
	}
}

func TestExportCommand(t *testing.T) {
	c, _ := newTestCLI(t)
	path := writeStory(t, cellar)
	dir := t.TempDir()

	out := filepath.Join(dir, "cellar.html")
	mustRun(t, c, "export", path, "-f", "html", "-o", out)
	html, err := os.ReadFile(out)
	if err != nil || !bytes.Contains(html, []byte("The Cellar")) {
		t.Fatalf("html export: %v", err)
	}

	if err := run(t, c, "export", path, "-f", "pdf"); err == nil {
		t.Error("export accepted an unknown format")
	}
}

func TestDraftWorkflow(t *testing.T) {
	c, out := newTestCLI(t)

	mustRun(t, c, "draft", "new")
	if err := run(t, c, "draft", "new"); err == nil {
		t.Error("draft new replaced an existing draft without --force")
	}
	mustRun(t, c, "draft", "set-text", "1", "At the gate.")
	mustRun(t, c, "draft", "add-node", "--from", "1", "--option", "Enter", "--text", "Inside.")
	mustRun(t, c, "draft", "meta", "--title", "Gate", "--allow-back")

	out.Reset()
	mustRun(t, c, "draft", "show")
	for _, want := range []string{"Gate", "Node 2", "Enter", "Inside."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("draft show missing %q:\n%s", want, out.String())
		}
	}

	if err := run(t, c, "draft", "delete-node", "1"); err == nil {
		t.Error("deleted the start node")
	}
	mustRun(t, c, "draft", "delete-node", "Node 2")
	out.Reset()
	mustRun(t, c, "draft", "show")
	if strings.Contains(out.String(), "Inside.") {
		t.Error("node 2 still shown after delete")
	}

	mustRun(t, c, "draft", "undo")
	if err := run(t, c, "draft", "undo"); err == nil {
		t.Error("undo succeeded twice")
	}

	exported := filepath.Join(t.TempDir(), "gate.json")
	mustRun(t, c, "export", "-o", exported)
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	var s story.Story
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}
	if s.Title != "Gate" || len(s.Nodes) != 2 || !s.AllowBackNavigation {
		t.Errorf("exported draft = %q, %d nodes, back=%v", s.Title, len(s.Nodes), s.AllowBackNavigation)
	}

	mustRun(t, c, "draft", "reset")
	out.Reset()
	mustRun(t, c, "draft", "show")
	if strings.Contains(out.String(), "Gate") {
		t.Error("draft survived reset")
	}
}

func TestDraftImport(t *testing.T) {
	c, out := newTestCLI(t)
	mustRun(t, c, "draft", "import", writeStory(t, cellar))
	mustRun(t, c, "draft", "link", "1", "1", "none")

	// Bottom is an ending: it has no option 1.
	if err := run(t, c, "draft", "link", "bottom", "1", "top"); err == nil {
		t.Error("linked an option that does not exist")
	}
	mustRun(t, c, "draft", "add-option", "bot", "--text", "Climb", "--to", "top")

	out.Reset()
	mustRun(t, c, "draft", "show")
	if !strings.Contains(out.String(), "Climb") {
		t.Errorf("draft show:\n%s", out.String())
	}
}

func TestDraftImportRefusesUnresolvedOptions(t *testing.T) {
	c, out := newTestCLI(t)
	mustRun(t, c, "draft", "import", writeStory(t, cellar))

	for _, next := range []string{`"cave"`, `null`} {
		doc := strings.Replace(cellar, `"next": "bottom"`, `"next": `+next, 1)
		err := run(t, c, "draft", "import", writeStory(t, doc))
		if err == nil || !strings.Contains(err.Error(), `invalid "next" reference`) {
			t.Errorf("draft import with next %s: error = %v", next, err)
		}
	}
	if err := run(t, c, "play", writeStory(t, strings.Replace(cellar, `"next": "bottom"`, `"next": "cave"`, 1)), "--script", "1"); err == nil {
		t.Error("play accepted a story with a dangling option")
	}

	out.Reset()
	mustRun(t, c, "draft", "show")
	if !strings.Contains(out.String(), "Descend") {
		t.Errorf("refused import changed the draft:\n%s", out.String())
	}
}

func TestPlayCommand(t *testing.T) {
	c, out := newTestCLI(t)
	path := writeStory(t, cellar)

	mustRun(t, c, "play", path, "--script", "1")
	if !strings.Contains(out.String(), "The End") {
		t.Fatalf("play did not reach the ending:\n%s", out.String())
	}

	// Resumes the saved position.
	out.Reset()
	mustRun(t, c, "play", "--script", "x")
	if !strings.Contains(out.String(), "Damp and dark.") {
		t.Errorf("play did not resume:\n%s", out.String())
	}

	out.Reset()
	mustRun(t, c, "play", "--restart", "--script", "x")
	if !strings.Contains(out.String(), "Stairs lead down.") {
		t.Errorf("play --restart:\n%s", out.String())
	}
}

func TestConfigCommands(t *testing.T) {
	c, out := newTestCLI(t)
	mustRun(t, c, "config", "init")
	if err := run(t, c, "config", "init"); err == nil {
		t.Error("config init overwrote an existing file")
	}

	out.Reset()
	mustRun(t, c, "config", "show")
	for _, want := range []string{"[store]", "[layout]", "driver"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("config show missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	mustRun(t, c, "config", "path")
	if !strings.HasSuffix(strings.TrimSpace(out.String()), filepath.Join("storyweave", "config.toml")) {
		t.Errorf("config path = %s", out.String())
	}
}

func TestCacheCommands(t *testing.T) {
	c, out := newTestCLI(t)
	mustRun(t, c, "diagram", writeStory(t, cellar))

	out.Reset()
	mustRun(t, c, "cache", "clear")
	if !strings.Contains(out.String(), "Cleared") {
		t.Errorf("cache clear:\n%s", out.String())
	}
	out.Reset()
	mustRun(t, c, "cache", "clear")
	if !strings.Contains(out.String(), "Cache is empty") {
		t.Errorf("second cache clear:\n%s", out.String())
	}
}

func TestResolveNode(t *testing.T) {
	d := story.Draft{Story: story.Story{Nodes: map[string]story.Node{
		"a1b2": {CreatedAt: 1},
		"a1c3": {CreatedAt: 2},
		"zz99": {CreatedAt: 3},
	}}}
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"a1b2", "a1b2", false},
		{"2", "a1c3", false},
		{"Node 3", "zz99", false},
		{"node3", "zz99", false},
		{"zz", "zz99", false},
		{"a1", "", true},
		{"4", "", true},
		{"nope", "", true},
	}
	for _, tt := range tests {
		got, err := resolveNode(d, tt.ref)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("resolveNode(%q) = %q, %v", tt.ref, got, err)
		}
	}
}

func TestArtifactPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		input   string
		formats []string
		want    map[string]string
	}{
		{"single explicit", "out.png", "s.json", []string{"png"}, map[string]string{"png": "out.png"}},
		{"derived", "", "dir/s.json", []string{"svg", "json"}, map[string]string{"svg": "dir/s.svg", "json": "dir/s.layout.json"}},
		{"base path", "out/d.svg", "s.json", []string{"svg", "png"}, map[string]string{"svg": "out/d.svg", "png": "out/d.png"}},
		{"from layout", "", "s.layout.json", []string{"svg"}, map[string]string{"svg": "s.svg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := artifactPaths(tt.output, tt.input, tt.formats)
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("%s path = %q, want %q", f, got[f], want)
				}
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	if got := parseFormats(""); len(got) != 1 || got[0] != "svg" {
		t.Errorf("parseFormats(\"\") = %v", got)
	}
	if got := parseFormats("svg, png,,dot"); strings.Join(got, ",") != "svg,png,dot" {
		t.Errorf("parseFormats() = %v", got)
	}
}
