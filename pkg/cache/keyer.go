package cache

// Keyer derives cache keys.
type Keyer interface {
	// HTTPKey addresses a fetched HTTP body, e.g. a gallery manifest.
	HTTPKey(namespace, key string) string
	// LayoutKey addresses the diagram computed for a story.
	LayoutKey(storyHash string, opts LayoutKeyOpts) string
	// ArtifactKey addresses a diagram rendered to a file format.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the inputs besides the story that change a layout.
type LayoutKeyOpts struct {
	Direction string  `json:"direction"`
	NodeSep   float64 `json:"node_sep"`
	RankSep   float64 `json:"rank_sep"`
	Sweeps    int     `json:"sweeps"`
	// OverridesHash is the hash of the pinned positions, empty if none.
	OverridesHash string `json:"overrides_hash,omitempty"`
}

// ArtifactKeyOpts are the render settings that change an artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Style  string  `json:"style"`
	Seed   uint64  `json:"seed"`
	Margin float64 `json:"margin"`
	Scale  float64 `json:"scale"`
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return hashKey("http", namespace, key)
}

func (DefaultKeyer) LayoutKey(storyHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", storyHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
