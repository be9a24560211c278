package story

import (
	"regexp"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ProgressKey returns the browser storage key under which the standalone
// player keeps a reader's position in the story titled title.
func ProgressKey(title string) string {
	if title == "" {
		return "storyProgress_untitled"
	}
	return "storyProgress_" + whitespaceRun.ReplaceAllString(title, "_")
}

// Progress returns the creation rank of id divided by the node count, in
// [0, 1]. It is a position indicator, not a measure of remaining path
// length: branches that skip nodes never reach 1 before an ending.
func Progress(nodes map[string]Node, id string) float64 {
	if len(nodes) == 0 {
		return 0
	}
	return float64(Rank(nodes, id)) / float64(len(nodes))
}
