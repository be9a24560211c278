package pipeline

import (
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/validate"
)

// Load decodes and validates a story document in the given mode. Errors
// carry the validation code (MALFORMED_INPUT, SCHEMA_VIOLATION, ...).
func Load(data []byte, mode validate.Mode) (story.Story, error) {
	return validate.Decode(data, mode)
}
