// Package validate turns untrusted story documents into a Valid or Invalid
// result.
//
// Checks run in a fixed order and stop at the first failure, so the reason
// for a given document is always the same. Two modes exist: [Loose] is used
// while a story is being edited and tolerates options that are not linked
// yet; [Strict] is used on import and export and requires every reference to
// resolve and every node to carry its display label.
package validate

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/story"
)

// Mode selects how strictly references are checked.
type Mode int

const (
	// Loose accepts null or dangling option targets and unlabeled nodes.
	Loose Mode = iota
	// Strict requires resolved option targets and non-blank node labels.
	Strict
	// Import requires resolved option targets like Strict but accepts
	// unlabeled nodes. Documents from outside (files, gallery manifests,
	// request bodies) are read in this mode.
	Import
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Import:
		return "import"
	}
	return "loose"
}

// ParseMode converts "loose" or "strict" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "loose", "":
		return Loose, nil
	case "strict":
		return Strict, nil
	case "import":
		return Import, nil
	}
	return Loose, errors.New(errors.ErrCodeInvalidInput, "unknown validation mode %q", s)
}

const (
	// DefaultMaxNodes caps the number of nodes a story may have.
	DefaultMaxNodes = 5000
	// MaxImportBytes caps the size of a document accepted by Decode.
	MaxImportBytes = 5 << 20
)

// Result is the outcome of a validation. When Valid is false, Code and
// Reason describe the first failed check.
type Result struct {
	Valid  bool        `json:"valid"`
	Code   errors.Code `json:"code,omitempty"`
	Reason string      `json:"error,omitempty"`
}

// Err returns nil for a valid result, otherwise a *errors.Error carrying
// the taxonomy code and the reason as its user message.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return errors.New(r.Code, "%s", r.Reason)
}

func valid() Result { return Result{Valid: true} }

func invalid(code errors.Code, format string, args ...any) Result {
	return Result{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Validator checks story documents. The zero value uses [DefaultMaxNodes].
type Validator struct {
	MaxNodes int
}

var defaultValidator Validator

// Validate checks input with the default node cap.
func Validate(input any, mode Mode) Result {
	return defaultValidator.Validate(input, mode)
}

// ValidateJSON checks a raw JSON document with the default node cap.
func ValidateJSON(data []byte, mode Mode) Result {
	return defaultValidator.ValidateJSON(data, mode)
}

// Decode parses, validates and converts data with the default node cap.
func Decode(data []byte, mode Mode) (story.Story, error) {
	return defaultValidator.Decode(data, mode)
}

func (v Validator) maxNodes() int {
	if v.MaxNodes > 0 {
		return v.MaxNodes
	}
	return DefaultMaxNodes
}

// ValidateJSON parses data and validates the result. Unparseable input is
// MALFORMED_INPUT.
func (v Validator) ValidateJSON(data []byte, mode Mode) Result {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return invalid(errors.ErrCodeMalformedInput, "File is not valid JSON.")
	}
	return v.check(doc, mode)
}

// Validate checks a decoded document. input is usually the map produced by
// json.Unmarshal into an any; typed values such as story.Story or
// story.Draft are marshalled first so they go through the same checks.
func (v Validator) Validate(input any, mode Mode) Result {
	switch in := input.(type) {
	case map[string]any:
		return v.check(in, mode)
	case []byte:
		return v.ValidateJSON(in, mode)
	case json.RawMessage:
		return v.ValidateJSON(in, mode)
	case nil:
		return v.check(nil, mode)
	}
	data, err := json.Marshal(input)
	if err != nil {
		return invalid(errors.ErrCodeMalformedInput, "File is not valid JSON.")
	}
	return v.ValidateJSON(data, mode)
}

// Decode reads a story document in one step: size check, parse, validate,
// then conversion to a typed story. On any failure the zero Story and an
// *errors.Error are returned; nothing is partially applied.
func (v Validator) Decode(data []byte, mode Mode) (story.Story, error) {
	if len(data) > MaxImportBytes {
		return story.Story{}, errors.New(errors.ErrCodeMalformedInput, "File is too large.")
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return story.Story{}, errors.Wrap(errors.ErrCodeMalformedInput, err, "File is not valid JSON.")
	}
	if res := v.check(doc, mode); !res.Valid {
		return story.Story{}, res.Err()
	}
	var s story.Story
	if err := json.Unmarshal(data, &s); err != nil {
		// Only optional top-level fields of the wrong type can get here.
		return story.Story{}, errors.Wrap(errors.ErrCodeSchemaViolation, err, "Invalid story file.")
	}
	return s, nil
}

func (v Validator) check(doc any, mode Mode) Result {
	root, ok := doc.(map[string]any)
	if !ok {
		return invalid(errors.ErrCodeMalformedInput, "File is not valid JSON.")
	}

	nodes, ok := root["nodes"].(map[string]any)
	if !ok {
		return invalid(errors.ErrCodeSchemaViolation, "Invalid story file: missing nodes.")
	}
	if len(nodes) == 0 {
		return invalid(errors.ErrCodeSchemaViolation, "Story has no nodes.")
	}
	if limit := v.maxNodes(); len(nodes) > limit {
		return invalid(errors.ErrCodeSizeLimitExceeded, "Story is too large to load (max %d nodes).", limit)
	}

	start, _ := root["start"].(string)
	if _, ok := nodes[start]; start == "" || !ok {
		return invalid(errors.ErrCodeDanglingReference, "Story has no valid starting node.")
	}

	for _, id := range rankOrder(nodes) {
		if res := checkNode(id, nodes, mode); !res.Valid {
			return res
		}
	}
	return valid()
}

func checkNode(id string, nodes map[string]any, mode Mode) Result {
	node, ok := nodes[id].(map[string]any)
	if !ok {
		return invalid(errors.ErrCodeSchemaViolation, "Node %s is invalid.", id)
	}
	if mode == Strict {
		if label, ok := node["label"].(string); !ok || strings.TrimSpace(label) == "" {
			return invalid(errors.ErrCodeSchemaViolation, "Node %s is missing a label.", id)
		}
	}
	if _, ok := node["text"].(string); !ok {
		return invalid(errors.ErrCodeSchemaViolation, "Node %s is missing text.", id)
	}
	options, ok := node["options"].([]any)
	if !ok {
		return invalid(errors.ErrCodeSchemaViolation, "Node %s has invalid options.", id)
	}
	if _, ok := node["createdAt"].(float64); !ok {
		return invalid(errors.ErrCodeSchemaViolation, "Node %s is missing createdAt value.", id)
	}

	for _, raw := range options {
		opt, ok := raw.(map[string]any)
		if !ok {
			return invalid(errors.ErrCodeSchemaViolation, "Node %s has an invalid option.", id)
		}
		if _, ok := opt["text"].(string); !ok {
			return invalid(errors.ErrCodeSchemaViolation, "Node %s option is missing text.", id)
		}
		if res := checkNext(id, opt["next"], nodes, mode); !res.Valid {
			return res
		}
	}
	return valid()
}

const badNext = `Node %s has an option with invalid "next" reference.`

func checkNext(id string, next any, nodes map[string]any, mode Mode) Result {
	switch target := next.(type) {
	case string:
		if mode == Loose {
			return valid()
		}
		if _, ok := nodes[target]; target == "" || !ok {
			return invalid(errors.ErrCodeDanglingReference, badNext, id)
		}
		return valid()
	case nil:
		if mode == Loose {
			return valid()
		}
		return invalid(errors.ErrCodeDanglingReference, badNext, id)
	default:
		return invalid(errors.ErrCodeSchemaViolation, badNext, id)
	}
}

// rankOrder sorts raw node ids by numeric createdAt (missing or non-numeric
// counts as 0), ties by id, so the first reported failure matches the
// display numbering.
func rankOrder(nodes map[string]any) []string {
	created := func(id string) float64 {
		if n, ok := nodes[id].(map[string]any); ok {
			if t, ok := n["createdAt"].(float64); ok {
				return t
			}
		}
		return 0
	}
	ids := slices.Collect(maps.Keys(nodes))
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(created(a), created(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}
