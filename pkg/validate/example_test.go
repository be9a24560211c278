package validate_test

import (
	"fmt"

	"github.com/matzehuels/storyweave/pkg/validate"
)

func ExampleValidateJSON() {
	doc := []byte(`{
		"start": "intro",
		"nodes": {
			"intro": {"text": "You wake up.", "options": [{"text": "Get up", "next": null}], "createdAt": 1}
		}
	}`)

	fmt.Println(validate.ValidateJSON(doc, validate.Loose).Valid)

	res := validate.ValidateJSON(doc, validate.Strict)
	fmt.Println(res.Code, res.Reason)
	// Output:
	// true
	// SCHEMA_VIOLATION Node intro is missing a label.
}
