package layout_test

import (
	"fmt"

	"github.com/matzehuels/storyweave/pkg/layout"
	"github.com/matzehuels/storyweave/pkg/story"
)

func ExampleCompute() {
	s := story.Story{
		Start: "A",
		Nodes: map[string]story.Node{
			"A": {Text: "Go on?", Options: []story.Option{{Text: "Yes", Next: "B"}}, CreatedAt: 1},
			"B": {Text: "Done.", Options: []story.Option{}, CreatedAt: 2},
		},
	}
	nodes, edges := layout.Build(s)
	pos := layout.Compute(nodes, edges, layout.DefaultOptions())
	for _, n := range nodes {
		fmt.Printf("%s %v\n", n.ID, pos[n.ID])
	}
	// Output:
	// A {0 0}
	// B {0 230}
	// A-option-0 {30 130}
}

func ExampleMerge() {
	auto := layout.Positions{"A": {X: 0, Y: 0}, "B": {X: 0, Y: 230}}
	var pins layout.Overrides
	pins.Pin("B", layout.Point{X: 400, Y: 50})
	pins.Pin("deleted", layout.Point{X: 1, Y: 1})

	merged := layout.Merge(auto, &pins)
	fmt.Println(merged["A"], merged["B"], len(merged))
	// Output: {0 0} {400 50} 2
}

func ExamplePreview() {
	fmt.Println(layout.Preview("You wake in a cold room. The door is open and a draft carries voices."))
	// Output: You wake in a cold room. The door is ope...
}
