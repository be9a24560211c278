// Package story is the data model of a branching narrative.
//
// A [Story] is an arena of [Node] values keyed by opaque id plus a start id.
// Each node holds free text and an ordered list of [Option] choices; an
// option's Next names the node it leads to. Cycles are ordinary content: a
// story may loop back to an earlier passage.
//
// # Creation order
//
// Display numbering ("Node 1", "Node 2", ...) comes only from CreatedAt.
// [OrderedIDs], [Labels] and [Label] implement it and every other package
// (validation, layout, export) uses them instead of map order.
//
// # Editing
//
// Edits are reducers: [AddNode], [UpdateNodeText], [AddOption],
// [UpdateOption], [DeleteOption], [DeleteNode] and [SetStart] take a
// snapshot and return a new one. The same actions exist as [Command] values
// that an [Editor] applies to a [Draft], which adds selection tracking and
// one step of undo for destructive edits:
//
//	ed := story.NewEditor(story.NewDraft(uuid.NewString(), time.Now()))
//	_ = ed.Apply(story.AddNodeCmd{})
//	if err := ed.Apply(story.DeleteNodeCmd{ID: start}); err != nil {
//	    // INVARIANT_VIOLATION: the start node cannot be deleted
//	}
package story
