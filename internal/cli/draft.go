package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/store"
	"github.com/matzehuels/storyweave/pkg/validate"
)

func (c *CLI) draftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Edit the saved story draft",
		Long: `Edit the saved story draft.

Nodes are referred to by id, id prefix, "Node k" or just k, where k is the
creation-order number shown by 'draft show'. Option numbers start at 1.

Deleting a node or an option can be undone once with 'draft undo'. The start
node cannot be deleted; promote another node with 'draft set-start' first.`,
	}

	cmd.AddCommand(c.draftNewCommand())
	cmd.AddCommand(c.draftShowCommand())
	cmd.AddCommand(c.draftImportCommand())
	cmd.AddCommand(c.draftAddNodeCommand())
	cmd.AddCommand(c.draftSetTextCommand())
	cmd.AddCommand(c.draftAddOptionCommand())
	cmd.AddCommand(c.draftLinkCommand())
	cmd.AddCommand(c.draftDeleteOptionCommand())
	cmd.AddCommand(c.draftDeleteNodeCommand())
	cmd.AddCommand(c.draftSetStartCommand())
	cmd.AddCommand(c.draftSelectCommand())
	cmd.AddCommand(c.draftMetaCommand())
	cmd.AddCommand(c.draftUndoCommand())
	cmd.AddCommand(c.draftResetCommand())

	return cmd
}

// editDraft loads the editor session, runs fn and saves the result. Nothing
// is saved when fn fails.
func (c *CLI) editDraft(ctx context.Context, fn func(*story.Editor) error) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	e, err := store.LoadEditor(ctx, st, story.DefaultEnv())
	if err != nil {
		if e == nil {
			return err
		}
		c.out.warning("%v", err)
	}
	if err := fn(e); err != nil {
		return err
	}
	return store.SaveEditor(ctx, st, e)
}

// resolveNode finds a node by id, "Node k", k or a unique id prefix.
func resolveNode(d story.Draft, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if d.Has(ref) {
		return ref, nil
	}
	num := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(ref), "node"))
	if k, err := strconv.Atoi(num); err == nil {
		ids := story.OrderedIDs(d.Nodes)
		if k >= 1 && k <= len(ids) {
			return ids[k-1], nil
		}
		return "", fmt.Errorf("no node %q (the draft has %d nodes)", ref, len(ids))
	}
	var match string
	for id := range d.Nodes {
		if ref != "" && strings.HasPrefix(id, ref) {
			if match != "" {
				return "", fmt.Errorf("node prefix %q is ambiguous", ref)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("no node %q", ref)
	}
	return match, nil
}

// optionIndex converts a 1-based option number of node id.
func optionIndex(d story.Draft, id, ref string) (int, error) {
	k, err := strconv.Atoi(ref)
	n := d.Nodes[id]
	if err != nil || k < 1 || k > len(n.Options) {
		return 0, fmt.Errorf("option %q: %s has %d option(s)", ref, label(d, id), len(n.Options))
	}
	return k - 1, nil
}

func label(d story.Draft, id string) string {
	return story.Label(id, story.OrderedIDs(d.Nodes))
}

func (c *CLI) draftNewCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new draft with one empty node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.Load(ctx, store.KeyEditorState); err == nil && !force {
				return fmt.Errorf("a draft already exists; use --force to replace it")
			} else if err != nil && !stderrors.Is(err, store.ErrNotFound) {
				return err
			}
			if err := store.ResetEditor(ctx, st); err != nil {
				return err
			}
			env := story.DefaultEnv()
			if err := store.SaveDraft(ctx, st, story.NewDraft(env.NewID(), env.Now())); err != nil {
				return err
			}
			c.out.success("Started a new draft")
			c.out.nextStep("Write the first passage", `storyweave draft set-text 1 "Once upon a time..."`)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing draft")
	return cmd
}

func (c *CLI) draftShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the draft as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			e, err := store.LoadEditor(ctx, st, story.DefaultEnv())
			if err != nil {
				if e == nil {
					return err
				}
				c.out.warning("%v", err)
			}
			d := e.Draft()

			title := d.Title
			if title == "" {
				title = "Untitled"
			}
			c.out.line(StyleTitle.Render(title))
			if d.Author != "" {
				c.out.keyValue("Author", d.Author)
			}
			c.out.keyValue("Start", label(d, d.Start))
			c.out.keyValue("Progress", strconv.FormatBool(d.ShowProgress))
			c.out.keyValue("Back", strconv.FormatBool(d.AllowBackNavigation))
			c.out.line(nodeTable(d.Story, d.SelectedNode))
			if n := d.UnlinkedOptions(); n > 0 {
				c.out.warning("%d option(s) lead nowhere yet", n)
			}
			if e.CanUndo() {
				c.out.detail("Last deletion can be undone with 'storyweave draft undo'")
			}
			return nil
		},
	}
}

func (c *CLI) draftImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [story.json]",
		Short: "Replace the draft with a story file",
		Long: `Replace the draft with a story file.

The file is checked in loose mode. Labels are recomputed from creation
order and a start that does not resolve falls back to the first node.
On any error the current draft is left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			data, err := c.readInput(args[0])
			if err != nil {
				return err
			}
			s, err := cfg.Validator().Decode(data, validate.Import)
			if err != nil {
				return err
			}

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := store.SaveEditor(ctx, st, story.NewEditor(story.Import(s))); err != nil {
				return err
			}
			c.out.success("Imported %d nodes", len(s.Nodes))
			return nil
		},
	}
}

func (c *CLI) draftAddNodeCommand() *cobra.Command {
	var text, from, optionText string
	cmd := &cobra.Command{
		Use:   "add-node",
		Short: "Add a node and select it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				var source string
				if from != "" {
					id, err := resolveNode(e.Draft(), from)
					if err != nil {
						return err
					}
					source = id
				}
				if err := e.Apply(story.AddNodeCmd{}); err != nil {
					return err
				}
				d := e.Draft()
				id := d.SelectedNode
				if text != "" {
					if err := e.Apply(story.UpdateNodeTextCmd{ID: id, Text: text}); err != nil {
						return err
					}
				}
				if source != "" {
					if err := linkNew(e, source, optionText, id); err != nil {
						return err
					}
				}
				c.out.success("Added %s", label(e.Draft(), id))
				c.out.detail("id %s", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "passage text")
	cmd.Flags().StringVar(&from, "from", "", "add an option to this node leading to the new one")
	cmd.Flags().StringVar(&optionText, "option", "Continue", "text of the option added with --from")
	return cmd
}

// linkNew appends an option to source leading to target.
func linkNew(e *story.Editor, source, text, target string) error {
	if err := e.Apply(story.AddOptionCmd{ID: source}); err != nil {
		return err
	}
	index := len(e.Draft().Nodes[source].Options) - 1
	if err := e.Apply(story.UpdateOptionCmd{ID: source, Index: index, Field: story.OptionText, Value: text}); err != nil {
		return err
	}
	if target == "" {
		return nil
	}
	return e.Apply(story.UpdateOptionCmd{ID: source, Index: index, Field: story.OptionNext, Value: target})
}

func (c *CLI) draftSetTextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-text NODE TEXT",
		Short: "Replace the text of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				id, err := resolveNode(e.Draft(), args[0])
				if err != nil {
					return err
				}
				if err := e.Apply(story.UpdateNodeTextCmd{ID: id, Text: args[1]}); err != nil {
					return err
				}
				c.out.success("Updated %s", label(e.Draft(), id))
				return nil
			})
		},
	}
}

func (c *CLI) draftAddOptionCommand() *cobra.Command {
	var text, to string
	cmd := &cobra.Command{
		Use:   "add-option NODE",
		Short: "Add an option to a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				d := e.Draft()
				id, err := resolveNode(d, args[0])
				if err != nil {
					return err
				}
				var target string
				if to != "" {
					if target, err = resolveNode(d, to); err != nil {
						return err
					}
				}
				if err := linkNew(e, id, text, target); err != nil {
					return err
				}
				c.out.success("Added option %d to %s", len(e.Draft().Nodes[id].Options), label(d, id))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "option text")
	cmd.Flags().StringVar(&to, "to", "", "node the option leads to")
	return cmd
}

func (c *CLI) draftLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link NODE OPTION TARGET",
		Short: `Point an option at a node ("none" unlinks it)`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				d := e.Draft()
				id, err := resolveNode(d, args[0])
				if err != nil {
					return err
				}
				index, err := optionIndex(d, id, args[1])
				if err != nil {
					return err
				}
				target := ""
				if !strings.EqualFold(args[2], "none") {
					if target, err = resolveNode(d, args[2]); err != nil {
						return err
					}
				}
				if err := e.Apply(story.UpdateOptionCmd{ID: id, Index: index, Field: story.OptionNext, Value: target}); err != nil {
					return err
				}
				if target == "" {
					c.out.success("Unlinked option %d of %s", index+1, label(d, id))
				} else {
					c.out.success("%s option %d %s %s", label(d, id), index+1, iconArrow, label(d, target))
				}
				return nil
			})
		},
	}
}

func (c *CLI) draftDeleteOptionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-option NODE OPTION",
		Short: "Delete an option (undoable)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				d := e.Draft()
				id, err := resolveNode(d, args[0])
				if err != nil {
					return err
				}
				index, err := optionIndex(d, id, args[1])
				if err != nil {
					return err
				}
				if err := e.Apply(story.DeleteOptionCmd{ID: id, Index: index}); err != nil {
					return err
				}
				c.out.success("Deleted option %d of %s", index+1, label(d, id))
				return nil
			})
		},
	}
}

func (c *CLI) draftDeleteNodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-node NODE",
		Short: "Delete a node and every option leading to it (undoable)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				d := e.Draft()
				id, err := resolveNode(d, args[0])
				if err != nil {
					return err
				}
				if err := e.Apply(story.DeleteNodeCmd{ID: id}); err != nil {
					return err
				}
				c.out.success("Deleted %s", label(d, id))
				return nil
			})
		},
	}
}

func (c *CLI) draftSetStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-start NODE",
		Short: "Make a node the start of the story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				id, err := resolveNode(e.Draft(), args[0])
				if err != nil {
					return err
				}
				if err := e.Apply(story.SetStartCmd{ID: id}); err != nil {
					return err
				}
				c.out.success("%s is the start", label(e.Draft(), id))
				return nil
			})
		},
	}
}

func (c *CLI) draftSelectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select NODE",
		Short: "Select a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				id, err := resolveNode(e.Draft(), args[0])
				if err != nil {
					return err
				}
				return e.Apply(story.SelectCmd{ID: id})
			})
		},
	}
}

func (c *CLI) draftMetaCommand() *cobra.Command {
	var (
		title, author, description string
		showProgress, allowBack    bool
	)
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Set the title, author, description and reader flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				d := e.Draft()
				meta := story.UpdateMetadataCmd{Title: d.Title, Author: d.Author, Description: d.Description}
				if flags.Changed("title") {
					meta.Title = title
				}
				if flags.Changed("author") {
					meta.Author = author
				}
				if flags.Changed("description") {
					meta.Description = description
				}
				set := story.SetFlagsCmd{ShowProgress: d.ShowProgress, AllowBackNavigation: d.AllowBackNavigation}
				if flags.Changed("show-progress") {
					set.ShowProgress = showProgress
				}
				if flags.Changed("allow-back") {
					set.AllowBackNavigation = allowBack
				}
				if err := e.Apply(meta); err != nil {
					return err
				}
				if err := e.Apply(set); err != nil {
					return err
				}
				c.out.success("Updated story details")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "story title")
	cmd.Flags().StringVar(&author, "author", "", "author name")
	cmd.Flags().StringVar(&description, "description", "", "short description")
	cmd.Flags().BoolVar(&showProgress, "show-progress", true, "show a progress indicator to readers")
	cmd.Flags().BoolVar(&allowBack, "allow-back", false, "let readers go back")
	return cmd
}

func (c *CLI) draftUndoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the last deletion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editDraft(cmd.Context(), func(e *story.Editor) error {
				if !e.Undo() {
					return fmt.Errorf("nothing to undo")
				}
				c.out.success("Restored the draft from before the last deletion")
				return nil
			})
		},
	}
}

func (c *CLI) draftResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := store.ResetEditor(ctx, st); err != nil {
				return err
			}
			c.out.success("Draft deleted")
			return nil
		},
	}
}
