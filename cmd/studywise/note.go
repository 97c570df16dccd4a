package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/study"
)

var (
	noteCourse  string
	noteTitle   string
	noteContent string
	noteFile    string
	noteVideo   string
	noteTags    []string
	notePinned  bool
	noteJSON    bool
	notePlain   bool
	noteRemove  bool
	noteEditor  bool
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

// readBody returns --content, or the file named by --file ("-" reads stdin).
func readBody(cmd *cobra.Command) (string, bool, error) {
	if cmd.Flags().Changed("file") {
		var data []byte
		var err error
		if noteFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(noteFile)
		}
		if err != nil {
			return "", false, err
		}
		return string(data), true, nil
	}
	return noteContent, cmd.Flags().Changed("content"), nil
}

var noteNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note in a course",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, _, err := readBody(cmd)
		if err != nil {
			return fail("Failed to read note content", err)
		}

		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()
		ctx := context.Background()

		n, err := v.svc.AddNote(ctx, study.NoteDraft{
			Title:    noteTitle,
			Content:  body,
			CourseID: noteCourse,
			VideoURL: noteVideo,
		})
		if err != nil {
			return recordError("Failed to add note", "course", noteCourse, err)
		}
		for _, name := range noteTags {
			if n, _, err = v.svc.TagNote(ctx, n.ID, name); err != nil {
				return fail("Failed to tag note", err)
			}
		}
		printer.Success("Created note %s ", n.Title)
		printer.Faint("(%s)\n", n.ID)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, pinned first then most recently updated",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()
		ctx := context.Background()

		filter := study.NoteFilter{CourseID: noteCourse, PinnedOnly: notePinned}
		tags, err := v.svc.ListTags(ctx)
		if err != nil {
			return fail("Failed to list tags", err)
		}
		tagNames := map[string]string{}
		for _, t := range tags {
			tagNames[t.ID] = t.Name
		}
		filter.TagIDs, err = resolveTagNames(tags, noteTags)
		if err != nil {
			return fail("Failed to list notes", err, "Run 'studywise tag list' to see the available tags")
		}

		notes, err := v.svc.ListNotes(ctx, filter)
		if err != nil {
			return fail("Failed to list notes", err)
		}
		if noteJSON {
			if notes == nil {
				notes = []core.Note{}
			}
			return printJSON(notes)
		}
		for _, n := range notes {
			pin := "  "
			if n.Pinned {
				pin = "* "
			}
			printer.Info("%s", pin)
			printer.Faint("%s  ", n.ID)
			printer.Info("%s", n.Title)
			for _, id := range n.TagIDs {
				printer.Info(" %s", printer.Highlight("#"+tagNames[id]))
			}
			printer.Info("\n")
		}
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Render a note in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		n, err := v.svc.GetNote(context.Background(), args[0])
		if err != nil {
			return recordError("Failed to read note", "note", args[0], err)
		}
		if noteJSON {
			return printJSON(n)
		}

		printer.Step("%s\n", n.Title)
		printer.Faint("updated %s\n", n.UpdatedAt.Local().Format(time.DateTime))
		if n.VideoURL != "" {
			printer.Faint("video %s\n", n.VideoURL)
		}
		for name, count := range n.Reactions {
			printer.Faint("%s %d  ", name, count)
		}
		if len(n.Reactions) > 0 {
			printer.Info("\n")
		}
		r := v.renderer(0, notePlain)
		printer.Info("\n%s\n", r.Render(n.Content))
		return nil
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change the title, content, course or video of a note",
	Long: `Change the title, content, course or video of a note.
With --editor the current content opens in $VISUAL or $EDITOR (vi when
neither is set) and the saved file becomes the new content.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, hasBody, err := readBody(cmd)
		if err != nil {
			return fail("Failed to read note content", err)
		}

		var upd study.NoteUpdate
		if cmd.Flags().Changed("title") {
			upd.Title = &noteTitle
		}
		if hasBody {
			upd.Content = &body
		}
		if cmd.Flags().Changed("course") {
			upd.CourseID = &noteCourse
		}
		if cmd.Flags().Changed("video") {
			upd.VideoURL = &noteVideo
		}

		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()
		ctx := context.Background()

		if noteEditor {
			if hasBody {
				return fail("Conflicting flags", errors.New("--editor cannot be combined with --content or --file"))
			}
			current, err := v.svc.GetNote(ctx, args[0])
			if err != nil {
				return recordError("Failed to read note", "note", args[0], err)
			}
			edited, err := editInEditor(current.Content)
			if err != nil {
				return fail("Failed to edit note", err, "Set $EDITOR (or $VISUAL) to your editor, e.g. 'export EDITOR=nano'")
			}
			if edited != current.Content {
				upd.Content = &edited
			}
		}

		n, err := v.svc.UpdateNote(ctx, args[0], upd)
		if err != nil {
			return recordError("Failed to update note", "note", args[0], err)
		}
		printer.Success("Updated note %s\n", n.Title)
		return nil
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		if err := v.svc.DeleteNote(context.Background(), args[0]); err != nil {
			return recordError("Failed to delete note", "note", args[0], err)
		}
		printer.Success("Deleted note %s\n", args[0])
		return nil
	},
}

var notePinCmd = &cobra.Command{
	Use:   "pin [id]",
	Short: "Toggle the pin of a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		n, err := v.svc.TogglePin(context.Background(), args[0])
		if err != nil {
			return recordError("Failed to pin note", "note", args[0], err)
		}
		if n.Pinned {
			printer.Success("Pinned %s\n", n.Title)
		} else {
			printer.Success("Unpinned %s\n", n.Title)
		}
		return nil
	},
}

var noteVideoCmd = &cobra.Command{
	Use:   "video [id] [url]",
	Short: "Attach a video link to a note (omit url to clear it)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := ""
		if len(args) == 2 {
			url = args[1]
		}

		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		n, err := v.svc.SetVideo(context.Background(), args[0], url)
		if err != nil {
			return recordError("Failed to set video", "note", args[0], err)
		}
		if n.VideoURL == "" {
			printer.Success("Removed video from %s\n", n.Title)
		} else {
			printer.Success("Linked %s to %s\n", n.VideoURL, n.Title)
		}
		return nil
	},
}

var noteImageCmd = &cobra.Command{
	Use:   "image [id] [url] [alt]",
	Short: "Append an image to the end of a note",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		alt := ""
		if len(args) == 3 {
			alt = args[2]
		}

		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		n, err := v.svc.AddImage(context.Background(), args[0], args[1], alt)
		if err != nil {
			return recordError("Failed to add image", "note", args[0], err)
		}
		printer.Success("Added image to %s\n", n.Title)
		return nil
	},
}

var noteReactCmd = &cobra.Command{
	Use:   "react [id] [reaction]",
	Short: "Add (or with --remove, take back) a reaction on a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta := 1
		if noteRemove {
			delta = -1
		}

		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		n, err := v.svc.React(context.Background(), args[0], args[1], delta)
		if err != nil {
			return recordError("Failed to react", "note", args[0], err)
		}
		name := strings.ToLower(strings.TrimSpace(args[1]))
		printer.Success("%s now has %d %s\n", n.Title, n.Reactions[name], name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteNewCmd, noteListCmd, noteShowCmd, noteEditCmd, noteDeleteCmd, notePinCmd, noteVideoCmd, noteImageCmd, noteReactCmd)

	for _, c := range []*cobra.Command{noteNewCmd, noteEditCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringVar(&noteContent, "content", "", "Markdown content")
		c.Flags().StringVar(&noteFile, "file", "", "Read the content from a file ('-' for stdin)")
		c.Flags().StringVar(&noteCourse, "course", "", "Course id")
		c.Flags().StringVar(&noteVideo, "video", "", "Video URL")
	}
	_ = noteNewCmd.MarkFlagRequired("course")
	noteNewCmd.Flags().StringSliceVar(&noteTags, "tag", nil, "Tag names to attach")

	noteListCmd.Flags().StringVar(&noteCourse, "course", "", "Only notes of this course id")
	noteListCmd.Flags().StringSliceVar(&noteTags, "tag", nil, "Only notes carrying every given tag name")
	noteListCmd.Flags().BoolVar(&notePinned, "pinned", false, "Only pinned notes")
	noteListCmd.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")

	noteShowCmd.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")
	noteShowCmd.Flags().BoolVar(&notePlain, "plain", false, "Print markdown without styling")

	noteEditCmd.Flags().BoolVarP(&noteEditor, "editor", "e", false, "Edit the content in $EDITOR")

	noteReactCmd.Flags().BoolVar(&noteRemove, "remove", false, "Take back one reaction")
}

// resolveTagNames maps tag names to ids, case-insensitively.
func resolveTagNames(tags []core.Tag, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		found := ""
		for _, t := range tags {
			if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
				found = t.ID
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("tag %q not found: %w", name, core.ErrNotFound)
		}
		ids = append(ids, found)
	}
	return ids, nil
}
