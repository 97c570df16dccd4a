package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/core"
)

var tagJSON bool

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a tag (existing names are reused)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		t, err := v.svc.AddTag(context.Background(), args[0])
		if err != nil {
			return fail("Failed to add tag", err)
		}
		printer.Success("Tag %s ", printer.Highlight("#"+t.Name))
		printer.Faint("(%s)\n", t.ID)
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		tags, err := v.svc.ListTags(context.Background())
		if err != nil {
			return fail("Failed to list tags", err)
		}
		if tagJSON {
			if tags == nil {
				tags = []core.Tag{}
			}
			return printJSON(tags)
		}
		for _, t := range tags {
			printer.Faint("%s  ", t.ID)
			printer.Info("%s\n", t.Name)
		}
		return nil
	},
}

var tagAttachCmd = &cobra.Command{
	Use:   "attach [note-id] [name]",
	Short: "Tag a note, creating the tag when needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		n, t, err := v.svc.TagNote(context.Background(), args[0], args[1])
		if err != nil {
			return recordError("Failed to tag note", "note", args[0], err)
		}
		printer.Success("Tagged %s with %s\n", n.Title, printer.Highlight("#"+t.Name))
		return nil
	},
}

var tagDetachCmd = &cobra.Command{
	Use:   "detach [note-id] [tag-id]",
	Short: "Remove a tag from a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		n, err := v.svc.UntagNote(context.Background(), args[0], args[1])
		if err != nil {
			return recordError("Failed to untag note", "note", args[0], err)
		}
		printer.Success("Removed tag %s from %s\n", args[1], n.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.AddCommand(tagAddCmd, tagListCmd, tagAttachCmd, tagDetachCmd)
	tagListCmd.Flags().BoolVar(&tagJSON, "json", false, "Output in JSON format")
}
