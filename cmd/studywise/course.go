package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/core"
)

var courseJSON bool

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage courses",
}

var courseAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a course",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		c, err := v.svc.AddCourse(context.Background(), strings.Join(args, " "))
		if err != nil {
			return fail("Failed to add course", err)
		}
		printer.Success("Added course %s ", c.Name)
		printer.Faint("(%s)\n", c.ID)
		return nil
	},
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		courses, err := v.svc.ListCourses(context.Background())
		if err != nil {
			return fail("Failed to list courses", err)
		}
		if courseJSON {
			if courses == nil {
				courses = []core.Course{}
			}
			return printJSON(courses)
		}
		if len(courses) == 0 {
			printer.Info("No courses yet. Add one with 'studywise course add <name>'.\n")
			return nil
		}
		for _, c := range courses {
			printer.Faint("%s  ", c.ID)
			printer.Info("%s\n", c.Name)
		}
		return nil
	},
}

var courseRenameCmd = &cobra.Command{
	Use:   "rename [id] [name]",
	Short: "Rename a course",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		c, err := v.svc.RenameCourse(context.Background(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return recordError("Failed to rename course", "course", args[0], err)
		}
		printer.Success("Renamed course to %s\n", c.Name)
		return nil
	},
}

var courseDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a course and all of its notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		removed, err := v.svc.DeleteCourse(context.Background(), args[0])
		if err != nil {
			return recordError("Failed to delete course", "course", args[0], err)
		}
		printer.Success("Deleted course %s and %d notes\n", args[0], removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(courseCmd)
	courseCmd.AddCommand(courseAddCmd, courseListCmd, courseRenameCmd, courseDeleteCmd)
	courseListCmd.Flags().BoolVar(&courseJSON, "json", false, "Output in JSON format")
}
