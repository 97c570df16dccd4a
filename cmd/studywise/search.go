package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/studywise/internal/printer"
	"github.com/aretw0/studywise/pkg/study"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Fuzzy-search course names and note titles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		defer v.Close()

		results, err := v.svc.Search(context.Background(), strings.Join(args, " "), searchLimit)
		if err != nil {
			return fail("Search failed", err)
		}
		if searchJSON {
			return printJSON(results)
		}
		if len(results) == 0 {
			printer.Info("No matches.\n")
			return nil
		}
		for _, r := range results {
			printer.Faint("%-6s %s  ", r.Kind, r.ID)
			printer.Info("%s\n", highlightMatches(r))
		}
		return nil
	},
}

// highlightMatches colors the matched characters of a result title.
func highlightMatches(r study.SearchResult) string {
	matched := make(map[int]bool, len(r.Matched))
	for _, i := range r.Matched {
		matched[i] = true
	}
	var b strings.Builder
	for i, ch := range r.Title {
		if matched[i] {
			b.WriteString(printer.Highlight(string(ch)))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results (0 for all)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
}
