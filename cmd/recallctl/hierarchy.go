package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHierarchyCmd(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "hierarchy",
		Short: "Print a user's tag closure table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.tags.BuildTagHierarchy(cmd.Context(), user)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, h.Entries())
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fprintf(tw, "TAG\tNAME\tPARENTS\tCHILDREN\tDESCENDANTS\tALL\tDIRECT\n")
			for _, e := range h.Entries() {
				fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
					e.TagID, e.TagName, list(e.Parents), list(e.Children), list(e.Descendants),
					e.CountQuestionsAll, e.CountQuestionsTag)
			}
			return tw.Flush()
		},
	}
	addUserFlag(cmd, &user)
	return storeCommand(cmd)
}
