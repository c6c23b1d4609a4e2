package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Create and link tags",
	}
	cmd.AddCommand(newTagAddCmd(a), newTagLinkCmd(a))
	return cmd
}

func newTagAddCmd(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "add NAME...",
		Short: "Create a tag; the words of NAME are joined with spaces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := a.tags.CreateTag(cmd.Context(), user, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), tag)
			}
			fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag.ID, tag.Name)
			return nil
		},
	}
	addUserFlag(cmd, &user)
	return storeCommand(cmd)
}

func newTagLinkCmd(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "link PARENT CHILD",
		Short: "Make CHILD a child of PARENT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tags.LinkTags(cmd.Context(), user, args[0], args[1]); err != nil {
				return err
			}
			fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], args[1])
			return nil
		},
	}
	addUserFlag(cmd, &user)
	return storeCommand(cmd)
}
