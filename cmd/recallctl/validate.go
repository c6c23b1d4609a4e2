package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/listenupapp/recall-server/internal/service"
)

func newValidateCmd(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "validate TAG...",
		Short: "Check that every tag exists and belongs to the user",
		Long:  "Prints ok when every tag is usable. Otherwise prints the offending ids and exits 1.",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.tags.ValidateTagOwnership(cmd.Context(), user, args)

			var oerr *service.OwnershipError
			switch {
			case err == nil:
				fprintf(cmd.OutOrStdout(), "ok\n")
				return nil
			case errors.As(err, &oerr):
				if a.jsonOut {
					_ = printJSON(cmd.OutOrStdout(), map[string]any{
						"code":    oerr.Code(),
						"message": oerr.Error(),
						"details": oerr.Details(),
					})
				} else {
					fprintf(cmd.OutOrStdout(), "%s\n", oerr.Error())
				}
				return errSilent
			default:
				return err
			}
		},
	}
	addUserFlag(cmd, &user)
	return storeCommand(cmd)
}
