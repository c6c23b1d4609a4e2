package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/recall-server/internal/selection"
	"github.com/listenupapp/recall-server/internal/service"
)

func newNextCmd(a *app) *cobra.Command {
	var (
		user string
		mode string
		at   string
	)

	modes := make([]string, 0, len(selection.Modes()))
	for _, m := range selection.Modes() {
		modes = append(modes, m.String())
	}

	cmd := &cobra.Command{
		Use:   "next [TAG...]",
		Short: "Pick the question to show next",
		Long:  "Selects among the questions tagged with TAG or any descendant. Without tags every tag of the user is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t
			}

			res, err := a.questions.SelectNextQuestion(cmd.Context(), service.SelectRequest{
				UserID: user,
				TagIDs: args,
				Mode:   mode,
			}, now)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, res)
			}

			if res.Empty() {
				fprintf(out, "no question matched\n")
			} else {
				fprintf(out, "question:   %s (%s)\n", res.Question.ID, res.Bucket)
				fprintf(out, "body:       %s\n", res.Question.Body)
				if res.Schedule != nil {
					fprintf(out, "next show:  %s\n", res.Schedule.NextShowAt.Format(time.RFC3339))
				}
			}
			fprintf(out, "candidates: %d (%d overdue)\n", res.CandidateCount, res.OverdueCount)
			fprintf(out, "tags:       %s\n", strings.Join(res.MatchedTagNames, ", "))
			return nil
		},
	}
	addUserFlag(cmd, &user)
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Selection mode: "+strings.Join(modes, ", ")+" (default next)")
	cmd.Flags().StringVar(&at, "at", "", "Evaluate due dates at this RFC 3339 time instead of now")
	return storeCommand(cmd)
}
