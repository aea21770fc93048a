package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo-portal/core/portal"
)

func gradeCmd(a *app) *cobra.Command {
	var (
		grade        float64
		feedback     string
		assignmentID int
		retries      int
	)

	c := &cobra.Command{
		Use:   "grade SUBMISSION_ID",
		Short: "Grade a submission",
		Long: `Grade a submission. The new grade is shown at once and saved.
When saving fails the grade the server holds is shown again; network failures are retried
with the same idempotency key, so a grade is never applied twice.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			subID, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Errorf("invalid submission ID %q", args[0])
			}
			if assignmentID == 0 {
				sub, err := a.svc.Submission(ctx, subID)
				if err != nil {
					return err
				}
				assignmentID = sub.AssignmentID
			}

			session := portal.NewGradingSession(a.svc, assignmentID, a.notifier)
			if _, err = session.Open(ctx); err != nil {
				return err
			}

			err = session.SubmitGrade(ctx, subID, grade, feedback)
			for i := 0; err != nil && i < retries && portal.Classify(err) == portal.KindNetwork; i++ {
				err = session.Retry(ctx, subID)
			}
			if shown, ok := session.Grade(subID); ok {
				fmt.Fprintf(out, "Submission %d: %s\n", subID, formatGrade(shown.Grade, shown.Status))
			}
			return err
		},
	}
	c.Flags().Float64VarP(&grade, "grade", "g", 0, "The grade")
	c.Flags().StringVarP(&feedback, "feedback", "f", "", "Feedback to the student")
	c.Flags().IntVarP(&assignmentID, "assignment", "a", 0, "The assignment of the submission; looked up when omitted")
	c.Flags().IntVar(&retries, "retries", 1, "How many times a save that failed on the network is retried")
	_ = c.MarkFlagRequired("grade")
	return c
}

func formatGrade(grade *float64, status string) string {
	if grade == nil {
		return status
	}
	return fmt.Sprintf("%g (%s)", *grade, status)
}
