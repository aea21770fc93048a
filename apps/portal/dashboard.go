package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo-portal/core/portal"
)

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the teacher dashboard: stats, courses and assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := portal.NewDashboard(a.svc)
			if err := d.Refresh(cmd.Context()); err != nil {
				return err
			}
			printDashboard(cmd.OutOrStdout(), d)

			if failed := d.Failed(); len(failed) == len(portal.Panels) {
				return errors.Wrap(d.Stats().Err, "loading dashboard")
			}
			return nil
		},
	}
}

// describe returns the user facing text of err: API and network failures get a friendly message.
func describe(err error) string {
	if portal.Classify(err) == portal.KindGeneric {
		var apiErr *portal.APIError
		if !errors.As(err, &apiErr) {
			return err.Error()
		}
	}
	return portal.Message(err)
}

func printPanelError(w io.Writer, failed bool, stale bool, err error) bool {
	if !failed {
		return false
	}
	fmt.Fprintf(w, "  ! %s\n", describe(err))
	return !stale
}

func printDashboard(out io.Writer, d *portal.Dashboard) {
	stats := d.Stats()
	fmt.Fprintln(out, "Stats")
	if !printPanelError(out, stats.Failed(), stats.Stale, stats.Err) {
		s := stats.Data
		fmt.Fprintf(out, "  courses: %d  students: %d  assignments: %d\n", s.CourseCount, s.StudentCount, s.AssignmentCount)
		fmt.Fprintf(out, "  graded: %d  pending: %d", s.GradedCount, s.PendingGrading)
		if s.AverageGrade != nil {
			fmt.Fprintf(out, "  average: %.1f", *s.AverageGrade)
		}
		fmt.Fprintln(out)
	}

	courses := d.Courses()
	fmt.Fprintln(out, "Courses")
	if !printPanelError(out, courses.Failed(), courses.Stale, courses.Err) {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, c := range courses.Data {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%d students\n", c.ID, c.Code, c.Name, c.StudentCount)
		}
		_ = tw.Flush()
	}

	asgs := d.Assignments()
	fmt.Fprintln(out, "Assignments")
	if !printPanelError(out, asgs.Failed(), asgs.Stale, asgs.Err) {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, asg := range asgs.Data {
			fmt.Fprintf(tw, "  %d\t%s\t/%g\n", asg.ID, asg.Title, asg.MaxPoints)
		}
		_ = tw.Flush()
	}
}
