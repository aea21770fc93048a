// Package portal is the teacher portal client: cached reads of the LMS API, the dashboard view,
// optimistic grading and notification polling.
package portal

import (
	"context"

	"github.com/trezcool/masomo-portal/core/classroom"
)

// Backend is the LMS API as seen by the signed-in teacher.
type Backend interface {
	DashboardStats(ctx context.Context) (classroom.DashboardStats, error)
	Courses(ctx context.Context) ([]classroom.Course, error)
	Assignments(ctx context.Context) ([]classroom.Assignment, error)
	AssignmentDetails(ctx context.Context, id int) (classroom.AssignmentDetails, error)
	Submission(ctx context.Context, id int) (classroom.Submission, error)
	GradeSubmission(ctx context.Context, id int, in classroom.GradeInput) (classroom.Submission, error)
	UnreadNotificationCount(ctx context.Context) (int, error)
}
