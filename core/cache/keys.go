package cache

import "fmt"

// Cache keys are colon-delimited so that a trailing colon scopes a pattern to one entity.
const (
	KeyTeacherDashboardStats = "teacher:dashboard:stats"
	KeyTeacherCourses        = "teacher:courses"
	KeyTeacherAssignments    = "teacher:assignments"
	KeyNotificationCount     = "notifications:unread"

	PrefixAssignment = "assignment:"
	PrefixSubmission = "submission:"
)

func AssignmentDetailsKey(id int) string {
	return fmt.Sprintf("%s%d:details", PrefixAssignment, id)
}

// AssignmentPattern matches every key of one assignment, and no other assignment's.
func AssignmentPattern(id int) string {
	return fmt.Sprintf("%s%d:", PrefixAssignment, id)
}

func SubmissionKey(id int) string {
	return fmt.Sprintf("%s%d", PrefixSubmission, id)
}
