package portal

import (
	"context"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/cache"
	"github.com/trezcool/masomo-portal/core/classroom"
)

// Service reads the LMS API through the response cache.
type Service struct {
	backend Backend
	cache   *cache.Cache
	logger  core.Logger
}

func NewService(backend Backend, c *cache.Cache, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Service{backend: backend, cache: c, logger: logger}
}

func (svc *Service) Cache() *cache.Cache { return svc.cache }

func (svc *Service) DashboardStats(ctx context.Context) (classroom.DashboardStats, error) {
	return cache.Fetch(ctx, svc.cache, cache.KeyTeacherDashboardStats, svc.backend.DashboardStats)
}

func (svc *Service) Courses(ctx context.Context) ([]classroom.Course, error) {
	return cache.Fetch(ctx, svc.cache, cache.KeyTeacherCourses, svc.backend.Courses)
}

func (svc *Service) Assignments(ctx context.Context) ([]classroom.Assignment, error) {
	return cache.Fetch(ctx, svc.cache, cache.KeyTeacherAssignments, svc.backend.Assignments)
}

func (svc *Service) AssignmentDetails(ctx context.Context, id int) (classroom.AssignmentDetails, error) {
	return cache.Fetch(ctx, svc.cache, cache.AssignmentDetailsKey(id), func(ctx context.Context) (classroom.AssignmentDetails, error) {
		return svc.backend.AssignmentDetails(ctx, id)
	})
}

func (svc *Service) Submission(ctx context.Context, id int) (classroom.Submission, error) {
	return cache.Fetch(ctx, svc.cache, cache.SubmissionKey(id), func(ctx context.Context) (classroom.Submission, error) {
		return svc.backend.Submission(ctx, id)
	})
}

func (svc *Service) UnreadNotificationCount(ctx context.Context) (int, error) {
	return cache.Fetch(ctx, svc.cache, cache.KeyNotificationCount, svc.backend.UnreadNotificationCount)
}

// RefreshUnreadNotificationCount bypasses the cached count.
func (svc *Service) RefreshUnreadNotificationCount(ctx context.Context) (int, error) {
	svc.cache.Invalidate(cache.KeyNotificationCount)
	return svc.UnreadNotificationCount(ctx)
}

// GradeSubmission is never cached; see InvalidateGrade.
func (svc *Service) GradeSubmission(ctx context.Context, id int, in classroom.GradeInput) (classroom.Submission, error) {
	return svc.backend.GradeSubmission(ctx, id, in)
}

// InvalidateGrade drops every cached read a grade change can make stale:
// the submission, everything under its assignment and the teacher aggregates.
func (svc *Service) InvalidateGrade(assignmentID, submissionID int) {
	svc.cache.Invalidate(cache.SubmissionKey(submissionID))
	svc.cache.InvalidatePattern(cache.AssignmentPattern(assignmentID))
	svc.cache.Invalidate(cache.KeyTeacherDashboardStats)
	svc.cache.Invalidate(cache.KeyTeacherAssignments)
}
