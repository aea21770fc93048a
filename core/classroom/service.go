package classroom

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("permission denied")

	// ErrDuplicateGrade is returned by Repository.UpdateSubmissionGrade, along with the stored submission,
	// when the stored grade was applied with the same idempotency key.
	ErrDuplicateGrade = errors.New("grade already applied")
)

const gradePublishedTmpl = "grade_published"

type (
	Repository interface {
		CreateCourse(ctx context.Context, course Course) (Course, error)
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		CreateNotification(ctx context.Context, notif Notification) (Notification, error)

		GetCourse(ctx context.Context, id int) (Course, error)
		QueryCourses(ctx context.Context, teacherID int) ([]Course, error)
		GetAssignment(ctx context.Context, id int) (Assignment, error)
		QueryAssignments(ctx context.Context, teacherID int) ([]Assignment, error)
		GetSubmission(ctx context.Context, id int) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID int) ([]Submission, error)
		QueryTeacherSubmissions(ctx context.Context, teacherID int) ([]Submission, error)

		// UpdateSubmissionGrade overwrites grade, feedback, status, graded_at and idempotency_key,
		// unless the stored idempotency key equals the non-empty key of sub (see ErrDuplicateGrade).
		UpdateSubmissionGrade(ctx context.Context, sub Submission) (Submission, error)
		CountUnreadNotifications(ctx context.Context, userID int) (int, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserGetter
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, users UserGetter, mailSvc core.EmailService, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Service{repo: repo, users: users, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) CreateCourse(ctx context.Context, course Course) (Course, error) {
	course.Name = core.CleanString(course.Name)
	course.Code = core.CleanString(course.Code)
	return svc.repo.CreateCourse(ctx, course)
}

func (svc *Service) CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error) {
	asg.Title = core.CleanString(asg.Title)
	if asg.MaxPoints <= 0 {
		return Assignment{}, core.NewValidationError(nil, core.FieldError{Field: "max_points", Error: "must be greater than 0"})
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

// Submit records a student's work on an assignment.
func (svc *Service) Submit(ctx context.Context, student user.User, assignmentID int, content string) (Submission, error) {
	if _, err := svc.repo.GetAssignment(ctx, assignmentID); err != nil {
		return Submission{}, errors.Wrap(err, "getting assignment")
	}
	return svc.repo.CreateSubmission(ctx, Submission{
		AssignmentID: assignmentID,
		StudentID:    student.ID,
		StudentName:  student.Name,
		Content:      content,
		SubmittedAt:  NowFunc().UTC(),
		Status:       StatusSubmitted,
	})
}

func (svc *Service) Courses(ctx context.Context, teacher user.User) ([]Course, error) {
	if !teacher.IsTeacher() {
		return nil, ErrForbidden
	}
	courses, err := svc.repo.QueryCourses(ctx, teacher.ID)
	return courses, errors.Wrap(err, "querying courses")
}

func (svc *Service) Assignments(ctx context.Context, teacher user.User) ([]Assignment, error) {
	if !teacher.IsTeacher() {
		return nil, ErrForbidden
	}
	asgs, err := svc.repo.QueryAssignments(ctx, teacher.ID)
	return asgs, errors.Wrap(err, "querying assignments")
}

// teacherAssignment returns the assignment if teacher teaches its course.
func (svc *Service) teacherAssignment(ctx context.Context, teacher user.User, id int) (Assignment, error) {
	asg, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "getting assignment")
	}
	course, err := svc.repo.GetCourse(ctx, asg.CourseID)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "getting course")
	}
	if course.TeacherID != teacher.ID {
		return Assignment{}, ErrForbidden
	}
	return asg, nil
}

func (svc *Service) AssignmentDetails(ctx context.Context, teacher user.User, id int) (AssignmentDetails, error) {
	asg, err := svc.teacherAssignment(ctx, teacher, id)
	if err != nil {
		return AssignmentDetails{}, err
	}
	subs, err := svc.repo.QuerySubmissions(ctx, id)
	if err != nil {
		return AssignmentDetails{}, errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []Submission{}
	}
	return AssignmentDetails{Assignment: asg, Submissions: subs}, nil
}

// Submission returns a submission to its author or to the teacher of its course.
func (svc *Service) Submission(ctx context.Context, usr user.User, id int) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, errors.Wrap(err, "getting submission")
	}
	if sub.StudentID == usr.ID {
		return sub, nil
	}
	if _, err := svc.teacherAssignment(ctx, usr, sub.AssignmentID); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (svc *Service) DashboardStats(ctx context.Context, teacher user.User) (DashboardStats, error) {
	var stats DashboardStats

	courses, err := svc.Courses(ctx, teacher)
	if err != nil {
		return stats, err
	}
	stats.CourseCount = len(courses)
	for _, c := range courses {
		stats.StudentCount += c.StudentCount
	}

	asgs, err := svc.Assignments(ctx, teacher)
	if err != nil {
		return stats, err
	}
	stats.AssignmentCount = len(asgs)

	subs, err := svc.repo.QueryTeacherSubmissions(ctx, teacher.ID)
	if err != nil {
		return stats, errors.Wrap(err, "querying submissions")
	}
	var total float64
	for _, s := range subs {
		if s.IsGraded() && s.Grade != nil {
			stats.GradedCount++
			total += *s.Grade
		} else {
			stats.PendingGrading++
		}
	}
	if stats.GradedCount > 0 {
		avg := total / float64(stats.GradedCount)
		stats.AverageGrade = &avg
	}
	return stats, nil
}

// GradeSubmission overwrites the grade and feedback of a submission.
// Only the teacher of the submission's course may grade it.
// Replaying a request with the idempotency key of the last applied grade returns the stored submission untouched.
// Publishing a grade for the first time notifies the student.
func (svc *Service) GradeSubmission(ctx context.Context, teacher user.User, id int, in GradeInput) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, errors.Wrap(err, "getting submission")
	}
	asg, err := svc.teacherAssignment(ctx, teacher, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}

	if in.IdempotencyKey != "" && in.IdempotencyKey == sub.IdempotencyKey {
		return sub, nil
	}
	if in.Grade == nil {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "grade", Error: "this field is required"})
	}
	if *in.Grade > asg.MaxPoints {
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "grade",
			Error: fmt.Sprintf("grade cannot exceed %g points", asg.MaxPoints),
		})
	}

	firstPublish := !sub.IsGraded()
	now := NowFunc().UTC()
	grade := *in.Grade
	sub.Grade = &grade
	sub.Feedback = in.Feedback
	sub.Status = StatusGraded
	sub.GradedAt = &now
	sub.IdempotencyKey = in.IdempotencyKey

	sub, err = svc.repo.UpdateSubmissionGrade(ctx, sub)
	if errors.Cause(err) == ErrDuplicateGrade {
		// a concurrent replay got there first
		return sub, nil
	}
	if err != nil {
		return Submission{}, errors.Wrap(err, "updating submission grade")
	}

	if firstPublish {
		svc.notifyGradePublished(ctx, asg, sub)
	}
	return sub, nil
}

// notifyGradePublished failures do not undo the grade; they are logged.
func (svc *Service) notifyGradePublished(ctx context.Context, asg Assignment, sub Submission) {
	_, err := svc.repo.CreateNotification(ctx, Notification{
		UserID:    sub.StudentID,
		Message:   fmt.Sprintf("Your submission for %q has been graded.", asg.Title),
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		svc.logger.Error("creating grade notification", errors.Wrap(err, "creating notification"))
	}

	if svc.mailSvc == nil || svc.users == nil {
		return
	}
	student, err := svc.users.GetByID(ctx, sub.StudentID)
	if err != nil {
		svc.logger.Error("finding graded student", errors.Wrap(err, "getting user by ID"))
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      fmt.Sprintf("Graded: %s", asg.Title),
		TemplateName: gradePublishedTmpl,
		TemplateData: map[string]interface{}{
			"StudentName":     student.Name,
			"AssignmentID":    asg.ID,
			"AssignmentTitle": asg.Title,
			"Grade":           *sub.Grade,
			"MaxPoints":       asg.MaxPoints,
			"Feedback":        sub.Feedback,
		},
	})
}

func (svc *Service) UnreadNotificationCount(ctx context.Context, userID int) (int, error) {
	n, err := svc.repo.CountUnreadNotifications(ctx, userID)
	return n, errors.Wrap(err, "counting unread notifications")
}
