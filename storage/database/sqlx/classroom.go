package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/classroom"
)

const (
	courseColumns     = `id, name, code, teacher_id, student_count`
	assignmentColumns = `a.id, a.course_id, a.title, a.max_points, a.due_at`
	submissionSelect  = `
		SELECT s.id, s.assignment_id, s.student_id, COALESCE(u.name, '') AS student_name, s.content, s.submitted_at,
			s.status, s.grade, s.feedback, s.graded_at, s.idempotency_key
		FROM submission s LEFT JOIN "user" u ON u.id = s.student_id`
)

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *sqlx.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func notFound(err error, doing string) error {
	if err == sql.ErrNoRows {
		return classroom.ErrNotFound
	}
	return errors.Wrap(err, doing)
}

func (repo *classroomRepository) CreateCourse(ctx context.Context, course classroom.Course) (classroom.Course, error) {
	err := repo.db.QueryRowxContext(ctx,
		`INSERT INTO course (name, code, teacher_id, student_count) VALUES ($1, $2, $3, $4) RETURNING id`,
		course.Name, course.Code, course.TeacherID, course.StudentCount,
	).Scan(&course.ID)
	if err != nil {
		return classroom.Course{}, errors.Wrap(err, "inserting course")
	}
	return course, nil
}

func (repo *classroomRepository) CreateAssignment(ctx context.Context, asg classroom.Assignment) (classroom.Assignment, error) {
	err := repo.db.QueryRowxContext(ctx,
		`INSERT INTO assignment (course_id, title, max_points, due_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		asg.CourseID, asg.Title, asg.MaxPoints, asg.DueAt,
	).Scan(&asg.ID)
	if err != nil {
		return classroom.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *classroomRepository) CreateSubmission(ctx context.Context, sub classroom.Submission) (classroom.Submission, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO submission (assignment_id, student_id, content, submitted_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		sub.AssignmentID, sub.StudentID, sub.Content, sub.SubmittedAt, sub.Status,
	).Scan(&sub.ID)
	if err != nil {
		return classroom.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return repo.GetSubmission(ctx, sub.ID)
}

func (repo *classroomRepository) CreateNotification(ctx context.Context, notif classroom.Notification) (classroom.Notification, error) {
	err := repo.db.QueryRowxContext(ctx,
		`INSERT INTO notification (user_id, message, read, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		notif.UserID, notif.Message, notif.Read, notif.CreatedAt,
	).Scan(&notif.ID)
	if err != nil {
		return classroom.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return notif, nil
}

func (repo *classroomRepository) GetCourse(ctx context.Context, id int) (classroom.Course, error) {
	var c classroom.Course
	if err := repo.db.GetContext(ctx, &c, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		return classroom.Course{}, notFound(err, "selecting course")
	}
	return c, nil
}

func (repo *classroomRepository) QueryCourses(ctx context.Context, teacherID int) ([]classroom.Course, error) {
	courses := make([]classroom.Course, 0)
	err := repo.db.SelectContext(ctx, &courses,
		`SELECT `+courseColumns+` FROM course WHERE teacher_id = $1 ORDER BY id`, teacherID)
	return courses, errors.Wrap(err, "selecting courses")
}

func (repo *classroomRepository) GetAssignment(ctx context.Context, id int) (classroom.Assignment, error) {
	var a classroom.Assignment
	if err := repo.db.GetContext(ctx, &a, `SELECT `+assignmentColumns+` FROM assignment a WHERE a.id = $1`, id); err != nil {
		return classroom.Assignment{}, notFound(err, "selecting assignment")
	}
	return a, nil
}

func (repo *classroomRepository) QueryAssignments(ctx context.Context, teacherID int) ([]classroom.Assignment, error) {
	asgs := make([]classroom.Assignment, 0)
	err := repo.db.SelectContext(ctx, &asgs, `
		SELECT `+assignmentColumns+` FROM assignment a JOIN course c ON c.id = a.course_id
		WHERE c.teacher_id = $1
		ORDER BY a.id`,
		teacherID,
	)
	return asgs, errors.Wrap(err, "selecting assignments")
}

func (repo *classroomRepository) GetSubmission(ctx context.Context, id int) (classroom.Submission, error) {
	var s classroom.Submission
	if err := repo.db.GetContext(ctx, &s, submissionSelect+` WHERE s.id = $1`, id); err != nil {
		return classroom.Submission{}, notFound(err, "selecting submission")
	}
	return s, nil
}

func (repo *classroomRepository) QuerySubmissions(ctx context.Context, assignmentID int) ([]classroom.Submission, error) {
	subs := make([]classroom.Submission, 0)
	err := repo.db.SelectContext(ctx, &subs, submissionSelect+` WHERE s.assignment_id = $1 ORDER BY s.id`, assignmentID)
	return subs, errors.Wrap(err, "selecting submissions")
}

func (repo *classroomRepository) QueryTeacherSubmissions(ctx context.Context, teacherID int) ([]classroom.Submission, error) {
	subs := make([]classroom.Submission, 0)
	err := repo.db.SelectContext(ctx, &subs, submissionSelect+`
		JOIN assignment a ON a.id = s.assignment_id
		JOIN course c ON c.id = a.course_id
		WHERE c.teacher_id = $1
		ORDER BY s.id`,
		teacherID,
	)
	return subs, errors.Wrap(err, "selecting teacher submissions")
}

func (repo *classroomRepository) UpdateSubmissionGrade(ctx context.Context, sub classroom.Submission) (classroom.Submission, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE submission SET grade = $2, feedback = $3, status = $4, graded_at = $5, idempotency_key = $6
		WHERE id = $1 AND ($6 = '' OR idempotency_key IS DISTINCT FROM $6)`,
		sub.ID, sub.Grade, sub.Feedback, sub.Status, sub.GradedAt, sub.IdempotencyKey,
	)
	if err != nil {
		return classroom.Submission{}, errors.Wrap(err, "updating submission grade")
	}
	if n, err := res.RowsAffected(); err != nil {
		return classroom.Submission{}, errors.Wrap(err, "updating submission grade")
	} else if n == 0 {
		stored, err := repo.GetSubmission(ctx, sub.ID)
		if err != nil {
			return classroom.Submission{}, err
		}
		return stored, classroom.ErrDuplicateGrade
	}
	return repo.GetSubmission(ctx, sub.ID)
}

func (repo *classroomRepository) CountUnreadNotifications(ctx context.Context, userID int) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT read`, userID)
	return n, errors.Wrap(err, "counting unread notifications")
}
