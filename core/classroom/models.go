package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
)

// Submission statuses
const (
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

type (
	Course struct {
		ID           int    `json:"id" db:"id"`
		Name         string `json:"name" db:"name"`
		Code         string `json:"code" db:"code"`
		TeacherID    int    `json:"teacher_id" db:"teacher_id"`
		StudentCount int    `json:"student_count" db:"student_count"`
	}

	Assignment struct {
		ID        int        `json:"id" db:"id"`
		CourseID  int        `json:"course_id" db:"course_id"`
		Title     string     `json:"title" db:"title"`
		MaxPoints float64    `json:"max_points" db:"max_points"`
		DueAt     *time.Time `json:"due_at" db:"due_at"` // UTC
	}

	Submission struct {
		ID             int        `json:"id" db:"id"`
		AssignmentID   int        `json:"assignment_id" db:"assignment_id"`
		StudentID      int        `json:"student_id" db:"student_id"`
		StudentName    string     `json:"student_name" db:"student_name"`
		Content        string     `json:"content" db:"content"`
		SubmittedAt    time.Time  `json:"submitted_at" db:"submitted_at"` // UTC
		Status         string     `json:"status" db:"status"`
		Grade          *float64   `json:"grade" db:"grade"`
		Feedback       string     `json:"feedback" db:"feedback"`
		GradedAt       *time.Time `json:"graded_at" db:"graded_at"` // UTC
		IdempotencyKey string     `json:"-" db:"idempotency_key"`
	}

	AssignmentDetails struct {
		Assignment
		Submissions []Submission `json:"submissions"`
	}

	DashboardStats struct {
		CourseCount     int      `json:"course_count"`
		StudentCount    int      `json:"student_count"`
		AssignmentCount int      `json:"assignment_count"`
		PendingGrading  int      `json:"pending_grading"`
		GradedCount     int      `json:"graded_count"`
		AverageGrade    *float64 `json:"average_grade"`
	}

	Notification struct {
		ID        int       `json:"id" db:"id"`
		UserID    int       `json:"user_id" db:"user_id"`
		Message   string    `json:"message" db:"message"`
		Read      bool      `json:"read" db:"read"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	}

	UnreadCount struct {
		Count int `json:"count"`
	}

	// GradeInput is a full overwrite of a submission's grade and feedback.
	GradeInput struct {
		Grade          *float64 `json:"grade" validate:"required,min=0,max=100"`
		Feedback       string   `json:"feedback" validate:"max=2000"`
		IdempotencyKey string   `json:"-"`
	}

	// Grade is the part of a Submission a grading mutation changes.
	Grade struct {
		Grade    *float64 `json:"grade"`
		Feedback string   `json:"feedback"`
		Status   string   `json:"status"`
	}
)

func (s Submission) IsGraded() bool {
	return s.Status == StatusGraded
}

// GradeOf snapshots the gradable fields of s.
func GradeOf(s Submission) Grade {
	return Grade{Grade: s.Grade, Feedback: s.Feedback, Status: s.Status}
}

func (in *GradeInput) Validate(validate *validator.Validate) error {
	in.Feedback = core.CleanString(in.Feedback)
	return validate.Struct(in)
}

// ToGrade returns the state a submission is in once in is applied.
func (in GradeInput) ToGrade() Grade {
	return Grade{Grade: in.Grade, Feedback: in.Feedback, Status: StatusGraded}
}
