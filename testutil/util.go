// Package testutil holds fixtures shared by the tests of several packages.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
)

const Password = "Pa$$w0rd!"

// NewValidator returns a validator with every rule of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	return core.NewValidator(user.RegisterValidators)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Classroom is a small school: one teacher with a course, an assignment and two submissions,
// plus a second teacher who owns nothing of it.
type Classroom struct {
	Teacher      user.User
	OtherTeacher user.User
	Student      user.User
	Student2     user.User
	Admin        user.User

	Course      classroom.Course
	Assignment  classroom.Assignment
	Submission  classroom.Submission // by Student
	Submission2 classroom.Submission // by Student2
}

func SeedClassroom(t *testing.T, users user.Repository, repo classroom.Repository) Classroom {
	ctx := context.Background()
	var c Classroom
	c.Teacher = CreateUser(t, users, "Mwalimu Juma", "mwalimu", "juma@masomo.test", Password, []string{user.RoleTeacher}, true)
	c.OtherTeacher = CreateUser(t, users, "Mwalimu Neema", "neema_t", "neema@masomo.test", Password, []string{user.RoleTeacher}, true)
	c.Student = CreateUser(t, users, "Amani Kito", "amani_k", "amani@masomo.test", Password, []string{user.RoleStudent}, true)
	c.Student2 = CreateUser(t, users, "Baraka Moyo", "baraka_m", "baraka@masomo.test", Password, []string{user.RoleStudent}, true)
	c.Admin = CreateUser(t, users, "Admin", "admin_user", "admin@masomo.test", Password, []string{user.RoleAdmin}, true)

	var err error
	if c.Course, err = repo.CreateCourse(ctx, classroom.Course{
		Name: "Mathematics", Code: "MATH-101", TeacherID: c.Teacher.ID, StudentCount: 2,
	}); err != nil {
		t.Fatalf("SeedClassroom() failed: %v", err)
	}
	due := time.Date(2021, time.February, 1, 12, 0, 0, 0, time.UTC)
	if c.Assignment, err = repo.CreateAssignment(ctx, classroom.Assignment{
		CourseID: c.Course.ID, Title: "Fractions", MaxPoints: 20, DueAt: &due,
	}); err != nil {
		t.Fatalf("SeedClassroom() failed: %v", err)
	}
	submittedAt := time.Date(2021, time.January, 30, 8, 0, 0, 0, time.UTC)
	if c.Submission, err = repo.CreateSubmission(ctx, classroom.Submission{
		AssignmentID: c.Assignment.ID, StudentID: c.Student.ID, Content: "1/2 + 1/4 = 3/4",
		SubmittedAt: submittedAt, Status: classroom.StatusSubmitted,
	}); err != nil {
		t.Fatalf("SeedClassroom() failed: %v", err)
	}
	if c.Submission2, err = repo.CreateSubmission(ctx, classroom.Submission{
		AssignmentID: c.Assignment.ID, StudentID: c.Student2.ID, Content: "1/3 + 1/3 = 2/3",
		SubmittedAt: submittedAt, Status: classroom.StatusSubmitted,
	}); err != nil {
		t.Fatalf("SeedClassroom() failed: %v", err)
	}
	return c
}

func Float(f float64) *float64 { return &f }
