package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/classroom"
)

func (cli *commandLine) addCourse(code, name, teacherUname string) error {
	ctx := context.Background()
	teacher, err := cli.usrSvc.GetByUsernameOrEmail(ctx, teacherUname)
	if err != nil {
		return err
	}
	if !teacher.IsTeacher() {
		return errors.Errorf("%s is not a teacher", teacherUname)
	}

	course, err := cli.classroomSvc.CreateCourse(ctx, classroom.Course{Code: code, Name: name, TeacherID: teacher.ID})
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	fmt.Fprintf(cli.out, "course #%d created\n", course.ID)
	return nil
}

func (cli *commandLine) addAssignment(courseID int, title string, maxPoints float64) error {
	asg, err := cli.classroomSvc.CreateAssignment(context.Background(), classroom.Assignment{
		CourseID:  courseID,
		Title:     title,
		MaxPoints: maxPoints,
	})
	if err != nil {
		if msg, ok := cli.validationMessage(err); ok {
			return errors.New(msg)
		}
		return errors.Wrap(err, "creating assignment")
	}
	fmt.Fprintf(cli.out, "assignment #%d created\n", asg.ID)
	return nil
}

func (cli *commandLine) submit(assignmentID int, studentUname, content string) error {
	ctx := context.Background()
	student, err := cli.usrSvc.GetByUsernameOrEmail(ctx, studentUname)
	if err != nil {
		return err
	}

	sub, err := cli.classroomSvc.Submit(ctx, student, assignmentID, content)
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	fmt.Fprintf(cli.out, "submission #%d created\n", sub.ID)
	return nil
}
