package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db           *sql.DB
	usrSvc       *user.Service
	classroomSvc *classroom.Service
	validate     *validator.Validate
	translator   ut.Translator
	out          io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME -email EMAIL -role admin|teacher|student - create a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  addcourse -code CODE -name NAME -teacher USERNAME|EMAIL - create a course")
	fmt.Fprintln(cli.out, "  addassignment -course ID -title TITLE -max-points POINTS - create an assignment")
	fmt.Fprintln(cli.out, "  submit -assignment ID -student USERNAME|EMAIL -content CONTENT - submit work for a student")
}

// readPassword prompts for a password on stdin without echoing it.
func (cli *commandLine) readPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "student", "One of admin, teacher or student. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	addCourseCmd := flag.NewFlagSet("addcourse", flag.ContinueOnError)
	addCourseCmd.SetOutput(cli.out)
	addCourseCode := addCourseCmd.String("code", "", "The course code, eg: MATH-101.")
	addCourseName := addCourseCmd.String("name", "", "The course name.")
	addCourseTeacher := addCourseCmd.String("teacher", "", "The teacher's username or email.")

	addAssignmentCmd := flag.NewFlagSet("addassignment", flag.ContinueOnError)
	addAssignmentCmd.SetOutput(cli.out)
	addAssignmentCourse := addAssignmentCmd.Int("course", 0, "The course ID.")
	addAssignmentTitle := addAssignmentCmd.String("title", "", "The assignment title.")
	addAssignmentPoints := addAssignmentCmd.Float64("max-points", 0, "The maximum grade.")

	submitCmd := flag.NewFlagSet("submit", flag.ContinueOnError)
	submitCmd.SetOutput(cli.out)
	submitAssignment := submitCmd.Int("assignment", 0, "The assignment ID.")
	submitStudent := submitCmd.String("student", "", "The student's username or email.")
	submitContent := submitCmd.String("content", "", "The submitted work.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "addcourse":
		if err := addCourseCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addCourseCode == "" || *addCourseName == "" || *addCourseTeacher == "" {
			addCourseCmd.Usage()
			return errHelp
		}
		return cli.addCourse(*addCourseCode, *addCourseName, *addCourseTeacher)

	case "addassignment":
		if err := addAssignmentCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addAssignmentCourse == 0 || *addAssignmentTitle == "" {
			addAssignmentCmd.Usage()
			return errHelp
		}
		return cli.addAssignment(*addAssignmentCourse, *addAssignmentTitle, *addAssignmentPoints)

	case "submit":
		if err := submitCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *submitAssignment == 0 || *submitStudent == "" {
			submitCmd.Usage()
			return errHelp
		}
		return cli.submit(*submitAssignment, *submitStudent, *submitContent)

	default:
		cli.printUsage()
		return errHelp
	}
}

// validationMessage flattens validation errors into "field: message" lines.
func (cli *commandLine) validationMessage(err error) (string, bool) {
	flds, ok := core.FieldErrors(err, cli.translator)
	if !ok {
		return "", false
	}
	names := make([]string, 0, len(flds))
	for name := range flds {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, name+": "+flds[name])
	}
	return strings.Join(msgs, "\n"), true
}
