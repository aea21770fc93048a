package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-portal/core/classroom"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateCourse(_ context.Context, course classroom.Course) (classroom.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	course.ID = repo.db.nextPK()
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *classroomRepository) CreateAssignment(_ context.Context, asg classroom.Assignment) (classroom.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[asg.CourseID]; !ok {
		return classroom.Assignment{}, classroom.ErrNotFound
	}
	asg.ID = repo.db.nextPK()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *classroomRepository) CreateSubmission(_ context.Context, sub classroom.Submission) (classroom.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sub.ID = repo.db.nextPK()
	repo.db.submissions[sub.ID] = &sub
	return repo.withStudent(sub), nil
}

func (repo *classroomRepository) CreateNotification(_ context.Context, notif classroom.Notification) (classroom.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	notif.ID = repo.db.nextPK()
	repo.db.notifications[notif.ID] = &notif
	return notif, nil
}

func (repo *classroomRepository) GetCourse(_ context.Context, id int) (classroom.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return classroom.Course{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryCourses(_ context.Context, teacherID int) ([]classroom.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]classroom.Course, 0)
	for _, c := range repo.db.courses {
		if c.TeacherID == teacherID {
			courses = append(courses, *c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *classroomRepository) GetAssignment(_ context.Context, id int) (classroom.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return classroom.Assignment{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryAssignments(_ context.Context, teacherID int) ([]classroom.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	asgs := make([]classroom.Assignment, 0)
	for _, a := range repo.db.assignments {
		if repo.teaches(teacherID, a.CourseID) {
			asgs = append(asgs, *a)
		}
	}
	sort.Slice(asgs, func(i, j int) bool { return asgs[i].ID < asgs[j].ID })
	return asgs, nil
}

func (repo *classroomRepository) GetSubmission(_ context.Context, id int) (classroom.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return repo.withStudent(*s), nil
	}
	return classroom.Submission{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QuerySubmissions(_ context.Context, assignmentID int) ([]classroom.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.filterSubmissions(func(s *classroom.Submission) bool {
		return s.AssignmentID == assignmentID
	}), nil
}

func (repo *classroomRepository) QueryTeacherSubmissions(_ context.Context, teacherID int) ([]classroom.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.filterSubmissions(func(s *classroom.Submission) bool {
		a, ok := repo.db.assignments[s.AssignmentID]
		return ok && repo.teaches(teacherID, a.CourseID)
	}), nil
}

func (repo *classroomRepository) UpdateSubmissionGrade(_ context.Context, sub classroom.Submission) (classroom.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.submissions[sub.ID]
	if !ok {
		return classroom.Submission{}, classroom.ErrNotFound
	}
	if sub.IdempotencyKey != "" && orig.IdempotencyKey == sub.IdempotencyKey {
		return repo.withStudent(*orig), classroom.ErrDuplicateGrade
	}
	orig.Grade = sub.Grade
	orig.Feedback = sub.Feedback
	orig.Status = sub.Status
	orig.GradedAt = sub.GradedAt
	orig.IdempotencyKey = sub.IdempotencyKey
	return repo.withStudent(*orig), nil
}

func (repo *classroomRepository) CountUnreadNotifications(_ context.Context, userID int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, notif := range repo.db.notifications {
		if notif.UserID == userID && !notif.Read {
			n++
		}
	}
	return n, nil
}

// helpers below must be called with mu held

func (repo *classroomRepository) teaches(teacherID, courseID int) bool {
	c, ok := repo.db.courses[courseID]
	return ok && c.TeacherID == teacherID
}

func (repo *classroomRepository) withStudent(sub classroom.Submission) classroom.Submission {
	if usr, ok := repo.db.users[sub.StudentID]; ok {
		sub.StudentName = usr.Name
	}
	return sub
}

func (repo *classroomRepository) filterSubmissions(keep func(*classroom.Submission) bool) []classroom.Submission {
	subs := make([]classroom.Submission, 0)
	for _, s := range repo.db.submissions {
		if keep(s) {
			subs = append(subs, repo.withStudent(*s))
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}
