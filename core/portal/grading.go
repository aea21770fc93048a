package portal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/mutation"
)

var (
	defaultIdempotencyKey = uuid.NewString
	newIdempotencyKey     = defaultIdempotencyKey // mockable
)

// GradingSession grades the submissions of one assignment optimistically.
// Each submission has its own mutation.Controller, so different submissions may be graded concurrently.
type GradingSession struct {
	svc          *Service
	assignmentID int
	notifier     core.Notifier
	logger       core.Logger

	mu          sync.Mutex
	controllers map[int]*mutation.Controller[classroom.Grade]
	keys        map[int]string // idempotency key of the latest proposal, per submission
}

func NewGradingSession(svc *Service, assignmentID int, notifier core.Notifier) *GradingSession {
	if notifier == nil {
		notifier = core.NopNotifier()
	}
	return &GradingSession{
		svc:          svc,
		assignmentID: assignmentID,
		notifier:     notifier,
		logger:       svc.logger,
		controllers:  make(map[int]*mutation.Controller[classroom.Grade]),
		keys:         make(map[int]string),
	}
}

func (s *GradingSession) AssignmentID() int { return s.assignmentID }

// Open loads the assignment and its submissions, refreshing the visible grade of idle submissions.
func (s *GradingSession) Open(ctx context.Context) (classroom.AssignmentDetails, error) {
	details, err := s.svc.AssignmentDetails(ctx, s.assignmentID)
	if err != nil {
		return classroom.AssignmentDetails{}, errors.Wrap(err, "loading assignment details")
	}
	for _, sub := range details.Submissions {
		s.controller(sub.ID, classroom.GradeOf(sub)).Load(classroom.GradeOf(sub))
	}
	return details, nil
}

func (s *GradingSession) controller(submissionID int, initial classroom.Grade) *mutation.Controller[classroom.Grade] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctrl, ok := s.controllers[submissionID]; ok {
		return ctrl
	}
	ctrl := mutation.New(initial, mutation.Config[classroom.Grade]{
		Target: "grade",
		Commit: func(ctx context.Context, proposed classroom.Grade) error {
			_, err := s.svc.GradeSubmission(ctx, submissionID, classroom.GradeInput{
				Grade:          proposed.Grade,
				Feedback:       proposed.Feedback,
				IdempotencyKey: s.key(submissionID),
			})
			return err
		},
		Invalidate: func() { s.svc.InvalidateGrade(s.assignmentID, submissionID) },
		Refetch: func(ctx context.Context) (classroom.Grade, error) {
			sub, err := s.svc.Submission(ctx, submissionID)
			return classroom.GradeOf(sub), err
		},
		Notifier:       s.notifier,
		SuccessMessage: "Grade saved",
		Describe:       Message,
		Logger:         s.logger,
	})
	s.controllers[submissionID] = ctrl
	return ctrl
}

func (s *GradingSession) key(submissionID int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[submissionID]
}

// Grade returns the grade currently shown for a submission.
func (s *GradingSession) Grade(submissionID int) (classroom.Grade, bool) {
	s.mu.Lock()
	ctrl, ok := s.controllers[submissionID]
	s.mu.Unlock()
	if !ok {
		return classroom.Grade{}, false
	}
	return ctrl.Value(), true
}

// Busy reports whether a grade of the submission is being saved.
func (s *GradingSession) Busy(submissionID int) bool {
	s.mu.Lock()
	ctrl, ok := s.controllers[submissionID]
	s.mu.Unlock()
	return ok && ctrl.Busy()
}

// SubmitGrade shows the new grade at once and saves it.
// On failure the authoritative grade is shown again and the proposal is kept for Retry.
func (s *GradingSession) SubmitGrade(ctx context.Context, submissionID int, grade float64, feedback string) error {
	ctrl, err := s.ensureController(ctx, submissionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if ctrl.Busy() {
		s.mu.Unlock()
		return mutation.ErrInFlight
	}
	s.keys[submissionID] = newIdempotencyKey()
	s.mu.Unlock()

	return ctrl.Submit(ctx, classroom.Grade{
		Grade:    &grade,
		Feedback: feedback,
		Status:   classroom.StatusGraded,
	})
}

// Retry resends the last failed proposal with its original idempotency key.
func (s *GradingSession) Retry(ctx context.Context, submissionID int) error {
	s.mu.Lock()
	ctrl, ok := s.controllers[submissionID]
	s.mu.Unlock()
	if !ok {
		return mutation.ErrNoDraft
	}
	return ctrl.Retry(ctx)
}

// Draft returns the proposal of the last failed save of a submission.
func (s *GradingSession) Draft(submissionID int) (classroom.Grade, bool) {
	s.mu.Lock()
	ctrl, ok := s.controllers[submissionID]
	s.mu.Unlock()
	if !ok {
		return classroom.Grade{}, false
	}
	return ctrl.Draft()
}

func (s *GradingSession) ensureController(ctx context.Context, submissionID int) (*mutation.Controller[classroom.Grade], error) {
	s.mu.Lock()
	ctrl, ok := s.controllers[submissionID]
	s.mu.Unlock()
	if ok {
		return ctrl, nil
	}

	sub, err := s.svc.Submission(ctx, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "loading submission")
	}
	if sub.AssignmentID != s.assignmentID {
		return nil, errors.Errorf("submission %d does not belong to assignment %d", submissionID, s.assignmentID)
	}
	return s.controller(submissionID, classroom.GradeOf(sub)), nil
}
