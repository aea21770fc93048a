package portal

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core/cache"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/mutation"
	"github.com/trezcool/masomo-portal/services/notify"
)

var errInternal = &APIError{Status: http.StatusInternalServerError, Message: "Internal Server Error"}

// fakeBackend behaves like the LMS API for one teacher.
type fakeBackend struct {
	mu sync.Mutex

	calls map[string]int
	errs  map[string]error

	stats       classroom.DashboardStats
	courses     []classroom.Course
	assignments []classroom.Assignment
	submissions map[int]*classroom.Submission
	unread      int

	gradeErr     error
	dropResponse bool // apply the grade but answer with a network error
	applied      int
}

func newFakeBackend() *fakeBackend {
	grade := 12.0
	return &fakeBackend{
		calls:       make(map[string]int),
		errs:        make(map[string]error),
		stats:       classroom.DashboardStats{CourseCount: 1, AssignmentCount: 2, PendingGrading: 1},
		courses:     []classroom.Course{{ID: 1, Name: "Mathematics", TeacherID: 1}},
		assignments: []classroom.Assignment{{ID: 1, CourseID: 1, Title: "Fractions", MaxPoints: 20}, {ID: 10, CourseID: 1, Title: "Decimals", MaxPoints: 20}},
		submissions: map[int]*classroom.Submission{
			5: {ID: 5, AssignmentID: 1, StudentID: 3, Status: classroom.StatusSubmitted},
			6: {ID: 6, AssignmentID: 1, StudentID: 4, Status: classroom.StatusGraded, Grade: &grade},
		},
	}
}

func (b *fakeBackend) call(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
	return b.errs[name]
}

func (b *fakeBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBackend) fail(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[name] = err
}

func (b *fakeBackend) DashboardStats(context.Context) (classroom.DashboardStats, error) {
	if err := b.call("stats"); err != nil {
		return classroom.DashboardStats{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats, nil
}

func (b *fakeBackend) Courses(context.Context) ([]classroom.Course, error) {
	if err := b.call("courses"); err != nil {
		return nil, err
	}
	return b.courses, nil
}

func (b *fakeBackend) Assignments(context.Context) ([]classroom.Assignment, error) {
	if err := b.call("assignments"); err != nil {
		return nil, err
	}
	return b.assignments, nil
}

func (b *fakeBackend) AssignmentDetails(_ context.Context, id int) (classroom.AssignmentDetails, error) {
	if err := b.call(fmt.Sprintf("assignment:%d", id)); err != nil {
		return classroom.AssignmentDetails{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.assignments {
		if a.ID != id {
			continue
		}
		details := classroom.AssignmentDetails{Assignment: a}
		for _, sid := range []int{5, 6} {
			if s := b.submissions[sid]; s.AssignmentID == id {
				details.Submissions = append(details.Submissions, *s)
			}
		}
		return details, nil
	}
	return classroom.AssignmentDetails{}, &APIError{Status: http.StatusNotFound}
}

func (b *fakeBackend) Submission(_ context.Context, id int) (classroom.Submission, error) {
	if err := b.call(fmt.Sprintf("submission:%d", id)); err != nil {
		return classroom.Submission{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.submissions[id]; ok {
		return *s, nil
	}
	return classroom.Submission{}, &APIError{Status: http.StatusNotFound}
}

func (b *fakeBackend) GradeSubmission(_ context.Context, id int, in classroom.GradeInput) (classroom.Submission, error) {
	b.call("grade")
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.submissions[id]
	if !ok {
		return classroom.Submission{}, &APIError{Status: http.StatusNotFound}
	}
	if in.IdempotencyKey != "" && in.IdempotencyKey == s.IdempotencyKey {
		return *s, nil
	}
	if b.gradeErr != nil {
		return classroom.Submission{}, b.gradeErr
	}
	grade := *in.Grade
	s.Grade = &grade
	s.Feedback = in.Feedback
	s.Status = classroom.StatusGraded
	s.IdempotencyKey = in.IdempotencyKey
	b.applied++
	if b.dropResponse {
		return classroom.Submission{}, &NetworkError{Err: errors.New("connection reset by peer")}
	}
	return *s, nil
}

func (b *fakeBackend) UnreadNotificationCount(context.Context) (int, error) {
	if err := b.call("unread"); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unread, nil
}

func (b *fakeBackend) setUnread(n int) {
	b.mu.Lock()
	b.unread = n
	b.mu.Unlock()
}

func setup(t *testing.T) (*Service, *fakeBackend) {
	t.Helper()
	var n int
	newIdempotencyKey = func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	}
	t.Cleanup(func() { newIdempotencyKey = defaultIdempotencyKey })

	b := newFakeBackend()
	return NewService(b, cache.New(), nil), b
}

func TestService_cachesReads(t *testing.T) {
	svc, b := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.DashboardStats(ctx)
		require.NoError(t, err)
		_, err = svc.Courses(ctx)
		require.NoError(t, err)
		_, err = svc.AssignmentDetails(ctx, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, b.count("stats"))
	assert.Equal(t, 1, b.count("courses"))
	assert.Equal(t, 1, b.count("assignment:1"))

	b.fail("assignments", errInternal)
	_, err := svc.Assignments(ctx)
	assert.Same(t, errInternal, errors.Cause(err))
	_, ok := svc.Cache().Get(cache.KeyTeacherAssignments)
	assert.False(t, ok)
}

func TestService_InvalidateGrade(t *testing.T) {
	svc, _ := setup(t)
	c := svc.Cache()
	keys := []string{
		cache.KeyTeacherDashboardStats,
		cache.KeyTeacherCourses,
		cache.KeyTeacherAssignments,
		cache.KeyNotificationCount,
		cache.AssignmentDetailsKey(1),
		cache.AssignmentDetailsKey(10),
		cache.SubmissionKey(5),
		cache.SubmissionKey(6),
	}
	for _, k := range keys {
		c.Set(k, k)
	}

	svc.InvalidateGrade(1, 5)

	remaining := make([]string, 0)
	for _, k := range keys {
		if _, ok := c.Get(k); ok {
			remaining = append(remaining, k)
		}
	}
	assert.Equal(t, []string{
		cache.KeyTeacherCourses,
		cache.KeyNotificationCount,
		cache.AssignmentDetailsKey(10),
		cache.SubmissionKey(6),
	}, remaining)
}

func TestDashboard_partialFailure(t *testing.T) {
	svc, b := setup(t)
	ctx := context.Background()
	d := NewDashboard(svc)

	b.fail("courses", &NetworkError{Err: errors.New("timeout")})
	require.NoError(t, d.Refresh(ctx))

	assert.True(t, d.Stats().Loaded)
	assert.Equal(t, 1, d.Stats().Data.CourseCount)
	assert.Len(t, d.Assignments().Data, 2)
	assert.False(t, d.Courses().Loaded)
	assert.Equal(t, KindNetwork, Classify(d.Courses().Err))
	assert.Equal(t, []Panel{PanelCourses}, d.Failed())

	t.Run("retry failed panel", func(t *testing.T) {
		b.fail("courses", nil)
		require.NoError(t, d.RefreshPanel(ctx, PanelCourses))
		assert.True(t, d.Courses().Loaded)
		assert.Empty(t, d.Failed())
	})

	t.Run("failed refresh keeps stale data", func(t *testing.T) {
		svc.Cache().Invalidate(cache.KeyTeacherDashboardStats)
		b.fail("stats", errInternal)
		require.NoError(t, d.Refresh(ctx))

		stats := d.Stats()
		assert.True(t, stats.Stale)
		assert.Equal(t, 1, stats.Data.CourseCount)
		assert.Equal(t, []Panel{PanelStats}, d.Failed())
	})
}

func TestDashboard_cancelled(t *testing.T) {
	svc, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDashboard(svc)
	assert.Equal(t, context.Canceled, d.Refresh(ctx))
	assert.False(t, d.Stats().Loaded)
	assert.Empty(t, d.Failed())
}

func TestGradingSession_success(t *testing.T) {
	svc, b := setup(t)
	ctx := context.Background()
	rec := notifysvc.NewRecorder()
	s := NewGradingSession(svc, 1, rec)

	_, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	details, err := s.Open(ctx)
	require.NoError(t, err)
	require.Len(t, details.Submissions, 2)

	require.NoError(t, s.SubmitGrade(ctx, 5, 18, "Good work"))

	g, ok := s.Grade(5)
	require.True(t, ok)
	assert.Equal(t, 18.0, *g.Grade)
	assert.Equal(t, classroom.StatusGraded, g.Status)
	assert.Equal(t, []notifysvc.Notification{{Kind: notifysvc.KindSuccess, Message: "Grade saved"}}, rec.All())
	assert.Equal(t, "key-1", b.submissions[5].IdempotencyKey)

	// aggregates are refetched after a grade change
	_, err = svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.count("stats"))
	_, err = svc.AssignmentDetails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, b.count("assignment:1"))
}

func TestGradingSession_failureShowsServerTruth(t *testing.T) {
	svc, b := setup(t)
	ctx := context.Background()
	rec := notifysvc.NewRecorder()
	s := NewGradingSession(svc, 1, rec)
	_, err := s.Open(ctx)
	require.NoError(t, err)

	// a colleague graded the submission meanwhile; our save fails
	b.mu.Lock()
	colleague := 14.0
	b.submissions[5].Grade = &colleague
	b.submissions[5].Status = classroom.StatusGraded
	b.gradeErr = errInternal
	b.mu.Unlock()

	err = s.SubmitGrade(ctx, 5, 90, "")
	var mErr *mutation.Error
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, KindGeneric, Classify(err))

	g, _ := s.Grade(5)
	assert.Equal(t, 14.0, *g.Grade, "authoritative grade replaces the optimistic one")
	assert.Equal(t, []notifysvc.Notification{
		{Kind: notifysvc.KindError, Message: "Could not save grade: Something went wrong, please try again."},
	}, rec.All())

	draft, ok := s.Draft(5)
	require.True(t, ok)
	assert.Equal(t, 90.0, *draft.Grade)

	b.mu.Lock()
	b.gradeErr = nil
	b.mu.Unlock()
	require.NoError(t, s.Retry(ctx, 5))

	g, _ = s.Grade(5)
	assert.Equal(t, 90.0, *g.Grade)
	assert.Equal(t, 1, b.applied)
	assert.Equal(t, "key-1", b.submissions[5].IdempotencyKey, "retry reuses the idempotency key")
}

func TestGradingSession_retryAfterLostResponse(t *testing.T) {
	svc, b := setup(t)
	ctx := context.Background()
	s := NewGradingSession(svc, 1, nil)

	b.dropResponse = true
	err := s.SubmitGrade(ctx, 5, 17, "ok")
	require.Error(t, err)
	assert.Equal(t, KindNetwork, Classify(err))

	b.mu.Lock()
	b.dropResponse = false
	b.mu.Unlock()
	require.NoError(t, s.Retry(ctx, 5))
	assert.Equal(t, 1, b.applied, "the replayed grade is not applied twice")
	assert.Equal(t, 2, b.count("grade"))
}

func TestGradingSession_wrongAssignment(t *testing.T) {
	svc, _ := setup(t)
	s := NewGradingSession(svc, 10, nil)
	assert.Error(t, s.SubmitGrade(context.Background(), 5, 1, ""))
	assert.False(t, s.Busy(5))
}

func TestNotificationPoller(t *testing.T) {
	svc, b := setup(t)
	b.setUnread(2)
	ctx, cancel := context.WithCancel(context.Background())

	counts := make(chan int, 10)
	p := NewNotificationPoller(svc, 5*time.Millisecond, func(n int) { counts <- n })
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Equal(t, 2, <-counts)
	b.setUnread(3)
	select {
	case n := <-counts:
		assert.Equal(t, 3, n)
	case <-time.After(time.Second):
		t.Fatal("poller did not report the new count")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestNotificationPoller_errors(t *testing.T) {
	svc, b := setup(t)
	b.fail("unread", &NetworkError{Err: errors.New("offline")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 10)
	p := NewNotificationPoller(svc, 5*time.Millisecond, func(int) { t.Error("unexpected count") },
		OnPollError(func(err error) { errs <- err }))
	go p.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.Equal(t, KindNetwork, Classify(err))
		case <-time.After(time.Second):
			t.Fatal("poller stopped after an error")
		}
	}
}

func TestNewNotificationPoller_interval(t *testing.T) {
	svc, _ := setup(t)
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{name: "kept", interval: time.Second, want: time.Second},
		{name: "zero", interval: 0, want: DefaultPollInterval},
		{name: "negative", interval: -time.Second, want: DefaultPollInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewNotificationPoller(svc, tt.interval, func(int) {})
			assert.Equal(t, tt.want, p.interval)
		})
	}

	t.Run("zero interval runs", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		counts := make(chan int, 1)
		p := NewNotificationPoller(svc, 0, func(n int) { counts <- n })
		done := make(chan struct{})
		go func() {
			p.Run(ctx)
			close(done)
		}()
		<-counts
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run() did not return after cancel")
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
		msg  string
	}{
		{name: "401", err: &APIError{Status: 401}, want: KindAuth, msg: "Your session has expired, please log in again."},
		{name: "403", err: errors.Wrap(&APIError{Status: 403}, "grading"), want: KindPermission, msg: "You do not have permission to do that."},
		{name: "404", err: &APIError{Status: 404}, want: KindNotFound, msg: "This item no longer exists."},
		{
			name: "400 fields",
			err:  &APIError{Status: 400, Fields: map[string]string{"grade": "grade cannot exceed 20 points", "feedback": "too long"}},
			want: KindValidation,
			msg:  "feedback: too long; grade: grade cannot exceed 20 points",
		},
		{name: "400 message", err: &APIError{Status: 400, Message: "invalid credentials"}, want: KindValidation, msg: "invalid credentials"},
		{name: "network", err: &NetworkError{Err: errors.New("dial tcp")}, want: KindNetwork},
		{name: "deadline", err: errors.Wrap(context.DeadlineExceeded, "fetching"), want: KindNetwork},
		{name: "500", err: errInternal, want: KindGeneric, msg: "Something went wrong, please try again."},
		{name: "other", err: errors.New("boom"), want: KindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, Message(tt.err))
			}
		})
	}
}
