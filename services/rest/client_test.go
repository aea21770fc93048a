package restsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/portal"
)

type staticToken string

func (t staticToken) Token() (string, error) { return string(t), nil }

func newTestClient(t *testing.T, h http.Handler, tokens TokenSource) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	conf := core.NewTestConfig()
	conf.Portal.APIURL = srv.URL + "/v1"
	c := NewClient(conf, tokens, nil)
	c.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	return c, srv
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Login(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/users/login", func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Username == "neema" && body.Password == "Pa$$w0rd!" {
			writeJSON(w, http.StatusOK, map[string]string{"token": "tok"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credentials"})
	})
	c, _ := newTestClient(t, mux, nil)
	ctx := context.Background()

	tok, err := c.Login(ctx, "neema", "Pa$$w0rd!")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	_, err = c.Login(ctx, "neema", "nope")
	require.Error(t, err)
	assert.Equal(t, portal.KindValidation, portal.Classify(err))
	assert.Equal(t, "invalid credentials", portal.Message(err))
}

func TestClient_reads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/teacher/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or malformed jwt"})
			return
		}
		writeJSON(w, http.StatusOK, classroom.DashboardStats{CourseCount: 2, PendingGrading: 3})
	})
	mux.HandleFunc("/v1/assignments/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, classroom.AssignmentDetails{
			Assignment:  classroom.Assignment{ID: 7, Title: "Fractions", MaxPoints: 20},
			Submissions: []classroom.Submission{{ID: 9, AssignmentID: 7, StudentName: "Amani Kito"}},
		})
	})
	mux.HandleFunc("/v1/submissions/404", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	mux.HandleFunc("/v1/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, classroom.UnreadCount{Count: 4})
	})
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		c, _ := newTestClient(t, mux, staticToken(""))
		_, err := c.DashboardStats(ctx)
		assert.Equal(t, portal.KindAuth, portal.Classify(err))
	})

	c, _ := newTestClient(t, mux, staticToken("tok"))

	stats, err := c.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PendingGrading)

	details, err := c.AssignmentDetails(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Fractions", details.Title)
	require.Len(t, details.Submissions, 1)
	assert.Equal(t, "Amani Kito", details.Submissions[0].StudentName)

	_, err = c.Submission(ctx, 404)
	var apiErr *portal.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not found", apiErr.Message)

	n, err := c.UnreadNotificationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestClient_GradeSubmission(t *testing.T) {
	var (
		calls   int32
		mu      sync.Mutex
		gotKey  string
		gotBody map[string]interface{}
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/submissions/9/grade", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPut, r.Method)
		b, _ := io.ReadAll(r.Body)
		body := make(map[string]interface{})
		_ = json.Unmarshal(b, &body)

		mu.Lock()
		gotKey = r.Header.Get(idempotencyHeader)
		gotBody = body
		mu.Unlock()

		if body["grade"].(float64) > 20 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"grade": "grade cannot exceed 20 points"})
			return
		}
		if body["feedback"] == "boom" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
			return
		}
		grade := body["grade"].(float64)
		writeJSON(w, http.StatusOK, classroom.Submission{ID: 9, Grade: &grade, Status: classroom.StatusGraded})
	})
	c, _ := newTestClient(t, mux, staticToken("tok"))
	ctx := context.Background()
	grade := func(f float64) *float64 { return &f }

	sub, err := c.GradeSubmission(ctx, 9, classroom.GradeInput{Grade: grade(18), Feedback: "Good", IdempotencyKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, 18.0, *sub.Grade)
	mu.Lock()
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, map[string]interface{}{"grade": 18.0, "feedback": "Good"}, gotBody)
	mu.Unlock()

	_, err = c.GradeSubmission(ctx, 9, classroom.GradeInput{Grade: grade(25)})
	assert.Equal(t, portal.KindValidation, portal.Classify(err))
	assert.Equal(t, "grade: grade cannot exceed 20 points", portal.Message(err))

	atomic.StoreInt32(&calls, 0)
	_, err = c.GradeSubmission(ctx, 9, classroom.GradeInput{Grade: grade(10), Feedback: "boom"})
	assert.Equal(t, portal.KindGeneric, portal.Classify(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "writes are not retried")
}

func TestClient_retriesReads(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/teacher/courses", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= defaultRetryCount {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Bad Gateway"})
			return
		}
		writeJSON(w, http.StatusOK, []classroom.Course{{ID: 1, Name: "Mathematics"}})
	})
	c, _ := newTestClient(t, mux, staticToken("tok"))

	courses, err := c.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []classroom.Course{{ID: 1, Name: "Mathematics"}}, courses)
	assert.EqualValues(t, defaultRetryCount+1, atomic.LoadInt32(&calls))
}

func TestClient_networkError(t *testing.T) {
	c, srv := newTestClient(t, http.NewServeMux(), nil)
	srv.Close()

	_, err := c.Assignments(context.Background())
	require.Error(t, err)
	var netErr *portal.NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.Equal(t, portal.KindNetwork, portal.Classify(err))
}
