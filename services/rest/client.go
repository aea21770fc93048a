package restsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/portal"
)

const (
	defaultRetryCount   = 2
	defaultRetryWait    = 200 * time.Millisecond
	defaultRetryMaxWait = 2 * time.Second
	idempotencyHeader   = "Idempotency-Key"
)

// TokenSource provides the bearer token of the logged in user. An empty token means anonymous.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the LMS REST API.
type Client struct {
	http   *resty.Client
	tokens TokenSource
	logger core.Logger
}

var _ portal.Backend = (*Client)(nil)

func NewClient(conf *core.Config, tokens TokenSource, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NopLogger()
	}
	c := &Client{tokens: tokens, logger: logger}

	c.http = resty.New().
		SetBaseURL(conf.Portal.APIURL).
		SetTimeout(conf.Portal.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger}).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(retryIdempotent).
		OnBeforeRequest(c.authenticate)
	return c
}

// retryIdempotent retries reads that failed in transit or on a server error; writes are never retried.
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

func (c *Client) authenticate(_ *resty.Client, req *resty.Request) error {
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return errors.Wrap(err, "reading token")
	}
	if tok != "" {
		req.SetAuthToken(tok)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, result interface{}, opts ...func(*resty.Request)) error {
	req := c.http.R().SetContext(ctx)
	if result != nil {
		req.SetResult(result)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(&portal.NetworkError{Err: err}, "%s %s", method, path)
	}
	if resp.IsError() {
		return errors.Wrapf(parseError(resp), "%s %s", method, path)
	}
	return nil
}

// parseError reads {"error": "..."} or a field map {"<field>": "<error>"} from an error response.
func parseError(resp *resty.Response) *portal.APIError {
	apiErr := &portal.APIError{Status: resp.StatusCode()}

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode())
		return apiErr
	}
	for k, v := range body {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k == "error" {
			apiErr.Message = s
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string]string)
		}
		apiErr.Fields[k] = s
	}
	return apiErr
}

func withBody(body interface{}) func(*resty.Request) {
	return func(r *resty.Request) { r.SetBody(body) }
}

func withID(id int) func(*resty.Request) {
	return func(r *resty.Request) { r.SetPathParam("id", strconv.Itoa(id)) }
}

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Token string `json:"token"`
	}
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var res loginResponse
	err := c.do(ctx, http.MethodPost, "/users/login", &res, withBody(loginRequest{Username: username, Password: password}))
	return res.Token, err
}

// RefreshToken exchanges the current, still refreshable, token for a new one.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	var res loginResponse
	err := c.do(ctx, http.MethodPost, "/users/token-refresh", &res)
	return res.Token, err
}

func (c *Client) DashboardStats(ctx context.Context) (classroom.DashboardStats, error) {
	var stats classroom.DashboardStats
	err := c.do(ctx, http.MethodGet, "/teacher/dashboard/stats", &stats)
	return stats, err
}

func (c *Client) Courses(ctx context.Context) ([]classroom.Course, error) {
	courses := make([]classroom.Course, 0)
	err := c.do(ctx, http.MethodGet, "/teacher/courses", &courses)
	return courses, err
}

func (c *Client) Assignments(ctx context.Context) ([]classroom.Assignment, error) {
	asgs := make([]classroom.Assignment, 0)
	err := c.do(ctx, http.MethodGet, "/teacher/assignments", &asgs)
	return asgs, err
}

func (c *Client) AssignmentDetails(ctx context.Context, id int) (classroom.AssignmentDetails, error) {
	var details classroom.AssignmentDetails
	err := c.do(ctx, http.MethodGet, "/assignments/{id}", &details, withID(id))
	return details, err
}

func (c *Client) Submission(ctx context.Context, id int) (classroom.Submission, error) {
	var sub classroom.Submission
	err := c.do(ctx, http.MethodGet, "/submissions/{id}", &sub, withID(id))
	return sub, err
}

func (c *Client) GradeSubmission(ctx context.Context, id int, in classroom.GradeInput) (classroom.Submission, error) {
	var sub classroom.Submission
	err := c.do(ctx, http.MethodPut, "/submissions/{id}/grade", &sub, withID(id), withBody(in), func(r *resty.Request) {
		if in.IdempotencyKey != "" {
			r.SetHeader(idempotencyHeader, in.IdempotencyKey)
		}
	})
	return sub, err
}

func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var res classroom.UnreadCount
	err := c.do(ctx, http.MethodGet, "/notifications/unread-count", &res)
	return res.Count, err
}

// restyLogger forwards resty's own messages to the application logger.
// Request failures are returned to, and reported by, the caller, so resty errors are only warnings here.
type restyLogger struct {
	logger core.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}
func (l restyLogger) Warnf(format string, v ...interface{}) { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
