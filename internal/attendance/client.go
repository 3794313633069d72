// Package attendance talks to the attendance server: it marks attendance for
// an active class session, joins a course by its join code, lists class
// sessions and courses, and downloads attendance exports.
//
// Mark and join are user-triggered one-shot requests and are never retried.
// Listing is a safe read and is retried with backoff on transport failures.
package attendance

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cspresent/present/internal/common/apperrors"
	"github.com/cspresent/present/internal/common/httpclient"
)

var (
	ErrAttendance      apperrors.Error = apperrors.New("attendance request failed")
	ErrInvalidInput    apperrors.Error = ErrAttendance.New("invalid input")
	ErrRequestRejected apperrors.Error = ErrAttendance.New("request rejected by server")
	ErrBadResponse     apperrors.Error = ErrAttendance.New("unexpected response from server")
)

// Server endpoints, relative to the server URL.
const (
	PathMarkAttendance = "api/mark-attendance"
	PathJoinCourse     = "api/join-course"
	PathClassSessions  = "api/class-sessions"
	PathCourses        = "api/courses"
	PathExport         = "api/admin/export-attendance"
)

// Result is the server's answer to a user action.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Options tunes retries of read requests.
type Options struct {
	RetryAttempts uint
	RetryDelay    time.Duration
	SessionsPath  string
}

// Client issues requests through an httpclient.Doer.
type Client struct {
	doer          httpclient.Doer
	retryAttempts uint
	retryDelay    time.Duration
	sessionsPath  string
}

// NewClient wraps doer.
func NewClient(doer httpclient.Doer, opts ...Options) *Client {
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.RetryAttempts == 0 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.SessionsPath == "" {
		o.SessionsPath = PathClassSessions
	}
	return &Client{
		doer:          doer,
		retryAttempts: o.RetryAttempts,
		retryDelay:    o.RetryDelay,
		sessionsPath:  o.SessionsPath,
	}
}

// MarkAttendance records the logged-in student as present for sessionID.
func (c *Client) MarkAttendance(ctx context.Context, sessionID string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, ErrInvalidInput.Msg("session id is required")
	}
	body, err := sjson.SetBytes([]byte(`{}`), "session_id", sessionIDValue(sessionID))
	if err != nil {
		return Result{}, ErrInvalidInput.Err(err)
	}
	return c.postAction(ctx, PathMarkAttendance, body, "Failed to mark attendance")
}

// JoinCourse enrolls the logged-in student using a course join code.
func (c *Client) JoinCourse(ctx context.Context, courseCode string) (Result, error) {
	courseCode = NormalizeCourseCode(courseCode)
	if courseCode == "" {
		return Result{}, ErrInvalidInput.Msg("course code is required")
	}
	body, err := sjson.SetBytes([]byte(`{}`), "course_code", courseCode)
	if err != nil {
		return Result{}, ErrInvalidInput.Err(err)
	}
	return c.postAction(ctx, PathJoinCourse, body, "Failed to join course")
}

// NormalizeCourseCode trims and upper-cases a join code the way the server does.
func NormalizeCourseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// sessionIDValue sends numeric ids as JSON numbers, matching the server's
// integer primary keys, and anything else as a string.
func sessionIDValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && strconv.FormatInt(n, 10) == id {
		return n
	}
	return id
}

func (c *Client) postAction(ctx context.Context, path string, body []byte, defaultMsg string) (Result, error) {
	resp, err := c.doer.DoRequest(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return Result{}, ErrRequestRejected.MsgErr(httpErr.Message, err).SetStatusCode(httpErr.StatusCode)
		}
		return Result{}, ErrAttendance.MsgErr(defaultMsg, err)
	}
	result, err := parseResult(resp)
	if err != nil {
		return Result{}, err
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = defaultMsg
		}
		return result, ErrRequestRejected.Msg(msg)
	}
	log.Debug().Str("path", path).Str("message", result.Message).Msg("request accepted")
	return result, nil
}

func parseResult(body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return Result{}, ErrBadResponse.Msg("response is not valid JSON")
	}
	success := gjson.GetBytes(body, "success")
	if !success.Exists() {
		return Result{}, ErrBadResponse.Msg("response has no success flag")
	}
	return Result{
		Success: success.Bool(),
		Message: gjson.GetBytes(body, "message").String(),
	}, nil
}

// retryable keeps transport failures and server-side errors retryable and
// gives up on answers the server will repeat.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	return !errors.Is(err, ErrAttendance)
}

// getWithRetry performs a GET that is safe to repeat.
func (c *Client) getWithRetry(ctx context.Context, opts httpclient.RequestOptions) ([]byte, error) {
	var body []byte
	err := retry.Do(func() error {
		b, err := c.doer.DoRequest(ctx, opts)
		if err != nil {
			return err
		}
		body = b
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("path", opts.Path).Msg("retrying request")
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// readFailed wraps a failed read and keeps the server's own explanation in
// the message.
func readFailed(msg string, err error) error {
	cause := err.Error()
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		cause = httpErr.Message
	}
	return ErrAttendance.MsgErr(msg, err).Suffix(cause)
}
