package attendance

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/cspresent/present/internal/common/httpclient"
	"github.com/cspresent/present/internal/schedule"
)

// ListSessions fetches the class sessions known to the server.
func (c *Client) ListSessions(ctx context.Context) ([]schedule.Descriptor, error) {
	body, err := c.getWithRetry(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   c.sessionsPath,
	})
	if err != nil {
		return nil, readFailed("unable to list class sessions", err)
	}
	return parseSessions(body)
}

// Descriptors lets a Client feed the status poller directly.
func (c *Client) Descriptors(ctx context.Context) ([]schedule.Descriptor, error) {
	return c.ListSessions(ctx)
}

func parseSessions(body []byte) ([]schedule.Descriptor, error) {
	result, err := parseResult(body)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, ErrRequestRejected.Msg(orDefault(result.Message, "unable to list class sessions"))
	}
	sessions := gjson.GetBytes(body, "sessions")
	if !sessions.IsArray() {
		return nil, ErrBadResponse.Msg("response has no sessions list")
	}
	var out []schedule.Descriptor
	sessions.ForEach(func(_, s gjson.Result) bool {
		out = append(out, schedule.Descriptor{
			SessionID:   s.Get("id").String(),
			StartTime:   s.Get("start_time").String(),
			EndTime:     s.Get("end_time").String(),
			SessionDate: s.Get("date").String(),
			CourseCode:  s.Get("course_code").String(),
			CourseTitle: s.Get("course_title").String(),
			Location:    s.Get("location").String(),
		})
		return true
	})
	return out, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
