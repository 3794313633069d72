package attendance

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/cspresent/present/internal/common/httpclient"
)

// Course is a course offered by the server.
type Course struct {
	ID           string `json:"id"`
	Code         string `json:"course_code"`
	Title        string `json:"course_title"`
	LecturerName string `json:"lecturer_name"`
	JoinCode     string `json:"join_code,omitempty"`
}

// ListCourses fetches every course.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	body, err := c.getWithRetry(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   PathCourses,
	})
	if err != nil {
		return nil, readFailed("unable to list courses", err)
	}
	result, err := parseResult(body)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, ErrRequestRejected.Msg(orDefault(result.Message, "unable to list courses"))
	}
	var courses []Course
	gjson.GetBytes(body, "courses").ForEach(func(_, v gjson.Result) bool {
		courses = append(courses, Course{
			ID:           v.Get("id").String(),
			Code:         v.Get("course_code").String(),
			Title:        v.Get("course_title").String(),
			LecturerName: v.Get("lecturer_name").String(),
			JoinCode:     v.Get("join_code").String(),
		})
		return true
	})
	return courses, nil
}
