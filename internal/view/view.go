// Package view renders sessions, status changes, notifications and courses
// to a terminal.
package view

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cspresent/present/internal/action"
	"github.com/cspresent/present/internal/attendance"
	"github.com/cspresent/present/internal/notify"
	"github.com/cspresent/present/internal/poller"
	"github.com/cspresent/present/internal/schedule"
)

// FilterAll matches every course.
const FilterAll = "all"

var titleCase = cases.Title(language.English)

// StatusLabel is the human readable form of s.
func StatusLabel(s schedule.Status) string {
	if s == schedule.StatusUnknown {
		return "Unknown"
	}
	return titleCase.String(string(s))
}

// StyleClass is the style name of s, as used by the web page.
func StyleClass(s schedule.Status) string {
	if s == schedule.StatusUnknown {
		return "status-unknown"
	}
	return "status-" + string(s)
}

// MatchCourse reports whether courseCode passes filter. Matching is a
// case-insensitive substring test; "all" and "" match everything.
func MatchCourse(filter, courseCode string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, FilterAll) {
		return true
	}
	return strings.Contains(strings.ToLower(courseCode), strings.ToLower(filter))
}

// Row is one session as displayed.
type Row struct {
	Descriptor schedule.Descriptor `json:"session"`
	Status     schedule.Status     `json:"status"`
	Label      string              `json:"label"`
	Class      string              `json:"class"`
	Control    *action.State       `json:"control,omitempty"`
}

// NewRow builds a row. control may be nil for sessions without an action.
func NewRow(d schedule.Descriptor, s schedule.Status, control *action.State) Row {
	return Row{
		Descriptor: d,
		Status:     s,
		Label:      StatusLabel(s),
		Class:      StyleClass(s),
		Control:    control,
	}
}

// FilterRows keeps rows whose course code passes filter.
func FilterRows(rows []Row, filter string) []Row {
	var out []Row
	for _, r := range rows {
		if MatchCourse(filter, r.Descriptor.CourseCode) {
			out = append(out, r)
		}
	}
	return out
}

// FilterCourses keeps courses whose code passes filter.
func FilterCourses(courses []attendance.Course, filter string) []attendance.Course {
	var out []attendance.Course
	for _, c := range courses {
		if MatchCourse(filter, c.Code) {
			out = append(out, c)
		}
	}
	return out
}

// Options configures a Renderer.
type Options struct {
	Theme   Theme
	NoColor bool
}

// Renderer writes human readable output to w.
type Renderer struct {
	w     io.Writer
	theme Theme
	p     palette
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer, opts ...Options) *Renderer {
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
	return &Renderer{
		w:     w,
		theme: o.Theme,
		p:     newPalette(o.Theme, o.NoColor),
	}
}

// Theme returns the renderer's theme.
func (r *Renderer) Theme() Theme {
	return r.theme
}

// Sessions prints one line per row.
func (r *Renderer) Sessions(rows []Row) {
	if len(rows) == 0 {
		r.p.muted.Fprintln(r.w, "No class sessions.")
		return
	}
	r.p.title.Fprintln(r.w, "Class Sessions:")
	for _, row := range rows {
		r.session(row)
	}
}

func (r *Renderer) session(row Row) {
	d := row.Descriptor
	fmt.Fprintf(r.w, "  %-6s %-10s %s-%s  ", d.SessionID, d.SessionDate, d.StartTime, d.EndTime)
	r.p.status(row.Status).Fprintf(r.w, "%-10s", row.Label)
	fmt.Fprintf(r.w, " %s", d.CourseCode)
	if d.CourseTitle != "" {
		fmt.Fprintf(r.w, " %s", d.CourseTitle)
	}
	if d.Location != "" {
		r.p.muted.Fprintf(r.w, " @ %s", d.Location)
	}
	if row.Control != nil && row.Control.Visible {
		fmt.Fprint(r.w, "  ")
		r.p.control.Fprintf(r.w, "[%s]", row.Control.Label)
	}
	fmt.Fprintln(r.w)
}

// Change prints a status change as it is observed while watching.
func (r *Renderer) Change(ch poller.StatusChange) {
	r.p.muted.Fprintf(r.w, "[%s] ", ch.At.Format(time.TimeOnly))
	fmt.Fprintf(r.w, "session %s", ch.SessionID)
	if ch.Descriptor.CourseCode != "" {
		fmt.Fprintf(r.w, " (%s)", ch.Descriptor.CourseCode)
	}
	fmt.Fprint(r.w, " ")
	if ch.Previous != schedule.StatusUnknown {
		r.p.status(ch.Previous).Fprint(r.w, StatusLabel(ch.Previous))
		fmt.Fprint(r.w, " -> ")
	}
	r.p.status(ch.Current).Fprint(r.w, StatusLabel(ch.Current))
	if ch.ShowAttendance {
		fmt.Fprint(r.w, "  ")
		r.p.control.Fprintf(r.w, "[%s]", action.LabelMark)
	}
	fmt.Fprintln(r.w)
}

var iconGlyphs = map[string]string{
	"check-circle":       "✔",
	"exclamation-circle": "❗",
	"info-circle":        "ℹ",
}

// Notification prints n with its icon.
func (r *Renderer) Notification(n notify.Notification) {
	c := r.p.info
	switch n.Level {
	case notify.LevelSuccess:
		c = r.p.success
	case notify.LevelError:
		c = r.p.failure
	}
	c.Fprintf(r.w, "%s %s\n", iconGlyphs[n.Level.Icon()], n.Message)
}

// Courses prints the course list.
func (r *Renderer) Courses(courses []attendance.Course) {
	if len(courses) == 0 {
		r.p.muted.Fprintln(r.w, "No courses.")
		return
	}
	r.p.title.Fprintln(r.w, "Courses:")
	for _, c := range courses {
		fmt.Fprintf(r.w, "  %-10s %s", c.Code, c.Title)
		if c.LecturerName != "" {
			r.p.muted.Fprintf(r.w, " (%s)", c.LecturerName)
		}
		if c.JoinCode != "" {
			r.p.muted.Fprintf(r.w, " join code %s", c.JoinCode)
		}
		fmt.Fprintln(r.w)
	}
}
