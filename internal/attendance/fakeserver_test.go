package attendance

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cspresent/present/internal/common/httpclient"
	"github.com/cspresent/present/internal/schedule"
)

type fakeConfig struct{ cookie string }

func (c fakeConfig) GetServerURL() string     { return "http://attendance.test" }
func (c fakeConfig) GetSessionCookie() string { return c.cookie }

// fakeServer mimics the attendance server's JSON endpoints.
type fakeServer struct {
	mu        sync.Mutex
	clock     schedule.Clock
	sessions  []schedule.Descriptor
	joinCodes map[string]string // join code -> course code
	enrolled  map[string]bool   // course code
	marked    map[string]bool   // session id
	failNext  int               // respond 503 to this many session listings
	student   bool              // session listing is for administrators only
	listCalls int
	requests  []string
}

func newFakeServer(clock schedule.Clock) *fakeServer {
	return &fakeServer{
		clock: clock,
		sessions: []schedule.Descriptor{
			{SessionID: "1", CourseCode: "CSC401", CourseTitle: "Compilers", SessionDate: "2024-01-01", StartTime: "09:00", EndTime: "10:00", Location: "LT1"},
			{SessionID: "2", CourseCode: "CSC402", CourseTitle: "Networks", SessionDate: "2024-01-01", StartTime: "11:00", EndTime: "12:00"},
		},
		joinCodes: map[string]string{"AB12CD": "CSC402"},
		enrolled:  map[string]bool{"CSC401": true},
		marked:    map[string]bool{},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, msg string) {
	writeJSON(w, map[string]any{"success": false, "message": msg})
}

func (s *fakeServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.requests = append(s.requests, r.Method+" "+r.URL.Path)
			s.mu.Unlock()
			if _, err := r.Cookie(httpclient.SessionCookieName); err != nil {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/api/mark-attendance", s.markAttendance)
	r.Post("/api/join-course", s.joinCourse)
	r.Get("/api/class-sessions", s.listSessions)
	r.Get("/api/courses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "courses": []map[string]any{
			{"id": 1, "course_code": "CSC401", "course_title": "Compilers", "lecturer_name": "Dr. Ade", "join_code": "XY99ZZ"},
			{"id": 2, "course_code": "CSC402", "course_title": "Networks", "lecturer_name": "Dr. Bello", "join_code": "AB12CD"},
		}})
	})
	r.Get("/api/admin/export-attendance", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("course_id") == "404" {
			fail(w, "'NoneType' object has no attribute 'course_code'")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=attendance_export_CSC401.xlsx")
		w.Write([]byte("PK\x03\x04format=" + r.URL.Query().Get("format")))
	})
	return r
}

func (s *fakeServer) markAttendance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID json.Number `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		fail(w, "Session ID is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *schedule.Descriptor
	for i := range s.sessions {
		if s.sessions[i].SessionID == req.SessionID.String() {
			found = &s.sessions[i]
		}
	}
	if found == nil {
		fail(w, "Class session not found")
		return
	}
	status, err := schedule.Evaluate(*found, s.clock.Now())
	if err != nil || status != schedule.StatusActive {
		fail(w, "Class session is not currently active")
		return
	}
	if !s.enrolled[found.CourseCode] {
		fail(w, "Not enrolled in this course")
		return
	}
	if s.marked[found.SessionID] {
		fail(w, "Attendance already marked for this session")
		return
	}
	s.marked[found.SessionID] = true
	writeJSON(w, map[string]any{"success": true, "message": "Attendance marked successfully"})
}

func (s *fakeServer) joinCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseCode string `json:"course_code"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	code := strings.ToUpper(strings.TrimSpace(req.CourseCode))
	if code == "" {
		fail(w, "Course code is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.joinCodes[code]
	if !ok {
		fail(w, "Invalid course code")
		return
	}
	if s.enrolled[course] {
		fail(w, "Already enrolled in this course")
		return
	}
	s.enrolled[course] = true
	writeJSON(w, map[string]any{"success": true, "message": "Successfully joined course"})
}

func (s *fakeServer) listSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.student {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	if s.failNext > 0 {
		s.failNext--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	var out []map[string]any
	for _, d := range s.sessions {
		out = append(out, map[string]any{
			"id":           json.Number(d.SessionID),
			"course_code":  d.CourseCode,
			"course_title": d.CourseTitle,
			"date":         d.SessionDate,
			"start_time":   d.StartTime,
			"end_time":     d.EndTime,
			"location":     d.Location,
			"status":       "scheduled",
		})
	}
	writeJSON(w, map[string]any{"success": true, "sessions": out})
}

func newTestClient(t *testing.T, now string) (*Client, *fakeServer, *schedule.FixedClock) {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02T15:04", now, time.Local)
	if err != nil {
		t.Fatal(err)
	}
	clock := schedule.NewFixedClock(tm)
	srv := newFakeServer(clock)
	doer := httpclient.NewTestClient(fakeConfig{cookie: "s3cret"}, srv.router())
	return NewClient(doer, Options{RetryDelay: time.Millisecond}), srv, clock
}
