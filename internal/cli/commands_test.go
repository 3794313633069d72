package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cspresent/present/internal/action"
	"github.com/cspresent/present/internal/attendance"
	"github.com/cspresent/present/internal/common/httpclient"
	"github.com/cspresent/present/internal/schedule"
)

type fakeServer struct {
	mu        sync.Mutex
	markCalls int
	markFail  bool
	student   bool // class sessions are listed to administrators only
	requests  []string
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *fakeServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.requests = append(s.requests, r.Method+" "+r.URL.Path)
			s.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/api/class-sessions", func(w http.ResponseWriter, r *http.Request) {
		if s.student {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		writeJSON(w, map[string]any{"success": true, "sessions": []map[string]any{
			{"id": 1, "course_code": "CSC401", "course_title": "Compilers", "date": "2024-01-01", "start_time": "09:00", "end_time": "10:00", "location": "LT1"},
			{"id": 2, "course_code": "MTH201", "course_title": "Calculus", "date": "2024-01-01", "start_time": "11:00", "end_time": "12:00"},
			{"id": 3, "course_code": "PHY101", "date": "2024-01-01"},
		}})
	})
	r.Post("/api/mark-attendance", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.markCalls++
		failing := s.markFail
		s.mu.Unlock()
		if failing {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		var body struct {
			SessionID json.Number `json:"session_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.SessionID != "1" {
			writeJSON(w, map[string]any{"success": false, "message": "Attendance can only be marked during the session time"})
			return
		}
		writeJSON(w, map[string]any{"success": true, "message": "Attendance marked successfully"})
	})
	r.Post("/api/join-course", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			CourseCode string `json:"course_code"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.CourseCode != "AB12CD" {
			writeJSON(w, map[string]any{"success": false, "message": "Invalid course code"})
			return
		}
		writeJSON(w, map[string]any{"success": true, "message": "Successfully joined MTH201"})
	})
	r.Get("/api/courses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "courses": []map[string]any{
			{"id": 1, "course_code": "CSC401", "course_title": "Compilers", "lecturer_name": "Dr. Ade"},
			{"id": 2, "course_code": "MTH201", "course_title": "Calculus", "lecturer_name": "Dr. Bello"},
		}})
	})
	r.Get("/api/admin/export-attendance", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="attendance_report.csv"`)
		w.Write([]byte("student,status\nada,present\n"))
	})
	return r
}

func (s *fakeServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markCalls
}

// setupCLI resets global command state, writes a config file pointing at
// srv and freezes the clock at 2024-01-01 09:30 local time.
func setupCLI(t *testing.T, srv *fakeServer) string {
	t.Helper()
	color.NoColor = true

	jsonOutput = false
	sessionsFile, sessionsFilter = "", "all"
	watchFile, watchFilter, watchInterval = "", "all", 0
	coursesFilter = "all"
	exportFormat, exportDir = "excel", "."
	exportOpts = attendance.ExportOptions{}
	config = nil

	file := filepath.Join(t.TempDir(), DefaultConfigFile)
	configFile = file
	cfg := &Config{Version: ConfigVersion, ServerURL: "http://attendance.test", SessionCookie: "cookie"}
	require.NoError(t, cfg.WriteConfig(file))

	oldClock, oldDoer := clock, newDoer
	t.Cleanup(func() { clock, newDoer = oldClock, oldDoer })
	clock = schedule.NewFixedClock(time.Date(2024, 1, 1, 9, 30, 0, 0, time.Local))
	if srv != nil {
		handler := srv.router()
		newDoer = func(cfg *Config) httpclient.Doer { return httpclient.NewTestClient(cfg, handler) }
	}
	return file
}

func runCLI(ctx context.Context, args ...string) (string, error) {
	var buf bytes.Buffer
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	file := setupCLI(t, nil)
	out, err := runCLI(context.Background(), "--config", file, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "present CLI "+getCLIVersion())
}

func TestConfigCommands(t *testing.T) {
	file := setupCLI(t, nil)
	require.NoError(t, os.Remove(file))
	ctx := context.Background()

	out, err := runCLI(ctx, "--config", file, "config", "--server", "attendance.example.edu:8443", "--cookie", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Server configured: https://attendance.example.edu:8443")

	cfg, err := ReadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.SessionCookie)

	out, err = runCLI(ctx, "--config", file, "config", "theme")
	require.NoError(t, err)
	assert.Equal(t, "Theme: dark\n", out)

	out, err = runCLI(ctx, "--config", file, "config", "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "Theme: light\n", out)
	cfg, err = ReadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Theme)

	_, err = runCLI(ctx, "--config", file, "config", "theme", "solarized")
	assert.Error(t, err)

	_, err = runCLI(ctx, "--config", file, "config", "clear")
	require.NoError(t, err)
	cfg, err = ReadConfig(file)
	require.NoError(t, err)
	assert.Empty(t, cfg.SessionCookie)
	assert.Equal(t, "light", cfg.Theme)

	out, err = runCLI(ctx, "--config", file, "-j", "config", "show")
	require.NoError(t, err)
	var shown map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "false", shown["logged_in"])
	assert.Equal(t, "1m0s", shown["poll_interval"])
}

func TestSessionsFromServer(t *testing.T) {
	file := setupCLI(t, &fakeServer{})
	out, err := runCLI(context.Background(), "--config", file, "sessions")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Active")
	assert.Contains(t, lines[1], "[Mark Present]")
	assert.Contains(t, lines[2], "Upcoming")
	assert.NotContains(t, lines[2], "[Mark Present]")
	// session 3 has no times and is not shown
	assert.NotContains(t, out, "PHY101")
}

func TestSessionsFromFileAsJSON(t *testing.T) {
	file := setupCLI(t, nil)
	sessions := filepath.Join(t.TempDir(), "sessions.yaml")
	require.NoError(t, os.WriteFile(sessions, []byte(`sessions:
  - {id: "1", course_code: CSC401, date: 2024-01-01, start_time: "08:00", end_time: "09:00"}
  - {id: "2", course_code: MTH201, date: 2024-01-01, start_time: "09:00", end_time: "10:00"}
  - {id: "3", course_code: CSC402, date: 2024-01-01, start_time: "nine", end_time: "10:00"}
`), 0600))

	out, err := runCLI(context.Background(), "--config", file, "-j", "sessions", "--file", sessions, "--filter", "csc")
	require.NoError(t, err)

	var rows []struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Status  string `json:"status"`
		Class   string `json:"class"`
		Control struct {
			Visible bool `json:"visible"`
		} `json:"control"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].Session.ID)
	assert.Equal(t, "completed", rows[0].Status)
	assert.Equal(t, "status-completed", rows[0].Class)
	assert.False(t, rows[0].Control.Visible)
}

func TestMarkCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("active session", func(t *testing.T) {
		srv := &fakeServer{}
		file := setupCLI(t, srv)
		out, err := runCLI(ctx, "--config", file, "mark", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "Attendance marked successfully")
		assert.Equal(t, 1, srv.calls())
	})

	t.Run("upcoming session is refused without a request", func(t *testing.T) {
		srv := &fakeServer{}
		file := setupCLI(t, srv)
		_, err := runCLI(ctx, "--config", file, "mark", "2")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session 2 is not active")
		assert.Equal(t, 0, srv.calls())
	})

	t.Run("server failure shows one error", func(t *testing.T) {
		srv := &fakeServer{markFail: true}
		file := setupCLI(t, srv)
		out, err := runCLI(ctx, "--config", file, "mark", "1")
		assert.ErrorIs(t, err, ErrAlreadyHandled)
		assert.Equal(t, 1, srv.calls())
		assert.Equal(t, "❗ "+action.DefaultFailureMessage+"\n", out)
	})
}

func TestMarkCommandAsStudent(t *testing.T) {
	ctx := context.Background()

	t.Run("server accepts an active session", func(t *testing.T) {
		srv := &fakeServer{student: true}
		file := setupCLI(t, srv)
		out, err := runCLI(ctx, "--config", file, "mark", "1")
		require.NoError(t, err)
		assert.Equal(t, "✔ Attendance marked successfully\n", out)
		assert.Equal(t, 1, srv.calls())
		assert.Equal(t, []string{"GET /api/class-sessions", "POST /api/mark-attendance"}, srv.requests)
	})

	t.Run("server refuses an inactive session once", func(t *testing.T) {
		srv := &fakeServer{student: true}
		file := setupCLI(t, srv)
		out, err := runCLI(ctx, "--config", file, "mark", "2")
		assert.ErrorIs(t, err, ErrAlreadyHandled)
		assert.Equal(t, 1, srv.calls())
		assert.Equal(t, "❗ Attendance can only be marked during the session time\n", out)
	})

	t.Run("json output", func(t *testing.T) {
		srv := &fakeServer{student: true}
		file := setupCLI(t, srv)
		out, err := runCLI(ctx, "--config", file, "-j", "mark", "1")
		require.NoError(t, err)
		assert.Contains(t, out, `"label": "Present"`)
	})
}

func TestSessionsAsStudent(t *testing.T) {
	file := setupCLI(t, &fakeServer{student: true})
	_, err := runCLI(context.Background(), "--config", file, "sessions")
	assert.ErrorIs(t, err, ErrSessionsUnavailable)
	assert.ErrorContains(t, err, "--file")
}

func TestWatchAsStudent(t *testing.T) {
	file := setupCLI(t, &fakeServer{student: true})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := runCLI(ctx, "--config", file, "watch")
	assert.ErrorIs(t, err, ErrSessionsUnavailable)
	assert.NoError(t, ctx.Err())
}

func TestJoinCommand(t *testing.T) {
	ctx := context.Background()
	file := setupCLI(t, &fakeServer{})

	out, err := runCLI(ctx, "--config", file, "join", " ab12cd ")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully joined MTH201")

	out, err = runCLI(ctx, "--config", file, "join", "nope")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Equal(t, "❗ Invalid course code\n", out)
}

func TestCoursesCommand(t *testing.T) {
	file := setupCLI(t, &fakeServer{})
	out, err := runCLI(context.Background(), "--config", file, "courses", "--filter", "mth")
	require.NoError(t, err)
	assert.Contains(t, out, "MTH201")
	assert.NotContains(t, out, "CSC401")
}

func TestExportCommand(t *testing.T) {
	file := setupCLI(t, &fakeServer{})
	dir := t.TempDir()

	_, err := runCLI(context.Background(), "--config", file, "export", "--format", "csv", "--out", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "attendance_report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "student,status\nada,present\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = runCLI(context.Background(), "--config", file, "export", "--format", "pdf", "--out", dir)
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)
}

func TestCommandsNeedServer(t *testing.T) {
	file := setupCLI(t, nil)
	require.NoError(t, (&Config{Version: ConfigVersion}).WriteConfig(file))

	_, err := runCLI(context.Background(), "--config", file, "courses")
	assert.ErrorContains(t, err, "no attendance server configured")
}

func TestWatchCommand(t *testing.T) {
	file := setupCLI(t, nil)
	sessions := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessions, []byte(`
[[sessions]]
id = "1"
course_code = "CSC401"
date = "2024-01-01"
start_time = "09:00"
end_time = "10:00"

[[sessions]]
id = "2"
course_code = "MTH201"
date = "2024-01-01"
start_time = "11:00"
end_time = "12:00"
`), 0600))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	out, err := runCLI(ctx, "--config", file, "watch", "--file", sessions, "--interval", "1h")
	require.NoError(t, err)

	assert.Contains(t, out, "session 1 (CSC401) Active  [Mark Present]")
	assert.Contains(t, out, "session 2 (MTH201) Upcoming")
	assert.Contains(t, out, `Session 1 is active. Run "present mark 1" to mark attendance.`)
}
