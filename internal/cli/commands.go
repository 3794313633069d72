// Package cli implements the present command line: it configures the
// attendance server, classifies class sessions, watches them change status
// and marks attendance while a session is active.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cspresent/present/internal/attendance"
	"github.com/cspresent/present/internal/common/apperrors"
	"github.com/cspresent/present/internal/common/httpclient"
	"github.com/cspresent/present/internal/common/logtrace"
	"github.com/cspresent/present/internal/notify"
	"github.com/cspresent/present/internal/schedule"
	"github.com/cspresent/present/internal/view"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
)

// ErrAlreadyHandled is returned once the failure was shown to the user.
var ErrAlreadyHandled = errors.New("already handled")

// ErrSessionsUnavailable is returned when the server will not list class
// sessions to the logged in user.
var ErrSessionsUnavailable apperrors.Error = apperrors.New("the server lists class sessions to administrators only, use --file to read sessions from a file")

var errorLabel = color.New(color.FgRed)

// replaced in tests
var (
	clock   schedule.Clock = schedule.SystemClock{}
	newDoer                = func(cfg *Config) httpclient.Doer { return httpclient.NewClient(cfg) }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "present [command] [flags]",
	Short: "present - mark class attendance from the command line",
	Long: `present shows which class sessions are upcoming, active or completed and
lets you mark attendance while a session is active.

Examples:
  # Point the CLI at the attendance server and store your login cookie
  present config --server https://attendance.example.edu --cookie <value>

  # Show today's sessions
  present sessions

  # Keep watching sessions and get told when one becomes active
  present watch

  # Mark attendance for session 42
  present mark 42

  # Join a course
  present join CSC101`,
	PersistentPreRunE: preRunHandlePersistents,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			_ = printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents resolves the config file and loads it. A missing
// file is not an error here; commands that talk to the server check for it.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		var err error
		configFile, err = GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}

	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" || c.Name() == "version" {
			logtrace.InitLogger(os.Getenv(EnvLogLevel))
			return nil
		}
	}

	if err := LoadConfig(configFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		config = &Config{Version: ConfigVersion}
	}
	logtrace.InitLogger(config.GetLogLevel())
	return nil
}

// newAttendanceClient builds a client for the configured server.
func newAttendanceClient() (*attendance.Client, error) {
	cfg := GetConfig()
	if cfg == nil || cfg.ServerURL == "" {
		return nil, errors.New("no attendance server configured. Run \"present config --server <url>\" first")
	}
	return attendance.NewClient(newDoer(cfg)), nil
}

func newRenderer(w io.Writer) *view.Renderer {
	theme := view.DefaultTheme
	if cfg := GetConfig(); cfg != nil {
		theme = cfg.GetTheme()
	}
	return view.NewRenderer(w, view.Options{Theme: theme})
}

// renderingNotifier prints notifications as they are shown. Nothing is
// printed in JSON mode.
type renderingNotifier struct {
	n *notify.Notifier
	r *view.Renderer
}

func newRenderingNotifier(w io.Writer) *renderingNotifier {
	return &renderingNotifier{
		n: notify.New(clock, nil, 0),
		r: newRenderer(w),
	}
}

func (n *renderingNotifier) Show(level notify.Level, msg string) notify.Notification {
	note := n.n.Show(level, msg)
	if !jsonOutput {
		n.r.Notification(note)
	}
	return note
}

// describeFailure returns the server's reason for a rejected request, or
// "" when the generic failure message should be shown.
func describeFailure(err error) string {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.IsUnauthenticated() {
			return httpErr.Message
		}
		return ""
	}
	if errors.Is(err, attendance.ErrRequestRejected) {
		return err.Error()
	}
	return ""
}

// listingForbidden reports whether the server refused to list class
// sessions to the current user. Only administrators may list them.
func listingForbidden(err error) bool {
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.IsUnauthenticated() || httpErr.StatusCode == http.StatusForbidden
}

// explainListing turns a refused session listing into advice to read
// sessions from a file.
func explainListing(err error) error {
	if listingForbidden(err) {
		return ErrSessionsUnavailable.Err(err)
	}
	return err
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of present",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version":     getCLIVersion(),
					"config_file": configFile,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "present CLI %s\n", getCLIVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", configFile)
			return nil
		},
	}
}

// printJSON writes data as indented JSON.
func printJSON(w io.Writer, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
