package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cspresent/present/internal/action"
	"github.com/cspresent/present/internal/attendance"
	"github.com/cspresent/present/internal/notify"
	"github.com/cspresent/present/internal/poller"
)

const (
	joinSuccessMessage = "Successfully joined course"
	joinFailureMessage = "Failed to join course. Please check the code."
)

var markCmd = &cobra.Command{
	Use:   "mark <session-id>",
	Short: "Mark attendance for an active class session",
	Long: `Mark attendance for a class session. The session must be active: its date
is today and the current time lies between its start and end time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := strings.TrimSpace(args[0])
		client, err := newAttendanceClient()
		if err != nil {
			return err
		}

		notifier := newRenderingNotifier(cmd.OutOrStdout())
		board := action.NewBoard(notifier, action.Options{Describe: describeFailure})
		control := board.Control(sessionID)

		changes, err := poller.New(clock, client, nil).Tick(cmd.Context())
		switch {
		case listingForbidden(err):
			// Students cannot list sessions. The server checks the window itself.
			log.Debug().Err(err).Str("session_id", sessionID).Msg("session listing refused, sending mark request")
			control.SetVisible(true)
		case err != nil:
			return err
		default:
			board.Apply(changes...)
		}

		var result attendance.Result
		err = control.Trigger(cmd.Context(), func(ctx context.Context) (string, error) {
			var err error
			result, err = client.MarkAttendance(ctx, sessionID)
			return result.Message, err
		})
		switch {
		case errors.Is(err, action.ErrHidden):
			return action.ErrHidden.Msg("session " + sessionID + " is not active, attendance can only be marked during the session")
		case err != nil && !jsonOutput:
			return ErrAlreadyHandled
		case err != nil:
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"session_id": sessionID,
				"success":    true,
				"message":    result.Message,
				"label":      control.State().Label,
			})
		}
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <course-code>",
	Short: "Join a course using the join code from your lecturer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAttendanceClient()
		if err != nil {
			return err
		}
		notifier := newRenderingNotifier(cmd.OutOrStdout())

		result, err := client.JoinCourse(cmd.Context(), args[0])
		if err != nil {
			msg := describeFailure(err)
			if msg == "" {
				msg = joinFailureMessage
			}
			notifier.Show(notify.LevelError, msg)
			if jsonOutput {
				return err
			}
			return ErrAlreadyHandled
		}

		msg := result.Message
		if msg == "" {
			msg = joinSuccessMessage
		}
		notifier.Show(notify.LevelSuccess, msg)
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"course_code": attendance.NormalizeCourseCode(args[0]),
				"success":     true,
				"message":     msg,
			})
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(joinCmd)
}
