package cli

import (
	"github.com/spf13/cobra"

	"github.com/cspresent/present/internal/action"
	"github.com/cspresent/present/internal/poller"
	"github.com/cspresent/present/internal/view"
)

var (
	sessionsFile   string
	sessionsFilter string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show class sessions and whether they are upcoming, active or completed",
	Long: `Show class sessions and their status at the current time. Sessions are
read from the attendance server, or from a YAML or TOML file with --file.
Sessions with a missing date, start or end time are not shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := sessionSource(sessionsFile)
		if err != nil {
			return err
		}

		changes, err := poller.New(clock, source, nil).Tick(cmd.Context())
		if err != nil {
			return explainListing(err)
		}

		board := action.NewBoard(nil)
		board.Apply(changes...)
		rows := make([]view.Row, 0, len(changes))
		for _, ch := range changes {
			st := board.Control(ch.SessionID).State()
			rows = append(rows, view.NewRow(ch.Descriptor, ch.Current, &st))
		}
		rows = view.FilterRows(rows, sessionsFilter)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rows)
		}
		newRenderer(cmd.OutOrStdout()).Sessions(rows)
		return nil
	},
}

// sessionSource reads descriptors from file, or from the server when file
// is empty.
func sessionSource(file string) (poller.Source, error) {
	if file != "" {
		return fileSource(file), nil
	}
	client, err := newAttendanceClient()
	if err != nil {
		return nil, err
	}
	return client, nil
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsFile, "file", "f", "", "Read sessions from a YAML or TOML file instead of the server")
	sessionsCmd.Flags().StringVar(&sessionsFilter, "filter", "all", "Only show sessions whose course code contains this text")
	rootCmd.AddCommand(sessionsCmd)
}
