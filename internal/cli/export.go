package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cspresent/present/internal/attendance"
	"github.com/cspresent/present/internal/notify"
)

var (
	exportFormat string
	exportDir    string
	exportOpts   attendance.ExportOptions
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download attendance records as an Excel or CSV file",
	Long: `Download attendance records. This needs an administrator login. The file
is saved in --out under the name suggested by the server, or
attendance_<date>.<xlsx|csv>.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := attendance.ParseExportFormat(exportFormat)
		if err != nil {
			return err
		}
		client, err := newAttendanceClient()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(exportDir, 0755); err != nil {
			return fmt.Errorf("unable to create output directory: %w", err)
		}
		tmp, err := os.CreateTemp(exportDir, ".present-export-*")
		if err != nil {
			return fmt.Errorf("unable to create output file: %w", err)
		}
		defer os.Remove(tmp.Name())

		opts := exportOpts
		opts.Format = format
		name, err := client.Export(cmd.Context(), opts, clock.Now(), tmp)
		if cerr := tmp.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("unable to write output file: %w", cerr)
		}
		if err != nil {
			return err
		}

		path := filepath.Join(exportDir, name)
		if err := os.Rename(tmp.Name(), path); err != nil {
			return fmt.Errorf("unable to save export: %w", err)
		}
		log.Debug().Str("path", path).Msg("attendance export saved")

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"file": path, "format": string(format)})
		}
		newRenderingNotifier(cmd.OutOrStdout()).Show(notify.LevelSuccess, "Attendance exported to "+path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "excel", "Export format: excel or csv")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "Directory to save the export in")
	exportCmd.Flags().StringVar(&exportOpts.CourseID, "course-id", "", "Only export this course")
	exportCmd.Flags().StringVar(&exportOpts.StudentID, "student-id", "", "Only export this student")
	exportCmd.Flags().StringVar(&exportOpts.StartDate, "start-date", "", "Earliest session date, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportOpts.EndDate, "end-date", "", "Latest session date, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportOpts.Status, "status", "", "Only export records with this status")
	rootCmd.AddCommand(exportCmd)
}
