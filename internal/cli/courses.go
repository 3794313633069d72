package cli

import (
	"github.com/spf13/cobra"

	"github.com/cspresent/present/internal/view"
)

var coursesFilter string

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAttendanceClient()
		if err != nil {
			return err
		}
		courses, err := client.ListCourses(cmd.Context())
		if err != nil {
			return err
		}
		courses = view.FilterCourses(courses, coursesFilter)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), courses)
		}
		newRenderer(cmd.OutOrStdout()).Courses(courses)
		return nil
	},
}

func init() {
	coursesCmd.Flags().StringVar(&coursesFilter, "filter", "all", "Only show courses whose code contains this text")
	rootCmd.AddCommand(coursesCmd)
}
