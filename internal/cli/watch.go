package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cspresent/present/internal/action"
	"github.com/cspresent/present/internal/eventbus"
	"github.com/cspresent/present/internal/notify"
	"github.com/cspresent/present/internal/poller"
	"github.com/cspresent/present/internal/view"
)

var (
	watchFile     string
	watchFilter   string
	watchInterval time.Duration
)

const watchBufferSize = 64

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch class sessions and report status changes",
	Long: `Watch class sessions, evaluating them immediately and then once per
interval, and print every status change. When a session becomes active you
are told how to mark attendance for it. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := sessionSource(watchFile)
		if err != nil {
			return err
		}
		if watchFile == "" {
			if _, err := source.Descriptors(cmd.Context()); listingForbidden(err) {
				return explainListing(err)
			}
		}
		interval := watchInterval
		if interval <= 0 {
			interval = GetConfig().GetPollInterval()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bus := eventbus.New()
		notifier := notify.New(clock, bus, 0)
		board := action.NewBoard(notifier)
		p := poller.New(clock, source, bus, poller.Options{Interval: interval})

		statuses, _ := bus.Subscribe(eventbus.SessionStatusPattern, watchBufferSize)
		notes, _ := bus.Subscribe(eventbus.NotifyPattern, watchBufferSize)

		r := newRenderer(cmd.OutOrStdout())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for statuses != nil || notes != nil {
				select {
				case ev, ok := <-statuses:
					if !ok {
						statuses = nil
						continue
					}
					ch, ok := ev.Data.(poller.StatusChange)
					if !ok || !view.MatchCourse(watchFilter, ch.Descriptor.CourseCode) {
						continue
					}
					board.Apply(ch)
					if jsonOutput {
						_ = printJSON(cmd.OutOrStdout(), view.NewRow(ch.Descriptor, ch.Current, nil))
						continue
					}
					r.Change(ch)
					if ch.BecameActive() {
						notifier.Info(fmt.Sprintf("Session %s is active. Run \"present mark %s\" to mark attendance.", ch.SessionID, ch.SessionID))
					}
				case ev, ok := <-notes:
					if !ok {
						notes = nil
						continue
					}
					if n, ok := ev.Data.(notify.Notification); ok && !jsonOutput {
						r.Notification(n)
					}
				}
			}
		}()

		log.Info().Dur("interval", interval).Msg("watching class sessions")
		err = p.Run(ctx)
		bus.Shutdown()
		wg.Wait()

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchFile, "file", "f", "", "Read sessions from a YAML or TOML file instead of the server")
	watchCmd.Flags().StringVar(&watchFilter, "filter", "all", "Only report sessions whose course code contains this text")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "How often to re-evaluate sessions (default from config, 1m)")
	rootCmd.AddCommand(watchCmd)
}
