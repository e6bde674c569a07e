package main

import (
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pricewatch/internal/model"
	"github.com/sells-group/pricewatch/internal/tracker"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run scheduled price checks until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("watch"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		events := make(chan model.TrackEvent, 64)
		tr := newTracker(st, tracker.Options{Events: events})

		go func() {
			for ev := range events {
				logEvent(ev)
			}
		}()

		schedule := watchSchedule
		if schedule == "" {
			schedule = cfg.Watch.Schedule
		}

		c := cron.New()
		_, err = c.AddFunc(schedule, func() {
			if _, err := tr.RefreshAll(ctx); err != nil {
				zap.L().Error("watch: scheduled refresh failed", zap.Error(err))
			}
		})
		if err != nil {
			return eris.Wrapf(err, "watch: bad schedule %q", schedule)
		}

		// First pass immediately, then on schedule. cron.Stop only waits
		// for cron-launched jobs, so this goroutine must be joined before
		// the event channel closes.
		var initial sync.WaitGroup
		initial.Add(1)
		go func() {
			defer initial.Done()
			if _, err := tr.RefreshAll(ctx); err != nil {
				zap.L().Error("watch: initial refresh failed", zap.Error(err))
			}
		}()

		c.Start()
		zap.L().Info("watch started", zap.String("schedule", schedule))

		<-ctx.Done()
		zap.L().Info("shutting down watch")
		<-c.Stop().Done()
		initial.Wait()
		close(events)
		return nil
	},
}

func logEvent(ev model.TrackEvent) {
	switch ev.Kind {
	case model.EventUpdated:
		zap.L().Info("price updated",
			zap.String("product", ev.ProductID),
			zap.String("amount", ev.Point.Amount.StringFixed(2)),
			zap.String("currency", ev.Point.Currency),
		)
	case model.EventAmbiguous:
		zap.L().Warn("ambiguous price, pin a selector",
			zap.String("product", ev.ProductID),
			zap.String("url", ev.URL),
			zap.Int("candidates", len(ev.Candidates)),
		)
	case model.EventLoadFailed, model.EventTrackingFailed:
		zap.L().Warn("check failed",
			zap.String("product", ev.ProductID),
			zap.String("url", ev.URL),
			zap.String("reason", string(ev.Reason)),
		)
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule (default from config)")
	rootCmd.AddCommand(watchCmd)
}
