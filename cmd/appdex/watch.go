package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/job"
	"github.com/appdex/appdex/pkg/log"
	"github.com/appdex/appdex/pkg/metrics"
	"github.com/appdex/appdex/pkg/shutdown"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run in the foreground, refreshing snapshots periodically and reporting pending operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer c.close(ctx)

		metrics.Register(prometheus.DefaultRegisterer)

		c.disp.OnPendingChanged(func(pending *app.List) {
			apps := pending.Apps()
			names := make([]string, 0, len(apps))
			for _, a := range apps {
				names = append(names, fmt.Sprintf("%s(%s)", a.ID().Name, a.State()))
			}
			log.Infow("pending apps changed", "pending", names)
		})

		refresh := func() {
			j := job.New(job.ActionRefresh, job.WithMaxCacheAge(watchInterval))
			_, failures, err := c.disp.Submit(ctx, j).Wait()
			for _, f := range failures {
				log.Warnw("refresh failure", "event", f.String())
			}
			if err != nil {
				log.Errorw("refresh failed", "error", err)
			}
		}

		sched := cron.New()
		if err := sched.AddFunc(fmt.Sprintf("@every %s", watchInterval), refresh); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		refresh()

		mgr := shutdown.NewManager()
		mgr.TrapSignals()
		log.Infow("watching", "interval", watchInterval.String())
		<-mgr.Wait()
		log.Infow("shutting down")
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Hour,
		"snapshot refresh cadence")
}
