package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/appdex/appdex/internal/catalog/job"
)

var refreshMaxAge time.Duration

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-download backend snapshots older than the cache-age tolerance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer c.close(ctx)

		j := job.New(job.ActionRefresh, job.WithMaxCacheAge(refreshMaxAge))
		_, failures, err := c.disp.Submit(ctx, j).Wait()
		printFailures(failures)
		if err != nil {
			return err
		}
		fmt.Println("refresh done")
		return nil
	},
}

func init() {
	refreshCmd.Flags().DurationVar(&refreshMaxAge, "max-age", 24*time.Hour,
		"re-download snapshots older than this")
}
