package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/job"
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Install an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runManage(cmd.Context(), job.ActionInstall, args[0], -1)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runManage(cmd.Context(), job.ActionRemove, args[0], -1)
	},
}

var setRatingCmd = &cobra.Command{
	Use:   "set-rating <name> <0-100>",
	Short: "Rate an app",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil || rating < 0 || rating > 100 {
			return errors.Errorf("rating must be an integer between 0 and 100, got %q", args[1])
		}
		return runManage(cmd.Context(), job.ActionSetRating, args[0], rating)
	},
}

var (
	reviewSummary  string
	reviewText     string
	reviewRating   int
	reviewReviewer string
)

var reviewCmd = &cobra.Command{
	Use:   "review <name>",
	Short: "Submit a review for an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reviewRating < 0 || reviewRating > 100 {
			return errors.Errorf("rating must be between 0 and 100, got %d", reviewRating)
		}
		ctx := cmd.Context()
		c, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer c.close(ctx)

		target, err := resolveApp(ctx, c, args[0])
		if err != nil {
			return err
		}
		review := &app.Review{
			Reviewer: reviewReviewer,
			Summary:  reviewSummary,
			Text:     reviewText,
			Rating:   reviewRating,
		}
		j := job.New(job.ActionSubmitReview, job.WithTarget(target), job.WithReview(review))
		_, failures, err := c.disp.Submit(ctx, j).Wait()
		printFailures(failures)
		if err != nil {
			return err
		}
		fmt.Printf("review submitted for %s\n", target.Key())
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewReviewer, "reviewer", "", "reviewer display name")
	reviewCmd.Flags().StringVar(&reviewSummary, "summary", "", "one-line summary")
	reviewCmd.Flags().StringVar(&reviewText, "text", "", "review body")
	reviewCmd.Flags().IntVar(&reviewRating, "rating", 60, "rating from 0 to 100")
	_ = reviewCmd.MarkFlagRequired("summary")
}

// runManage resolves the named app and runs the owner-routed action on it.
func runManage(ctx context.Context, action job.Action, name string, rating int) error {
	c, err := buildCore(ctx)
	if err != nil {
		return err
	}
	defer c.close(ctx)

	target, err := resolveApp(ctx, c, name)
	if err != nil {
		return err
	}

	opts := []job.Option{job.WithTarget(target)}
	if action == job.ActionSetRating {
		opts = append(opts, job.WithRating(rating))
	}

	_, failures, err := c.disp.Submit(ctx, job.New(action, opts...)).Wait()
	printFailures(failures)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", action, target.Key())
	return nil
}

// resolveApp finds the catalog app registered under name, searching the
// installed set first so remove targets carry their management owner.
func resolveApp(ctx context.Context, c *core, name string) (*app.App, error) {
	for _, action := range []job.Action{job.ActionGetInstalled, job.ActionSearch} {
		list, _, err := c.disp.Submit(ctx, job.New(action, job.WithQuery(name))).Wait()
		if err != nil {
			return nil, err
		}
		if list == nil {
			continue
		}
		if a, ok := list.LookupByName(name); ok {
			return a, nil
		}
	}
	return nil, errors.Errorf("no app named %q in the catalog", name)
}
