package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/event"
	"github.com/appdex/appdex/internal/catalog/job"
)

var installedCmd = &cobra.Command{
	Use:   "installed",
	Short: "List installed apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), job.New(job.ActionGetInstalled))
	},
}

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "List apps with pending updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), job.New(job.ActionGetUpdates))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := strings.Join(args, " ")
		return runQuery(cmd.Context(), job.New(job.ActionSearch, job.WithQuery(q)))
	},
}

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "List popular apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), job.New(job.ActionGetPopular))
	},
}

var featuredCmd = &cobra.Command{
	Use:   "featured",
	Short: "List featured apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), job.New(job.ActionGetFeatured))
	},
}

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Resolve a local package file to its catalog app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), job.New(job.ActionFileToApp, job.WithQuery(args[0])))
	},
}

// runQuery executes one list-producing job end to end and prints the
// merged result.
func runQuery(ctx context.Context, j *job.Job) error {
	c, err := buildCore(ctx)
	if err != nil {
		return err
	}
	defer c.close(ctx)

	list, failures, err := c.disp.Submit(ctx, j).Wait()
	printFailures(failures)
	if err != nil {
		return err
	}
	printList(list)
	return nil
}

func printList(list *app.List) {
	apps := list.Apps()
	if len(apps) == 0 {
		fmt.Println("no results")
		return
	}
	for _, a := range apps {
		line := fmt.Sprintf("%-40s %-12s %s", a.Key(), a.State(), a.Name())
		if v := a.Version(); v != "" {
			line += " " + v
		}
		if uv := a.UpdateVersion(); uv != "" {
			line += " -> " + uv
		}
		if r := a.Rating(); r >= 0 {
			line += fmt.Sprintf(" [%d%%]", r)
		}
		fmt.Println(line)
		if s := a.Summary(); s != "" {
			fmt.Printf("  %s\n", s)
		}
	}
	fmt.Printf("%d app(s)\n", len(apps))
}

func printFailures(failures []event.Failure) {
	for _, f := range failures {
		fmt.Println(f.String())
	}
}
