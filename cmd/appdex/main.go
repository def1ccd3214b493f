package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appdex/appdex/pkg/version"
)

var confDir string

var rootCmd = &cobra.Command{
	Use:   "appdex",
	Short: "appdex is a software catalog client",
	Long:  "appdex queries, refines and manages apps across the configured catalog backends",
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			return
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&confDir, "conf", "conf.d", "conf dir path, e.g. --conf ./conf.d")

	rootCmd.AddCommand(version.VersionCmd)
	rootCmd.AddCommand(installedCmd)
	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(popularCmd)
	rootCmd.AddCommand(featuredCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(setRatingCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
