package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// usageError marks errors caused by the command line or configuration, as
// opposed to failing searches.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// NewRootCmd creates the root command for tablesearch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tablesearch",
		Short: "Browser acceptance check of the table search demo",
		Long: `tablesearch opens the LambdaTest table search demo in a real browser,
searches the table and checks the "Showing 1 to N of N" summary of each
search.

Settings are read from a YAML file (--config), then from TABLESEARCH_*
environment variables, then from flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.PersistentFlags().StringP("config", "c", "", "Path of a YAML configuration file")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewDriversCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with 2 on usage errors and 1 on
// any other failure.
func Execute() {
	cmd := NewRootCmd()
	// Expose the glog flags (-v, -logtostderr, ...) of the driver downloader.
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	flag.CommandLine.Parse(nil)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var uerr usageError
	if errors.As(err, &uerr) {
		return 2
	}
	return 1
}
