package main

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wanmail/tablesearch"
	"github.com/wanmail/tablesearch/internal/download"
)

// NewDriversCmd creates the drivers command.
func NewDriversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivers [browser...]",
		Short: "Download WebDriver servers into the driver cache",
		Long: `Drivers downloads chromedriver, geckodriver and msedgedriver (or only those
of the named browsers) into the driver cache directory, where run looks for
them before searching PATH.

Examples:
  # All drivers
  tablesearch drivers

  # Only geckodriver, into a custom directory
  tablesearch drivers firefox --dir ./vendor`,
		Args: cobra.ArbitraryArgs,
		RunE: runDriversCmd,
	}
	cmd.Flags().String("dir", download.DefaultDir(), "Directory the drivers are saved in")
	cmd.Flags().String("chrome_build", "", "Chromium snapshot build to take chromedriver from (default: the latest)")
	return cmd
}

func runDriversCmd(cmd *cobra.Command, args []string) error {
	drivers, err := driversFor(args)
	if err != nil {
		return usageError{err}
	}

	dir, _ := cmd.Flags().GetString("dir")
	f := download.NewFetcher(dir)
	f.ChromeBuild, _ = cmd.Flags().GetString("chrome_build")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	paths, err := f.Fetch(ctx, drivers...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	for _, d := range drivers {
		fmt.Fprintf(w, "%s\t%s\n", d.Browser, paths[d.Browser])
	}
	return w.Flush()
}

// driversFor returns the drivers of the named browsers, or all drivers when
// none are named.
func driversFor(names []string) ([]download.Driver, error) {
	if len(names) == 0 {
		return download.Drivers(), nil
	}
	var out []download.Driver
	seen := make(map[download.Driver]bool)
	for _, name := range names {
		b, err := tablesearch.ParseBrowser(name)
		if err != nil {
			return nil, err
		}
		d, err := download.ForBrowser(string(b))
		if err != nil {
			return nil, err
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}
