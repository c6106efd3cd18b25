package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wanmail/tablesearch"
)

var (
	passColor  = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	noteColor  = color.New(color.FgYellow)
	faintColor = color.New(color.Faint)
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	// The flags are only bound to define them; loadConfig applies the ones
	// given on top of the file and environment.
	defaults := tablesearch.DefaultConfig()
	gofs := flag.NewFlagSet("run", flag.ContinueOnError)
	defaults.RegisterFlags(gofs)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search the demo table in a browser and check each result",
		Long: `Run opens one browser session, searches the demo table for each scenario
and checks that the result summary reads "filtered from 24 total entries"
and "Showing 1 to N of N".

If the requested browser cannot be launched, chrome is used instead. The
log is appended to --log_file.

Examples:
  # Default scenarios in chrome
  tablesearch run

  # Firefox without a window
  tablesearch run --browser=firefox --headless

  # Custom searches against a Selenium grid
  tablesearch run --scenarios "London=6,Tokyo=4" --remote_url http://localhost:4444/wd/hub`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRunCmd(cmd)
		},
	}
	cmd.Flags().AddGoFlagSet(gofs)
	cmd.Flags().Bool("driver_output", false, "Copy the WebDriver server's output to stderr")
	return cmd
}

func runRunCmd(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := cfg.OpenLog()
	if err != nil {
		return err
	}
	defer closeLog()

	opts := cfg.LauncherOptions(logger)
	if show, _ := cmd.Flags().GetBool("driver_output"); show {
		opts = append(opts, tablesearch.Output(cmd.ErrOrStderr()))
	}
	l, err := tablesearch.NewLauncher(opts...)
	if err != nil {
		return usageError{err}
	}

	out := cmd.OutOrStdout()
	var passed, failed int
	fellBack := false
	err = tablesearch.Run(l, cfg.Browser, cfg.Scenarios, func(r tablesearch.Result) {
		if r.Browser != cfg.Browser && !fellBack {
			fellBack = true
			noteColor.Fprintf(out, "%s could not be launched, running in %s (see %s)\n", cfg.Browser, r.Browser, cfg.LogFile)
		}
		if r.Passed() {
			passed++
		} else {
			failed++
		}
		printResult(out, r)
	})
	if passed+failed > 0 {
		fmt.Fprintf(out, "%d passed, %d failed\n", passed, failed)
	}
	if errors.Is(err, tablesearch.ErrUnsupportedBrowser) {
		return usageError{err}
	}
	return err
}

// loadConfig builds the run configuration: defaults, then the --config file,
// then the environment, then the flags given on the command line.
func loadConfig(cmd *cobra.Command) (tablesearch.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := tablesearch.LoadConfig(path)
	if err != nil {
		return tablesearch.Config{}, usageError{err}
	}

	set := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) { set[f.Name] = f.Value.String() })
	if err := cfg.Override(set); err != nil {
		return tablesearch.Config{}, usageError{err}
	}
	if err := cfg.Validate(); err != nil {
		return tablesearch.Config{}, usageError{err}
	}
	return cfg, nil
}

func printResult(w io.Writer, r tablesearch.Result) {
	if r.Passed() {
		passColor.Fprint(w, "PASS")
	} else {
		failColor.Fprint(w, "FAIL")
	}
	fmt.Fprintf(w, " %s ", r.Scenario)
	faintColor.Fprintf(w, "(%s, %s)", r.Browser, r.Duration.Round(time.Millisecond))
	if r.Text != "" {
		fmt.Fprintf(w, ": %s", r.Text)
	}
	fmt.Fprintln(w)
	if r.Err != nil {
		fmt.Fprintf(w, "    %v\n", r.Err)
	}
}
