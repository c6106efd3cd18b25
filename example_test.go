package tablesearch_test

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wanmail/tablesearch"
	"github.com/wanmail/tablesearch/log"
)

// This example searches the demo page in Firefox, or in Chrome if Firefox
// cannot be started, and prints the outcome of each search.
//
// If you want to actually run this example:
//
//  1. Make sure geckodriver or chromedriver is in PATH (or run
//     `tablesearch drivers`).
//  2. Remove the word "Example" from the comment at the bottom of the
//     function.
//  3. Run:
//     go test -test.run=Example$ github.com/wanmail/tablesearch
func Example() {
	logger, closer, err := log.Open(log.DefaultPath, logrus.DebugLevel)
	if err != nil {
		panic(err) // panic is used only as an example and is not otherwise recommended.
	}
	defer closer.Close()

	l, err := tablesearch.NewLauncher(
		tablesearch.WithLogger(logger),
		tablesearch.Headless(true),
		tablesearch.Output(os.Stderr), // Show the driver's own output.
	)
	if err != nil {
		panic(err)
	}

	err = tablesearch.Run(l, tablesearch.Firefox, tablesearch.DefaultScenarios(), func(r tablesearch.Result) {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		fmt.Printf("%s %s in %s: %s\n", status, r.Scenario, r.Browser, r.Text)
	})
	if err != nil {
		fmt.Println(err)
	}

	// Example Output:
	// PASS New York=5 in firefox: Showing 1 to 5 of 5 entries (filtered from 24 total entries)
	// PASS San Francisco=3 in firefox: Showing 1 to 3 of 3 entries (filtered from 24 total entries)
	// PASS Chicago=1 in firefox: Showing 1 to 1 of 1 entries (filtered from 24 total entries)
}
