/*
Package tablesearch drives a real browser through the search box of the
LambdaTest table search demo page and checks the result summary that
DataTables renders under the table.

A scenario navigates to the page, types a term into the search box, waits for
the "#example_info" element and asserts, by substring, that it reads
"filtered from 24 total entries" and "Showing 1 to N of N". Each wait is
bounded by a fixed timeout and is never retried.

The browser is chosen by name (chrome, firefox or edge). When a browser other
than chrome cannot be launched, the failure is logged and chrome is used
instead. The session is always closed once the scenarios are done.

Example usage:

	logger, closer, err := log.Open(log.DefaultPath, logrus.DebugLevel)
	if err != nil {
		panic(err)
	}
	defer closer.Close()

	l, err := tablesearch.NewLauncher(tablesearch.WithLogger(logger), tablesearch.Headless(true))
	if err != nil {
		panic(err)
	}
	err = tablesearch.Run(l, tablesearch.Firefox, tablesearch.DefaultScenarios(), func(r tablesearch.Result) {
		fmt.Printf("%s: %v\n", r.Scenario, r.Err)
	})
*/
package tablesearch
