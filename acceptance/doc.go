// Package acceptance runs the table search scenarios against the live demo
// page in a real browser.
//
// The tests are skipped with -short and when no WebDriver server can be
// found. Flags mirror the tablesearch command, e.g.
//
//	go test ./acceptance -args -browser=firefox -headless
//
// Use -args (or TABLESEARCH_TIMEOUT) to set the step timeout, since go test
// claims -timeout for itself.
package acceptance
