// Package main provides the tablesearch command.
//
// tablesearch drives a browser through the search box of the LambdaTest table
// search demo and checks the result summary of each search.
//
// Usage:
//
//	tablesearch run --browser=firefox
//	tablesearch drivers chrome firefox
//
// See --help for all available options.
package main

func main() {
	Execute()
}
