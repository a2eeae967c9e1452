// Package output renders suite executions for people and for CI.
//
// New picks a Formatter by name (see Formats). Console output is written as
// each suite finishes; the json, junit, tap and html formatters collect
// every execution and write a single document from Flush, so one report
// can cover several suite files. ProgressObserver plugs into the runner
// and prints a line per finished test case for the non-console formats.
package output
