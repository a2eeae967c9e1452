// Package cmd implements the scriptsuite CLI commands using Cobra.
//
// Available commands:
//   - run: Execute test suites through a shell or remote script runner
//   - validate: Check suite files against the schema and suite rules
//   - list: Display the test cases of suite files
//   - history: Show recent executions stored in the results database
//   - init: Create a config file and an example suite
//   - version: Show scriptsuite version information
//
// The run command supports environment selection, variable overrides,
// output formats, notifications, Prometheus metrics and watch mode.
package cmd
