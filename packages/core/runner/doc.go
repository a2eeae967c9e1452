// Package runner executes test suites.
//
// It provides:
//   - CaseRunner, which runs a single test case against a Script Runner
//     with a per-attempt timeout, retries and assertion classification
//   - Engine, a single-flight state machine that runs the enabled cases of
//     a suite in order, honoring dependencies, stop-on-failure and
//     setup/teardown scripts
//   - Observer, the lifecycle callbacks fired during a run
//
// Cases always run sequentially. The suite's parallel flag is carried by
// the data model but never read here.
package runner
