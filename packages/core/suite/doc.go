// Package suite defines the scriptsuite data model.
//
// It provides:
//   - Suite and TestCase definitions with their execution policy
//   - Loose construction from YAML documents or plain maps, with defaults
//   - Explicit validation that reports every violated rule at once
//   - Execution Result and Test Case Result records produced by the runner
//   - Script libraries referenced by test cases
//
// Values in this package are plain data. The runner treats suites as
// read-only input; callers own them and may persist them however they like.
package suite
