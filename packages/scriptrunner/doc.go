// Package scriptrunner provides the collaborators that actually execute
// script code for the suite runner.
//
// Available runners:
//   - ShellRunner: executes code through a local shell (sh -c by default)
//   - RemoteRunner: posts code to an HTTP agent running inside the target
//   - RateLimited: wraps any Runner to cap invocations per second
//
// Runners report success and output. They impose no timeout of their own
// beyond honoring the context they are given.
package scriptrunner
