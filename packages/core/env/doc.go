// Package env resolves ${name} placeholders in script code and loads the
// variable sets that feed them.
//
// Variables come from, in increasing precedence:
//   - the environments section of the config file
//   - .env files
//   - SCRIPTSUITE_VAR_* process environment variables
//   - suite-level variables
//   - --var flags
//
// Placeholders that name a builtin call, such as ${uuid()}, are evaluated
// through package builtin. Unresolved placeholders are left verbatim.
package env
