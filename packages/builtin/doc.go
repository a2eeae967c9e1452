// Package builtin provides the functions that can be called from a variable
// placeholder before a script is handed to a Script Runner.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(): current UTC time, RFC 3339
//   - date(layout): current UTC date, Go layout (default 2006-01-02)
//   - timestamp(), timestampMs(): Unix time in seconds / milliseconds
//   - random(min, max): random integer in [min, max]
//   - randomString(length): random alphanumeric string
//   - base64(value), base64Decode(value)
//   - sha256(value): hex digest
//   - env(name[, fallback]): process environment lookup
//
// Calls are written as ${name(args)} in script code.
package builtin
