// Package assertions extracts assertion outcomes from the output of an
// executed script.
//
// Two forms are recognized:
//   - marker lines: "[PASS] message", "[FAIL] message", "✓ message",
//     "✗ message" (also ✔ and ✘), after ANSI color codes are stripped
//   - a JSON object output with an "assertions" array of
//     {"passed": bool, "message": string}
//
// Output that contains neither yields no assertions.
package assertions
