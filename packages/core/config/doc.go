// Package config handles configuration loading and management for scriptsuite.
//
// It provides functionality for:
//   - Loading configuration from .scriptsuite.yaml or scriptsuite.yaml files
//   - Default configuration values
//   - Named environments holding suite variables
//   - Notification settings
package config
