// Package config loads the tracker's YAML configuration.
//
// Files may reference environment variables as ${VAR} or with a
// shell-style fallback as ${VAR:-value}. Unset fields are filled from
// the Default* constants, and Validate rejects inconsistent values
// before any component starts.
package config
