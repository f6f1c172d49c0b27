// ABOUTME: Configuration package
// ABOUTME: YAML config files with defaults, env overrides and validation
// Package config loads the YAML configuration shared by the player and relay.
//
// Values are layered: built-in defaults, then the file, then environment
// variables (relay secrets), then command-line flags set by the binaries.
package config
