// Package config loads, normalizes, and validates runner configuration data.
//
// It supplies recipe defaults (ratios, sample rate, silence phones, segment
// bound, speaker), expands user paths, reads TOML files, loads the optional
// env file, and honours the KIRITAN environment variable for the corpus root.
// Relative data and log paths resolve against the recipe directory so the Go
// runner and the external scripts agree on the layout.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
