// Package config loads, normalizes, and validates Siphon configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SIPHON_ARCHIVE. The Config type centralizes every knob the CLI needs,
// allowing working directories and service endpoints to be discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
