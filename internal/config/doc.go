// Package config loads, normalizes, and validates cutline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CUTLINE_REMOTE_API_KEY. The Config type centralizes every knob the editing
// core, the acquisition schedulers, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
