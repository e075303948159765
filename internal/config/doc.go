// Package config loads, normalizes, and validates autocap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files and an optional .env file, and honours
// environment fallbacks such as WISTIA_API_PASSWORD and NLPCLOUD_KEY. The
// Config type centralizes every knob the CLI and captioning pipeline need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical service names, and clear validation errors.
package config
