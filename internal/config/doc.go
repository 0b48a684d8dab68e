// Package config loads, normalizes, and validates qubesadm
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/qubesadm/config.toml
// or a project-local qubesadm.toml. The Config type centralizes every
// knob the CLI needs: the qubesd socket location, transport variant
// selection, output rendering, and logging.
//
// Always obtain settings through this package so downstream code
// receives sanitized paths, canonical transport modes, and clear
// validation errors.
package config
