// Package config loads, normalizes, and validates clipforge configuration.
//
// Configuration lives in a TOML file (default ~/.config/clipforge/config.toml)
// with sections per subsystem. Load applies defaults first, then the file,
// then path expansion and validation, so a missing file yields a fully usable
// default configuration.
package config
