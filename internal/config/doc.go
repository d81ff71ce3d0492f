// Package config loads, normalizes, and validates panelcast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// pipeline and CLI need: input and output directories, the target VideoSpec,
// external tool binaries and probe timeouts, the silent-audio policy, and
// logging.
//
// Components never read configuration globals; callers obtain a *Config here
// and pass the relevant values (most importantly VideoSpec) down explicitly.
package config
