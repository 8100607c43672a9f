// Package config loads, validates, and normalizes tubescribe configuration.
//
// Configuration is read from a TOML file resolved in order: an explicit
// path, ~/.config/tubescribe/config.toml, then ./tubescribe.toml. Missing
// files fall back to defaults so the daemon can start with only an API
// token supplied through the environment.
package config
