// Package config handles appk configuration using Viper with TOML as the file format.
//
// Values are layered: built-in defaults, then appk.toml (an explicit --config
// path, ./appk.toml, or $XDG_CONFIG_HOME/appk/appk.toml), then APPK_*
// environment variables (APPK_LOADER_MAX_APPS for loader.max_apps), then
// command-line flags.
package config
