// Package file implements the config store port on a TOML file under
// the user's seedsync directory.
package file
