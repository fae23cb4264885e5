// Package app wires application dependencies for the CLI.
//
// It resolves Config from flags, FCSCHAT_* variables and config.yaml (via
// viper), then builds the file store, relay client, key store and message
// pipeline, exposing them via App for commands to use.
package app
