// Package commands defines the fcschat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - register     Create a relay account and remember the session
//   - login        Log in and remember the session
//   - keygen       Create the local key pair and publish the public key
//   - pubkey       Print the portable public key
//   - fingerprint  Print the key fingerprint, or a peer's
//   - send         Encrypt and send a message to a peer or group
//   - history      Print a conversation grouped by day
//   - chat         Interactive conversation
//   - delete       Delete a message you sent
//   - group        Create groups
//   - block        Block a user
//
// # Implementation
//
// The root command resolves configuration (flags, FCSCHAT_* variables,
// ~/.fcschat/config.yaml) and builds the dependency graph before any
// subcommand runs, so handlers share one app context.
package commands
