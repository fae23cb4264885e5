// Package main runs the sqlite-backed relay used by fcschat during development
// and tests. The HTTP and websocket API is documented in internal/devrelay.
//
// Commands
//
//	relay serve [--addr :8080] [--db relay.db] [--media-dir media]
//	    Serve the API until interrupted, then shut down gracefully.
//
//	relay token <user-id> [--ttl 24h]
//	    Print a bearer token for an existing user id.
//
// Both need the HMAC secret (--jwt-secret or RELAY_JWT_SECRET). Every flag
// has a RELAY_ environment equivalent, e.g. RELAY_MEDIA_DIR.
//
// Behaviour
//
//   - Users, keys, groups, blocks and messages persist in sqlite; attachments
//     are plain files under the media directory.
//   - Each request is access-logged with method, path, status, size and
//     duration.
//   - Prometheus metrics are served at /metrics.
//
// The relay never sees plaintext or private keys; it only stores envelopes
// and public keys.
package main
