// Package relay provides an HTTP implementation of the domain.RelayClient
// interface.
//
// The relay stores and forwards opaque envelopes and serves the user
// directory holding each user's public key. It never sees plaintext.
//
// Supported operations include:
//   - Sending an envelope, optionally with one media attachment (multipart).
//   - Fetching direct or group history for initial hydration.
//   - Deleting a message.
//   - Fetching a directory entry and publishing our own public key.
//   - Listing group members.
//
// All requests carry the bearer token, accept a context for cancellation and
// deadlines, and exchange JSON. Non-2xx statuses become domain.ErrTransport
// errors with the method, path and status text; a relay error body with code
// "blocked" becomes domain.ErrBlocked.
package relay
