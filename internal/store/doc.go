// Package store provides file-based persistence for the local key material.
//
// It contains concrete implementations of the domain storage interfaces.
// All methods are concurrency-safe via internal locking. Files live under
// the configured home directory and are replaced atomically on write.
//
// The package includes:
//   - The local RSA private key, sealed with a passphrase-derived key
//     (scrypt + ChaCha20-Poly1305) in private_key.enc
//   - The last seen public key per peer in peers.json, used to flag key
//     changes reported by the relay directory
package store
