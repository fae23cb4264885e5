// Package keystore manages the local RSA key pair and peer public keys.
//
// It enforces passphrase policy, generates and seals the key pair via the
// domain.PrivateKeyStore, publishes the public half to the relay directory
// and resolves peers' keys through a small LRU cache in front of the
// directory.
package keystore
