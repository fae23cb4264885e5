// Package crypto exposes the primitives used by the encryption layer.
//
// Contents
//
//   - RSA-OAEP (SHA-256, 2048-bit, e=65537) key generation, portable
//     export/import of public keys and PKCS#8 (de)serialisation of private keys
//     (GenerateKeyPair, ExportPublicKey, ImportPublicKey)
//   - The hybrid Envelope Cipher: a fresh AES-256-GCM content key and 12-byte
//     nonce per message, the content key wrapped with RSA-OAEP for each reader
//     (Encrypt, Decrypt)
//   - KeyContext, the session-scoped holder of the local private key
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// Encrypt and Decrypt keep no state between calls; every call mints or
// unwraps its own content key and wipes it before returning. A KeyContext is
// safe to share between concurrent Decrypt calls.
package crypto
