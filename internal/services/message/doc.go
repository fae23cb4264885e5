// Package message is the message pipeline of the open conversation.
//
// It encrypts outbound text with the Envelope Cipher, stores it through the
// relay and fans it out on the room channel; it decrypts inbound frames and
// history records and merges them into an ordered, de-duplicated timeline.
// Per-message failures never stop the pipeline: an envelope that cannot be
// decrypted becomes a placeholder entry and a send that fails keeps its
// typed text for Retry.
package message
