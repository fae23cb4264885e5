package domain

import "fmt"

// Code classifies failures of the encryption layer.
type Code string

const (
	CodeCryptoUnavailable Code = "CRYPTO_UNAVAILABLE"
	CodeKeyImport         Code = "KEY_IMPORT"
	CodeEncryption        Code = "ENCRYPTION"
	CodeDecryption        Code = "DECRYPTION"
	CodeTransport         Code = "TRANSPORT"
	CodeBlocked           Code = "BLOCKED"
	CodeDeleteInFlight    Code = "DELETE_IN_FLIGHT"
	CodeNoKey             Code = "NO_KEY"
)

// Error is a classified failure. Two errors match under errors.Is when their
// codes are equal.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New returns an error of the given code.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap returns an error of the given code wrapping cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

var (
	// ErrCryptoUnavailable is fatal to the feature: no encryption is possible.
	ErrCryptoUnavailable = New(CodeCryptoUnavailable, "cryptographic primitives unavailable")
	// ErrKeyImport means a peer key is malformed or of the wrong algorithm.
	ErrKeyImport = New(CodeKeyImport, "invalid peer public key")
	// ErrEncryption is a transient failure while sealing an envelope.
	ErrEncryption = New(CodeEncryption, "encryption failed")
	// ErrDecryption is a per-message failure: wrong recipient or tampered envelope.
	ErrDecryption = New(CodeDecryption, "decryption failed")
	// ErrTransport means the channel is not open or the relay rejected a request.
	ErrTransport = New(CodeTransport, "transport failure")
	// ErrBlocked is reported by the relay when the recipient blocked the sender.
	ErrBlocked = New(CodeBlocked, "sender is blocked by recipient")
	// ErrDeleteInFlight rejects a second concurrent delete of the same message.
	ErrDeleteInFlight = New(CodeDeleteInFlight, "delete already in progress")
	// ErrNoKey means no local key pair has been generated or loaded.
	ErrNoKey = New(CodeNoKey, "no local key pair; run keygen first")
)
