package crypto

import (
	"encoding/base64"
	"strings"
)

// B64 encodes b as padded standard base64, the form public keys travel in.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// FromB64 decodes standard base64. Whitespace anywhere in s is ignored, so
// keys wrapped across lines by a terminal or mail client still decode.
func FromB64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
}
