package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

const (
	// RSABits is the modulus size of generated key pairs and the minimum accepted on import.
	RSABits = 2048
	// RSAExponent is the only public exponent accepted on import.
	RSAExponent = 65537
)

// GenerateKeyPair creates a fresh RSA-OAEP key pair and checks that it can
// wrap and unwrap a probe key.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSABits)
	if err != nil {
		return nil, domain.Wrap(domain.CodeCryptoUnavailable, "generate rsa key", err)
	}
	if err := SelfTest(priv); err != nil {
		return nil, err
	}
	return priv, nil
}

// SelfTest wraps and unwraps a random probe with priv. A failure means the
// runtime cannot perform the primitive and is reported as CryptoUnavailable.
func SelfTest(priv *rsa.PrivateKey) error {
	probe := make([]byte, contentKeySize)
	if _, err := rand.Read(probe); err != nil {
		return domain.Wrap(domain.CodeCryptoUnavailable, "read random probe", err)
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &priv.PublicKey, probe, nil)
	if err != nil {
		return domain.Wrap(domain.CodeCryptoUnavailable, "wrap probe", err)
	}
	got, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return domain.Wrap(domain.CodeCryptoUnavailable, "unwrap probe", err)
	}
	if !bytes.Equal(got, probe) {
		return domain.New(domain.CodeCryptoUnavailable, "rsa-oaep self test mismatch")
	}
	return nil
}

// ExportPublicKey returns the portable form of pub: base64 of DER SPKI.
func ExportPublicKey(pub *rsa.PublicKey) (domain.PublicKeyString, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return domain.PublicKeyString(B64(der)), nil
}

// ImportPublicKey parses and validates a portable public key.
func ImportPublicKey(s domain.PublicKeyString) (*rsa.PublicKey, error) {
	if s == "" {
		return nil, domain.New(domain.CodeKeyImport, "empty public key")
	}
	der, err := FromB64(string(s))
	if err != nil {
		return nil, domain.Wrap(domain.CodeKeyImport, "decode public key", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, domain.Wrap(domain.CodeKeyImport, "parse public key", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, domain.New(domain.CodeKeyImport, fmt.Sprintf("public key is %T, want RSA", parsed))
	}
	if pub.N.BitLen() < RSABits {
		return nil, domain.New(
			domain.CodeKeyImport,
			fmt.Sprintf("rsa modulus is %d bits, want at least %d", pub.N.BitLen(), RSABits),
		)
	}
	if pub.E != RSAExponent {
		return nil, domain.New(domain.CodeKeyImport, fmt.Sprintf("rsa exponent %d not accepted", pub.E))
	}
	return pub, nil
}

// MarshalPrivateKey encodes priv as PKCS#8 DER.
func MarshalPrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(priv)
}

// ParsePrivateKey decodes a PKCS#8 DER RSA private key.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want RSA", k)
	}
	return priv, nil
}
