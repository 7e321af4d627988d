package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Signer produces a signature over raw bytes. TokenProvider depends on this
// interface rather than on a concrete key so tests can substitute a
// throwaway key or a stub without touching the protocol logic.
type Signer interface {
	Sign(data []byte) ([]byte, error)
}

// rsaSigner signs with RSA PKCS#1 v1.5 over SHA-256, the algorithm the
// token endpoint expects for RS256 assertions.
type rsaSigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner parses a PEM-encoded RSA private key (PKCS#8 or PKCS#1) into
// a Signer. Service account keys downloaded from the cloud console are
// PKCS#8 ("BEGIN PRIVATE KEY").
func NewRSASigner(pemKey []byte) (Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("no PEM block found in private key material")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T, want *rsa.PrivateKey", key)
		}
		return &rsaSigner{key: rsaKey}, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &rsaSigner{key: key}, nil
}

func (s *rsaSigner) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
}
