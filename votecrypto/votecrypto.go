// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package votecrypto implements the signature primitive records are built
// on: RSA-PKCS1v15/SHA-256 signatures over vote messages. Record digests
// come from chainhash, not from this package.
package votecrypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
)

// ErrNotRSAKey is returned when a parsed SubjectPublicKeyInfo does not hold
// an RSA public key.
var ErrNotRSAKey = errors.New("votecrypto: public key is not RSA")

// ParsePublicKey parses a DER-encoded SubjectPublicKeyInfo, as carried
// base64-encoded on the wire for election eligible-key lists and vote
// public keys.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return rsaPub, nil
}

// VoteMessage builds the exact byte sequence a vote signature covers:
// electionHash concatenated with the UTF-8 bytes of choice.
func VoteMessage(electionHash [32]byte, choice string) []byte {
	msg := make([]byte, 0, 32+len(choice))
	msg = append(msg, electionHash[:]...)
	msg = append(msg, choice...)
	return msg
}

// Sign produces a PKCS1v15/SHA-256 signature over message using priv.
func Sign(priv *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
}

// Verify checks a PKCS1v15/SHA-256 signature over message against pub. It
// never panics and returns false (not an error) for any malformed input,
// matching spec's "treat ambiguous failure as false" stance.
func Verify(pub *rsa.PublicKey, message, signature []byte) bool {
	if pub == nil {
		return false
	}
	digest := sha256.Sum256(message)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature) == nil
}
