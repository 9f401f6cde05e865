// Package signer implements the two signature shapes the venue requires:
// user-sign, which signs the hex encoding of the message with the
// trader's long-lived identity key, and session-sign, which signs the raw
// message bytes with a short-lived ephemeral session key.
//
// Both shapes produce a 64-byte R‖S signature. go-ethereum's crypto.Sign
// returns 65 bytes (R‖S‖V); the trailing recovery byte is dropped here since
// the wire contract fixes signature length at 64 bytes and the venue never
// needs to recover the signer's address from the signature alone — the
// identity/session key is already known from ensure_session.
package signer

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

const signatureLen = 64

// Signer wraps a secp256k1 private key and exposes the two narrow signing
// operations the exchange adapter needs. A Signer is immutable once built,
// so a single instance may back both a long-lived identity key and a
// short-lived session key — the caller constructs a fresh Signer whenever
// ensure_session rotates the ephemeral key.
type Signer struct {
	key *ecdsa.PrivateKey
}

// FromBase58 parses a base58-encoded secp256k1 private key, the encoding
// used for the identity_key configuration value. go-ethereum's own
// crypto.HexToECDSA cannot parse this encoding directly, which is why
// base58 decoding happens here rather than deferring to it.
func FromBase58(encoded string) (*Signer, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("signer: decode base58 identity key: %w", err)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("signer: parse identity key: %w", err)
	}
	return &Signer{key: key}, nil
}

// NewEphemeral generates a fresh session key, used each time ensure_session
// establishes a new session.
func NewEphemeral() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("signer: generate ephemeral key: %w", err)
	}
	return &Signer{key: key}, nil
}

// PublicKeyHex renders the signer's public key, used when registering a
// session's ephemeral key with the venue during ensure_session.
func (s *Signer) PublicKeyHex() string {
	return common.Bytes2Hex(crypto.FromECDSAPub(&s.key.PublicKey))
}

// UserSign signs hex(m) with the identity key: the venue's user-sign shape.
// m is the framed message M = varint(len(payload)) ‖ payload.
func (s *Signer) UserSign(m []byte) ([]byte, error) {
	return s.sign([]byte(hex.EncodeToString(m)))
}

// SessionSign signs m directly with the session's ephemeral key: the
// venue's session-sign shape.
func (s *Signer) SessionSign(m []byte) ([]byte, error) {
	return s.sign(m)
}

// sign hashes data with Keccak256 and produces a 64-byte R‖S signature,
// matching the hash-then-sign pattern go-ethereum's crypto.Sign requires
// (it only accepts 32-byte digests).
func (s *Signer) sign(data []byte) ([]byte, error) {
	hash := crypto.Keccak256(data)
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("signer: sign: %w", err)
	}
	return sig[:signatureLen], nil
}
