// Package signer abstracts the BIP-340 key operations the relay needs, so
// the curve implementation stays in one place.
package signer

// I is a Schnorr signer/verifier over secp256k1 with x-only public keys.
type I interface {
	// Generate creates a fresh keypair.
	Generate() (err error)
	// InitSec initialises from 32 raw secret key bytes.
	InitSec(sec []byte) (err error)
	// InitPub initialises a verify-only signer from 32 x-only pubkey bytes.
	InitPub(pub []byte) (err error)
	// Sec returns the raw secret key bytes.
	Sec() (b []byte)
	// Pub returns the raw x-only public key bytes.
	Pub() (b []byte)
	// Sign signs a 32 byte message hash.
	Sign(msg []byte) (sig []byte, err error)
	// Verify checks a 64 byte signature over a 32 byte message hash.
	Verify(msg, sig []byte) (valid bool, err error)
}
