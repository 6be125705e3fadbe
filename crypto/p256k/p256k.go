// Package p256k implements signer.I using the btcec secp256k1 library with
// BIP-340 schnorr signatures.
package p256k

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"
)

// SecKeyLen is the length of a raw secret key in bytes.
const SecKeyLen = 32

// Signer is a signer.I backed by btcec.
type Signer struct {
	sec      *btcec.PrivateKey
	pub      *btcec.PublicKey
	skb, pkb []byte
}

// Generate creates a new keypair.
func (s *Signer) Generate() (err error) {
	if s.sec, err = btcec.NewPrivateKey(); chk.E(err) {
		return
	}
	s.skb = s.sec.Serialize()
	s.pub = s.sec.PubKey()
	s.pkb = schnorr.SerializePubKey(s.pub)
	return
}

// InitSec initialises a Signer from raw secret key bytes.
func (s *Signer) InitSec(sec []byte) (err error) {
	if len(sec) != SecKeyLen {
		err = errorf.E("sec key must be %d bytes, got %d", SecKeyLen, len(sec))
		return
	}
	s.sec, s.pub = btcec.PrivKeyFromBytes(sec)
	s.skb = s.sec.Serialize()
	s.pkb = schnorr.SerializePubKey(s.pub)
	return
}

// InitPub initialises a verify-only Signer from raw x-only public key bytes.
func (s *Signer) InitPub(pub []byte) (err error) {
	if s.pub, err = schnorr.ParsePubKey(pub); chk.E(err) {
		return
	}
	s.pkb = pub
	return
}

// Sec returns the raw secret key bytes.
func (s *Signer) Sec() (b []byte) { return s.skb }

// Pub returns the raw BIP-340 x-only public key bytes.
func (s *Signer) Pub() (b []byte) { return s.pkb }

// Sign signs a message hash. Requires an initialised secret key.
func (s *Signer) Sign(msg []byte) (sig []byte, err error) {
	if s.sec == nil {
		err = errorf.E("p256k: signer has no secret key")
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.Sign(s.sec, msg); chk.E(err) {
		return
	}
	sig = si.Serialize()
	return
}

// Verify checks a signature over a message hash. Only needs the public key.
func (s *Signer) Verify(msg, sig []byte) (valid bool, err error) {
	if s.pub == nil {
		err = errorf.E("p256k: signer has no public key")
		return
	}
	var si *schnorr.Signature
	if si, err = schnorr.ParseSignature(sig); err != nil {
		err = errorf.D("failed to parse signature: %d bytes: %v", len(sig), err)
		return
	}
	valid = si.Verify(msg, s.pub)
	return
}

// Zero wipes the secret key bytes.
func (s *Signer) Zero() {
	if s.sec != nil {
		s.sec.Zero()
	}
	for i := range s.skb {
		s.skb[i] = 0
	}
}
