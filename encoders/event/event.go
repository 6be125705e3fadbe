// Package event provides a codec for nostr events: the wire form (with Id
// and signature), the canonical form that is hashed to make the Id, and a
// compact binary form used for storage.
package event

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/minio/sha256-simd"
	"lukechampine.com/frand"

	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/interfaces/signer"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"
	"bramble.dev/utils/log"
)

// E is the primary datatype of nostr. The Id, Pubkey and Sig fields are raw
// binary, not hex.
type E struct {

	// Id is the SHA256 hash of the canonical encoding of the event.
	Id []byte

	// Pubkey is the x-only public key of the event creator.
	Pubkey []byte

	// CreatedAt is the unix timestamp the event creator claims. Never trust
	// a timestamp.
	CreatedAt *timestamp.T

	// Kind is the protocol code for the type of event.
	Kind *kind.T

	// Tags is a list of lists of strings carrying structured metadata.
	Tags *tags.T

	// Content is an arbitrary string, its meaning depends on the Kind.
	Content []byte

	// Sig is the BIP-340 signature over the Id hash.
	Sig []byte
}

// S is a slice of events that sorts in reverse chronological order.
type S []*E

func (ev S) Len() int { return len(ev) }

// Less puts the larger (newer) timestamp first.
func (ev S) Less(i, j int) bool { return ev[i].CreatedAt.I64() > ev[j].CreatedAt.I64() }

func (ev S) Swap(i, j int) { ev[i], ev[j] = ev[j], ev[i] }

// C is a channel that carries events.
type C chan *E

// New makes a new empty event.
func New() (ev *E) { return &E{} }

// Serialize renders an event into minified JSON.
func (ev *E) Serialize() (b []byte) { return ev.Marshal(nil) }

// IdString returns the event Id as a hex string.
func (ev *E) IdString() (s string) { return hex.Enc(ev.Id) }

// PubKeyString returns the pubkey as a hex string.
func (ev *E) PubKeyString() (s string) { return hex.Enc(ev.Pubkey) }

// Address returns the replacement address of the event:
// kind:pubkey for replaceable kinds, kind:pubkey:d-tag for addressable
// kinds, nil for everything else.
func (ev *E) Address() (addr []byte) {
	switch {
	case ev.Kind.IsPlainReplaceable():
		addr = ev.Kind.Marshal(nil)
		addr = append(addr, ':')
		addr = hex.EncAppend(addr, ev.Pubkey)
	case ev.Kind.IsParameterizedReplaceable():
		addr = ev.Kind.Marshal(nil)
		addr = append(addr, ':')
		addr = hex.EncAppend(addr, ev.Pubkey)
		addr = append(addr, ':')
		addr = append(addr, ev.Tags.GetValue([]byte("d"))...)
	}
	return
}

// Sign populates Pubkey, Id and Sig from the signer. The caller sets
// CreatedAt as intended before calling.
func (ev *E) Sign(keys signer.I) (err error) {
	ev.Pubkey = keys.Pub()
	ev.Id = ev.GetIDBytes()
	if ev.Sig, err = keys.Sign(ev.Id); chk.E(err) {
		return
	}
	return
}

// Verify checks the Id is the canonical hash and the signature validates
// against the pubkey the event carries.
func (ev *E) Verify() (valid bool, err error) {
	keys := p256k.Signer{}
	if err = keys.InitPub(ev.Pubkey); chk.E(err) {
		return
	}
	if !bytes.Equal(ev.Id, ev.GetIDBytes()) {
		log.D.F("event %0x Id does not match canonical hash", ev.Id)
		return
	}
	if valid, err = keys.Verify(ev.Id, ev.Sig); chk.D(err) {
		return
	}
	return
}

// CheckExpectedLengths verifies the binary field lengths of a decoded event.
func (ev *E) CheckExpectedLengths() (err error) {
	if len(ev.Id) != sha256.Size {
		return errorf.E("invalid Id, require %d got %d", sha256.Size, len(ev.Id))
	}
	if len(ev.Pubkey) != schnorr.PubKeyBytesLen {
		return errorf.E(
			"invalid pubkey, require %d got %d", schnorr.PubKeyBytesLen,
			len(ev.Pubkey),
		)
	}
	if len(ev.Sig) != schnorr.SignatureSize {
		return errorf.E(
			"invalid sig, require %d got %d", schnorr.SignatureSize,
			len(ev.Sig),
		)
	}
	return
}

// Hash is a helper that returns a sha256 digest as a slice.
func Hash(in []byte) (out []byte) {
	h := sha256.Sum256(in)
	return h[:]
}

// GenerateRandomTextNoteEvent makes a signed kind 1 event with random
// content, for tests and benchmarks.
func GenerateRandomTextNoteEvent(sign signer.I, maxSize int) (
	ev *E, err error,
) {
	l := frand.Intn(maxSize*6/8 + 1)
	ev = &E{
		Pubkey:    sign.Pub(),
		Kind:      kind.TextNote,
		CreatedAt: timestamp.Now(),
		Content:   frand.Bytes(l),
		Tags:      tags.New(),
	}
	if err = ev.Sign(sign); chk.E(err) {
		return
	}
	return
}

// GenerateRandomReplaceableEvent makes a signed addressable event with a
// given d tag, for tests.
func GenerateRandomReplaceableEvent(sign signer.I, k *kind.T, d string) (
	ev *E, err error,
) {
	ev = &E{
		Pubkey:    sign.Pub(),
		Kind:      k,
		CreatedAt: timestamp.Now(),
		Content:   frand.Bytes(32),
		Tags:      tags.New(tag.New("d", d)),
	}
	if err = ev.Sign(sign); chk.E(err) {
		return
	}
	return
}
