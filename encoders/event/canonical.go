package event

import (
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/text"
)

// ToCanonical appends the canonical form of the event to dst: a JSON array
//
//	[0,"<pubkey>",<created_at>,<kind>,<tags>,"<content>"]
//
// whose sha256 hash is the event Id.
func (ev *E) ToCanonical(dst []byte) (b []byte) {
	b = dst
	b = append(b, "[0,"...)
	b = text.AppendQuote(b, ev.Pubkey, hex.EncAppend)
	b = append(b, ',')
	b = ev.CreatedAt.Marshal(b)
	b = append(b, ',')
	b = ev.Kind.Marshal(b)
	b = append(b, ',')
	b = ev.Tags.Marshal(b)
	b = append(b, ',')
	b = text.AppendQuote(b, ev.Content, text.NostrEscape)
	b = append(b, ']')
	return
}

// GetIDBytes returns the sha256 hash of the canonical form of the event.
func (ev *E) GetIDBytes() (id []byte) { return Hash(ev.ToCanonical(nil)) }
