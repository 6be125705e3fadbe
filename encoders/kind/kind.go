// Package kind is the nostr event kind number and its NIP-01 classification
// into regular, replaceable, ephemeral and parameterized replaceable
// (addressable) ranges.
package kind

import (
	"go.uber.org/atomic"

	"bramble.dev/encoders/ints"
)

// T is a nostr event kind.
type T struct {
	K uint16
}

// New creates a kind from any integer type.
func New[V uint16 | uint64 | int64 | int | uint32 | int32](k V) *T { return &T{K: uint16(k)} }

// Kinds with dedicated handling in this relay.
var (
	ProfileMetadata      = New(0)
	TextNote             = New(1)
	FollowList           = New(3)
	Deletion             = New(5)
	PutUser              = New(9000)
	RemoveUser           = New(9001)
	EditMetadata         = New(9002)
	DeleteGroupEvent     = New(9005)
	CreateGroup          = New(9007)
	DeleteGroup          = New(9008)
	CreateInvite         = New(9009)
	JoinRequest          = New(9021)
	LeaveRequest         = New(9022)
	ClientAuthentication = New(22242)
	GroupMetadata        = New(39000)
	GroupAdmins          = New(39001)
	GroupMembers         = New(39002)
	GroupRoles           = New(39003)
)

// legacy narrows IsReplaceable to the kind-0 + addressable view of the
// original implementation when set.
var legacy atomic.Bool

// SetLegacyReplaceable toggles source-parity classification: only kind 0 and
// the addressable range count as replaceable.
func SetLegacyReplaceable(on bool) { legacy.Store(on) }

// Equal reports whether two kinds are the same number.
func (k *T) Equal(other *T) bool { return k != nil && other != nil && k.K == other.K }

// ToInt returns the kind number as an int.
func (k *T) ToInt() int { return int(k.K) }

// IsEphemeral reports whether events of this kind are broadcast without
// being persisted (20000-29999).
func (k *T) IsEphemeral() bool { return k.K >= 20000 && k.K < 30000 }

// IsParameterizedReplaceable reports whether this kind is addressable by
// (pubkey, kind, d tag) (30000-39999).
func (k *T) IsParameterizedReplaceable() bool { return k.K >= 30000 && k.K < 40000 }

// IsPlainReplaceable reports whether at most one event per (pubkey, kind) is
// retained: kind 0, kind 3 and 10000-19999 (only kind 0 in legacy mode).
func (k *T) IsPlainReplaceable() bool {
	if legacy.Load() {
		return k.K == 0
	}
	return k.K == 0 || k.K == 3 || (k.K >= 10000 && k.K < 20000)
}

// IsReplaceable reports whether the replacement resolver handles this kind,
// plain or parameterized.
func (k *T) IsReplaceable() bool {
	return k.IsPlainReplaceable() || k.IsParameterizedReplaceable()
}

// IsRegular reports whether events of this kind are append-only.
func (k *T) IsRegular() bool {
	return !k.IsReplaceable() && !k.IsEphemeral()
}

// IsGroupModeration reports whether the kind is in the NIP-29 moderation
// range 9000-9020.
func (k *T) IsGroupModeration() bool { return k.K >= 9000 && k.K <= 9020 }

// IsGroupMetadata reports whether the kind is a relay-authored group state
// snapshot, 39000-39003.
func (k *T) IsGroupMetadata() bool { return k.K >= 39000 && k.K <= 39003 }

// Marshal appends the ASCII decimal kind number to dst.
func (k *T) Marshal(dst []byte) (b []byte) { return ints.New(k.K).Marshal(dst) }

// Unmarshal reads an ASCII decimal kind number from the front of b.
func (k *T) Unmarshal(b []byte) (r []byte, err error) {
	n := ints.New(0)
	if r, err = n.Unmarshal(b); err != nil {
		return
	}
	k.K = n.Uint16()
	return
}
