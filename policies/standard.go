package policies

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"bramble.dev/config"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/hex"
	"bramble.dev/interfaces/listener"
	"bramble.dev/encoders/reason"
	"bramble.dev/utils/context"
)

// The standard policies. Each is a constructor so the limits come from
// configuration, and each produces a RejectEvent usable in any chain.

// ForbiddenKinds rejects events of the given kinds.
func ForbiddenKinds(kinds ...uint16) RejectEvent {
	forbidden := make(map[uint16]struct{}, len(kinds))
	for _, k := range kinds {
		forbidden[k] = struct{}{}
	}
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if _, ok := forbidden[ev.Kind.K]; ok {
			return true, reason.Msg(
				reason.Blocked, "kind %d not accepted here", ev.Kind.K,
			)
		}
		return false, nil
	}
}

// MaxTags rejects events with more than n tags.
func MaxTags(n int) RejectEvent {
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if ev.Tags.Len() > n {
			return true, reason.Msg(
				reason.Invalid, "too many tags: %d > %d", ev.Tags.Len(), n,
			)
		}
		return false, nil
	}
}

// MaxContentBytes rejects events whose content exceeds n bytes.
func MaxContentBytes(n int) RejectEvent {
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if len(ev.Content) > n {
			return true, reason.Msg(
				reason.Invalid, "content too long: %d > %d",
				len(ev.Content), n,
			)
		}
		return false, nil
	}
}

// CreatedAtBounds rejects events whose created_at is more than future ahead
// of the wall clock, or more than past behind it. A zero past disables the
// backward bound.
func CreatedAtBounds(future, past time.Duration) RejectEvent {
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		now := time.Now()
		t := ev.CreatedAt.Time()
		if t.After(now.Add(future)) {
			return true, reason.Msg(
				reason.Invalid, "created_at too far in the future",
			)
		}
		if past > 0 && t.Before(now.Add(-past)) {
			return true, reason.Msg(
				reason.Invalid, "created_at too far in the past",
			)
		}
		return false, nil
	}
}

func pubkeySet(hexKeys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hexKeys))
	for _, h := range hexKeys {
		if pk, err := hex.Dec(h); err == nil {
			set[string(pk)] = struct{}{}
		}
	}
	return set
}

// BlockedPubkeys rejects events from the given pubkeys.
func BlockedPubkeys(hexKeys ...string) RejectEvent {
	blocked := pubkeySet(hexKeys)
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if _, ok := blocked[string(ev.Pubkey)]; ok {
			return true, reason.Msg(reason.Blocked, "pubkey is blocked")
		}
		return false, nil
	}
}

// AllowedPubkeys rejects events from any pubkey not in the given set.
func AllowedPubkeys(hexKeys ...string) RejectEvent {
	allowed := pubkeySet(hexKeys)
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if _, ok := allowed[string(ev.Pubkey)]; !ok {
			return true, reason.Msg(
				reason.Restricted, "pubkey not on the allow list",
			)
		}
		return false, nil
	}
}

// AuthRequiredKinds rejects events of the given kinds from connections that
// have not completed NIP-42 authentication as the event's author.
func AuthRequiredKinds(kinds ...uint16) RejectEvent {
	demand := make(map[uint16]struct{}, len(kinds))
	for _, k := range kinds {
		demand[k] = struct{}{}
	}
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if _, ok := demand[ev.Kind.K]; !ok {
			return false, nil
		}
		if l == nil || len(l.AuthedPubkey()) == 0 {
			return true, reason.Msg(
				reason.AuthRequired,
				"kind %d requires authentication", ev.Kind.K,
			)
		}
		return false, nil
	}
}

// RequireAuth rejects every event from a connection that has not completed
// NIP-42 authentication.
func RequireAuth() RejectEvent {
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if l == nil || len(l.AuthedPubkey()) == 0 {
			return true, reason.Msg(
				reason.AuthRequired, "this relay requires authentication",
			)
		}
		return false, nil
	}
}

// RequireAuthFilter rejects every filter from a connection that has not
// completed NIP-42 authentication.
func RequireAuthFilter() RejectFilter {
	return func(c context.T, f *filter.F, l listener.I) (bool, []byte) {
		if l == nil || len(l.AuthedPubkey()) == 0 {
			return true, reason.Msg(
				reason.AuthRequired, "this relay requires authentication",
			)
		}
		return false, nil
	}
}

// ProtectedEvents rejects events carrying the NIP-70 "-" tag unless the
// connection has authenticated as the event's author.
func ProtectedEvents() RejectEvent {
	dash := []byte("-")
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if !ev.Tags.ContainsName(dash) {
			return false, nil
		}
		if l == nil || !bytes.Equal(l.AuthedPubkey(), ev.Pubkey) {
			return true, reason.Msg(
				reason.AuthRequired,
				"protected event may only be published by its author",
			)
		}
		return false, nil
	}
}

// RequireTags rejects events of kind k that lack any of the named tags.
func RequireTags(k uint16, names ...string) RejectEvent {
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if ev.Kind.K != k {
			return false, nil
		}
		for _, name := range names {
			if !ev.Tags.ContainsName([]byte(name)) {
				return true, reason.Msg(
					reason.Invalid, "kind %d requires a '%s' tag", k, name,
				)
			}
		}
		return false, nil
	}
}

// RequireNonEmptyContent rejects empty content for the given kinds.
func RequireNonEmptyContent(kinds ...uint16) RejectEvent {
	demand := make(map[uint16]struct{}, len(kinds))
	for _, k := range kinds {
		demand[k] = struct{}{}
	}
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if _, ok := demand[ev.Kind.K]; ok && len(ev.Content) == 0 {
			return true, reason.Msg(
				reason.Invalid, "kind %d requires content", ev.Kind.K,
			)
		}
		return false, nil
	}
}

// BlockTagValues rejects events carrying any of the given values under the
// named tag.
func BlockTagValues(name string, values ...string) RejectEvent {
	blocked := make(map[string]struct{}, len(values))
	for _, v := range values {
		blocked[v] = struct{}{}
	}
	n := []byte(name)
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		for _, v := range ev.Tags.GetValues(n) {
			if _, ok := blocked[string(v)]; ok {
				return true, reason.Msg(
					reason.Blocked, "'%s' tag value not accepted", name,
				)
			}
		}
		return false, nil
	}
}

// SignatureSanity rejects events whose id or signature are not the right
// length, before the expensive verification runs.
func SignatureSanity() RejectEvent {
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if err := ev.CheckExpectedLengths(); err != nil {
			return true, reason.Msg(reason.Invalid, "%s", err.Error())
		}
		return false, nil
	}
}

// Kind0NameValid rejects kind 0 events whose content is not a JSON object
// with a non-empty name field.
func Kind0NameValid() RejectEvent {
	return func(c context.T, ev *event.E, l listener.I) (bool, []byte) {
		if ev.Kind.K != 0 {
			return false, nil
		}
		var profile struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(ev.Content, &profile); err != nil {
			return true, reason.Msg(
				reason.Invalid, "kind 0 content is not a JSON object",
			)
		}
		if profile.Name == "" {
			return true, reason.Msg(
				reason.Invalid, "kind 0 content has no name",
			)
		}
		return false, nil
	}
}

// Standard builds the configured standard rejection chain.
func Standard(cfg *config.C) (chain []RejectEvent) {
	chain = append(chain, SignatureSanity())
	if cfg.AuthRequired {
		chain = append(chain, RequireAuth())
	}
	if len(cfg.ForbiddenKinds) > 0 {
		chain = append(chain, ForbiddenKinds(toKinds(cfg.ForbiddenKinds)...))
	}
	chain = append(chain, MaxTags(cfg.MaxTags))
	chain = append(chain, MaxContentBytes(cfg.MaxContentBytes))
	chain = append(
		chain, CreatedAtBounds(
			time.Duration(cfg.MaxFutureSeconds)*time.Second,
			time.Duration(cfg.MaxPastSeconds)*time.Second,
		),
	)
	if len(cfg.BlockedPubkeys) > 0 {
		chain = append(chain, BlockedPubkeys(cfg.BlockedPubkeys...))
	}
	if len(cfg.AllowedPubkeys) > 0 {
		chain = append(chain, AllowedPubkeys(cfg.AllowedPubkeys...))
	}
	if len(cfg.AuthRequiredKinds) > 0 {
		chain = append(
			chain, AuthRequiredKinds(toKinds(cfg.AuthRequiredKinds)...),
		)
	}
	if len(cfg.RequiredTags) > 0 {
		byKind := make(map[uint16][]string)
		var order []uint16
		for _, r := range cfg.RequiredTags {
			parts := strings.SplitN(r, ":", 2)
			if len(parts) != 2 || parts[1] == "" {
				continue
			}
			n, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			k := uint16(n)
			if _, have := byKind[k]; !have {
				order = append(order, k)
			}
			byKind[k] = append(byKind[k], parts[1])
		}
		for _, k := range order {
			chain = append(chain, RequireTags(k, byKind[k]...))
		}
	}
	if len(cfg.RequireContentKinds) > 0 {
		chain = append(
			chain, RequireNonEmptyContent(toKinds(cfg.RequireContentKinds)...),
		)
	}
	if len(cfg.BlockedTagValues) > 0 {
		byName := make(map[string][]string)
		var order []string
		for _, r := range cfg.BlockedTagValues {
			parts := strings.SplitN(r, ":", 2)
			if len(parts) != 2 || parts[0] == "" {
				continue
			}
			if _, have := byName[parts[0]]; !have {
				order = append(order, parts[0])
			}
			byName[parts[0]] = append(byName[parts[0]], parts[1])
		}
		for _, name := range order {
			chain = append(chain, BlockTagValues(name, byName[name]...))
		}
	}
	chain = append(chain, ProtectedEvents())
	chain = append(chain, Kind0NameValid())
	return
}

// StandardFilters builds the configured filter rejection chain.
func StandardFilters(cfg *config.C) (chain []RejectFilter) {
	if cfg.AuthRequired {
		chain = append(chain, RequireAuthFilter())
	}
	return
}

func toKinds(ns []int) (ks []uint16) {
	for _, n := range ns {
		ks = append(ks, uint16(n))
	}
	return
}
