// Package auth implements the NIP-42 authentication exchange: the relay
// issues a random challenge, the client answers with a signed kind 22242
// event naming the challenge and the relay URL.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"bramble.dev/encoders/event"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"
)

// Tolerance is how far an auth event's created_at may drift from the relay
// clock.
const Tolerance = 10 * time.Minute

var (
	// ChallengeTag names the challenge in an auth event, preventing replay.
	ChallengeTag = []byte("challenge")
	// RelayTag names the relay URL, preventing cross-relay replay.
	RelayTag = []byte("relay")
)

// GenerateChallenge creates a 16 byte base64 challenge string.
func GenerateChallenge() (b []byte) {
	bb := make([]byte, 12)
	b = make([]byte, 16)
	_, _ = rand.Read(bb)
	base64.URLEncoding.Encode(b, bb)
	return
}

// CreateUnsigned creates the event a client signs and sends in an AUTH
// response.
func CreateUnsigned(pubkey, challenge []byte, relayURL string) (ev *event.E) {
	return &event.E{
		Pubkey:    pubkey,
		CreatedAt: timestamp.Now(),
		Kind:      kind.ClientAuthentication,
		Tags: tags.New(
			tag.New("relay", relayURL),
			tag.New("challenge", string(challenge)),
		),
	}
}

func parseURL(input string) (*url.URL, error) {
	return url.Parse(strings.ToLower(strings.TrimSuffix(input, "/")))
}

// Validate checks whether an event is a valid auth response for the given
// challenge and relay URL. Failure detail is in err; ok reflects whether the
// signature verified.
func Validate(evt *event.E, challenge []byte, relayURL string) (
	ok bool, err error,
) {
	if evt.Kind.K != kind.ClientAuthentication.K {
		err = errorf.E("incorrect kind for auth: %d", evt.Kind.K)
		return
	}
	if !evt.Tags.ContainsAny(ChallengeTag, tag.New(challenge)) {
		err = errorf.E("challenge tag missing from auth response")
		return
	}
	var expected, found *url.URL
	if expected, err = parseURL(relayURL); chk.D(err) {
		return
	}
	r := evt.Tags.GetValue(RelayTag)
	if len(r) == 0 {
		err = errorf.E("relay tag missing from auth response")
		return
	}
	if found, err = parseURL(string(r)); chk.D(err) {
		err = errorf.E("error parsing relay url: %s", err)
		return
	}
	if expected.Scheme != found.Scheme {
		err = errorf.E(
			"scheme incorrect: expected '%s' got '%s'",
			expected.Scheme, found.Scheme,
		)
		return
	}
	if expected.Host != found.Host {
		err = errorf.E(
			"host incorrect: expected '%s' got '%s'",
			expected.Host, found.Host,
		)
		return
	}
	if expected.Path != found.Path {
		err = errorf.E(
			"path incorrect: expected '%s' got '%s'",
			expected.Path, found.Path,
		)
		return
	}
	now := time.Now()
	if evt.CreatedAt.Time().After(now.Add(Tolerance)) ||
		evt.CreatedAt.Time().Before(now.Add(-Tolerance)) {
		err = errorf.E("auth event timestamp out of tolerance")
		return
	}
	// signature last, it is the expensive check
	return evt.Verify()
}
