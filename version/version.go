// Package version holds the release version and description reported in the
// relay information document.
package version

var (
	// V is the version string, overridden at link time on release builds.
	V = "v0.4.1"
	// Description appears in the NIP-11 document.
	Description = "bramble: a relay-moderated group chat (NIP-29) nostr relay"
	// URL is the software URL for NIP-11.
	URL = "https://bramble.dev"
)
