package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"bramble.dev/encoders/hex"
	"bramble.dev/helpers"
	"bramble.dev/protocol/relayinfo"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
	"bramble.dev/version"
)

// HandleRelayInfo serves the NIP-11 information document.
func (s *S) HandleRelayInfo(w http.ResponseWriter, r *http.Request) {
	remote := helpers.GetRemoteFromReq(r)
	log.T.F("handling relay info request from %s", remote)
	supportedNIPs := relayinfo.GetList(
		relayinfo.BasicProtocol,
		relayinfo.EventDeletion,
		relayinfo.RelayInformationDocument,
		relayinfo.GenericTagQueries,
		relayinfo.RelayBasedGroups,
		relayinfo.Authentication,
		relayinfo.CountingResults,
		relayinfo.ProtectedEvents,
	)
	sort.Sort(supportedNIPs)
	name := s.Cfg.RelayName
	if name == "" {
		name = s.Cfg.AppName
	}
	description := s.Cfg.RelayDescription
	if description == "" {
		description = version.Description
	}
	info := &relayinfo.T{
		Name:        name,
		Description: description,
		Pubkey:      hex.Enc(s.Relay.Pub()),
		Contact:     s.Cfg.RelayContact,
		Nips:        supportedNIPs,
		Software:    version.URL,
		Version:     version.V,
		Limitation: relayinfo.Limits{
			MaxLimit:         s.Cfg.MaxLimit,
			MaxEventTags:     s.Cfg.MaxTags,
			MaxContentLength: s.Cfg.MaxContentBytes,
			AuthRequired:     s.Cfg.AuthRequired,
			RestrictedWrites: len(s.Cfg.AllowedPubkeys) > 0,
		},
		Icon: s.Cfg.RelayIcon,
	}
	w.Header().Set("Content-Type", "application/nostr+json")
	if err := json.NewEncoder(w).Encode(info); chk.E(err) {
		return
	}
}
