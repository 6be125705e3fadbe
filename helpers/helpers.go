// Package helpers has small functions shared by the HTTP surfaces.
package helpers

import (
	"net/http"
	"strings"
)

// GetRemoteFromReq returns the best guess at the client address, preferring
// proxy headers over the socket address.
func GetRemoteFromReq(r *http.Request) (rr string) {
	rem := r.Header.Get("X-Forwarded-For")
	if rem != "" {
		splitted := strings.Split(rem, " ")
		if len(splitted) == 1 {
			rr = splitted[0]
		}
		if len(splitted) == 2 {
			rr = splitted[1]
		}
		// in case upstream doesn't set this or we are directly ripping.
		if rr == "" {
			rr = r.RemoteAddr
		}
	} else {
		rr = r.RemoteAddr
	}
	return
}

// ServiceURL derives the canonical websocket URL of this relay from an
// inbound request, for NIP-42 relay tag validation.
func ServiceURL(r *http.Request) (s string) {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		if host == "localhost" || strings.HasPrefix(host, "localhost:") ||
			strings.HasPrefix(host, "127.") || strings.HasPrefix(host, "[::1]") {
			proto = "ws"
		} else if strings.Contains(host, ":") &&
			!strings.HasPrefix(host, "[") {
			// has a port number, probably not behind TLS
			proto = "ws"
		} else {
			proto = "wss"
		}
	} else if proto == "https" {
		proto = "wss"
	} else if proto == "http" {
		proto = "ws"
	}
	return proto + "://" + host
}
