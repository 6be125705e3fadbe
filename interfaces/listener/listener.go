// Package listener is the minimal surface of a connected client the rest of
// the relay writes to.
package listener

// I is one live client connection.
type I interface {
	Write(p []byte) (n int, err error)
	Close() error
	Remote() string
	// AuthedPubkey returns the NIP-42 authenticated pubkey, nil if none.
	AuthedPubkey() []byte
}
