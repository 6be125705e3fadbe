// Package relayinfo implements the NIP-11 relay information document,
// served on an HTTP GET with Accept: application/nostr+json.
package relayinfo

// NIP is one protocol extension a relay can advertise.
type NIP struct {
	Description string
	Number      int
}

// The NIPs this relay software can advertise.
var (
	BasicProtocol            = NIP{"basic protocol", 1}
	EventDeletion            = NIP{"event deletion", 9}
	RelayInformationDocument = NIP{"relay information document", 11}
	GenericTagQueries        = NIP{"generic tag queries", 12}
	RelayBasedGroups         = NIP{"relay-based groups", 29}
	Authentication           = NIP{"authentication of clients to relay", 42}
	CountingResults          = NIP{"counting results", 45}
	ProtectedEvents          = NIP{"protected events", 70}
)

// N returns the number of the NIP.
func (n NIP) N() int { return n.Number }

// List is a sortable list of NIP numbers.
type List []int

func (l List) Len() int           { return len(l) }
func (l List) Less(i, j int) bool { return l[i] < l[j] }
func (l List) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }

// GetList collects the numbers of the given NIPs.
func GetList(nips ...NIP) (l List) {
	for _, n := range nips {
		l = append(l, n.N())
	}
	return
}

// Limits is the "limitation" object of the information document.
type Limits struct {
	MaxMessageLength int  `json:"max_message_length,omitempty"`
	MaxSubscriptions int  `json:"max_subscriptions,omitempty"`
	MaxLimit         int  `json:"max_limit,omitempty"`
	MaxSubidLength   int  `json:"max_subid_length,omitempty"`
	MaxEventTags     int  `json:"max_event_tags,omitempty"`
	MaxContentLength int  `json:"max_content_length,omitempty"`
	AuthRequired     bool `json:"auth_required"`
	PaymentRequired  bool `json:"payment_required,omitempty"`
	RestrictedWrites bool `json:"restricted_writes,omitempty"`
}

// T is the relay information document.
type T struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Pubkey      string `json:"pubkey,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Nips        List   `json:"supported_nips"`
	Software    string `json:"software"`
	Version     string `json:"version"`
	Limitation  Limits `json:"limitation"`
	Icon        string `json:"icon,omitempty"`
}
