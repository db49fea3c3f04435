// Package protocol defines the protocol.ID type used by multistream-select
// and the stream handler router.
package protocol

// ID names an application-level protocol negotiated over a stream,
// e.g. "/ipfs/id/1.0.0".
type ID string

// ConvertToStrings is a convenience for building wire-message repeated-string
// fields (identify's protocols list) from a []ID.
func ConvertToStrings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// ConvertFromStrings is the inverse of ConvertToStrings.
func ConvertFromStrings(strs []string) []ID {
	out := make([]ID, len(strs))
	for i, s := range strs {
		out[i] = ID(s)
	}
	return out
}

// Switch is the read side of a host's protocol router: the set of
// currently-registered application protocol IDs, used by the identify
// snapshot engine to populate the protocols field (§4.5).
type Switch interface {
	Protocols() []ID
}
