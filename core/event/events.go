package event

import (
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/protocol"
	"github.com/stephanfeb/p2p-core/core/record"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// AddrAction classifies one entry of an EvtLocalAddressesUpdated diff (§6).
type AddrAction int

const (
	AddrAdded AddrAction = iota
	AddrMaintained
	AddrRemoved
)

// UpdatedAddress is one (address, action) entry in a local-address diff.
type UpdatedAddress struct {
	Address ma.Multiaddr
	Action  AddrAction
}

// EvtLocalAddressesUpdated is published whenever the host's computed
// Addrs() set changes (§4.6, §6).
type EvtLocalAddressesUpdated struct {
	Diffs   bool
	Current []UpdatedAddress
	Removed []UpdatedAddress
}

// EvtLocalProtocolsUpdated is published when SetStreamHandler/RemoveStreamHandler
// change the local protocol set (§4.6, §6).
type EvtLocalProtocolsUpdated struct {
	Added   []protocol.ID
	Removed []protocol.ID
}

// EvtPeerIdentificationCompleted is published after identify successfully
// consumes a peer's response (§4.5 step 7, §6).
type EvtPeerIdentificationCompleted struct {
	Peer             peer.ID
	Conn             any // network.Conn; any to avoid an event->network import cycle
	ListenAddrs      []ma.Multiaddr
	Protocols        []protocol.ID
	SignedPeerRecord *record.Envelope
	AgentVersion     string
	ProtocolVersion  string
	ObservedAddr     ma.Multiaddr
}

// EvtPeerIdentificationFailed is published when identify fails for a connection (§6).
type EvtPeerIdentificationFailed struct {
	Peer   peer.ID
	Reason error
}

// EvtPeerProtocolsUpdated is published when a PUSH changes a peer's known
// protocol set (§4.5 step 1, §6).
type EvtPeerProtocolsUpdated struct {
	Peer    peer.ID
	Added   []protocol.ID
	Removed []protocol.ID
}

// EvtPeerConnectednessChanged is published when connectedness to a peer changes (§6).
type EvtPeerConnectednessChanged struct {
	Peer          peer.ID
	Connectedness int // network.Connectedness; int to avoid the same cycle as above
}

// Reachability classifies our externally observable reachability (GLOSSARY).
type Reachability int

const (
	ReachabilityUnknown Reachability = iota
	ReachabilityPublic
	ReachabilityPrivate
)

// EvtLocalReachabilityChanged is published by the NAT/AutoNAT glue (§6).
type EvtLocalReachabilityChanged struct {
	Reachability Reachability
}

// EvtAutoRelayAddrsUpdated is published by the AutoRelay manager when its set
// of advertisable relay-circuit addresses changes (§4.6 step 6, §6).
type EvtAutoRelayAddrsUpdated struct {
	AdvertisableAddrs []ma.Multiaddr
}
