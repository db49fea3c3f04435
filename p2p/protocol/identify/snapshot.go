package identify

import (
	"sort"

	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// snapshotAddrBudget is the "~3.8 KB after accounting for version strings
// and the sum of protocol-ID lengths" address budget (§4.5 snapshot engine).
const snapshotAddrBudget = 3800

func sortProtocols(protos []protocol.ID) []protocol.ID {
	out := append([]protocol.ID(nil), protos...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// sortAddrs sorts byte-lexicographically (§4.5 "addresses sorted
// (byte-lexicographic)").
func sortAddrs(addrs []ma.Multiaddr) []ma.Multiaddr {
	out := append([]ma.Multiaddr(nil), addrs...)
	sort.Slice(out, func(i, j int) bool {
		return compareBytes(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// addrPriorityScore ranks addrs for trimming (§4.5: "public > non-loopback
// non-public; QUIC-v1 > TCP > others; presence of /p2p suffix immediately
// qualifies"). Higher is better.
func addrPriorityScore(a ma.Multiaddr) int {
	score := 0
	if hasP2PSuffix(a) {
		return 1 << 20 // immediately qualifies, ahead of everything else
	}
	if a.IsPublic() {
		score += 100
	} else if !a.IsLoopback() {
		score += 50
	}
	for _, p := range a.Protocols() {
		switch p.NumCode {
		case ma.P_QUIC_V1:
			score += 20
		case ma.P_TCP:
			score += 10
		}
	}
	return score
}

func hasP2PSuffix(a ma.Multiaddr) bool {
	protos := a.Protocols()
	if len(protos) == 0 {
		return false
	}
	return protos[len(protos)-1].NumCode == ma.P_P2P
}

// trimAddrsToBudget drops lowest-priority addresses until the marshaled
// byte-length of the surviving set fits snapshotAddrBudget (§4.5). The
// survivors are picked in priority order but returned re-sorted
// byte-lexicographically, so the trim doesn't undo the ordering sortAddrs
// already applied to its input.
func trimAddrsToBudget(addrs []ma.Multiaddr) []ma.Multiaddr {
	type scored struct {
		addr  ma.Multiaddr
		score int
	}
	ranked := make([]scored, len(addrs))
	for i, a := range addrs {
		ranked[i] = scored{addr: a, score: addrPriorityScore(a)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var out []ma.Multiaddr
	total := 0
	for _, r := range ranked {
		n := len(r.addr.Bytes())
		if total+n > snapshotAddrBudget {
			continue
		}
		out = append(out, r.addr)
		total += n
	}
	return sortAddrs(out)
}
