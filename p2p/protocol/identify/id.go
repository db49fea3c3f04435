// Package identify implements the Identify and Identify-Push protocols
// (§4.5): a per-connection handshake that exchanges listen addresses,
// supported protocols, and identity material, plus a background snapshot
// engine that fans out changes to already-connected peers.
package identify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-msgio"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/event"
	"github.com/stephanfeb/p2p-core/core/host"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/protocol"
	"github.com/stephanfeb/p2p-core/core/record"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/net/multistream"
	"github.com/stephanfeb/p2p-core/p2p/protocol/identify/pb"
)

var log = logging.Logger("net/identify")

const (
	// ID is the protocol.ID of the pull-based identify request.
	ID protocol.ID = "/ipfs/id/1.0.0"
	// IDPush is the protocol.ID the snapshot engine pushes unsolicited updates on.
	IDPush protocol.ID = "/ipfs/id/push/1.0.0"
)

const DefaultProtocolVersion = "p2p-core/0.1.0"

const ServiceName = "libp2p.identify"

const (
	// chunkThreshold is the own-outbound message size (§4.5) above which the
	// signed record is split into a second chunk.
	chunkThreshold = 4096
	// maxMessages bounds how many chunks a receiver concatenates (§4.5).
	maxMessages = 10
	// maxRecvMessageSize bounds any single chunk a malicious peer could send.
	maxRecvMessageSize = 8 * 1024
	// totalReadDeadline is the overall budget for reading all chunks (§4.5).
	totalReadDeadline = 30 * time.Second

	maxPushConcurrency = 32
)

var defaultUserAgent = "p2p-core"

type identifySnapshot struct {
	timestamp time.Time
	protocols []protocol.ID
	addrs     []ma.Multiaddr
	record    *record.Envelope
}

// equalTo reports whether s describes the same content as o, per the "seq
// increments only when content differs" rule (§4.5).
func (s *identifySnapshot) equalTo(o *identifySnapshot) bool {
	if o == nil {
		return false
	}
	if len(s.protocols) != len(o.protocols) || len(s.addrs) != len(o.addrs) {
		return false
	}
	for i := range s.protocols {
		if s.protocols[i] != o.protocols[i] {
			return false
		}
	}
	for i := range s.addrs {
		if !s.addrs[i].Equal(o.addrs[i]) {
			return false
		}
	}
	return s.record.Equal(o.record)
}

type pushSupport uint8

const (
	pushSupportUnknown pushSupport = iota
	pushSupported
	pushUnsupported
)

// entry tracks in-flight/([]completed) identify state for one live connection.
type entry struct {
	waitCh      chan struct{}
	push        pushSupport
	lastSeq     uint64
	identifyErr error
}

// IDService drives the Identify/Identify-Push protocols for a Host.
type IDService struct {
	Host            host.Host
	UserAgent       string
	ProtocolVersion string

	ctx       context.Context
	ctxCancel context.CancelFunc
	refCount  sync.WaitGroup

	disableSignedPeerRecord bool

	connsMu sync.Mutex
	conns   map[network.Conn]*entry

	observedAddrs *ObservedAddrManager

	currentSnapshot struct {
		sync.Mutex
		snapshot *identifySnapshot
		seq      uint64
	}

	emitters struct {
		protocolsUpdated       event.Emitter
		identificationComplete event.Emitter
		identificationFailed   event.Emitter
	}

	pushSemaphore chan struct{}
}

// NewIDService builds an IDService and registers its stream handlers on h.
// Callers must call Start() once the host is otherwise fully constructed.
func NewIDService(h host.Host, opts ...Option) (*IDService, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	userAgent := defaultUserAgent
	if cfg.userAgent != "" {
		userAgent = cfg.userAgent
	}
	protocolVersion := DefaultProtocolVersion
	if cfg.protocolVersion != "" {
		protocolVersion = cfg.protocolVersion
	}

	ctx, cancel := context.WithCancel(context.Background())
	ids := &IDService{
		Host:                    h,
		UserAgent:               userAgent,
		ProtocolVersion:         protocolVersion,
		ctx:                     ctx,
		ctxCancel:               cancel,
		conns:                   make(map[network.Conn]*entry),
		disableSignedPeerRecord: cfg.disableSignedPeerRecord,
		pushSemaphore:           make(chan struct{}, 1),
	}

	observedAddrs, err := NewObservedAddrManager(h)
	if err != nil {
		return nil, fmt.Errorf("identify: failed to create observed address manager: %w", err)
	}
	ids.observedAddrs = observedAddrs

	if ids.emitters.protocolsUpdated, err = h.EventBus().Emitter(&event.EvtPeerProtocolsUpdated{}); err != nil {
		log.Warnf("identify not emitting protocol updates: %s", err)
	}
	if ids.emitters.identificationComplete, err = h.EventBus().Emitter(&event.EvtPeerIdentificationCompleted{}); err != nil {
		log.Warnf("identify not emitting identification-completed events: %s", err)
	}
	if ids.emitters.identificationFailed, err = h.EventBus().Emitter(&event.EvtPeerIdentificationFailed{}); err != nil {
		log.Warnf("identify not emitting identification-failed events: %s", err)
	}

	h.SetStreamHandler(ID, ids.handleIdentifyRequest)
	h.SetStreamHandler(IDPush, ids.handlePush)

	return ids, nil
}

// Start activates the background snapshot/push loop and the connection
// notifiee. Must be called once, after NewIDService.
func (ids *IDService) Start() {
	ids.updateSnapshot()
	ids.Host.Network().Notify((*netNotifiee)(ids))
	ids.refCount.Add(1)
	go ids.loop(ids.ctx)
}

func (ids *IDService) loop(ctx context.Context) {
	defer ids.refCount.Done()

	sub, err := ids.Host.EventBus().Subscribe([]any{
		&event.EvtLocalProtocolsUpdated{},
		&event.EvtLocalAddressesUpdated{},
	})
	if err != nil {
		log.Errorf("identify: failed to subscribe to local update events: %s", err)
		return
	}
	defer sub.Close()

	triggerPush := make(chan struct{}, 1)
	ids.refCount.Add(1)
	go func() {
		defer ids.refCount.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-triggerPush:
				ids.sendPushes(ctx)
			}
		}
	}()

	for {
		select {
		case <-sub.Out():
			if ids.updateSnapshot() {
				select {
				case triggerPush <- struct{}{}:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// sendPushes fans out the current snapshot to every connection whose
// push_support is supported-or-unknown and whose last delivered seq is
// stale, under a concurrency cap of maxPushConcurrency (§4.5 PUSH).
func (ids *IDService) sendPushes(ctx context.Context) {
	select {
	case ids.pushSemaphore <- struct{}{}:
	default:
		return
	}
	defer func() { <-ids.pushSemaphore }()

	ids.currentSnapshot.Lock()
	seq := ids.currentSnapshot.seq
	ids.currentSnapshot.Unlock()

	ids.connsMu.Lock()
	var targets []network.Conn
	for c, e := range ids.conns {
		if (e.push == pushSupported || e.push == pushSupportUnknown) && e.lastSeq < seq {
			targets = append(targets, c)
		}
	}
	ids.connsMu.Unlock()

	sem := make(chan struct{}, maxPushConcurrency)
	var wg sync.WaitGroup
	for _, c := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(c network.Conn) {
			defer wg.Done()
			defer func() { <-sem }()
			pushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			str, err := ids.Host.NewStream(pushCtx, c.RemotePeer(), IDPush)
			if err != nil {
				return
			}
			if err := ids.sendIdentifyResp(str); err != nil {
				log.Debugf("identify push to %s failed: %s", c.RemotePeer(), err)
				return
			}
			ids.connsMu.Lock()
			if e, ok := ids.conns[c]; ok {
				e.lastSeq = seq
			}
			ids.connsMu.Unlock()
		}(c)
	}
	wg.Wait()
}

// Close stops the background loop and the observed-address manager.
func (ids *IDService) Close() error {
	ids.ctxCancel()
	ids.observedAddrs.Close()
	ids.refCount.Wait()
	return nil
}

func (ids *IDService) OwnObservedAddrs() []ma.Multiaddr {
	return ids.observedAddrs.Addrs()
}

func (ids *IDService) ObservedAddrsFor(local ma.Multiaddr) []ma.Multiaddr {
	return ids.observedAddrs.AddrsFor(local)
}

// IdentifyConn blocks until c has been identified (or identify has failed).
func (ids *IDService) IdentifyConn(c network.Conn) error {
	<-ids.IdentifyWait(c)
	ids.connsMu.Lock()
	defer ids.connsMu.Unlock()
	if e, ok := ids.conns[c]; ok {
		return e.identifyErr
	}
	return nil
}

// IdentifyWait returns the shared one-shot latch for c's identify, spawning
// do_identify the first time it is called for that connection (§4.5
// "identify_wait").
func (ids *IDService) IdentifyWait(c network.Conn) <-chan struct{} {
	ids.connsMu.Lock()
	defer ids.connsMu.Unlock()

	e, found := ids.conns[c]
	if !found {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	if e.waitCh != nil {
		return e.waitCh
	}
	e.waitCh = make(chan struct{})

	go ids.doIdentify(c, e)

	return e.waitCh
}

// doIdentify is "do_identify(conn)" (§4.5): open a stream, negotiate,
// read and consume the chunked response, probe push support, complete
// the latch.
func (ids *IDService) doIdentify(c network.Conn, e *entry) {
	defer close(e.waitCh)

	err := ids.identifyConn(c)

	ids.connsMu.Lock()
	e.identifyErr = err
	ids.connsMu.Unlock()

	if err != nil {
		log.Debugf("identify of %s failed: %s", c.RemotePeer(), err)
		if ids.emitters.identificationFailed != nil {
			ids.emitters.identificationFailed.Emit(event.EvtPeerIdentificationFailed{Peer: c.RemotePeer(), Reason: err})
		}
		return
	}
}

func (ids *IDService) identifyConn(c network.Conn) error {
	s, err := c.NewStream(ids.ctx)
	if err != nil {
		return fmt.Errorf("identify: open stream: %w", err)
	}

	negotiated, r, err := multistream.SelectOneOf(s, []protocol.ID{ID})
	if err != nil {
		s.Reset()
		return fmt.Errorf("identify: negotiate protocol: %w", err)
	}
	s = network.WrapStreamReader(s, r)
	if err := s.SetProtocol(negotiated); err != nil {
		s.Reset()
		return err
	}

	return ids.handleIdentifyResponse(s, c, false)
}

func (ids *IDService) handleIdentifyRequest(s network.Stream) {
	_ = ids.sendIdentifyResp(s)
}

func (ids *IDService) handlePush(s network.Stream) {
	_ = ids.handleIdentifyResponse(s, s.Conn(), true)
}

func (ids *IDService) sendIdentifyResp(s network.Stream) error {
	if err := s.Scope().SetService(ServiceName); err != nil {
		s.Reset()
		return fmt.Errorf("identify: attach stream to service: %w", err)
	}
	defer s.Close()

	ids.currentSnapshot.Lock()
	snapshot := ids.currentSnapshot.snapshot
	ids.currentSnapshot.Unlock()

	return ids.writeChunkedIdentifyMsg(s, snapshot)
}

// handleIdentifyResponse runs on both the pull path (after negotiating
// identify) and the push path (handlePush): read up to maxMessages chunks,
// consume, and (pull-only) probe push support.
func (ids *IDService) handleIdentifyResponse(s network.Stream, c network.Conn, isPush bool) error {
	if err := s.Scope().SetService(ServiceName); err != nil {
		s.Reset()
		return err
	}
	if err := s.Scope().ReserveMemory(maxRecvMessageSize, network.ReservationPriorityAlways); err != nil {
		s.Reset()
		return err
	}
	defer s.Scope().ReleaseMemory(maxRecvMessageSize)

	_ = s.SetReadDeadline(time.Now().Add(totalReadDeadline))

	mes, err := readChunkedIdentifyMsg(s)
	if err != nil {
		s.Reset()
		return err
	}
	defer s.Close()

	ids.consumeMessage(mes, c, isPush)

	if !isPush {
		ids.connsMu.Lock()
		if e, ok := ids.conns[c]; ok {
			supported, perr := ids.Host.Peerstore().SupportsProtocols(c.RemotePeer(), IDPush)
			if perr == nil && len(supported) > 0 {
				e.push = pushSupported
			} else {
				e.push = pushUnsupported
			}
		}
		ids.connsMu.Unlock()
	}
	return nil
}

func readChunkedIdentifyMsg(s network.Stream) (*pb.Identify, error) {
	r := msgio.NewVarintReaderSize(s, maxRecvMessageSize)
	final := &pb.Identify{}
	for i := 0; i < maxMessages; i++ {
		data, err := r.ReadMsg()
		if err == io.EOF {
			return final, nil
		}
		if err != nil {
			return nil, fmt.Errorf("identify: read chunk: %w", err)
		}
		chunk, err := pb.Unmarshal(data)
		r.ReleaseMsg(data)
		if err != nil {
			return nil, err
		}
		final.MergeChunk(chunk)
	}
	return nil, fmt.Errorf("identify: too many message chunks")
}

// updateSnapshot recomputes the snapshot from current host state and bumps
// seq only if the content actually changed (§4.5 snapshot engine). Returns
// whether the snapshot changed.
func (ids *IDService) updateSnapshot() bool {
	snapshot := &identifySnapshot{
		timestamp: time.Now(),
		addrs:     trimAddrsToBudget(sortAddrs(ids.Host.Addrs())),
		protocols: sortProtocols(ids.Host.Mux().Protocols()),
	}
	if !ids.disableSignedPeerRecord {
		if cab, ok := peerstore.GetCertifiedAddrBook(ids.Host.Peerstore()); ok {
			snapshot.record = cab.GetPeerRecord(ids.Host.ID())
		}
	}

	ids.currentSnapshot.Lock()
	defer ids.currentSnapshot.Unlock()
	changed := !snapshot.equalTo(ids.currentSnapshot.snapshot)
	if changed {
		ids.currentSnapshot.seq++
	}
	ids.currentSnapshot.snapshot = snapshot
	return changed
}

func (ids *IDService) writeChunkedIdentifyMsg(s network.Stream, snapshot *identifySnapshot) error {
	mes := ids.createBaseIdentifyResponse(s.Conn(), snapshot)
	sr := ids.getSignedRecord(snapshot)
	mes.SignedPeerRecord = sr

	w := msgio.NewVarintWriter(s)
	data := mes.Marshal()
	if !needsChunking(data, sr) {
		return w.WriteMsg(data)
	}

	mes.SignedPeerRecord = nil
	if err := w.WriteMsg(mes.Marshal()); err != nil {
		return err
	}
	return w.WriteMsg((&pb.Identify{SignedPeerRecord: sr}).Marshal())
}

// needsChunking decides whether the signed record must be split into its
// own chunk: own-outbound messages over chunkThreshold bytes that carry a
// signed record (§4.5: "Messages larger than 4096 bytes (own outbound) are
// sent in two chunks: everything except the signed record, then the signed
// record alone").
func needsChunking(marshaled []byte, signedRecord []byte) bool {
	return len(signedRecord) > 0 && len(marshaled) > chunkThreshold
}

func (ids *IDService) createBaseIdentifyResponse(c network.Conn, snapshot *identifySnapshot) *pb.Identify {
	mes := &pb.Identify{
		Protocols:       protocol.ConvertToStrings(snapshot.protocols),
		ObservedAddr:    c.RemoteMultiaddr().Bytes(),
		ProtocolVersion: ids.ProtocolVersion,
		AgentVersion:    ids.UserAgent,
	}

	mes.ListenAddrs = make([][]byte, 0, len(snapshot.addrs))
	for _, addr := range snapshot.addrs {
		mes.ListenAddrs = append(mes.ListenAddrs, addr.Bytes())
	}

	if ownKey := ids.Host.Peerstore().PubKey(ids.Host.ID()); ownKey != nil {
		if kb, err := crypto.MarshalPublicKey(ownKey); err != nil {
			log.Errorf("identify: failed to marshal own public key: %s", err)
		} else {
			mes.PublicKey = kb
		}
	}

	return mes
}

func (ids *IDService) getSignedRecord(snapshot *identifySnapshot) []byte {
	if ids.disableSignedPeerRecord || snapshot.record == nil {
		return nil
	}
	recBytes, err := snapshot.record.Marshal()
	if err != nil {
		log.Errorf("identify: failed to marshal signed record: %s", err)
		return nil
	}
	return recBytes
}

// diffProtocols reports which elements of b are absent from a (added) and
// which elements of a are absent from b (removed).
func diffProtocols(a, b []protocol.ID) (added, removed []protocol.ID) {
	inA := make(map[protocol.ID]struct{}, len(a))
	for _, p := range a {
		inA[p] = struct{}{}
	}
	inB := make(map[protocol.ID]struct{}, len(b))
	for _, p := range b {
		inB[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := inA[p]; !ok {
			added = append(added, p)
		}
	}
	for _, p := range a {
		if _, ok := inB[p]; !ok {
			removed = append(removed, p)
		}
	}
	return
}

// consumeMessage is "consuming a response" (§4.5 steps 1-7).
func (ids *IDService) consumeMessage(mes *pb.Identify, c network.Conn, isPush bool) {
	p := c.RemotePeer()
	ps := ids.Host.Peerstore()

	// Step 1: diff and store protocols.
	existing, _ := ps.GetProtocols(p)
	received := protocol.ConvertFromStrings(mes.Protocols)
	added, removed := diffProtocols(existing, received)
	_ = ps.SetProtocols(p, received...)
	if isPush && ids.emitters.protocolsUpdated != nil {
		ids.emitters.protocolsUpdated.Emit(event.EvtPeerProtocolsUpdated{Peer: p, Added: added, Removed: removed})
	}

	// Step 2: observed address, keyed by our local multiaddr of c.
	var observedAddr ma.Multiaddr
	if len(mes.ObservedAddr) > 0 {
		if oa, err := ma.NewMultiaddrBytes(mes.ObservedAddr); err == nil {
			observedAddr = oa
			ids.observedAddrs.Record(c, oa)
		}
	}

	listenAddrs := make([]ma.Multiaddr, 0, len(mes.ListenAddrs))
	for _, b := range mes.ListenAddrs {
		a, err := ma.NewMultiaddrBytes(b)
		if err != nil {
			continue
		}
		listenAddrs = append(listenAddrs, a)
	}

	// Step 3: signed record wins over listenAddrs; class-filter either way.
	chosen := listenAddrs
	if len(mes.SignedPeerRecord) > 0 {
		if env, _, err := record.ConsumeEnvelope(mes.SignedPeerRecord, record.PeerRecordEnvelopeDomain); err == nil {
			if pr, err := record.ConsumePeerRecordEnvelope(env, p); err == nil {
				chosen = pr.Addrs
				if cab, ok := peerstore.GetCertifiedAddrBook(ps); ok {
					ttl := ttlForConnectedness(ids.Host.Network().Connectedness(p))
					if _, err := cab.ConsumePeerRecord(env, ttl); err != nil {
						log.Debugf("identify: failed to store signed record for %s: %s", p, err)
					}
				}
			} else {
				log.Debugf("identify: signed record for %s failed to verify: %s", p, err)
			}
		}
	}

	chosen = filterAddrsByRemoteClass(chosen, c.RemoteMultiaddr())
	if len(chosen) > 500 {
		chosen = chosen[:500]
	}

	ttl := ttlForConnectedness(ids.Host.Network().Connectedness(p))
	ps.AddAddrs(p, chosen, ttl)

	// Step 4: evict transient addresses injected before identify completed.
	ps.UpdateAddrs(p, peerstore.TempAddrTTL, 0)

	// Step 5: agent/protocol version metadata.
	_ = ps.Put(p, "AgentVersion", mes.AgentVersion)
	_ = ps.Put(p, "ProtocolVersion", mes.ProtocolVersion)

	// Step 6: consume and validate the remote public key.
	ids.consumeReceivedPubKey(c, mes.PublicKey)

	// Step 7.
	if ids.emitters.identificationComplete != nil {
		var env *record.Envelope
		if len(mes.SignedPeerRecord) > 0 {
			env, _, _ = record.ConsumeEnvelope(mes.SignedPeerRecord, record.PeerRecordEnvelopeDomain)
		}
		ids.emitters.identificationComplete.Emit(event.EvtPeerIdentificationCompleted{
			Peer:             p,
			Conn:             c,
			ListenAddrs:      listenAddrs,
			Protocols:        received,
			SignedPeerRecord: env,
			AgentVersion:     mes.AgentVersion,
			ProtocolVersion:  mes.ProtocolVersion,
			ObservedAddr:     observedAddr,
		})
	}
}

func ttlForConnectedness(c network.Connectedness) time.Duration {
	if c == network.Connected {
		return peerstore.ConnectedAddrTTL
	}
	return peerstore.RecentlyConnectedAddrTTL
}

// filterAddrsByRemoteClass applies the class rule from §4.5 step 3: a
// loopback remote keeps everything, a private remote drops loopback
// addresses, a public remote keeps only public addresses.
func filterAddrsByRemoteClass(addrs []ma.Multiaddr, remote ma.Multiaddr) []ma.Multiaddr {
	if remote.Empty() {
		return addrs
	}
	switch {
	case remote.IsLoopback():
		return addrs
	case remote.IsPublic():
		out := addrs[:0:0]
		for _, a := range addrs {
			if a.IsPublic() {
				out = append(out, a)
			}
		}
		return out
	default: // private
		out := addrs[:0:0]
		for _, a := range addrs {
			if !a.IsLoopback() {
				out = append(out, a)
			}
		}
		return out
	}
}

func (ids *IDService) consumeReceivedPubKey(c network.Conn, kb []byte) {
	rp := c.RemotePeer()
	ps := ids.Host.Peerstore()

	if len(kb) == 0 {
		log.Debugf("identify: no public key received from %s", rp)
		return
	}
	newKey, err := crypto.UnmarshalPublicKey(kb)
	if err != nil {
		log.Warnf("identify: cannot unmarshal public key from %s: %s", rp, err)
		return
	}
	np, err := peer.IDFromPublicKey(newKey)
	if err != nil {
		log.Debugf("identify: cannot derive peer id from key of %s: %s", rp, err)
		return
	}
	if np != rp {
		log.Warnf("identify: public key from %s derives mismatched peer id %s; dropping", rp, np)
		return
	}

	currKey := ps.PubKey(rp)
	if currKey == nil {
		if err := ps.AddPubKey(rp, newKey); err != nil {
			log.Debugf("identify: could not store public key for %s: %s", rp, err)
		}
		return
	}
	if !currKey.Equals(newKey) {
		log.Errorf("identify: %s sent a different key than the one on file; keeping stored key (peerstore is authoritative)", rp)
	}
}

// netNotifiee implements network.Notifiee to track per-connection entries
// and enforce the dialer-initiates rule (§4.5 "role coordination").
type netNotifiee IDService

func (nn *netNotifiee) ids() *IDService { return (*IDService)(nn) }

func (nn *netNotifiee) Connected(_ network.Network, c network.Conn) {
	ids := nn.ids()
	ids.connsMu.Lock()
	ids.conns[c] = &entry{}
	ids.connsMu.Unlock()

	if c.Stat().Direction == network.DirOutbound {
		ids.IdentifyWait(c)
	}
}

func (nn *netNotifiee) Disconnected(_ network.Network, c network.Conn) {
	ids := nn.ids()
	ids.connsMu.Lock()
	delete(ids.conns, c)
	ids.connsMu.Unlock()

	if ids.Host.Network().Connectedness(c.RemotePeer()) != network.Connected {
		ids.Host.Peerstore().UpdateAddrs(c.RemotePeer(), peerstore.ConnectedAddrTTL, peerstore.RecentlyConnectedAddrTTL)
	}
}

func (nn *netNotifiee) Listen(network.Network, ma.Multiaddr)      {}
func (nn *netNotifiee) ListenClose(network.Network, ma.Multiaddr) {}
