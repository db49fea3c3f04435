package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/transport"
)

const (
	directDialTimeout = 15 * time.Second
	relayDialTimeout  = 30 * time.Second
	// dialStagger is the Happy-Eyeballs (RFC 8305) launch interval between
	// successive ranked candidates (§4.4 step 8).
	dialStagger = 250 * time.Millisecond
)

// dialSync single-flights concurrent DialPeer calls for the same peer: the
// first caller performs the dial, later callers for the same peer await its
// result instead of racing independent dial attempts (§4.4's "reuse existing
// healthy connection" plus the implicit expectation that parallel dials to
// the same peer don't open N redundant connections).
type dialSync struct {
	fn func(ctx context.Context, p peer.ID) (*Conn, error)

	mu      sync.Mutex
	inFlight map[peer.ID]*dialJob
}

type dialJob struct {
	done chan struct{}
	conn *Conn
	err  error
}

func newDialSync(fn func(ctx context.Context, p peer.ID) (*Conn, error)) *dialSync {
	return &dialSync{fn: fn, inFlight: make(map[peer.ID]*dialJob)}
}

func (ds *dialSync) dial(ctx context.Context, p peer.ID) (*Conn, error) {
	ds.mu.Lock()
	if job, ok := ds.inFlight[p]; ok {
		ds.mu.Unlock()
		select {
		case <-job.done:
			return job.conn, job.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	job := &dialJob{done: make(chan struct{})}
	ds.inFlight[p] = job
	ds.mu.Unlock()

	job.conn, job.err = ds.fn(ctx, p)

	ds.mu.Lock()
	delete(ds.inFlight, p)
	ds.mu.Unlock()
	close(job.done)

	return job.conn, job.err
}

// happyEyeballsDial implements §4.4 step 8: launch the ranked candidates
// staggered by dialStagger, take the first successful raw dial, cancel the
// rest, and close any late successes immediately.
func happyEyeballsDial(ctx context.Context, s *Swarm, p peer.ID, candidates []rankedAddr) (transport.CapableConn, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan dialResult, len(candidates))
	var wg sync.WaitGroup

	for i, cand := range candidates {
		i, cand := i, cand
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i > 0 {
				select {
				case <-time.After(time.Duration(i) * dialStagger):
				case <-raceCtx.Done():
					results <- dialResult{addr: cand.addr.String(), err: raceCtx.Err()}
					return
				}
			}
			t := s.transportFor(cand.addr, false)
			if t == nil {
				results <- dialResult{addr: cand.addr.String(), err: fmt.Errorf("no transport for %s", cand.addr)}
				return
			}
			dialCtx, dialCancel := context.WithTimeout(raceCtx, cand.timeout)
			defer dialCancel()
			c, err := t.Dial(dialCtx, cand.addr, p)
			results <- dialResult{conn: c, addr: cand.addr.String(), err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var dialErr network.DialError
	dialErr.Peer = string(p)
	for i := 0; i < len(candidates); i++ {
		r, ok := <-results
		if !ok {
			break
		}
		if r.err != nil {
			dialErr.Attempts = append(dialErr.Attempts, network.DialAttemptError{Address: r.addr, Err: r.err})
			continue
		}
		cancel() // cancel the rest; late successes observed below are closed
		go drainAndCloseLate(results, r.conn)
		return r.conn, nil
	}
	return nil, &dialErr
}

// dialResult is one candidate's outcome from the Happy-Eyeballs race.
type dialResult struct {
	conn transport.CapableConn
	addr string
	err  error
}

// drainAndCloseLate closes any connections that complete after a winner was
// already chosen (§4.4 step 8: "late successes are closed immediately").
func drainAndCloseLate(results <-chan dialResult, winner transport.CapableConn) {
	for r := range results {
		if r.conn != nil && r.conn != winner {
			r.conn.Close()
		}
	}
}
