// Package eventbus implements core/event.Bus: a typed pub/sub bus where each
// subscriber owns a bounded queue so a slow subscriber never holds back a
// fast one (§3, §5). Modeled on the teacher's p2p/host/eventbus package,
// including its eventbus.BufSize/eventbus.Name subscription options.
package eventbus

import (
	"fmt"
	"reflect"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/stephanfeb/p2p-core/core/event"
)

var log = logging.Logger("eventbus")

const defaultBufSize = 16

// BufSize sets a subscription's queue capacity.
func BufSize(n int) event.SubOpt {
	return func(s *event.SubSettings) error {
		s.Buffer = n
		return nil
	}
}

// Name labels a subscription for diagnostics (overrun logging, metrics).
func Name(name string) event.SubOpt {
	return func(s *event.SubSettings) error {
		s.Name = name
		return nil
	}
}

// Stateful marks an emitter as "stateful": a Subscribe call made after a
// stateful Emit immediately receives the most recent value for that type,
// instead of waiting for the next Emit. Every emitter on this bus already
// keeps and replays its last value, so the option changes nothing here.
func Stateful() event.EmitOpt {
	return func(s *event.EmitSettings) error {
		s.MakeStateful = true
		return nil
	}
}

type typeNode struct {
	mu       sync.RWMutex
	subs     []*subscription
	lastVal  any
	hasLast  bool
	nEmitted uint64
	nDropped uint64
}

type subscription struct {
	out     chan any
	name    string
	types   []reflect.Type
	bus     *Bus
	closeMu sync.Mutex
	closed  bool
}

func (s *subscription) Out() <-chan any { return s.out }

func (s *subscription) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.bus.removeSubscription(s)
	close(s.out)
	return nil
}

// Bus is the concrete event.Bus implementation.
type Bus struct {
	mu    sync.RWMutex
	nodes map[reflect.Type]*typeNode
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{nodes: make(map[reflect.Type]*typeNode)}
}

func (b *Bus) nodeFor(t reflect.Type) *typeNode {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[t]
	if !ok {
		n = &typeNode{}
		b.nodes[t] = n
	}
	return n
}

func typesOf(eventTypes any) ([]reflect.Type, error) {
	v := reflect.ValueOf(eventTypes)
	switch v.Kind() {
	case reflect.Slice:
		out := make([]reflect.Type, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = elemType(v.Index(i).Interface())
		}
		return out, nil
	default:
		return []reflect.Type{elemType(eventTypes)}, nil
	}
}

func elemType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// Subscribe implements event.Bus.
func (b *Bus) Subscribe(eventTypes any, opts ...event.SubOpt) (event.Subscription, error) {
	settings := event.SubSettings{Buffer: defaultBufSize}
	for _, o := range opts {
		if err := o(&settings); err != nil {
			return nil, err
		}
	}
	types, err := typesOf(eventTypes)
	if err != nil {
		return nil, err
	}
	sub := &subscription{
		out:   make(chan any, settings.Buffer),
		name:  settings.Name,
		types: types,
		bus:   b,
	}
	for _, t := range types {
		n := b.nodeFor(t)
		n.mu.Lock()
		n.subs = append(n.subs, sub)
		if n.hasLast {
			// deliver last stateful value immediately; best-effort, never blocks Subscribe.
			select {
			case sub.out <- n.lastVal:
			default:
			}
		}
		n.mu.Unlock()
	}
	return sub, nil
}

func (b *Bus) removeSubscription(sub *subscription) {
	for _, t := range sub.types {
		n := b.nodeFor(t)
		n.mu.Lock()
		for i, s := range n.subs {
			if s == sub {
				n.subs = append(n.subs[:i], n.subs[i+1:]...)
				break
			}
		}
		n.mu.Unlock()
	}
}

type emitter struct {
	bus    *Bus
	t      reflect.Type
	closed bool
	mu     sync.Mutex
}

func (e *emitter) Emit(evt any) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("eventbus: emit on closed emitter")
	}
	e.mu.Unlock()

	got := elemType(evt)
	if got != e.t {
		return fmt.Errorf("eventbus: emitter for %s cannot emit %s", e.t, got)
	}
	n := e.bus.nodeFor(e.t)
	n.mu.Lock()
	n.lastVal = evt
	n.hasLast = true
	n.nEmitted++
	subs := append([]*subscription(nil), n.subs...)
	n.mu.Unlock()

	for _, s := range subs {
		select {
		case s.out <- evt:
		default:
			// Backpressure is the subscriber's responsibility (§3): we report
			// the overrun via metrics/logging rather than blocking or dropping silently.
			n.mu.Lock()
			n.nDropped++
			n.mu.Unlock()
			log.Warnw("subscriber queue full, event dropped for this subscriber", "type", e.t, "subscriber", s.name)
		}
	}
	return nil
}

func (e *emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Emitter implements event.Bus.
func (b *Bus) Emitter(evtType any, opts ...event.EmitOpt) (event.Emitter, error) {
	settings := event.EmitSettings{}
	for _, o := range opts {
		if err := o(&settings); err != nil {
			return nil, err
		}
	}
	return &emitter{bus: b, t: elemType(evtType)}, nil
}
