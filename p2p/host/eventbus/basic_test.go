package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type evtA struct{ N int }
type evtB struct{ S string }

func TestSubscribeEmitDeliversInOrder(t *testing.T) {
	b := NewBus()
	sub, err := b.Subscribe(new(evtA))
	require.NoError(t, err)
	defer sub.Close()

	em, err := b.Emitter(new(evtA))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(evtA{N: 1}))
	require.NoError(t, em.Emit(evtA{N: 2}))

	first := <-sub.Out()
	second := <-sub.Out()
	require.Equal(t, evtA{N: 1}, first)
	require.Equal(t, evtA{N: 2}, second)
}

func TestSubscribeDoesNotCrossDeliverTypes(t *testing.T) {
	b := NewBus()
	subA, err := b.Subscribe(new(evtA))
	require.NoError(t, err)
	defer subA.Close()

	emB, err := b.Emitter(new(evtB))
	require.NoError(t, err)
	defer emB.Close()

	require.NoError(t, emB.Emit(evtB{S: "hi"}))

	select {
	case <-subA.Out():
		t.Fatal("evtA subscriber should not receive evtB")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestOverrunDoesNotBlockEmit(t *testing.T) {
	b := NewBus()
	sub, err := b.Subscribe(new(evtA), BufSize(1), Name("slow-sub"))
	require.NoError(t, err)
	defer sub.Close()

	em, err := b.Emitter(new(evtA))
	require.NoError(t, err)
	defer em.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			require.NoError(t, em.Emit(evtA{N: i}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber queue")
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	b := NewBus()
	sub, err := b.Subscribe(new(evtA))
	require.NoError(t, err)

	em, err := b.Emitter(new(evtA))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, sub.Close())
	require.NoError(t, em.Emit(evtA{N: 1}))

	_, ok := <-sub.Out()
	require.False(t, ok, "channel should be closed after Subscription.Close")
}

func TestEmitterTypeMismatchErrors(t *testing.T) {
	b := NewBus()
	em, err := b.Emitter(new(evtA))
	require.NoError(t, err)
	defer em.Close()

	err = em.Emit(evtB{S: "wrong"})
	require.Error(t, err)
}
