package events_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/micro-nova/ampctl/internal/events"
	"github.com/micro-nova/ampctl/internal/models"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test1")

	bus.Publish(events.Event{Kind: events.KindPowerOn, State: models.State{Speaker: "on"}})

	select {
	case got := <-ch:
		require.Equal(t, events.KindPowerOn, got.Kind)
		require.Equal(t, "on", got.State.Speaker)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test-unsub")
	bus.Unsubscribe("test-unsub")

	_, ok := <-ch
	require.False(t, ok, "channel closed after unsubscribe")
	require.Zero(t, bus.SubscriberCount())

	// unknown ids are ignored
	bus.Unsubscribe("never-subscribed")
}

func TestBusDropsEventsWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("slow-reader")

	for i := 0; i < 20; i++ {
		bus.Publish(events.Event{Kind: events.KindRegister})
	}
	require.Len(t, ch, 8)
}

func TestBusClose(t *testing.T) {
	bus := events.NewBus()
	a := bus.Subscribe("a")
	b := bus.Subscribe("b")
	bus.Close()

	_, ok := <-a
	require.False(t, ok)
	_, ok = <-b
	require.False(t, ok)
	require.Zero(t, bus.SubscriberCount())

	bus.Publish(events.Event{Kind: events.KindConfig})
	_, ok = <-bus.Subscribe("late")
	require.False(t, ok)
}

func TestBusResubscribeSameID(t *testing.T) {
	bus := events.NewBus()
	first := bus.Subscribe("dup")
	second := bus.Subscribe("dup")

	_, ok := <-first
	require.False(t, ok, "replaced subscription is closed")
	bus.Publish(events.Event{Kind: events.KindPreset})
	require.Len(t, second, 1)
	require.Equal(t, 1, bus.SubscriberCount())
}

func TestBusConcurrent(t *testing.T) {
	bus := events.NewBus()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sub-%d", i)
			bus.Subscribe(id)
			bus.Publish(events.Event{Kind: events.KindPowerOff})
			bus.Unsubscribe(id)
		}(i)
	}
	wg.Wait()
	require.Zero(t, bus.SubscriberCount())
}
