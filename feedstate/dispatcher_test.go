package feedstate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDispatchUnknownType(t *testing.T) {
	dispatcher := NewEventDispatcher(map[string]*eventBinding{})

	seen := []*PushEvent{}
	unsub := dispatcher.On(func(event *PushEvent) {
		seen = append(seen, event)
	})
	defer unsub()

	// an unrecognized server kind must not fail, and must still fan out
	event := &PushEvent{Type: "feeds.future.kind"}
	dispatcher.Dispatch(event)
	assert.Equal(t, 1, len(seen))
	if seen[0] != event {
		t.Fatal("listener must receive the original event")
	}
}

func TestDispatchIgnoredKindFansOut(t *testing.T) {
	applied := 0
	dispatcher := NewEventDispatcher(map[string]*eventBinding{
		EventHealthCheck: ignoreEvent(),
		EventActivityAdded: bindEvent(func(event *PushEvent) {
			applied += 1
		}),
	})

	seen := 0
	unsub := dispatcher.On(func(event *PushEvent) {
		seen += 1
	})
	defer unsub()

	dispatcher.Dispatch(&PushEvent{Type: EventHealthCheck})
	assert.Equal(t, 0, applied)
	assert.Equal(t, 1, seen)

	dispatcher.Dispatch(&PushEvent{Type: EventActivityAdded})
	assert.Equal(t, 1, applied)
	assert.Equal(t, 2, seen)
}

func TestDispatchListenerPanicIsContained(t *testing.T) {
	dispatcher := NewEventDispatcher(map[string]*eventBinding{})

	dispatcher.On(func(event *PushEvent) {
		panic("listener bug")
	})
	seen := 0
	dispatcher.On(func(event *PushEvent) {
		seen += 1
	})

	dispatcher.Dispatch(&PushEvent{Type: EventHealthCheck})
	assert.Equal(t, 1, seen)
}

func TestDispatchUnsubscribe(t *testing.T) {
	dispatcher := NewEventDispatcher(map[string]*eventBinding{})

	seen := 0
	unsub := dispatcher.On(func(event *PushEvent) {
		seen += 1
	})
	dispatcher.Dispatch(&PushEvent{Type: EventHealthCheck})
	unsub()
	dispatcher.Dispatch(&PushEvent{Type: EventHealthCheck})
	assert.Equal(t, 1, seen)
}

func TestEventActorId(t *testing.T) {
	assert.Equal(t, "ben", (&PushEvent{
		Reaction: &Reaction{User: &User{Id: "ben"}},
		// reaction actor wins over the envelope user
		User: &User{Id: "lucy"},
	}).ActorId())
	assert.Equal(t, "lucy", (&PushEvent{User: &User{Id: "lucy"}}).ActorId())
	assert.Equal(t, "", (&PushEvent{}).ActorId())
}
