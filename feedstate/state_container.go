package feedstate

import (
	"sync"
)

// versioned holder of one immutable `*FeedSnapshot`.
// readers only ever see whole snapshots. subscribers are scoped by a
// selector: a transition that maps to an unchanged projection does not
// invoke the callback and does not allocate a new projection.
// this layer has no I/O and cannot fail.

type SnapshotSelector[T any] func(state *FeedSnapshot) T

type snapshotSubscriber struct {
	// projects the snapshot and reports whether the projection changed
	// versus the previously delivered one. returns the callback to run,
	// or nil when the projection is unchanged
	next func(state *FeedSnapshot) func()
}

type SnapshotContainer struct {
	stateLock sync.Mutex

	version uint64
	state   *FeedSnapshot

	subscribers *CallbackList[*snapshotSubscriber]
}

func NewSnapshotContainer(initialState *FeedSnapshot) *SnapshotContainer {
	return &SnapshotContainer{
		state:       initialState,
		subscribers: NewCallbackList[*snapshotSubscriber](),
	}
}

func (self *SnapshotContainer) GetLatest() *FeedSnapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.state
}

func (self *SnapshotContainer) Version() uint64 {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.version
}

func (self *SnapshotContainer) ReplaceWith(nextState *FeedSnapshot) {
	self.Transition(func(*FeedSnapshot) *FeedSnapshot {
		return nextState
	})
}

// applies `transition` atomically. a transition that returns its input
// bumps no version and notifies no subscriber
func (self *SnapshotContainer) Transition(transition func(state *FeedSnapshot) *FeedSnapshot) *FeedSnapshot {
	var nextState *FeedSnapshot
	changed := false
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		nextState = transition(self.state)
		if nextState == nil {
			nextState = self.state
		}
		if nextState != self.state {
			self.state = nextState
			self.version += 1
			changed = true
		}
	}()

	if changed {
		// subscriber callbacks run outside the state lock
		for _, subscriber := range self.subscribers.Get() {
			if callback := subscriber.next(nextState); callback != nil {
				callback()
			}
		}
	}
	return nextState
}

// shallow merge of top-level fields. `patch` mutates a clone of the
// current snapshot and must not touch shared collections in place
func (self *SnapshotContainer) Patch(patch func(next *FeedSnapshot)) *FeedSnapshot {
	return self.Transition(func(state *FeedSnapshot) *FeedSnapshot {
		next := state.clone()
		patch(next)
		return next
	})
}

// Subscribe registers `callback` for changes of `selector`'s projection
// under `equals`. the callback fires only when the projection differs
// from the last delivered projection. returns an unsubscribe function.
func Subscribe[T any](
	container *SnapshotContainer,
	selector SnapshotSelector[T],
	equals func(a T, b T) bool,
	callback func(projection T),
) func() {
	var deliveredLock sync.Mutex
	var delivered T

	func() {
		container.stateLock.Lock()
		defer container.stateLock.Unlock()
		delivered = selector(container.state)
	}()

	subscriber := &snapshotSubscriber{
		next: func(state *FeedSnapshot) func() {
			deliveredLock.Lock()
			defer deliveredLock.Unlock()

			projection := selector(state)
			if equals(delivered, projection) {
				return nil
			}
			delivered = projection
			return func() {
				callback(projection)
			}
		},
	}

	subscriberId := container.subscribers.Add(subscriber)
	return func() {
		container.subscribers.Remove(subscriberId)
	}
}
