package feedstate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestReconciliationQueueWatchOff(t *testing.T) {
	queue := NewReconciliationQueue()
	mutationId := reactionMutationId("added", "a1", "lucy", "like")

	// no push channel can race the request path
	assert.Equal(t, true, queue.ShouldApply(mutationId, OriginRequest, false))
	assert.Equal(t, true, queue.ShouldApply(mutationId, OriginRequest, false))
	assert.Equal(t, 0, queue.Size())
}

func TestReconciliationQueueOtherActor(t *testing.T) {
	queue := NewReconciliationQueue()
	mutationId := reactionMutationId("added", "a1", "ben", "like")
	origin := OriginPush("ben", "lucy")

	// only the actor's own request path can race an echo of their action
	assert.Equal(t, false, origin.IsSelfTriggered)
	assert.Equal(t, true, queue.ShouldApply(mutationId, origin, true))
	assert.Equal(t, true, queue.ShouldApply(mutationId, origin, true))
	assert.Equal(t, 0, queue.Size())
}

func TestReconciliationQueueSelfTriggered(t *testing.T) {
	queue := NewReconciliationQueue()
	mutationId := reactionMutationId("deleted", "a1", "lucy", "like")
	pushEcho := OriginPush("lucy", "lucy")

	// request first, echo second
	assert.Equal(t, true, queue.ShouldApply(mutationId, OriginRequest, true))
	assert.Equal(t, 1, queue.Size())
	assert.Equal(t, false, queue.ShouldApply(mutationId, pushEcho, true))
	assert.Equal(t, 0, queue.Size())

	// echo first, request second
	assert.Equal(t, true, queue.ShouldApply(mutationId, pushEcho, true))
	assert.Equal(t, 1, queue.Size())
	assert.Equal(t, false, queue.ShouldApply(mutationId, OriginRequest, true))
	assert.Equal(t, 0, queue.Size())
}

func TestReconciliationQueueClear(t *testing.T) {
	queue := NewReconciliationQueue()
	mutationId := commentMutationId("added", "c1")

	assert.Equal(t, true, queue.ShouldApply(mutationId, OriginRequest, true))
	assert.Equal(t, 1, queue.Size())

	queue.Clear()
	assert.Equal(t, 0, queue.Size())

	// after clear the next arrival is fresh and re-arms
	assert.Equal(t, true, queue.ShouldApply(mutationId, OriginRequest, true))
	assert.Equal(t, 1, queue.Size())
}

func TestMutationIdDisambiguation(t *testing.T) {
	// distinct actors and distinct reaction kinds never collide
	assert.NotEqual(t,
		reactionMutationId("added", "a1", "lucy", "like"),
		reactionMutationId("added", "a1", "ben", "like"))
	assert.NotEqual(t,
		reactionMutationId("added", "a1", "lucy", "like"),
		reactionMutationId("added", "a1", "lucy", "heart"))
	assert.NotEqual(t,
		bookmarkMutationId("added", "a1", "read-later", "lucy"),
		bookmarkMutationId("added", "a1", "favorites", "lucy"))
}
