package feedstate

import (
	"fmt"
	"sync"
)

// the same logical server-side mutation can legitimately reach the
// engine twice: once as the response to a request the client issued,
// once as the push-channel echo of that mutation. the two arrivals
// share no sequence number, only a content-derived mutation id.
// the queue arms on the first arrival of a self-triggered mutation and
// consumes on the second, symmetrically in either order.

type ApplyOrigin struct {
	IsPush          bool
	IsSelfTriggered bool
}

var OriginRequest = ApplyOrigin{IsPush: false, IsSelfTriggered: true}

// engine-internal derived updates bypass the queue entirely
var OriginInternal = ApplyOrigin{IsPush: false, IsSelfTriggered: false}

func OriginPush(actorId string, connectedUserId string) ApplyOrigin {
	return ApplyOrigin{
		IsPush:          true,
		IsSelfTriggered: actorId != "" && actorId == connectedUserId,
	}
}

type ReconciliationQueue struct {
	stateLock sync.Mutex

	mutationIds map[string]bool
}

func NewReconciliationQueue() *ReconciliationQueue {
	return &ReconciliationQueue{
		mutationIds: map[string]bool{},
	}
}

// reports whether the mutation identified by `mutationId` must be
// applied to the snapshot.
//   - watch off: no push channel races the request path. always apply
//   - not self-triggered: only the actor's own request path can race a
//     push echo of their own action. always apply
//   - self-triggered with watch on: first arrival applies and arms the
//     queue; the second arrival of the same id is the duplicate echo,
//     it is dropped and the id is consumed
func (self *ReconciliationQueue) ShouldApply(mutationId string, origin ApplyOrigin, watchEnabled bool) bool {
	if !watchEnabled {
		return true
	}
	if !origin.IsSelfTriggered {
		return true
	}

	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.mutationIds[mutationId] {
		delete(self.mutationIds, mutationId)
		return false
	}
	self.mutationIds[mutationId] = true
	return true
}

// after `Clear`, the next arrival of a previously seen id is fresh
func (self *ReconciliationQueue) Clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.mutationIds = map[string]bool{}
}

func (self *ReconciliationQueue) Size() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return len(self.mutationIds)
}

// mutation id derivation, one helper per operation kind.
// the key must include every field that disambiguates concurrent
// identically-shaped operations by different actors: the actor id
// wherever two users can target the same entity, the reaction type
// because one user can hold several distinct reactions on one target,
// the folder id because one user can bookmark one activity into
// several folders.

func activityMutationId(op string, activityId string) string {
	return fmt.Sprintf("activity.%s:%s", op, activityId)
}

func reactionMutationId(op string, activityId string, actorId string, reactionType string) string {
	return fmt.Sprintf("reaction.%s:%s:%s:%s", op, activityId, actorId, reactionType)
}

func commentReactionMutationId(op string, commentId string, actorId string, reactionType string) string {
	return fmt.Sprintf("comment_reaction.%s:%s:%s:%s", op, commentId, actorId, reactionType)
}

func bookmarkMutationId(op string, activityId string, folderId string, actorId string) string {
	return fmt.Sprintf("bookmark.%s:%s:%s:%s", op, activityId, folderId, actorId)
}

func commentMutationId(op string, commentId string) string {
	return fmt.Sprintf("comment.%s:%s", op, commentId)
}

func followMutationId(op string, sourceFeed string, targetFeed string) string {
	return fmt.Sprintf("follow.%s:%s:%s", op, sourceFeed, targetFeed)
}

func memberMutationId(op string, feed string, userId string) string {
	return fmt.Sprintf("member.%s:%s:%s", op, feed, userId)
}
