package feedstate

import (
	"golang.org/x/exp/slices"
)

type reactionOp int

const (
	reactionAdded reactionOp = iota
	reactionUpdated
	reactionDeleted
)

func findActivityInState(state *FeedSnapshot, activityId string) *Activity {
	if i := findActivityIndexById(state.Activities, activityId); 0 <= i {
		return state.Activities[i]
	}
	for _, wrapper := range state.PinnedActivities {
		if wrapper.Activity.Id == activityId {
			return wrapper.Activity
		}
	}
	return nil
}

// the shared counters always come from the authoritative payload.
// `OwnReactions` is touched only when the acting user is the connected
// user: add appends, update replaces the whole array with the single
// current reaction, delete filters by reaction kind
func applyReactionToActivity(
	current *Activity,
	op reactionOp,
	reaction *Reaction,
	payload *Activity,
	connectedUserId string,
) *Activity {
	next := *current
	if payload != nil {
		next.ReactionCount = payload.ReactionCount
		next.ReactionGroups = payload.ReactionGroups
		next.LatestReactions = payload.LatestReactions
	}
	if connectedUserId != "" && reaction.UserId() == connectedUserId {
		switch op {
		case reactionAdded:
			next.OwnReactions = append(slices.Clone(current.OwnReactions), reaction)
		case reactionUpdated:
			next.OwnReactions = []*Reaction{reaction}
		case reactionDeleted:
			nextOwn := []*Reaction{}
			for _, own := range current.OwnReactions {
				if own.Type != reaction.Type {
					nextOwn = append(nextOwn, own)
				}
			}
			next.OwnReactions = nextOwn
		}
	}
	return &next
}

func applyActivityReaction(
	state *FeedSnapshot,
	op reactionOp,
	reaction *Reaction,
	payload *Activity,
	connectedUserId string,
) *FeedSnapshot {
	activityId := reaction.ActivityId
	if activityId == "" && payload != nil {
		activityId = payload.Id
	}
	current := findActivityInState(state, activityId)
	if current == nil {
		return state
	}
	updated := applyReactionToActivity(current, op, reaction, payload, connectedUserId)
	return updateActivityInState(state, updated)
}

// comment reactions patch the comment inside its owning bucket.
// the owning bucket key is the comment's parent id, falling back to the
// activity the thread is rooted at
func applyCommentReaction(
	state *FeedSnapshot,
	op reactionOp,
	reaction *Reaction,
	payload *Comment,
	connectedUserId string,
) *FeedSnapshot {
	if payload == nil {
		return state
	}
	bucketKey := payload.ParentId
	if bucketKey == "" {
		bucketKey = payload.ObjectId
	}
	bucket, ok := state.CommentsByEntityId[bucketKey]
	if !ok {
		return state
	}
	i := findCommentIndex(bucket.Comments, payload)
	if i < 0 {
		return state
	}

	current := bucket.Comments[i]
	next := *current
	next.ReactionCount = payload.ReactionCount
	next.LatestReactions = payload.LatestReactions
	if connectedUserId != "" && reaction.UserId() == connectedUserId {
		switch op {
		case reactionAdded:
			next.OwnReactions = append(slices.Clone(current.OwnReactions), reaction)
		case reactionUpdated:
			next.OwnReactions = []*Reaction{reaction}
		case reactionDeleted:
			nextOwn := []*Reaction{}
			for _, own := range current.OwnReactions {
				if own.Type != reaction.Type {
					nextOwn = append(nextOwn, own)
				}
			}
			next.OwnReactions = nextOwn
		}
	}

	return replaceCommentInBucket(state, bucketKey, i, &next)
}
