package feedstate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func reactionTestState() *FeedSnapshot {
	state := NewFeedSnapshot("user:lucy")
	state.Activities = []*Activity{{
		Id:            "a1",
		ReactionCount: 1,
		OwnReactions: []*Reaction{{
			ActivityId: "a1",
			Type:       "like",
			User:       &User{Id: "lucy"},
		}},
	}}
	return state
}

func TestReactionAddSelf(t *testing.T) {
	state := reactionTestState()

	reaction := &Reaction{ActivityId: "a1", Type: "heart", User: &User{Id: "lucy"}}
	payload := &Activity{Id: "a1", ReactionCount: 2}
	next := applyActivityReaction(state, reactionAdded, reaction, payload, "lucy")

	activity := next.Activities[0]
	assert.Equal(t, 2, activity.ReactionCount)
	assert.Equal(t, 2, len(activity.OwnReactions))
	assert.Equal(t, "heart", activity.OwnReactions[1].Type)
}

func TestReactionDeleteOtherActor(t *testing.T) {
	state := reactionTestState()
	ownBefore := state.Activities[0].OwnReactions

	// a different user's delete updates shared counters only
	reaction := &Reaction{ActivityId: "a1", Type: "like", User: &User{Id: "ben"}}
	payload := &Activity{Id: "a1", ReactionCount: 0}
	next := applyActivityReaction(state, reactionDeleted, reaction, payload, "lucy")

	activity := next.Activities[0]
	assert.Equal(t, 0, activity.ReactionCount)
	if !isSameSlice(activity.OwnReactions, ownBefore) {
		t.Fatal("own reactions must keep their reference for another actor")
	}
}

func TestReactionDeleteSelf(t *testing.T) {
	state := reactionTestState()

	reaction := &Reaction{ActivityId: "a1", Type: "like", User: &User{Id: "lucy"}}
	payload := &Activity{Id: "a1", ReactionCount: 0}
	next := applyActivityReaction(state, reactionDeleted, reaction, payload, "lucy")

	activity := next.Activities[0]
	assert.Equal(t, 0, activity.ReactionCount)
	assert.Equal(t, 0, len(activity.OwnReactions))
}

func TestReactionUpdateReplacesOwn(t *testing.T) {
	state := reactionTestState()

	reaction := &Reaction{ActivityId: "a1", Type: "heart", User: &User{Id: "lucy"}}
	payload := &Activity{Id: "a1", ReactionCount: 1}
	next := applyActivityReaction(state, reactionUpdated, reaction, payload, "lucy")

	activity := next.Activities[0]
	assert.Equal(t, 1, len(activity.OwnReactions))
	assert.Equal(t, "heart", activity.OwnReactions[0].Type)
}

func TestReactionAbsentActivity(t *testing.T) {
	state := reactionTestState()
	reaction := &Reaction{ActivityId: "missing", Type: "like", User: &User{Id: "lucy"}}
	if applyActivityReaction(state, reactionAdded, reaction, nil, "lucy") != state {
		t.Fatal("absent target must return the input reference")
	}
}

func TestCommentReaction(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {
			Comments: []*Comment{{Id: "c1", ObjectId: "a1", ReactionCount: 0}},
		},
	}

	reaction := &Reaction{CommentId: "c1", Type: "like", User: &User{Id: "lucy"}}
	payload := &Comment{Id: "c1", ObjectId: "a1", ReactionCount: 1}
	next := applyCommentReaction(state, reactionAdded, reaction, payload, "lucy")

	comment := next.CommentsByEntityId["a1"].Comments[0]
	assert.Equal(t, 1, comment.ReactionCount)
	assert.Equal(t, 1, len(comment.OwnReactions))

	// other actor leaves own reactions alone
	otherReaction := &Reaction{CommentId: "c1", Type: "like", User: &User{Id: "ben"}}
	otherPayload := &Comment{Id: "c1", ObjectId: "a1", ReactionCount: 2}
	after := applyCommentReaction(next, reactionAdded, otherReaction, otherPayload, "lucy")
	comment = after.CommentsByEntityId["a1"].Comments[0]
	assert.Equal(t, 2, comment.ReactionCount)
	assert.Equal(t, 1, len(comment.OwnReactions))
}
