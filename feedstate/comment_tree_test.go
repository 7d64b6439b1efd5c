package feedstate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestInsertCommentNewestFirst(t *testing.T) {
	c1 := &Comment{Id: "c1", ObjectId: "a1"}
	state := NewFeedSnapshot("user:lucy")
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {
			Comments:   []*Comment{c1},
			Pagination: &CursorState{Sort: CommentSortLast},
		},
	}

	c2 := &Comment{Id: "c2", ObjectId: "a1"}
	next := insertCommentInState(state, c2, "lucy")
	bucket := next.CommentsByEntityId["a1"]
	assert.Equal(t, 2, len(bucket.Comments))
	assert.Equal(t, "c2", bucket.Comments[0].Id)
	if bucket.Comments[1] != c1 {
		t.Fatal("existing comment must keep its reference")
	}
}

func TestInsertCommentNoBucket(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	comment := &Comment{Id: "c1", ObjectId: "a1"}

	// never materialize a bucket purely from a push message
	if insertCommentInState(state, comment, "lucy") != state {
		t.Fatal("missing bucket must be a no-op with the input reference")
	}
}

func TestInsertCommentOldestFirstSuppression(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {
			Comments:   []*Comment{{Id: "c1", ObjectId: "a1"}},
			Pagination: &CursorState{Sort: CommentSortFirst, Next: "cursor"},
		},
	}

	// another user's comment must not jump ahead of unfetched older items
	other := &Comment{Id: "c2", ObjectId: "a1", User: &User{Id: "ben"}}
	if insertCommentInState(state, other, "lucy") != state {
		t.Fatal("suppressed insert must return the input reference")
	}

	// the connected user's own comment appends even with pages left
	own := &Comment{Id: "c3", ObjectId: "a1", User: &User{Id: "lucy"}}
	next := insertCommentInState(state, own, "lucy")
	bucket := next.CommentsByEntityId["a1"]
	assert.Equal(t, 2, len(bucket.Comments))
	assert.Equal(t, "c3", bucket.Comments[1].Id)

	// with no further pages, any actor appends
	exhausted := state.clone()
	exhausted.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {
			Comments:   []*Comment{{Id: "c1", ObjectId: "a1"}},
			Pagination: &CursorState{Sort: CommentSortFirst},
		},
	}
	next = insertCommentInState(exhausted, other, "lucy")
	assert.Equal(t, 2, len(next.CommentsByEntityId["a1"].Comments))
}

func TestInsertReplyResolvesParentBucket(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {Comments: []*Comment{{Id: "c1", ObjectId: "a1"}}},
		"c1": {Comments: []*Comment{}, EntityParentId: "a1"},
	}

	reply := &Comment{Id: "c2", ObjectId: "a1", ParentId: "c1"}
	next := insertCommentInState(state, reply, "lucy")
	assert.Equal(t, 1, len(next.CommentsByEntityId["c1"].Comments))
	assert.Equal(t, 1, len(next.CommentsByEntityId["a1"].Comments))
}

func TestDeleteCommentCollectsReplyBucket(t *testing.T) {
	c1 := &Comment{Id: "c1", ObjectId: "a1"}
	state := NewFeedSnapshot("user:lucy")
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {Comments: []*Comment{c1}},
		"c1": {Comments: []*Comment{{Id: "c2", ObjectId: "a1", ParentId: "c1"}}, EntityParentId: "a1"},
	}

	next := deleteCommentFromState(state, c1)
	assert.Equal(t, 0, len(next.CommentsByEntityId["a1"].Comments))
	if _, ok := next.CommentsByEntityId["c1"]; ok {
		t.Fatal("deleting a comment must collect its reply bucket")
	}
}

func TestFlattenLoadedTree(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")

	// c1 carries a nested reply c2, which carries c3
	comments := []*Comment{{
		Id:       "c1",
		ObjectId: "a1",
		Replies: []*Comment{{
			Id:       "c2",
			ObjectId: "a1",
			ParentId: "c1",
			Replies: []*Comment{{
				Id:       "c3",
				ObjectId: "a1",
				ParentId: "c2",
			}},
		}},
	}}

	next := flattenLoadedTree(state, "a1", "", comments, "cursor1", CommentSortLast)

	root := next.CommentsByEntityId["a1"]
	assert.Equal(t, 1, len(root.Comments))
	assert.Equal(t, "", root.EntityParentId)
	assert.Equal(t, "cursor1", root.Pagination.Next)
	// stored comments never carry nested replies
	if root.Comments[0].Replies != nil {
		t.Fatal("replies must be stripped from stored comments")
	}

	c1Bucket := next.CommentsByEntityId["c1"]
	assert.Equal(t, 1, len(c1Bucket.Comments))
	assert.Equal(t, "a1", c1Bucket.EntityParentId)

	c2Bucket := next.CommentsByEntityId["c2"]
	assert.Equal(t, 1, len(c2Bucket.Comments))
	assert.Equal(t, "c1", c2Bucket.EntityParentId)
}

func TestFlattenMergePreservesCursors(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	state.CommentsByEntityId = map[string]*CommentBucket{
		"c1": {
			Comments:       []*Comment{{Id: "c2", ObjectId: "a1", ParentId: "c1"}},
			EntityParentId: "a1",
			Pagination:     &CursorState{Next: "reply-cursor", Sort: CommentSortFirst},
		},
	}

	comments := []*Comment{{
		Id:       "c1",
		ObjectId: "a1",
		Replies: []*Comment{
			{Id: "c2", ObjectId: "a1", ParentId: "c1", Text: "refreshed"},
			{Id: "c4", ObjectId: "a1", ParentId: "c1"},
		},
	}}
	next := flattenLoadedTree(state, "a1", "", comments, "", CommentSortFirst)

	bucket := next.CommentsByEntityId["c1"]
	// merged id-deduplicated, not replaced wholesale
	assert.Equal(t, 2, len(bucket.Comments))
	assert.Equal(t, "refreshed", bucket.Comments[0].Text)
	// the cursor collected earlier survives the merge
	assert.Equal(t, "reply-cursor", bucket.Pagination.Next)
}

func TestCascadeReplyAndCommentCounts(t *testing.T) {
	// three-level chain a1 -> c1 -> c2 -> c3
	state := NewFeedSnapshot("user:lucy")
	state.Activities = []*Activity{{Id: "a1", CommentCount: 3}}
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {Comments: []*Comment{{Id: "c1", ObjectId: "a1", ReplyCount: 1}}},
		"c1": {Comments: []*Comment{{Id: "c2", ObjectId: "a1", ParentId: "c1", ReplyCount: 1}}, EntityParentId: "a1"},
		"c2": {Comments: []*Comment{{Id: "c3", ObjectId: "a1", ParentId: "c2", ReplyCount: 0}}, EntityParentId: "c1"},
		"c3": {Comments: []*Comment{}, EntityParentId: "c2"},
	}

	reply := &Comment{Id: "c4", ObjectId: "a1", ParentId: "c3"}
	next := insertCommentInState(state, reply, "lucy")
	next = applyReplyCountDelta(next, reply, 1)
	next = applyCommentCountDelta(next, reply.ObjectId, 1)

	// the reply landed in c3's bucket
	assert.Equal(t, 1, len(next.CommentsByEntityId["c3"].Comments))
	// c3's reply count updated in the bucket keyed by c2, found via one
	// hop through c3's bucket EntityParentId
	assert.Equal(t, 1, next.CommentsByEntityId["c2"].Comments[0].ReplyCount)
	// the root activity's comment count updated via the activity reducer
	assert.Equal(t, 4, next.Activities[0].CommentCount)
}

func TestCascadeFallsBackToActivityBucket(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	state.Activities = []*Activity{{Id: "a1", CommentCount: 1}}
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {Comments: []*Comment{{Id: "c1", ObjectId: "a1", ReplyCount: 0}}},
	}

	// no bucket for c1 exists yet: the parent is found in the root bucket
	reply := &Comment{Id: "c2", ObjectId: "a1", ParentId: "c1"}
	next := applyReplyCountDelta(state, reply, 1)
	assert.Equal(t, 1, next.CommentsByEntityId["a1"].Comments[0].ReplyCount)
}

func TestUpdateCommentKeepsOwnReactions(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	own := []*Reaction{{CommentId: "c1", Type: "like", User: &User{Id: "lucy"}}}
	state.CommentsByEntityId = map[string]*CommentBucket{
		"a1": {Comments: []*Comment{{Id: "c1", ObjectId: "a1", Text: "old", OwnReactions: own}}},
	}

	next := updateCommentInState(state, &Comment{Id: "c1", ObjectId: "a1", Text: "new"})
	comment := next.CommentsByEntityId["a1"].Comments[0]
	assert.Equal(t, "new", comment.Text)
	assert.Equal(t, 1, len(comment.OwnReactions))
}
