package feedstate

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// the comment tree is stored as an adjacency list of buckets keyed by
// entity id: an activity id for a top-level bucket, a comment id for
// the bucket of that comment's direct replies. depth is unbounded.

func findCommentIndex(comments []*Comment, comment *Comment) int {
	for i, c := range comments {
		if c == comment {
			return i
		}
	}
	for i, c := range comments {
		if c.Id == comment.Id {
			return i
		}
	}
	return -1
}

// owning bucket key of a comment: its parent comment, falling back to
// the activity the thread is rooted at
func commentBucketKey(comment *Comment) string {
	if comment.ParentId != "" {
		return comment.ParentId
	}
	return comment.ObjectId
}

func replaceCommentInBucket(state *FeedSnapshot, bucketKey string, i int, comment *Comment) *FeedSnapshot {
	bucket := state.CommentsByEntityId[bucketKey]
	nextBucket := bucket.clone()
	nextBucket.Comments = slices.Clone(bucket.Comments)
	nextBucket.Comments[i] = comment

	next := state.clone()
	next.CommentsByEntityId = maps.Clone(state.CommentsByEntityId)
	next.CommentsByEntityId[bucketKey] = nextBucket
	return next
}

// a stored comment never carries the nested `Replies` array; replies
// live in the bucket keyed by the comment's id
func stripReplies(comment *Comment) *Comment {
	if comment.Replies == nil {
		return comment
	}
	next := *comment
	next.Replies = nil
	return &next
}

// inserts a new comment or reply into its owning bucket. if the bucket
// was never loaded the insertion is a no-op: the engine never
// materializes a bucket purely from a push message.
//
// insertion position depends on the bucket's recorded sort mode:
//   - "last" (newest first): prepend
//   - "first" (oldest first): append only when the actor is the
//     connected user or the bucket has no further pages to fetch;
//     otherwise suppress, the comment surfaces through ordinary
//     pagination instead of jumping ahead of unfetched older items
//   - anything else: append
func insertCommentInState(state *FeedSnapshot, comment *Comment, connectedUserId string) *FeedSnapshot {
	bucketKey := commentBucketKey(comment)
	bucket, ok := state.CommentsByEntityId[bucketKey]
	if !ok {
		return state
	}

	comment = stripReplies(comment)

	if i := findCommentIndex(bucket.Comments, comment); 0 <= i {
		// duplicate insert, refresh in place
		return replaceCommentInBucket(state, bucketKey, i, comment)
	}

	sort := ""
	hasNext := false
	if bucket.Pagination != nil {
		sort = bucket.Pagination.Sort
		hasNext = bucket.Pagination.Next != ""
	}

	var nextComments []*Comment
	switch sort {
	case CommentSortLast:
		nextComments = append([]*Comment{comment}, bucket.Comments...)
	case CommentSortFirst:
		isOwn := connectedUserId != "" && comment.UserId() == connectedUserId
		if !isOwn && hasNext {
			return state
		}
		nextComments = append(slices.Clone(bucket.Comments), comment)
	default:
		nextComments = append(slices.Clone(bucket.Comments), comment)
	}

	nextBucket := bucket.clone()
	nextBucket.Comments = nextComments

	next := state.clone()
	next.CommentsByEntityId = maps.Clone(state.CommentsByEntityId)
	next.CommentsByEntityId[bucketKey] = nextBucket
	return next
}

// the update payload is authoritative for content, but push payloads
// omit the connected user's own reactions, so those are carried over
// from the stored comment when the payload has none
func updateCommentInState(state *FeedSnapshot, comment *Comment) *FeedSnapshot {
	bucketKey := commentBucketKey(comment)
	bucket, ok := state.CommentsByEntityId[bucketKey]
	if !ok {
		return state
	}
	i := findCommentIndex(bucket.Comments, comment)
	if i < 0 {
		return state
	}

	next := stripReplies(comment)
	if next.OwnReactions == nil && bucket.Comments[i].OwnReactions != nil {
		nextCopy := *next
		nextCopy.OwnReactions = bucket.Comments[i].OwnReactions
		next = &nextCopy
	}
	return replaceCommentInBucket(state, bucketKey, i, next)
}

// removes the comment from its owning bucket by position and,
// independently, garbage-collects the comment's own reply bucket
func deleteCommentFromState(state *FeedSnapshot, comment *Comment) *FeedSnapshot {
	next := state
	bucketKey := commentBucketKey(comment)

	if bucket, ok := state.CommentsByEntityId[bucketKey]; ok {
		if i := findCommentIndex(bucket.Comments, comment); 0 <= i {
			nextBucket := bucket.clone()
			nextBucket.Comments = slices.Delete(slices.Clone(bucket.Comments), i, i+1)

			next = state.clone()
			next.CommentsByEntityId = maps.Clone(state.CommentsByEntityId)
			next.CommentsByEntityId[bucketKey] = nextBucket
		}
	}

	if _, ok := next.CommentsByEntityId[comment.Id]; ok {
		if next == state {
			next = state.clone()
			next.CommentsByEntityId = maps.Clone(state.CommentsByEntityId)
		}
		delete(next.CommentsByEntityId, comment.Id)
	}

	return next
}

// merges `comments` into `bucket` id-deduplicated: comments already
// present are replaced in place, new ones are appended. the existing
// pagination cursor is preserved unless `pagination` is non-nil
func mergeBucket(bucket *CommentBucket, comments []*Comment, pagination *CursorState) *CommentBucket {
	nextBucket := bucket.clone()
	nextComments := slices.Clone(bucket.Comments)
	for _, comment := range comments {
		comment = stripReplies(comment)
		if i := findCommentIndex(nextComments, comment); 0 <= i {
			nextComments[i] = comment
		} else {
			nextComments = append(nextComments, comment)
		}
	}
	nextBucket.Comments = nextComments
	if pagination != nil {
		nextBucket.Pagination = pagination
	}
	return nextBucket
}

type flattenFrame struct {
	bucketKey      string
	entityParentId string
	comments       []*Comment
	pagination     *CursorState
}

// flattens a server response whose comments may carry embedded reply
// arrays into bucket updates applied in one snapshot transition. this
// uses an explicit work stack, not recursion, so traversal depth is
// bounded by available memory and not the call stack. each visited
// node's replies become a bucket keyed by that node's id with
// `EntityParentId` set to the bucket the node was discovered under
func flattenLoadedTree(
	state *FeedSnapshot,
	rootEntityId string,
	rootEntityParentId string,
	comments []*Comment,
	next string,
	sort string,
) *FeedSnapshot {
	nextById := maps.Clone(state.CommentsByEntityId)

	stack := []*flattenFrame{{
		bucketKey:      rootEntityId,
		entityParentId: rootEntityParentId,
		comments:       comments,
		pagination: &CursorState{
			Next: next,
			Sort: sort,
		},
	}}

	for 0 < len(stack) {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		bucket, ok := nextById[frame.bucketKey]
		if !ok {
			bucket = &CommentBucket{
				Comments:       []*Comment{},
				EntityParentId: frame.entityParentId,
				// nested buckets inherit the sort of the load
				Pagination: &CursorState{
					Sort: sort,
				},
			}
		}
		nextById[frame.bucketKey] = mergeBucket(bucket, frame.comments, frame.pagination)

		for _, comment := range frame.comments {
			if len(comment.Replies) == 0 {
				continue
			}
			stack = append(stack, &flattenFrame{
				bucketKey:      comment.Id,
				entityParentId: frame.bucketKey,
				comments:       comment.Replies,
				// a pre-existing nested bucket keeps the cursor it
				// collected earlier
				pagination: nil,
			})
		}
	}

	nextState := state.clone()
	nextState.CommentsByEntityId = nextById
	return nextState
}

// when a reply is added or removed, the reply counter on the parent
// comment changes. the parent comment's storage location is one hop of
// indirection away: the bucket keyed by the reply's parent id records
// its own parent key in `EntityParentId`, and the parent comment lives
// in the bucket keyed by that grandparent id, falling back to the root
// activity's bucket when no grandparent entry exists
func applyReplyCountDelta(state *FeedSnapshot, comment *Comment, delta int) *FeedSnapshot {
	if comment.ParentId == "" {
		return state
	}

	grandparentKey := comment.ObjectId
	if parentBucket, ok := state.CommentsByEntityId[comment.ParentId]; ok && parentBucket.EntityParentId != "" {
		grandparentKey = parentBucket.EntityParentId
	}

	bucket, ok := state.CommentsByEntityId[grandparentKey]
	if !ok {
		return state
	}
	i := findCommentIndexById(bucket.Comments, comment.ParentId)
	if i < 0 {
		return state
	}

	parent := *bucket.Comments[i]
	parent.ReplyCount += delta
	if parent.ReplyCount < 0 {
		parent.ReplyCount = 0
	}
	return replaceCommentInBucket(state, grandparentKey, i, &parent)
}

func findCommentIndexById(comments []*Comment, commentId string) int {
	for i, c := range comments {
		if c.Id == commentId {
			return i
		}
	}
	return -1
}

func applyCommentCountDelta(state *FeedSnapshot, activityId string, delta int) *FeedSnapshot {
	current := findActivityInState(state, activityId)
	if current == nil {
		return state
	}
	next := *current
	next.CommentCount += delta
	if next.CommentCount < 0 {
		next.CommentCount = 0
	}
	return updateActivityInState(state, &next)
}
