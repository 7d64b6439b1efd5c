package feedstate

import (
	"golang.org/x/exp/slices"
)

type bookmarkOp int

const (
	bookmarkAdded bookmarkOp = iota
	bookmarkUpdated
	bookmarkDeleted
)

// a bookmark's identity is the triple (activity id, folder id, user
// id). `OwnBookmarks` follows the same self-actor rule as reactions;
// the shared `BookmarkCount` always comes from the payload
func applyBookmark(
	state *FeedSnapshot,
	op bookmarkOp,
	bookmark *Bookmark,
	payload *Activity,
	connectedUserId string,
) *FeedSnapshot {
	current := findActivityInState(state, bookmark.ActivityId)
	if current == nil {
		return state
	}

	next := *current
	if payload != nil {
		next.BookmarkCount = payload.BookmarkCount
	}
	if connectedUserId != "" && bookmark.UserId() == connectedUserId {
		switch op {
		case bookmarkAdded:
			next.OwnBookmarks = append(slices.Clone(current.OwnBookmarks), bookmark)
		case bookmarkUpdated:
			// an update can move the bookmark between folders, so the
			// folder id cannot take part in the match here
			nextOwn := slices.Clone(current.OwnBookmarks)
			replaced := false
			for i, own := range nextOwn {
				if own.ActivityId == bookmark.ActivityId && own.UserId() == bookmark.UserId() {
					nextOwn[i] = bookmark
					replaced = true
					break
				}
			}
			if !replaced {
				nextOwn = append(nextOwn, bookmark)
			}
			next.OwnBookmarks = nextOwn
		case bookmarkDeleted:
			nextOwn := []*Bookmark{}
			for _, own := range current.OwnBookmarks {
				if !own.SameIdentity(bookmark) {
					nextOwn = append(nextOwn, own)
				}
			}
			next.OwnBookmarks = nextOwn
		}
	}

	return updateActivityInState(state, &next)
}
