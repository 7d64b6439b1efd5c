package feedstate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func bookmarkTestState() *FeedSnapshot {
	state := NewFeedSnapshot("user:lucy")
	state.Activities = []*Activity{{
		Id:            "a1",
		BookmarkCount: 1,
		OwnBookmarks: []*Bookmark{{
			ActivityId: "a1",
			Folder:     &BookmarkFolder{Id: "read-later"},
			User:       &User{Id: "lucy"},
		}},
	}}
	return state
}

func TestBookmarkIdentityTriple(t *testing.T) {
	state := bookmarkTestState()

	// same activity and user, different folder: a distinct bookmark
	bookmark := &Bookmark{
		ActivityId: "a1",
		Folder:     &BookmarkFolder{Id: "favorites"},
		User:       &User{Id: "lucy"},
	}
	payload := &Activity{Id: "a1", BookmarkCount: 2}
	next := applyBookmark(state, bookmarkAdded, bookmark, payload, "lucy")

	activity := next.Activities[0]
	assert.Equal(t, 2, activity.BookmarkCount)
	assert.Equal(t, 2, len(activity.OwnBookmarks))

	// deleting by triple removes only the matching folder's bookmark
	remove := &Bookmark{
		ActivityId: "a1",
		Folder:     &BookmarkFolder{Id: "read-later"},
		User:       &User{Id: "lucy"},
	}
	payload = &Activity{Id: "a1", BookmarkCount: 1}
	after := applyBookmark(next, bookmarkDeleted, remove, payload, "lucy")
	activity = after.Activities[0]
	assert.Equal(t, 1, len(activity.OwnBookmarks))
	assert.Equal(t, "favorites", activity.OwnBookmarks[0].FolderId())
}

func TestBookmarkOtherActor(t *testing.T) {
	state := bookmarkTestState()
	ownBefore := state.Activities[0].OwnBookmarks

	bookmark := &Bookmark{ActivityId: "a1", User: &User{Id: "ben"}}
	payload := &Activity{Id: "a1", BookmarkCount: 2}
	next := applyBookmark(state, bookmarkAdded, bookmark, payload, "lucy")

	activity := next.Activities[0]
	assert.Equal(t, 2, activity.BookmarkCount)
	if !isSameSlice(activity.OwnBookmarks, ownBefore) {
		t.Fatal("own bookmarks must keep their reference for another actor")
	}
}

func TestBookmarkUpdateMovesFolder(t *testing.T) {
	state := bookmarkTestState()

	bookmark := &Bookmark{
		ActivityId: "a1",
		Folder:     &BookmarkFolder{Id: "favorites"},
		User:       &User{Id: "lucy"},
	}
	next := applyBookmark(state, bookmarkUpdated, bookmark, nil, "lucy")

	activity := next.Activities[0]
	assert.Equal(t, 1, len(activity.OwnBookmarks))
	assert.Equal(t, "favorites", activity.OwnBookmarks[0].FolderId())
}
