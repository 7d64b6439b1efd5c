package feedstate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestFollowCreatedThreeLists(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")

	// lucy follows ben from her own feed: source list and own list
	edge := &FollowEdge{SourceFeed: "user:lucy", TargetFeed: "user:ben"}
	next := applyFollow(state, followCreated, edge, "lucy")
	assert.Equal(t, 1, len(next.Following))
	assert.Equal(t, 1, next.FollowingCount)
	assert.Equal(t, 0, len(next.Followers))
	assert.Equal(t, 1, len(next.OwnFollows))

	// ben follows lucy: target list only, not own
	incoming := &FollowEdge{SourceFeed: "user:ben", TargetFeed: "user:lucy"}
	next = applyFollow(next, followCreated, incoming, "lucy")
	assert.Equal(t, 1, len(next.Followers))
	assert.Equal(t, 1, next.FollowerCount)
	assert.Equal(t, 1, len(next.OwnFollows))
}

func TestFollowDeleted(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	edge := &FollowEdge{SourceFeed: "user:lucy", TargetFeed: "user:ben"}
	state = applyFollow(state, followCreated, edge, "lucy")

	next := applyFollow(state, followDeleted, &FollowEdge{
		SourceFeed: "user:lucy",
		TargetFeed: "user:ben",
	}, "lucy")
	assert.Equal(t, 0, len(next.Following))
	assert.Equal(t, 0, next.FollowingCount)
	assert.Equal(t, 0, len(next.OwnFollows))
}

func TestFollowUpdatedPatchesInPlace(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	edge := &FollowEdge{SourceFeed: "user:ben", TargetFeed: "user:lucy", Status: "pending"}
	state = applyFollow(state, followCreated, edge, "lucy")

	accepted := &FollowEdge{SourceFeed: "user:ben", TargetFeed: "user:lucy", Status: "accepted"}
	next := applyFollow(state, followUpdated, accepted, "lucy")
	assert.Equal(t, "accepted", next.Followers[0].Status)
	assert.Equal(t, 1, next.FollowerCount)
}

func TestFollowUnrelatedFeed(t *testing.T) {
	state := NewFeedSnapshot("user:lucy")
	edge := &FollowEdge{SourceFeed: "user:ben", TargetFeed: "user:carol"}
	if applyFollow(state, followCreated, edge, "lucy") != state {
		t.Fatal("unrelated edge must return the input reference")
	}
}

func TestMemberOwnMembership(t *testing.T) {
	state := NewFeedSnapshot("group:hiking")

	member := &FeedMember{Feed: "group:hiking", User: &User{Id: "lucy"}, Role: "member"}
	next := applyMember(state, memberAdded, member, "lucy")
	assert.Equal(t, 1, len(next.Members))
	assert.Equal(t, 1, next.MemberCount)
	assert.Equal(t, "lucy", next.OwnMembership.UserId())

	promoted := &FeedMember{Feed: "group:hiking", User: &User{Id: "lucy"}, Role: "moderator"}
	next = applyMember(next, memberUpdated, promoted, "lucy")
	assert.Equal(t, "moderator", next.Members[0].Role)
	assert.Equal(t, "moderator", next.OwnMembership.Role)

	next = applyMember(next, memberRemoved, promoted, "lucy")
	assert.Equal(t, 0, len(next.Members))
	assert.Equal(t, 0, next.MemberCount)
	if next.OwnMembership != nil {
		t.Fatal("own membership must clear on removal")
	}
}

func TestMemberOtherUser(t *testing.T) {
	state := NewFeedSnapshot("group:hiking")
	member := &FeedMember{Feed: "group:hiking", User: &User{Id: "ben"}}
	next := applyMember(state, memberAdded, member, "lucy")
	assert.Equal(t, 1, len(next.Members))
	if next.OwnMembership != nil {
		t.Fatal("own membership must not change for another user")
	}
}
