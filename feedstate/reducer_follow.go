package feedstate

import (
	"strings"

	"golang.org/x/exp/slices"
)

type followOp int

const (
	followCreated followOp = iota
	followUpdated
	followDeleted
)

// feed ids are "group:owner", e.g. "user:lucy"
func feedOwnerId(feed string) string {
	if i := strings.LastIndex(feed, ":"); 0 <= i {
		return feed[i+1:]
	}
	return ""
}

func findFollowIndex(edges []*FollowEdge, edge *FollowEdge) int {
	for i, e := range edges {
		if e == edge {
			return i
		}
	}
	for i, e := range edges {
		if e.SameEdge(edge) {
			return i
		}
	}
	return -1
}

// an edge lives in up to three lists: `Following` when the current feed
// is the edge's source, `Followers` when it is the target, `OwnFollows`
// when the connected user owns the source feed. each list is located
// and patched independently
func applyFollow(state *FeedSnapshot, op followOp, edge *FollowEdge, connectedUserId string) *FeedSnapshot {
	isSource := edge.SourceFeed == state.Feed
	isTarget := edge.TargetFeed == state.Feed
	isOwn := connectedUserId != "" && feedOwnerId(edge.SourceFeed) == connectedUserId

	if !isSource && !isTarget && !isOwn {
		return state
	}

	next := state.clone()
	changed := false

	apply := func(edges []*FollowEdge, count int) ([]*FollowEdge, int, bool) {
		i := findFollowIndex(edges, edge)
		switch op {
		case followCreated:
			if 0 <= i {
				// duplicate create, refresh in place
				nextEdges := slices.Clone(edges)
				nextEdges[i] = edge
				return nextEdges, count, true
			}
			return append([]*FollowEdge{edge}, edges...), count + 1, true
		case followUpdated:
			if i < 0 {
				return edges, count, false
			}
			nextEdges := slices.Clone(edges)
			nextEdges[i] = edge
			return nextEdges, count, true
		default:
			if i < 0 {
				return edges, count, false
			}
			return slices.Delete(slices.Clone(edges), i, i+1), count - 1, true
		}
	}

	if isSource {
		if edges, count, ok := apply(state.Following, state.FollowingCount); ok {
			next.Following = edges
			next.FollowingCount = count
			changed = true
		}
	}
	if isTarget {
		if edges, count, ok := apply(state.Followers, state.FollowerCount); ok {
			next.Followers = edges
			next.FollowerCount = count
			changed = true
		}
	}
	if isOwn {
		if edges, _, ok := apply(state.OwnFollows, 0); ok {
			next.OwnFollows = edges
			changed = true
		}
	}

	if !changed {
		return state
	}
	return next
}
