package feedstate

import (
	"golang.org/x/exp/slices"
)

type memberOp int

const (
	memberAdded memberOp = iota
	memberUpdated
	memberRemoved
)

func findMemberIndex(members []*FeedMember, member *FeedMember) int {
	for i, m := range members {
		if m == member {
			return i
		}
	}
	for i, m := range members {
		if m.UserId() == member.UserId() {
			return i
		}
	}
	return -1
}

// additionally sets or clears `OwnMembership` when the affected member
// is the connected user
func applyMember(state *FeedSnapshot, op memberOp, member *FeedMember, connectedUserId string) *FeedSnapshot {
	i := findMemberIndex(state.Members, member)
	isOwn := connectedUserId != "" && member.UserId() == connectedUserId

	next := state.clone()
	switch op {
	case memberAdded:
		if 0 <= i {
			nextMembers := slices.Clone(state.Members)
			nextMembers[i] = member
			next.Members = nextMembers
		} else {
			next.Members = append([]*FeedMember{member}, state.Members...)
			next.MemberCount = state.MemberCount + 1
		}
		if isOwn {
			next.OwnMembership = member
		}
	case memberUpdated:
		if i < 0 && !isOwn {
			return state
		}
		if 0 <= i {
			nextMembers := slices.Clone(state.Members)
			nextMembers[i] = member
			next.Members = nextMembers
		}
		if isOwn {
			next.OwnMembership = member
		}
	case memberRemoved:
		if i < 0 && !isOwn {
			return state
		}
		if 0 <= i {
			next.Members = slices.Delete(slices.Clone(state.Members), i, i+1)
			next.MemberCount = state.MemberCount - 1
		}
		if isOwn {
			next.OwnMembership = nil
		}
	}
	return next
}
