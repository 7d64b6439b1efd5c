package feedstate

import (
	"golang.org/x/exp/slices"
)

// reducers are pure copy-on-write functions over one snapshot.
// common contract:
//   - inputs are never mutated
//   - matching checks reference identity against each element first
//     (push payloads sometimes carry the very object already in the
//     snapshot), falling back to an id scan
//   - "not found" returns the exact input reference, so callers and
//     the container can detect "no change" by pointer comparison
//   - "found" allocates a new top-level collection keeping every
//     untouched element by reference

type AddPosition int

const (
	AddAtStart AddPosition = iota
	AddAtEnd
)

func findActivityIndex(activities []*Activity, activity *Activity) int {
	for i, a := range activities {
		if a == activity {
			return i
		}
	}
	for i, a := range activities {
		if a.Id == activity.Id {
			return i
		}
	}
	return -1
}

func findActivityIndexById(activities []*Activity, activityId string) int {
	for i, a := range activities {
		if a.Id == activityId {
			return i
		}
	}
	return -1
}

// dedupes by id against the existing list. new items are unioned in at
// `position` per caller intent. no reordering by time: server ordering,
// including personalization, is authoritative
func addActivitiesToState(state *FeedSnapshot, activities []*Activity, position AddPosition) *FeedSnapshot {
	newActivities := []*Activity{}
	for _, activity := range activities {
		if i := findActivityIndexById(state.Activities, activity.Id); i < 0 {
			newActivities = append(newActivities, activity)
		}
	}
	if len(newActivities) == 0 {
		return state
	}

	next := state.clone()
	switch position {
	case AddAtStart:
		next.Activities = append(newActivities, state.Activities...)
	default:
		next.Activities = append(slices.Clone(state.Activities), newActivities...)
	}
	return next
}

func addActivityToState(state *FeedSnapshot, activity *Activity, position AddPosition) *FeedSnapshot {
	return addActivitiesToState(state, []*Activity{activity}, position)
}

// replaces the activity in the flat list and inside every pinned
// wrapper where it is present. the two copies are independent and each
// location is patched only when the activity actually lives there
func updateActivityInState(state *FeedSnapshot, activity *Activity) *FeedSnapshot {
	nextActivities := state.Activities
	if i := findActivityIndex(state.Activities, activity); 0 <= i {
		nextActivities = slices.Clone(state.Activities)
		nextActivities[i] = activity
	}

	nextPinned := replacePinnedActivity(state.PinnedActivities, activity)

	if isSameSlice(nextActivities, state.Activities) && isSameSlice(nextPinned, state.PinnedActivities) {
		return state
	}

	next := state.clone()
	next.Activities = nextActivities
	next.PinnedActivities = nextPinned
	return next
}

// returns the input slice when the activity is pinned nowhere
func replacePinnedActivity(pinned []*PinnedActivity, activity *Activity) []*PinnedActivity {
	nextPinned := pinned
	for i, wrapper := range pinned {
		if wrapper.Activity == activity || wrapper.Activity.Id == activity.Id {
			if isSameSlice(nextPinned, pinned) {
				nextPinned = slices.Clone(pinned)
			}
			nextWrapper := *wrapper
			nextWrapper.Activity = activity
			nextPinned[i] = &nextWrapper
		}
	}
	return nextPinned
}

// reports whether two slices are the same slice header, meaning no
// copy-on-write clone happened
func isSameSlice[T any](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}

func removeActivityFromState(state *FeedSnapshot, activityId string) *FeedSnapshot {
	i := findActivityIndexById(state.Activities, activityId)
	if i < 0 {
		return state
	}
	next := state.clone()
	next.Activities = slices.Delete(slices.Clone(state.Activities), i, i+1)
	return next
}

func pinActivityInState(state *FeedSnapshot, pinned *PinnedActivity) *FeedSnapshot {
	next := state.clone()
	replaced := false
	for i, wrapper := range state.PinnedActivities {
		if wrapper.Activity.Id == pinned.Activity.Id {
			// already pinned, refresh the wrapper
			nextPinned := slices.Clone(state.PinnedActivities)
			nextPinned[i] = pinned
			next.PinnedActivities = nextPinned
			replaced = true
			break
		}
	}
	if !replaced {
		next.PinnedActivities = append([]*PinnedActivity{pinned}, state.PinnedActivities...)
	}
	// keep the flat copy consistent where present
	if i := findActivityIndex(next.Activities, pinned.Activity); 0 <= i {
		nextActivities := slices.Clone(next.Activities)
		nextActivities[i] = pinned.Activity
		next.Activities = nextActivities
	}
	return next
}

// removing a pin never implicitly removes the flat copy
func unpinActivityInState(state *FeedSnapshot, activityId string) *FeedSnapshot {
	i := -1
	for j, wrapper := range state.PinnedActivities {
		if wrapper.Activity.Id == activityId {
			i = j
			break
		}
	}
	if i < 0 {
		return state
	}
	next := state.clone()
	next.PinnedActivities = slices.Delete(slices.Clone(state.PinnedActivities), i, i+1)
	return next
}
