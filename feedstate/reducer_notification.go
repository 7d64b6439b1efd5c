package feedstate

// notification-feed state: aggregated groups replace wholesale on a
// matching group id, read/seen markers replace the whole status block.
// the server computes both, the client never derives them locally

func applyNotificationStatus(state *FeedSnapshot, status *NotificationStatus) *FeedSnapshot {
	if status == nil {
		return state
	}
	next := state.clone()
	next.NotificationStatus = status
	return next
}

func applyAggregatedGroups(state *FeedSnapshot, groups []*AggregatedActivityGroup) *FeedSnapshot {
	if groups == nil {
		return state
	}
	next := state.clone()
	next.AggregatedActivityGroups = groups
	return next
}
