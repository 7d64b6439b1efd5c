package feedstate

// push-path reducer bindings. every catalog kind appears here exactly
// once, bound or explicitly ignored. each handler derives the same
// mutation id as the matching request-path operation so the
// reconciliation queue can pair a response with its push echo

func (self *FeedEngine) eventBindings() map[string]*eventBinding {
	return map[string]*eventBinding{
		EventActivityAdded:    bindEvent(self.handleActivityAdded),
		EventActivityUpdated:  bindEvent(self.handleActivityUpdated),
		EventActivityDeleted:  bindEvent(self.handleActivityDeleted),
		EventActivityPinned:   bindEvent(self.handleActivityPinned),
		EventActivityUnpinned: bindEvent(self.handleActivityUnpinned),

		EventReactionAdded:   bindEvent(self.handleReaction(reactionAdded, "added")),
		EventReactionUpdated: bindEvent(self.handleReaction(reactionUpdated, "updated")),
		EventReactionDeleted: bindEvent(self.handleReaction(reactionDeleted, "deleted")),

		EventBookmarkAdded:   bindEvent(self.handleBookmark(bookmarkAdded, "added")),
		EventBookmarkUpdated: bindEvent(self.handleBookmark(bookmarkUpdated, "updated")),
		EventBookmarkDeleted: bindEvent(self.handleBookmark(bookmarkDeleted, "deleted")),

		EventCommentAdded:   bindEvent(self.handleCommentAdded),
		EventCommentUpdated: bindEvent(self.handleCommentUpdated),
		EventCommentDeleted: bindEvent(self.handleCommentDeleted),

		EventCommentReactionAdded:   bindEvent(self.handleCommentReaction(reactionAdded, "added")),
		EventCommentReactionDeleted: bindEvent(self.handleCommentReaction(reactionDeleted, "deleted")),

		EventFollowCreated: bindEvent(self.handleFollow(followCreated, "created")),
		EventFollowUpdated: bindEvent(self.handleFollow(followUpdated, "updated")),
		EventFollowDeleted: bindEvent(self.handleFollow(followDeleted, "deleted")),

		EventMemberAdded:   bindEvent(self.handleMember(memberAdded, "added")),
		EventMemberUpdated: bindEvent(self.handleMember(memberUpdated, "updated")),
		EventMemberRemoved: bindEvent(self.handleMember(memberRemoved, "removed")),

		EventNotificationFeedUpdated: bindEvent(self.handleNotificationFeedUpdated),

		// observed by fan-out listeners only
		EventFeedCreated:      ignoreEvent(),
		EventFeedUpdated:      ignoreEvent(),
		EventFeedDeleted:      ignoreEvent(),
		EventFeedGroupChanged: ignoreEvent(),
		EventActivityMarked:   ignoreEvent(),
		EventHealthCheck:      ignoreEvent(),
	}
}

func (self *FeedEngine) pushOrigin(event *PushEvent) ApplyOrigin {
	return OriginPush(event.ActorId(), self.connectedUserId())
}

func (self *FeedEngine) handleActivityAdded(event *PushEvent) {
	if event.Activity == nil {
		return
	}
	activity := event.Activity
	self.apply(
		activityMutationId("added", activity.Id),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			return addActivityToState(state, activity, AddAtStart)
		},
	)
}

func (self *FeedEngine) handleActivityUpdated(event *PushEvent) {
	if event.Activity == nil {
		return
	}
	activity := event.Activity
	self.apply(
		activityMutationId("updated", activity.Id),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			return updateActivityInState(state, activity)
		},
	)
}

func (self *FeedEngine) handleActivityDeleted(event *PushEvent) {
	if event.Activity == nil {
		return
	}
	activityId := event.Activity.Id
	self.apply(
		activityMutationId("deleted", activityId),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			state = removeActivityFromState(state, activityId)
			return unpinActivityInState(state, activityId)
		},
	)
}

func (self *FeedEngine) handleActivityPinned(event *PushEvent) {
	if event.Activity == nil {
		return
	}
	pinned := &PinnedActivity{
		Activity:  event.Activity,
		User:      event.User,
		Feed:      event.Feed,
		UpdatedAt: event.CreatedAt,
	}
	self.apply(
		activityMutationId("pinned", event.Activity.Id),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			return pinActivityInState(state, pinned)
		},
	)
}

func (self *FeedEngine) handleActivityUnpinned(event *PushEvent) {
	if event.Activity == nil {
		return
	}
	activityId := event.Activity.Id
	self.apply(
		activityMutationId("unpinned", activityId),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			return unpinActivityInState(state, activityId)
		},
	)
}

func (self *FeedEngine) handleReaction(op reactionOp, opName string) eventApplyFunc {
	return func(event *PushEvent) {
		if event.Reaction == nil {
			return
		}
		reaction := event.Reaction
		activityId := reaction.ActivityId
		if activityId == "" && event.Activity != nil {
			activityId = event.Activity.Id
		}
		userId := self.connectedUserId()
		self.apply(
			reactionMutationId(opName, activityId, reaction.UserId(), reaction.Type),
			self.pushOrigin(event),
			func(state *FeedSnapshot) *FeedSnapshot {
				return applyActivityReaction(state, op, reaction, event.Activity, userId)
			},
		)
	}
}

func (self *FeedEngine) handleBookmark(op bookmarkOp, opName string) eventApplyFunc {
	return func(event *PushEvent) {
		if event.Bookmark == nil {
			return
		}
		bookmark := event.Bookmark
		userId := self.connectedUserId()
		self.apply(
			bookmarkMutationId(opName, bookmark.ActivityId, bookmark.FolderId(), bookmark.UserId()),
			self.pushOrigin(event),
			func(state *FeedSnapshot) *FeedSnapshot {
				return applyBookmark(state, op, bookmark, event.Activity, userId)
			},
		)
	}
}

func (self *FeedEngine) handleCommentAdded(event *PushEvent) {
	if event.Comment == nil {
		return
	}
	comment := event.Comment
	userId := self.connectedUserId()
	self.apply(
		commentMutationId("added", comment.Id),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			state = insertCommentInState(state, comment, userId)
			state = applyReplyCountDelta(state, comment, 1)
			return applyCommentCountDelta(state, comment.ObjectId, 1)
		},
	)
}

func (self *FeedEngine) handleCommentUpdated(event *PushEvent) {
	if event.Comment == nil {
		return
	}
	comment := event.Comment
	self.apply(
		commentMutationId("updated", comment.Id),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			return updateCommentInState(state, comment)
		},
	)
}

func (self *FeedEngine) handleCommentDeleted(event *PushEvent) {
	if event.Comment == nil {
		return
	}
	comment := event.Comment
	self.apply(
		commentMutationId("deleted", comment.Id),
		self.pushOrigin(event),
		func(state *FeedSnapshot) *FeedSnapshot {
			state = deleteCommentFromState(state, comment)
			state = applyReplyCountDelta(state, comment, -1)
			return applyCommentCountDelta(state, comment.ObjectId, -1)
		},
	)
}

func (self *FeedEngine) handleCommentReaction(op reactionOp, opName string) eventApplyFunc {
	return func(event *PushEvent) {
		if event.Reaction == nil || event.Comment == nil {
			return
		}
		reaction := event.Reaction
		userId := self.connectedUserId()
		self.apply(
			commentReactionMutationId(opName, event.Comment.Id, reaction.UserId(), reaction.Type),
			self.pushOrigin(event),
			func(state *FeedSnapshot) *FeedSnapshot {
				return applyCommentReaction(state, op, reaction, event.Comment, userId)
			},
		)
	}
}

func (self *FeedEngine) handleFollow(op followOp, opName string) eventApplyFunc {
	return func(event *PushEvent) {
		if event.Follow == nil {
			return
		}
		edge := event.Follow
		userId := self.connectedUserId()
		self.apply(
			followMutationId(opName, edge.SourceFeed, edge.TargetFeed),
			self.pushOrigin(event),
			func(state *FeedSnapshot) *FeedSnapshot {
				return applyFollow(state, op, edge, userId)
			},
		)
	}
}

func (self *FeedEngine) handleMember(op memberOp, opName string) eventApplyFunc {
	return func(event *PushEvent) {
		if event.Member == nil {
			return
		}
		member := event.Member
		userId := self.connectedUserId()
		self.apply(
			memberMutationId(opName, member.Feed, member.UserId()),
			self.pushOrigin(event),
			func(state *FeedSnapshot) *FeedSnapshot {
				return applyMember(state, op, member, userId)
			},
		)
	}
}

func (self *FeedEngine) handleNotificationFeedUpdated(event *PushEvent) {
	self.apply("", OriginInternal, func(state *FeedSnapshot) *FeedSnapshot {
		state = applyNotificationStatus(state, event.NotificationStatus)
		return applyAggregatedGroups(state, event.AggregatedActivities)
	})
}
