package feedstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

type FeedEngineSettings struct {
	PageLimit         int
	CommentsPageLimit int
	CommentsSort      string
}

func DefaultFeedEngineSettings() *FeedEngineSettings {
	return &FeedEngineSettings{
		PageLimit:         25,
		CommentsPageLimit: 25,
		CommentsSort:      CommentSortLast,
	}
}

// raised synchronously when an overlapping full resync with
// incompatible parameters is attempted. never swallowed
type ResyncConflictError struct {
	Feed string
}

func (self *ResyncConflictError) Error() string {
	return fmt.Sprintf("overlapping resync with conflicting parameters for feed %s", self.Feed)
}

type inFlightResync struct {
	args *GetOrCreateFeedArgs
	done chan struct{}

	result *FeedSnapshot
	err    error
}

// one feed instance: owns the snapshot container, the reconciliation
// queue, the reducer bindings and the operation surface. the transport
// and the client context are external collaborators
type FeedEngine struct {
	ctx    context.Context
	cancel context.CancelFunc

	instanceId Id
	feed       string

	transport     FeedTransport
	clientContext *ClientContext
	settings      *FeedEngineSettings

	container  *SnapshotContainer
	queue      *ReconciliationQueue
	dispatcher *EventDispatcher

	// serializes every reducer invocation: each mutation runs to
	// completion atomically with respect to every other mutation
	applyLock sync.Mutex

	stateLock sync.Mutex
	resync    *inFlightResync
}

func NewFeedEngineWithDefaults(
	ctx context.Context,
	feed string,
	transport FeedTransport,
	clientContext *ClientContext,
) *FeedEngine {
	return NewFeedEngine(ctx, feed, transport, clientContext, DefaultFeedEngineSettings())
}

func NewFeedEngine(
	ctx context.Context,
	feed string,
	transport FeedTransport,
	clientContext *ClientContext,
	settings *FeedEngineSettings,
) *FeedEngine {
	cancelCtx, cancel := context.WithCancel(ctx)

	engine := &FeedEngine{
		ctx:           cancelCtx,
		cancel:        cancel,
		instanceId:    NewId(),
		feed:          feed,
		transport:     transport,
		clientContext: clientContext,
		settings:      settings,
		container:     NewSnapshotContainer(NewFeedSnapshot(feed)),
		queue:         NewReconciliationQueue(),
	}
	engine.dispatcher = NewEventDispatcher(engine.eventBindings())
	return engine
}

func (self *FeedEngine) Feed() string {
	return self.feed
}

func (self *FeedEngine) GetLatest() *FeedSnapshot {
	return self.container.GetLatest()
}

func (self *FeedEngine) Container() *SnapshotContainer {
	return self.container
}

// fan-out listeners observe every push message, including kinds the
// engine ignores
func (self *FeedEngine) On(listener EventListenerFunc) func() {
	return self.dispatcher.On(listener)
}

func (self *FeedEngine) SetWatch(watch bool) {
	self.container.Patch(func(next *FeedSnapshot) {
		next.Watch = watch
	})
}

func (self *FeedEngine) Close() {
	self.cancel()
}

// single entry point for the push channel
func (self *FeedEngine) HandleWsEvent(event *PushEvent) {
	self.dispatcher.Dispatch(event)
}

// gates the transition behind the reconciliation queue, then applies it
// atomically. an empty mutation id bypasses the queue (engine-internal
// derived updates and collection replacements)
func (self *FeedEngine) apply(mutationId string, origin ApplyOrigin, transition func(state *FeedSnapshot) *FeedSnapshot) {
	self.applyLock.Lock()
	defer self.applyLock.Unlock()

	if mutationId != "" {
		watch := self.container.GetLatest().Watch
		if !self.queue.ShouldApply(mutationId, origin, watch) {
			glog.V(1).Infof("[fe]%s drop duplicate %s\n", self.feed, mutationId)
			return
		}
	}
	self.container.Transition(transition)
}

func (self *FeedEngine) connectedUserId() string {
	if self.clientContext == nil {
		return ""
	}
	return self.clientContext.UserId()
}

// full resync. wholesale-replaces the snapshot and clears the
// reconciliation queue. an overlapping call with the same query
// coalesces into the same result; a call with a different query, or one
// overlapping an in-flight next-page load, fails fast
func (self *FeedEngine) GetOrCreate(ctx context.Context, args *GetOrCreateFeedArgs) (*FeedSnapshot, error) {
	if args == nil {
		args = &GetOrCreateFeedArgs{}
	}
	if args.Feed == "" {
		argsCopy := *args
		argsCopy.Feed = self.feed
		args = &argsCopy
	}
	if args.Limit == 0 {
		argsCopy := *args
		argsCopy.Limit = self.settings.PageLimit
		args = &argsCopy
	}
	// a full resync carries no cursor
	if args.Next != "" {
		argsCopy := *args
		argsCopy.Next = ""
		args = &argsCopy
	}

	var resync *inFlightResync
	coalesced := false
	err := func() error {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.resync != nil {
			if self.resync.args.SameQuery(args) {
				resync = self.resync
				coalesced = true
				return nil
			}
			return &ResyncConflictError{Feed: self.feed}
		}
		if self.container.GetLatest().LoadingActivities {
			return &ResyncConflictError{Feed: self.feed}
		}

		resync = &inFlightResync{
			args: args,
			done: make(chan struct{}),
		}
		self.resync = resync
		// the loading flags go up in the same critical section as the
		// registration, so the pagination guards can never observe an
		// in-flight resync without them
		self.container.Patch(func(next *FeedSnapshot) {
			next.Loading = true
			next.LoadingActivities = true
		})
		return nil
	}()
	if err != nil {
		return nil, err
	}

	if coalesced {
		glog.V(1).Infof("[fe]%s coalesce resync\n", self.feed)
		select {
		case <-resync.done:
			return resync.result, resync.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	result, err := self.transport.GetOrCreateFeed(ctx, args)

	var nextState *FeedSnapshot
	if err == nil {
		self.queue.Clear()
		nextState = self.snapshotFromResult(args, result)
		self.apply("", OriginInternal, func(*FeedSnapshot) *FeedSnapshot {
			return nextState
		})
	} else {
		// restore the loading flags on every failure path
		self.container.Patch(func(next *FeedSnapshot) {
			next.Loading = false
			next.LoadingActivities = false
		})
	}

	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		resync.result = nextState
		resync.err = err
		self.resync = nil
	}()
	close(resync.done)

	return nextState, err
}

func (self *FeedEngine) snapshotFromResult(args *GetOrCreateFeedArgs, result *GetOrCreateFeedResult) *FeedSnapshot {
	next := NewFeedSnapshot(self.feed)
	next.Activities = result.Activities
	if next.Activities == nil {
		next.Activities = []*Activity{}
	}
	next.PinnedActivities = result.PinnedActivities
	if next.PinnedActivities == nil {
		next.PinnedActivities = []*PinnedActivity{}
	}
	next.Followers = result.Followers
	next.FollowerCount = result.FollowerCount
	next.Following = result.Following
	next.FollowingCount = result.FollowingCount
	next.OwnFollows = result.OwnFollows
	next.Members = result.Members
	next.MemberCount = result.MemberCount
	next.OwnMembership = result.OwnMembership
	next.NotificationStatus = result.NotificationStatus
	next.AggregatedActivityGroups = result.AggregatedActivities
	next.ActivitiesPagination = &CursorState{
		Next: result.Next,
	}
	next.FollowersPagination = &CursorState{
		Next: result.FollowersNext,
	}
	next.FollowingPagination = &CursorState{
		Next: result.FollowingNext,
	}
	next.MembersPagination = &CursorState{
		Next: result.MembersNext,
	}
	next.Watch = args.Watch
	return next
}

// mutation entry points. each delegates to the transport and, on
// success, re-enters the reducer path with request-path origin.
// transport failures are propagated to the caller unchanged

func (self *FeedEngine) AddActivity(ctx context.Context, args *AddActivityArgs) (*Activity, error) {
	if args.Feed == "" {
		argsCopy := *args
		argsCopy.Feed = self.feed
		args = &argsCopy
	}
	result, err := self.transport.AddActivity(ctx, args)
	if err != nil {
		return nil, err
	}
	activity := result.Activity
	self.apply(
		activityMutationId("added", activity.Id),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return addActivityToState(state, activity, AddAtStart)
		},
	)
	return activity, nil
}

func (self *FeedEngine) UpdateActivity(ctx context.Context, args *UpdateActivityArgs) (*Activity, error) {
	result, err := self.transport.UpdateActivity(ctx, args)
	if err != nil {
		return nil, err
	}
	activity := result.Activity
	self.apply(
		activityMutationId("updated", activity.Id),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return updateActivityInState(state, activity)
		},
	)
	return activity, nil
}

func (self *FeedEngine) DeleteActivity(ctx context.Context, args *DeleteActivityArgs) error {
	_, err := self.transport.DeleteActivity(ctx, args)
	if err != nil {
		return err
	}
	activityId := args.ActivityId
	self.apply(
		activityMutationId("deleted", activityId),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			state = removeActivityFromState(state, activityId)
			return unpinActivityInState(state, activityId)
		},
	)
	return nil
}

func (self *FeedEngine) AddReaction(ctx context.Context, args *AddReactionArgs) (*Reaction, error) {
	result, err := self.transport.AddReaction(ctx, args)
	if err != nil {
		return nil, err
	}
	userId := self.connectedUserId()
	self.apply(
		reactionMutationId("added", args.ActivityId, result.Reaction.UserId(), args.Type),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyActivityReaction(state, reactionAdded, result.Reaction, result.Activity, userId)
		},
	)
	return result.Reaction, nil
}

func (self *FeedEngine) DeleteReaction(ctx context.Context, args *DeleteReactionArgs) error {
	result, err := self.transport.DeleteReaction(ctx, args)
	if err != nil {
		return err
	}
	userId := self.connectedUserId()
	self.apply(
		reactionMutationId("deleted", args.ActivityId, result.Reaction.UserId(), args.Type),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyActivityReaction(state, reactionDeleted, result.Reaction, result.Activity, userId)
		},
	)
	return nil
}

func (self *FeedEngine) AddBookmark(ctx context.Context, args *AddBookmarkArgs) (*Bookmark, error) {
	result, err := self.transport.AddBookmark(ctx, args)
	if err != nil {
		return nil, err
	}
	userId := self.connectedUserId()
	bookmark := result.Bookmark
	self.apply(
		bookmarkMutationId("added", bookmark.ActivityId, bookmark.FolderId(), bookmark.UserId()),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyBookmark(state, bookmarkAdded, bookmark, result.Activity, userId)
		},
	)
	return bookmark, nil
}

func (self *FeedEngine) DeleteBookmark(ctx context.Context, args *DeleteBookmarkArgs) error {
	result, err := self.transport.DeleteBookmark(ctx, args)
	if err != nil {
		return err
	}
	userId := self.connectedUserId()
	bookmark := result.Bookmark
	self.apply(
		bookmarkMutationId("deleted", bookmark.ActivityId, bookmark.FolderId(), bookmark.UserId()),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyBookmark(state, bookmarkDeleted, bookmark, result.Activity, userId)
		},
	)
	return nil
}

func (self *FeedEngine) AddComment(ctx context.Context, args *AddCommentArgs) (*Comment, error) {
	result, err := self.transport.AddComment(ctx, args)
	if err != nil {
		return nil, err
	}
	comment := result.Comment
	userId := self.connectedUserId()
	self.apply(
		commentMutationId("added", comment.Id),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			state = insertCommentInState(state, comment, userId)
			// derived counter updates, part of the same logical mutation
			state = applyReplyCountDelta(state, comment, 1)
			return applyCommentCountDelta(state, comment.ObjectId, 1)
		},
	)
	return comment, nil
}

func (self *FeedEngine) UpdateComment(ctx context.Context, args *UpdateCommentArgs) (*Comment, error) {
	result, err := self.transport.UpdateComment(ctx, args)
	if err != nil {
		return nil, err
	}
	comment := result.Comment
	self.apply(
		commentMutationId("updated", comment.Id),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return updateCommentInState(state, comment)
		},
	)
	return comment, nil
}

func (self *FeedEngine) DeleteComment(ctx context.Context, args *DeleteCommentArgs) error {
	result, err := self.transport.DeleteComment(ctx, args)
	if err != nil {
		return err
	}
	comment := result.Comment
	self.apply(
		commentMutationId("deleted", comment.Id),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			state = deleteCommentFromState(state, comment)
			state = applyReplyCountDelta(state, comment, -1)
			return applyCommentCountDelta(state, comment.ObjectId, -1)
		},
	)
	return nil
}

func (self *FeedEngine) AddCommentReaction(ctx context.Context, args *CommentReactionArgs) (*Reaction, error) {
	result, err := self.transport.AddCommentReaction(ctx, args)
	if err != nil {
		return nil, err
	}
	userId := self.connectedUserId()
	self.apply(
		commentReactionMutationId("added", args.CommentId, result.Reaction.UserId(), args.Type),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyCommentReaction(state, reactionAdded, result.Reaction, result.Comment, userId)
		},
	)
	return result.Reaction, nil
}

func (self *FeedEngine) DeleteCommentReaction(ctx context.Context, args *CommentReactionArgs) error {
	result, err := self.transport.DeleteCommentReaction(ctx, args)
	if err != nil {
		return err
	}
	userId := self.connectedUserId()
	self.apply(
		commentReactionMutationId("deleted", args.CommentId, result.Reaction.UserId(), args.Type),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyCommentReaction(state, reactionDeleted, result.Reaction, result.Comment, userId)
		},
	)
	return nil
}

func (self *FeedEngine) Follow(ctx context.Context, targetFeed string) (*FollowEdge, error) {
	result, err := self.transport.Follow(ctx, &FollowArgs{
		SourceFeed: self.feed,
		TargetFeed: targetFeed,
	})
	if err != nil {
		return nil, err
	}
	edge := result.Follow
	userId := self.connectedUserId()
	self.apply(
		followMutationId("created", edge.SourceFeed, edge.TargetFeed),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyFollow(state, followCreated, edge, userId)
		},
	)
	return edge, nil
}

func (self *FeedEngine) Unfollow(ctx context.Context, targetFeed string) error {
	result, err := self.transport.Unfollow(ctx, &UnfollowArgs{
		SourceFeed: self.feed,
		TargetFeed: targetFeed,
	})
	if err != nil {
		return err
	}
	edge := result.Follow
	userId := self.connectedUserId()
	self.apply(
		followMutationId("deleted", edge.SourceFeed, edge.TargetFeed),
		OriginRequest,
		func(state *FeedSnapshot) *FeedSnapshot {
			return applyFollow(state, followDeleted, edge, userId)
		},
	)
	return nil
}

func (self *FeedEngine) MarkRead(ctx context.Context, activityIds []string, markAllRead bool) error {
	result, err := self.transport.MarkActivity(ctx, &MarkActivityArgs{
		Feed:        self.feed,
		MarkRead:    activityIds,
		MarkAllRead: markAllRead,
	})
	if err != nil {
		return err
	}
	self.apply("", OriginInternal, func(state *FeedSnapshot) *FeedSnapshot {
		return applyNotificationStatus(state, result.NotificationStatus)
	})
	return nil
}

func (self *FeedEngine) MarkSeen(ctx context.Context, activityIds []string, markAllSeen bool) error {
	result, err := self.transport.MarkActivity(ctx, &MarkActivityArgs{
		Feed:        self.feed,
		MarkSeen:    activityIds,
		MarkAllSeen: markAllSeen,
	})
	if err != nil {
		return err
	}
	self.apply("", OriginInternal, func(state *FeedSnapshot) *FeedSnapshot {
		return applyNotificationStatus(state, result.NotificationStatus)
	})
	return nil
}
