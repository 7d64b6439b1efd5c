package feedstate

import (
	"context"

	"github.com/golang/glog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// pagination entry points. common shape:
//  1. no-op silently when a load for the same bucket is already in
//     flight or no further cursor exists. no transport call is issued
//  2. set the bucket's loading flag before issuing the request
//  3. merge the response id-deduplicated into the existing collection
//  4. clear the flag in a guaranteed cleanup step on every path
//  5. rethrow failures to the caller

// reports whether a next-page load may start for `pagination`.
// nil means the collection was never loaded: nothing to continue from
func canLoadNextPage(pagination *CursorState) bool {
	if pagination == nil {
		return false
	}
	return !pagination.LoadingNextPage && pagination.Next != ""
}

func (self *FeedEngine) LoadNextPageActivities(ctx context.Context) error {
	start := false
	var next string
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		state := self.container.GetLatest()
		if state.LoadingActivities || !canLoadNextPage(state.ActivitiesPagination) {
			return
		}
		next = state.ActivitiesPagination.Next
		start = true
		self.container.Patch(func(nextState *FeedSnapshot) {
			nextState.LoadingActivities = true
			pagination := nextState.ActivitiesPagination.clone()
			pagination.LoadingNextPage = true
			nextState.ActivitiesPagination = pagination
		})
	}()
	if !start {
		glog.V(1).Infof("[fe]%s activities page noop\n", self.feed)
		return nil
	}

	defer self.container.Patch(func(nextState *FeedSnapshot) {
		nextState.LoadingActivities = false
		pagination := nextState.ActivitiesPagination.clone()
		pagination.LoadingNextPage = false
		nextState.ActivitiesPagination = pagination
	})

	result, err := self.transport.GetOrCreateFeed(ctx, &GetOrCreateFeedArgs{
		Feed:  self.feed,
		Limit: self.settings.PageLimit,
		Next:  next,
	})
	if err != nil {
		return err
	}

	self.apply("", OriginInternal, func(state *FeedSnapshot) *FeedSnapshot {
		nextState := addActivitiesToState(state, result.Activities, AddAtEnd)
		if nextState == state {
			nextState = state.clone()
		}
		pagination := nextState.ActivitiesPagination.clone()
		pagination.Next = result.Next
		nextState.ActivitiesPagination = pagination
		return nextState
	})
	return nil
}

// first page of top-level comments for an activity. materializes the
// activity's bucket; until it exists, push-path comment inserts for the
// activity are no-ops
func (self *FeedEngine) LoadComments(ctx context.Context, activityId string, sort string) error {
	if sort == "" {
		sort = self.settings.CommentsSort
	}
	return self.loadCommentBucket(ctx, activityId, "", "", sort)
}

// first page of replies for a comment. the reply bucket records which
// bucket the parent comment was discovered under
func (self *FeedEngine) LoadCommentReplies(ctx context.Context, comment *Comment, sort string) error {
	if sort == "" {
		sort = self.settings.CommentsSort
	}
	return self.loadCommentBucket(ctx, comment.Id, commentBucketKey(comment), "", sort)
}

func (self *FeedEngine) LoadNextPageComments(ctx context.Context, entityId string) error {
	start := false
	var next string
	var sort string
	var entityParentId string
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		state := self.container.GetLatest()
		bucket, ok := state.CommentsByEntityId[entityId]
		if !ok || !canLoadNextPage(bucket.Pagination) {
			return
		}
		next = bucket.Pagination.Next
		sort = bucket.Pagination.Sort
		entityParentId = bucket.EntityParentId
		start = true
		self.container.Patch(func(nextState *FeedSnapshot) {
			nextBucket := bucket.clone()
			pagination := bucket.Pagination.clone()
			pagination.LoadingNextPage = true
			nextBucket.Pagination = pagination
			nextState.CommentsByEntityId = maps.Clone(nextState.CommentsByEntityId)
			nextState.CommentsByEntityId[entityId] = nextBucket
		})
	}()
	if !start {
		glog.V(1).Infof("[fe]%s comments page noop %s\n", self.feed, entityId)
		return nil
	}

	defer self.clearCommentLoadingFlag(entityId)

	return self.loadCommentBucketLocked(ctx, entityId, entityParentId, next, sort)
}

func (self *FeedEngine) loadCommentBucket(ctx context.Context, entityId string, entityParentId string, next string, sort string) error {
	start := false
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		state := self.container.GetLatest()
		if bucket, ok := state.CommentsByEntityId[entityId]; ok {
			if bucket.Pagination != nil && bucket.Pagination.LoadingNextPage {
				return
			}
		}
		start = true
		self.container.Patch(func(nextState *FeedSnapshot) {
			nextState.CommentsByEntityId = maps.Clone(nextState.CommentsByEntityId)
			bucket, ok := nextState.CommentsByEntityId[entityId]
			if !ok {
				bucket = &CommentBucket{
					Comments:       []*Comment{},
					EntityParentId: entityParentId,
				}
			} else {
				bucket = bucket.clone()
			}
			pagination := bucket.Pagination.clone()
			if pagination == nil {
				pagination = &CursorState{}
			}
			pagination.Sort = sort
			pagination.LoadingNextPage = true
			bucket.Pagination = pagination
			nextState.CommentsByEntityId[entityId] = bucket
		})
	}()
	if !start {
		glog.V(1).Infof("[fe]%s comments load noop %s\n", self.feed, entityId)
		return nil
	}

	defer self.clearCommentLoadingFlag(entityId)

	return self.loadCommentBucketLocked(ctx, entityId, entityParentId, next, sort)
}

// issues the transport call for one bucket page and merges the
// response. the caller owns the loading flag lifecycle
func (self *FeedEngine) loadCommentBucketLocked(ctx context.Context, entityId string, entityParentId string, next string, sort string) error {
	result, err := self.transport.GetComments(ctx, &GetCommentsArgs{
		EntityId: entityId,
		Sort:     sort,
		Limit:    self.settings.CommentsPageLimit,
		Next:     next,
	})
	if err != nil {
		return err
	}

	self.apply("", OriginInternal, func(state *FeedSnapshot) *FeedSnapshot {
		return flattenLoadedTree(state, entityId, entityParentId, result.Comments, result.Next, sort)
	})
	return nil
}

func (self *FeedEngine) clearCommentLoadingFlag(entityId string) {
	self.container.Patch(func(nextState *FeedSnapshot) {
		bucket, ok := nextState.CommentsByEntityId[entityId]
		if !ok || bucket.Pagination == nil {
			return
		}
		nextBucket := bucket.clone()
		pagination := bucket.Pagination.clone()
		pagination.LoadingNextPage = false
		nextBucket.Pagination = pagination
		nextState.CommentsByEntityId = maps.Clone(nextState.CommentsByEntityId)
		nextState.CommentsByEntityId[entityId] = nextBucket
	})
}

// follower / following / member pages share one implementation over
// the snapshot's per-collection pagination blocks

type followPageKind int

const (
	pageFollowers followPageKind = iota
	pageFollowing
)

func (self *FeedEngine) LoadNextPageFollowers(ctx context.Context) error {
	return self.loadNextPageFollows(ctx, pageFollowers)
}

func (self *FeedEngine) LoadNextPageFollowing(ctx context.Context) error {
	return self.loadNextPageFollows(ctx, pageFollowing)
}

func (self *FeedEngine) loadNextPageFollows(ctx context.Context, kind followPageKind) error {
	pagination := func(state *FeedSnapshot) *CursorState {
		if kind == pageFollowers {
			return state.FollowersPagination
		}
		return state.FollowingPagination
	}
	setPagination := func(state *FeedSnapshot, next *CursorState) {
		if kind == pageFollowers {
			state.FollowersPagination = next
		} else {
			state.FollowingPagination = next
		}
	}

	start := false
	var next string
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		state := self.container.GetLatest()
		if !canLoadNextPage(pagination(state)) {
			return
		}
		next = pagination(state).Next
		start = true
		self.container.Patch(func(nextState *FeedSnapshot) {
			p := pagination(nextState).clone()
			p.LoadingNextPage = true
			setPagination(nextState, p)
		})
	}()
	if !start {
		glog.V(1).Infof("[fe]%s follows page noop\n", self.feed)
		return nil
	}

	defer self.container.Patch(func(nextState *FeedSnapshot) {
		p := pagination(nextState).clone()
		p.LoadingNextPage = false
		setPagination(nextState, p)
	})

	args := &QueryFollowsArgs{
		Feed:  self.feed,
		Limit: self.settings.PageLimit,
		Next:  next,
	}
	var result *QueryFollowsResult
	var err error
	if kind == pageFollowers {
		result, err = self.transport.QueryFollowers(ctx, args)
	} else {
		result, err = self.transport.QueryFollowing(ctx, args)
	}
	if err != nil {
		return err
	}

	self.apply("", OriginInternal, func(state *FeedSnapshot) *FeedSnapshot {
		nextState := state.clone()
		if kind == pageFollowers {
			nextState.Followers = mergeFollows(state.Followers, result.Follows)
			nextState.FollowerCount = result.Count
		} else {
			nextState.Following = mergeFollows(state.Following, result.Follows)
			nextState.FollowingCount = result.Count
		}
		p := pagination(state).clone()
		p.Next = result.Next
		setPagination(nextState, p)
		return nextState
	})
	return nil
}

func mergeFollows(existing []*FollowEdge, loaded []*FollowEdge) []*FollowEdge {
	next := slices.Clone(existing)
	for _, edge := range loaded {
		if i := findFollowIndex(next, edge); 0 <= i {
			next[i] = edge
		} else {
			next = append(next, edge)
		}
	}
	return next
}

func (self *FeedEngine) LoadNextPageMembers(ctx context.Context) error {
	start := false
	var next string
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		state := self.container.GetLatest()
		if !canLoadNextPage(state.MembersPagination) {
			return
		}
		next = state.MembersPagination.Next
		start = true
		self.container.Patch(func(nextState *FeedSnapshot) {
			p := nextState.MembersPagination.clone()
			p.LoadingNextPage = true
			nextState.MembersPagination = p
		})
	}()
	if !start {
		glog.V(1).Infof("[fe]%s members page noop\n", self.feed)
		return nil
	}

	defer self.container.Patch(func(nextState *FeedSnapshot) {
		p := nextState.MembersPagination.clone()
		p.LoadingNextPage = false
		nextState.MembersPagination = p
	})

	result, err := self.transport.QueryFeedMembers(ctx, &QueryFeedMembersArgs{
		Feed:  self.feed,
		Limit: self.settings.PageLimit,
		Next:  next,
	})
	if err != nil {
		return err
	}

	self.apply("", OriginInternal, func(state *FeedSnapshot) *FeedSnapshot {
		nextState := state.clone()
		nextMembers := slices.Clone(state.Members)
		for _, member := range result.Members {
			if i := findMemberIndex(nextMembers, member); 0 <= i {
				nextMembers[i] = member
			} else {
				nextMembers = append(nextMembers, member)
			}
		}
		nextState.Members = nextMembers
		nextState.MemberCount = result.Count
		p := state.MembersPagination.clone()
		p.Next = result.Next
		nextState.MembersPagination = p
		return nextState
	})
	return nil
}
