package feedstate

import (
	"time"
)

// the feed data model. entity ids are assigned by the platform and stay
// strings on the wire. snapshots are immutable values: every reducer
// that changes a collection allocates a new top-level collection and
// keeps untouched elements by reference. nothing in this file is safe
// to mutate in place once it has entered a snapshot.

type User struct {
	Id     string         `json:"id"`
	Name   string         `json:"name,omitempty"`
	Image  string         `json:"image,omitempty"`
	Custom map[string]any `json:"custom,omitempty"`
}

type ReactionGroup struct {
	Count           int       `json:"count"`
	FirstReactionAt time.Time `json:"first_reaction_at,omitempty"`
	LastReactionAt  time.Time `json:"last_reaction_at,omitempty"`
}

type Reaction struct {
	ActivityId string         `json:"activity_id,omitempty"`
	CommentId  string         `json:"comment_id,omitempty"`
	Type       string         `json:"type"`
	User       *User          `json:"user"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	Custom     map[string]any `json:"custom,omitempty"`
}

func (self *Reaction) UserId() string {
	if self.User == nil {
		return ""
	}
	return self.User.Id
}

type BookmarkFolder struct {
	Id   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// a bookmark has no surrogate id. its identity is the triple
// (activity id, folder id, user id).
type Bookmark struct {
	ActivityId string          `json:"activity_id"`
	Folder     *BookmarkFolder `json:"folder,omitempty"`
	User       *User           `json:"user"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at,omitempty"`
	Custom     map[string]any  `json:"custom,omitempty"`
}

func (self *Bookmark) FolderId() string {
	if self.Folder == nil {
		return ""
	}
	return self.Folder.Id
}

func (self *Bookmark) UserId() string {
	if self.User == nil {
		return ""
	}
	return self.User.Id
}

func (self *Bookmark) SameIdentity(other *Bookmark) bool {
	return self.ActivityId == other.ActivityId &&
		self.FolderId() == other.FolderId() &&
		self.UserId() == other.UserId()
}

type Activity struct {
	Id               string                    `json:"id"`
	Type             string                    `json:"type,omitempty"`
	Feed             string                    `json:"feed,omitempty"`
	Text             string                    `json:"text,omitempty"`
	User             *User                     `json:"user"`
	CreatedAt        time.Time                 `json:"created_at,omitempty"`
	UpdatedAt        time.Time                 `json:"updated_at,omitempty"`
	ReactionCount    int                       `json:"reaction_count"`
	ReactionGroups   map[string]*ReactionGroup `json:"reaction_groups,omitempty"`
	LatestReactions  []*Reaction               `json:"latest_reactions,omitempty"`
	OwnReactions     []*Reaction               `json:"own_reactions,omitempty"`
	BookmarkCount    int                       `json:"bookmark_count"`
	OwnBookmarks     []*Bookmark               `json:"own_bookmarks,omitempty"`
	CommentCount     int                       `json:"comment_count"`
	Hidden           bool                      `json:"hidden,omitempty"`
	Custom           map[string]any            `json:"custom,omitempty"`
}

func (self *Activity) UserId() string {
	if self.User == nil {
		return ""
	}
	return self.User.Id
}

// a second, independent copy of an activity. the embedded activity is
// never pointer-linked to the copy in the flat `Activities` list, so
// every update must write both locations.
type PinnedActivity struct {
	Activity  *Activity `json:"activity"`
	User      *User     `json:"user,omitempty"`
	Feed      string    `json:"feed,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Comment struct {
	Id string `json:"id"`
	// id of the activity this comment thread is rooted at
	ObjectId string `json:"object_id"`
	// id of the parent comment. empty for a top-level comment
	ParentId        string      `json:"parent_id,omitempty"`
	Text            string      `json:"text,omitempty"`
	User            *User       `json:"user"`
	CreatedAt       time.Time   `json:"created_at,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at,omitempty"`
	ReplyCount      int         `json:"reply_count"`
	ReactionCount   int         `json:"reaction_count"`
	OwnReactions    []*Reaction `json:"own_reactions,omitempty"`
	LatestReactions []*Reaction `json:"latest_reactions,omitempty"`
	// nested replies as returned by the comments endpoint.
	// flattened into buckets on load, never stored in a snapshot
	Replies []*Comment     `json:"replies,omitempty"`
	Custom  map[string]any `json:"custom,omitempty"`
}

func (self *Comment) UserId() string {
	if self.User == nil {
		return ""
	}
	return self.User.Id
}

type FollowEdge struct {
	SourceFeed string         `json:"source_feed"`
	TargetFeed string         `json:"target_feed"`
	Status     string         `json:"status,omitempty"`
	Role       string         `json:"role,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty"`
	Custom     map[string]any `json:"custom,omitempty"`
}

func (self *FollowEdge) SameEdge(other *FollowEdge) bool {
	return self.SourceFeed == other.SourceFeed && self.TargetFeed == other.TargetFeed
}

type FeedMember struct {
	Feed      string         `json:"feed,omitempty"`
	User      *User          `json:"user"`
	Role      string         `json:"role,omitempty"`
	Status    string         `json:"status,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
	Custom    map[string]any `json:"custom,omitempty"`
}

func (self *FeedMember) UserId() string {
	if self.User == nil {
		return ""
	}
	return self.User.Id
}

type NotificationStatus struct {
	Unread         int       `json:"unread"`
	Unseen         int       `json:"unseen"`
	ReadActivities []string  `json:"read_activities,omitempty"`
	SeenActivities []string  `json:"seen_activities,omitempty"`
	LastReadAt     time.Time `json:"last_read_at,omitempty"`
	LastSeenAt     time.Time `json:"last_seen_at,omitempty"`
}

type AggregatedActivityGroup struct {
	Group         string      `json:"group"`
	ActivityCount int         `json:"activity_count"`
	UserCount     int         `json:"user_count"`
	Activities    []*Activity `json:"activities,omitempty"`
	CreatedAt     time.Time   `json:"created_at,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at,omitempty"`
}

// comment sort modes recorded per bucket
const (
	CommentSortFirst = "first"
	CommentSortLast  = "last"
	CommentSortTop   = "top"
)

// pagination state for one collection.
// `LoadingNextPage` is client-only state
type CursorState struct {
	Next            string `json:"next,omitempty"`
	Sort            string `json:"sort,omitempty"`
	LoadingNextPage bool   `json:"-"`
}

func (self *CursorState) clone() *CursorState {
	if self == nil {
		return nil
	}
	next := *self
	return &next
}

// one node of the adjacency-list comment tree. the bucket key in
// `CommentsByEntityId` is an activity id for a top-level bucket or a
// comment id for a reply bucket. `EntityParentId` is the key of the
// bucket this bucket was discovered under, empty for a top-level bucket.
type CommentBucket struct {
	Comments       []*Comment
	Pagination     *CursorState
	EntityParentId string
}

func (self *CommentBucket) clone() *CommentBucket {
	next := *self
	return &next
}

// the root value held by the snapshot container for one feed instance
type FeedSnapshot struct {
	Feed string

	Activities       []*Activity
	PinnedActivities []*PinnedActivity

	CommentsByEntityId map[string]*CommentBucket

	Members       []*FeedMember
	MemberCount   int
	OwnMembership *FeedMember

	Followers      []*FollowEdge
	FollowerCount  int
	Following      []*FollowEdge
	FollowingCount int
	OwnFollows     []*FollowEdge

	NotificationStatus       *NotificationStatus
	AggregatedActivityGroups []*AggregatedActivityGroup

	ActivitiesPagination *CursorState
	FollowersPagination  *CursorState
	FollowingPagination  *CursorState
	MembersPagination    *CursorState

	// whether this feed instance currently receives push messages
	Watch bool

	Loading           bool
	LoadingActivities bool
}

func NewFeedSnapshot(feed string) *FeedSnapshot {
	return &FeedSnapshot{
		Feed:               feed,
		Activities:         []*Activity{},
		PinnedActivities:   []*PinnedActivity{},
		CommentsByEntityId: map[string]*CommentBucket{},
	}
}

// shallow copy. collections are shared with the source until a reducer
// swaps one out
func (self *FeedSnapshot) clone() *FeedSnapshot {
	next := *self
	return &next
}
