package feedstate

import (
	"time"

	"github.com/golang/glog"
)

// push-message envelope. one struct for the whole catalog; each kind
// fills only the fields it carries
type PushEvent struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	Feed     string      `json:"feed,omitempty"`
	User     *User       `json:"user,omitempty"`
	Activity *Activity   `json:"activity,omitempty"`
	Reaction *Reaction   `json:"reaction,omitempty"`
	Comment  *Comment    `json:"comment,omitempty"`
	Bookmark *Bookmark   `json:"bookmark,omitempty"`
	Follow   *FollowEdge `json:"follow,omitempty"`
	Member   *FeedMember `json:"member,omitempty"`

	NotificationStatus   *NotificationStatus        `json:"notification_status,omitempty"`
	AggregatedActivities []*AggregatedActivityGroup `json:"aggregated_activities,omitempty"`

	Custom map[string]any `json:"custom,omitempty"`
}

// the user who performed the server-side mutation
func (self *PushEvent) ActorId() string {
	switch {
	case self.Reaction != nil && self.Reaction.User != nil:
		return self.Reaction.User.Id
	case self.Bookmark != nil && self.Bookmark.User != nil:
		return self.Bookmark.User.Id
	case self.Comment != nil && self.Comment.User != nil:
		return self.Comment.User.Id
	case self.Member != nil && self.Member.User != nil:
		return self.Member.User.Id
	case self.User != nil:
		return self.User.Id
	case self.Activity != nil && self.Activity.User != nil:
		return self.Activity.User.Id
	default:
		return ""
	}
}

// the push event catalog
const (
	EventActivityAdded    = "feeds.activity.added"
	EventActivityUpdated  = "feeds.activity.updated"
	EventActivityDeleted  = "feeds.activity.deleted"
	EventActivityPinned   = "feeds.activity.pinned"
	EventActivityUnpinned = "feeds.activity.unpinned"

	EventReactionAdded   = "feeds.activity.reaction.added"
	EventReactionUpdated = "feeds.activity.reaction.updated"
	EventReactionDeleted = "feeds.activity.reaction.deleted"

	EventBookmarkAdded   = "feeds.bookmark.added"
	EventBookmarkUpdated = "feeds.bookmark.updated"
	EventBookmarkDeleted = "feeds.bookmark.deleted"

	EventCommentAdded   = "feeds.comment.added"
	EventCommentUpdated = "feeds.comment.updated"
	EventCommentDeleted = "feeds.comment.deleted"

	EventCommentReactionAdded   = "feeds.comment.reaction.added"
	EventCommentReactionDeleted = "feeds.comment.reaction.deleted"

	EventFollowCreated = "feeds.follow.created"
	EventFollowUpdated = "feeds.follow.updated"
	EventFollowDeleted = "feeds.follow.deleted"

	EventMemberAdded   = "feeds.feed_member.added"
	EventMemberUpdated = "feeds.feed_member.updated"
	EventMemberRemoved = "feeds.feed_member.removed"

	EventNotificationFeedUpdated = "feeds.notification_feed.updated"

	// kinds the engine deliberately does not reduce
	EventFeedCreated      = "feeds.feed.created"
	EventFeedUpdated      = "feeds.feed.updated"
	EventFeedDeleted      = "feeds.feed.deleted"
	EventFeedGroupChanged = "feeds.feed_group.changed"
	EventActivityMarked   = "feeds.activity.marked"
	EventHealthCheck      = "health.check"
)

type EventListenerFunc func(event *PushEvent)

type eventApplyFunc func(event *PushEvent)

// every catalog entry is either bound to a reducer or explicitly
// ignored. adding a server kind to the catalog forces the decision here
type eventBinding struct {
	ignored bool
	apply   eventApplyFunc
}

func bindEvent(apply eventApplyFunc) *eventBinding {
	return &eventBinding{apply: apply}
}

func ignoreEvent() *eventBinding {
	return &eventBinding{ignored: true}
}

// routes each inbound push message, by type, to exactly one bound
// reducer, then always forwards it to the fan-out listeners so
// consumers can observe even engine-ignored kinds. unknown types are
// logged and forwarded only; they never fail, since the set of server
// message types grows over time
type EventDispatcher struct {
	bindings  map[string]*eventBinding
	listeners *CallbackList[EventListenerFunc]
}

func NewEventDispatcher(bindings map[string]*eventBinding) *EventDispatcher {
	return &EventDispatcher{
		bindings:  bindings,
		listeners: NewCallbackList[EventListenerFunc](),
	}
}

func (self *EventDispatcher) On(listener EventListenerFunc) func() {
	listenerId := self.listeners.Add(listener)
	return func() {
		self.listeners.Remove(listenerId)
	}
}

func (self *EventDispatcher) Dispatch(event *PushEvent) {
	if binding, ok := self.bindings[event.Type]; !ok {
		glog.Warningf("[disp]unknown event type %s\n", event.Type)
	} else if !binding.ignored {
		binding.apply(event)
	}

	for _, listener := range self.listeners.Get() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					glog.Infof("[disp]listener panic = %v\n", r)
				}
			}()
			listener(event)
		}()
	}
}
