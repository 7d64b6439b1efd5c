package feedstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

// the request path the engine consumes. all operations are opaque
// asynchronous calls to the core: no retries, auth refresh, or
// serialization concerns leak through this interface
type FeedTransport interface {
	GetOrCreateFeed(ctx context.Context, args *GetOrCreateFeedArgs) (*GetOrCreateFeedResult, error)

	AddActivity(ctx context.Context, args *AddActivityArgs) (*AddActivityResult, error)
	UpdateActivity(ctx context.Context, args *UpdateActivityArgs) (*UpdateActivityResult, error)
	DeleteActivity(ctx context.Context, args *DeleteActivityArgs) (*DeleteActivityResult, error)

	AddReaction(ctx context.Context, args *AddReactionArgs) (*ReactionResult, error)
	DeleteReaction(ctx context.Context, args *DeleteReactionArgs) (*ReactionResult, error)

	AddBookmark(ctx context.Context, args *AddBookmarkArgs) (*BookmarkResult, error)
	DeleteBookmark(ctx context.Context, args *DeleteBookmarkArgs) (*BookmarkResult, error)

	AddComment(ctx context.Context, args *AddCommentArgs) (*CommentResult, error)
	UpdateComment(ctx context.Context, args *UpdateCommentArgs) (*CommentResult, error)
	DeleteComment(ctx context.Context, args *DeleteCommentArgs) (*CommentResult, error)
	GetComments(ctx context.Context, args *GetCommentsArgs) (*GetCommentsResult, error)

	AddCommentReaction(ctx context.Context, args *CommentReactionArgs) (*CommentReactionResult, error)
	DeleteCommentReaction(ctx context.Context, args *CommentReactionArgs) (*CommentReactionResult, error)

	Follow(ctx context.Context, args *FollowArgs) (*FollowResult, error)
	Unfollow(ctx context.Context, args *UnfollowArgs) (*FollowResult, error)
	QueryFollowers(ctx context.Context, args *QueryFollowsArgs) (*QueryFollowsResult, error)
	QueryFollowing(ctx context.Context, args *QueryFollowsArgs) (*QueryFollowsResult, error)

	QueryFeedMembers(ctx context.Context, args *QueryFeedMembersArgs) (*QueryFeedMembersResult, error)

	MarkActivity(ctx context.Context, args *MarkActivityArgs) (*MarkActivityResult, error)
}

type GetOrCreateFeedArgs struct {
	Feed   string         `json:"feed"`
	Limit  int            `json:"limit,omitempty"`
	Next   string         `json:"next,omitempty"`
	Watch  bool           `json:"watch,omitempty"`
	View   string         `json:"view,omitempty"`
	Filter map[string]any `json:"filter,omitempty"`
}

// reports whether two full-resync calls carry the same configuration.
// scalar fields compare directly; the free-form filter compares by
// shallow key/value equality, anything deeper fails fast as a conflict
func (self *GetOrCreateFeedArgs) SameQuery(other *GetOrCreateFeedArgs) bool {
	if self.Feed != other.Feed || self.Limit != other.Limit ||
		self.Next != other.Next || self.Watch != other.Watch ||
		self.View != other.View {
		return false
	}
	if len(self.Filter) != len(other.Filter) {
		return false
	}
	for k, v := range self.Filter {
		if otherV, ok := other.Filter[k]; !ok || !shallowFilterEqual(v, otherV) {
			return false
		}
	}
	return true
}

// non-comparable filter values (slices, nested maps) never match, so
// structured filters conflict instead of panicking in the interface
// comparison
func shallowFilterEqual(a any, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

type GetOrCreateFeedResult struct {
	Activities           []*Activity                `json:"activities"`
	Next                 string                     `json:"next,omitempty"`
	PinnedActivities     []*PinnedActivity          `json:"pinned_activities,omitempty"`
	Followers            []*FollowEdge              `json:"followers,omitempty"`
	FollowerCount        int                        `json:"follower_count"`
	Following            []*FollowEdge              `json:"following,omitempty"`
	FollowingCount       int                        `json:"following_count"`
	OwnFollows           []*FollowEdge              `json:"own_follows,omitempty"`
	FollowersNext        string                     `json:"followers_next,omitempty"`
	FollowingNext        string                     `json:"following_next,omitempty"`
	Members              []*FeedMember              `json:"members,omitempty"`
	MemberCount          int                        `json:"member_count"`
	MembersNext          string                     `json:"members_next,omitempty"`
	OwnMembership        *FeedMember                `json:"own_membership,omitempty"`
	NotificationStatus   *NotificationStatus        `json:"notification_status,omitempty"`
	AggregatedActivities []*AggregatedActivityGroup `json:"aggregated_activities,omitempty"`
}

type AddActivityArgs struct {
	Feed   string         `json:"feed"`
	Type   string         `json:"type,omitempty"`
	Text   string         `json:"text,omitempty"`
	Custom map[string]any `json:"custom,omitempty"`
}

type AddActivityResult struct {
	Activity *Activity `json:"activity"`
}

type UpdateActivityArgs struct {
	ActivityId string         `json:"activity_id"`
	Text       string         `json:"text,omitempty"`
	Custom     map[string]any `json:"custom,omitempty"`
}

type UpdateActivityResult struct {
	Activity *Activity `json:"activity"`
}

type DeleteActivityArgs struct {
	ActivityId string `json:"activity_id"`
	HardDelete bool   `json:"hard_delete,omitempty"`
}

type DeleteActivityResult struct {
}

type AddReactionArgs struct {
	ActivityId string         `json:"activity_id"`
	Type       string         `json:"type"`
	Custom     map[string]any `json:"custom,omitempty"`
}

type DeleteReactionArgs struct {
	ActivityId string `json:"activity_id"`
	Type       string `json:"type"`
}

type ReactionResult struct {
	Reaction *Reaction `json:"reaction"`
	Activity *Activity `json:"activity"`
}

type AddBookmarkArgs struct {
	ActivityId string         `json:"activity_id"`
	FolderId   string         `json:"folder_id,omitempty"`
	Custom     map[string]any `json:"custom,omitempty"`
}

type DeleteBookmarkArgs struct {
	ActivityId string `json:"activity_id"`
	FolderId   string `json:"folder_id,omitempty"`
}

type BookmarkResult struct {
	Bookmark *Bookmark `json:"bookmark"`
	Activity *Activity `json:"activity"`
}

type AddCommentArgs struct {
	ObjectId string         `json:"object_id"`
	ParentId string         `json:"parent_id,omitempty"`
	Text     string         `json:"text,omitempty"`
	Custom   map[string]any `json:"custom,omitempty"`
}

type UpdateCommentArgs struct {
	CommentId string         `json:"comment_id"`
	Text      string         `json:"text,omitempty"`
	Custom    map[string]any `json:"custom,omitempty"`
}

type DeleteCommentArgs struct {
	CommentId  string `json:"comment_id"`
	HardDelete bool   `json:"hard_delete,omitempty"`
}

type CommentResult struct {
	Comment  *Comment  `json:"comment"`
	Activity *Activity `json:"activity,omitempty"`
}

type GetCommentsArgs struct {
	// an activity id for top-level comments or a comment id for replies
	EntityId string `json:"entity_id"`
	Sort     string `json:"sort,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Next     string `json:"next,omitempty"`
}

type GetCommentsResult struct {
	Comments []*Comment `json:"comments"`
	Next     string     `json:"next,omitempty"`
}

type CommentReactionArgs struct {
	CommentId string `json:"comment_id"`
	Type      string `json:"type"`
}

type CommentReactionResult struct {
	Reaction *Reaction `json:"reaction"`
	Comment  *Comment  `json:"comment"`
}

type FollowArgs struct {
	SourceFeed string         `json:"source"`
	TargetFeed string         `json:"target"`
	Custom     map[string]any `json:"custom,omitempty"`
}

type UnfollowArgs struct {
	SourceFeed string `json:"source"`
	TargetFeed string `json:"target"`
}

type FollowResult struct {
	Follow *FollowEdge `json:"follow"`
}

type QueryFollowsArgs struct {
	Feed  string `json:"feed"`
	Limit int    `json:"limit,omitempty"`
	Next  string `json:"next,omitempty"`
}

type QueryFollowsResult struct {
	Follows []*FollowEdge `json:"follows"`
	Next    string        `json:"next,omitempty"`
	Count   int           `json:"count"`
}

type QueryFeedMembersArgs struct {
	Feed  string `json:"feed"`
	Limit int    `json:"limit,omitempty"`
	Next  string `json:"next,omitempty"`
}

type QueryFeedMembersResult struct {
	Members []*FeedMember `json:"members"`
	Next    string        `json:"next,omitempty"`
	Count   int           `json:"count"`
}

type MarkActivityArgs struct {
	Feed        string   `json:"feed"`
	MarkAllRead bool     `json:"mark_all_read,omitempty"`
	MarkRead    []string `json:"mark_read,omitempty"`
	MarkAllSeen bool     `json:"mark_all_seen,omitempty"`
	MarkSeen    []string `json:"mark_seen,omitempty"`
}

type MarkActivityResult struct {
	NotificationStatus *NotificationStatus `json:"notification_status,omitempty"`
}

type AuthLoginArgs struct {
	UserAuth string `json:"user_auth"`
	Password string `json:"password"`
}

type AuthLoginResult struct {
	Token string          `json:"token"`
	Error *AuthLoginError `json:"error,omitempty"`
}

type AuthLoginError struct {
	Message string `json:"message"`
}

type AuthLoginCallback apiCallback[*AuthLoginResult]

// the HTTP JSON request path
type FeedApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	token string
}

func NewFeedApi(apiUrl string) *FeedApi {
	return NewFeedApiWithContext(context.Background(), apiUrl)
}

func NewFeedApiWithContext(ctx context.Context, apiUrl string) *FeedApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &FeedApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

// this gets attached to api calls that need it
func (self *FeedApi) SetToken(token string) {
	self.token = token
}

func (self *FeedApi) Close() {
	self.cancel()
}

func (self *FeedApi) AuthLogin(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.token,
		&AuthLoginResult{},
		callback,
	)
}

func (self *FeedApi) AuthLoginSync(authLogin *AuthLoginArgs) (*AuthLoginResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.token,
		&AuthLoginResult{},
		NewNoopApiCallback[*AuthLoginResult](),
	)
}

func (self *FeedApi) GetOrCreateFeed(ctx context.Context, args *GetOrCreateFeedArgs) (*GetOrCreateFeedResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/feeds/%s", self.apiUrl, url.PathEscape(args.Feed)),
		args,
		self.token,
		&GetOrCreateFeedResult{},
		NewNoopApiCallback[*GetOrCreateFeedResult](),
	)
}

func (self *FeedApi) AddActivity(ctx context.Context, args *AddActivityArgs) (*AddActivityResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/activities", self.apiUrl),
		args,
		self.token,
		&AddActivityResult{},
		NewNoopApiCallback[*AddActivityResult](),
	)
}

func (self *FeedApi) UpdateActivity(ctx context.Context, args *UpdateActivityArgs) (*UpdateActivityResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/activities/%s", self.apiUrl, url.PathEscape(args.ActivityId)),
		args,
		self.token,
		&UpdateActivityResult{},
		NewNoopApiCallback[*UpdateActivityResult](),
	)
}

func (self *FeedApi) DeleteActivity(ctx context.Context, args *DeleteActivityArgs) (*DeleteActivityResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/activities/%s/delete", self.apiUrl, url.PathEscape(args.ActivityId)),
		args,
		self.token,
		&DeleteActivityResult{},
		NewNoopApiCallback[*DeleteActivityResult](),
	)
}

func (self *FeedApi) AddReaction(ctx context.Context, args *AddReactionArgs) (*ReactionResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/activities/%s/reactions", self.apiUrl, url.PathEscape(args.ActivityId)),
		args,
		self.token,
		&ReactionResult{},
		NewNoopApiCallback[*ReactionResult](),
	)
}

func (self *FeedApi) DeleteReaction(ctx context.Context, args *DeleteReactionArgs) (*ReactionResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/activities/%s/reactions/delete", self.apiUrl, url.PathEscape(args.ActivityId)),
		args,
		self.token,
		&ReactionResult{},
		NewNoopApiCallback[*ReactionResult](),
	)
}

func (self *FeedApi) AddBookmark(ctx context.Context, args *AddBookmarkArgs) (*BookmarkResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/activities/%s/bookmarks", self.apiUrl, url.PathEscape(args.ActivityId)),
		args,
		self.token,
		&BookmarkResult{},
		NewNoopApiCallback[*BookmarkResult](),
	)
}

func (self *FeedApi) DeleteBookmark(ctx context.Context, args *DeleteBookmarkArgs) (*BookmarkResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/activities/%s/bookmarks/delete", self.apiUrl, url.PathEscape(args.ActivityId)),
		args,
		self.token,
		&BookmarkResult{},
		NewNoopApiCallback[*BookmarkResult](),
	)
}

func (self *FeedApi) AddComment(ctx context.Context, args *AddCommentArgs) (*CommentResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/comments", self.apiUrl),
		args,
		self.token,
		&CommentResult{},
		NewNoopApiCallback[*CommentResult](),
	)
}

func (self *FeedApi) UpdateComment(ctx context.Context, args *UpdateCommentArgs) (*CommentResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/comments/%s", self.apiUrl, url.PathEscape(args.CommentId)),
		args,
		self.token,
		&CommentResult{},
		NewNoopApiCallback[*CommentResult](),
	)
}

func (self *FeedApi) DeleteComment(ctx context.Context, args *DeleteCommentArgs) (*CommentResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/comments/%s/delete", self.apiUrl, url.PathEscape(args.CommentId)),
		args,
		self.token,
		&CommentResult{},
		NewNoopApiCallback[*CommentResult](),
	)
}

func (self *FeedApi) GetComments(ctx context.Context, args *GetCommentsArgs) (*GetCommentsResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/comments/query", self.apiUrl),
		args,
		self.token,
		&GetCommentsResult{},
		NewNoopApiCallback[*GetCommentsResult](),
	)
}

func (self *FeedApi) AddCommentReaction(ctx context.Context, args *CommentReactionArgs) (*CommentReactionResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/comments/%s/reactions", self.apiUrl, url.PathEscape(args.CommentId)),
		args,
		self.token,
		&CommentReactionResult{},
		NewNoopApiCallback[*CommentReactionResult](),
	)
}

func (self *FeedApi) DeleteCommentReaction(ctx context.Context, args *CommentReactionArgs) (*CommentReactionResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/comments/%s/reactions/delete", self.apiUrl, url.PathEscape(args.CommentId)),
		args,
		self.token,
		&CommentReactionResult{},
		NewNoopApiCallback[*CommentReactionResult](),
	)
}

func (self *FeedApi) Follow(ctx context.Context, args *FollowArgs) (*FollowResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/follows", self.apiUrl),
		args,
		self.token,
		&FollowResult{},
		NewNoopApiCallback[*FollowResult](),
	)
}

func (self *FeedApi) Unfollow(ctx context.Context, args *UnfollowArgs) (*FollowResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/follows/delete", self.apiUrl),
		args,
		self.token,
		&FollowResult{},
		NewNoopApiCallback[*FollowResult](),
	)
}

// the list queries are read-only and carry only paging parameters, so
// they go out as GETs with the page encoded in the url

func pageUrl(base string, limit int, next string) string {
	query := url.Values{}
	if limit != 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if next != "" {
		query.Set("next", next)
	}
	if encoded := query.Encode(); encoded != "" {
		return base + "?" + encoded
	}
	return base
}

func (self *FeedApi) QueryFollowers(ctx context.Context, args *QueryFollowsArgs) (*QueryFollowsResult, error) {
	return get(
		ctx,
		pageUrl(fmt.Sprintf("%s/feeds/%s/followers", self.apiUrl, url.PathEscape(args.Feed)), args.Limit, args.Next),
		self.token,
		&QueryFollowsResult{},
		NewNoopApiCallback[*QueryFollowsResult](),
	)
}

func (self *FeedApi) QueryFollowing(ctx context.Context, args *QueryFollowsArgs) (*QueryFollowsResult, error) {
	return get(
		ctx,
		pageUrl(fmt.Sprintf("%s/feeds/%s/following", self.apiUrl, url.PathEscape(args.Feed)), args.Limit, args.Next),
		self.token,
		&QueryFollowsResult{},
		NewNoopApiCallback[*QueryFollowsResult](),
	)
}

func (self *FeedApi) QueryFeedMembers(ctx context.Context, args *QueryFeedMembersArgs) (*QueryFeedMembersResult, error) {
	return get(
		ctx,
		pageUrl(fmt.Sprintf("%s/feeds/%s/members", self.apiUrl, url.PathEscape(args.Feed)), args.Limit, args.Next),
		self.token,
		&QueryFeedMembersResult{},
		NewNoopApiCallback[*QueryFeedMembersResult](),
	)
}

func (self *FeedApi) MarkActivity(ctx context.Context, args *MarkActivityArgs) (*MarkActivityResult, error) {
	return post(
		ctx,
		fmt.Sprintf("%s/feeds/%s/mark", self.apiUrl, url.PathEscape(args.Feed)),
		args,
		self.token,
		&MarkActivityResult{},
		NewNoopApiCallback[*MarkActivityResult](),
	)
}

func post[R any](ctx context.Context, url string, args any, token string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "text/json")

	if token != "" {
		auth := fmt.Sprintf("Bearer %s", token)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		// the response body is the error message
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}

func get[R any](ctx context.Context, url string, token string, result R, callback apiCallback[R]) (R, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "text/json")

	if token != "" {
		auth := fmt.Sprintf("Bearer %s", token)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	responseBodyBytes, err := io.ReadAll(r.Body)
	r.Body.Close()

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}
