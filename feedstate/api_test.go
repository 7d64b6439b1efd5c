package feedstate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSameQuery(t *testing.T) {
	a := &GetOrCreateFeedArgs{Feed: "user:lucy", Limit: 25, Watch: true}
	b := &GetOrCreateFeedArgs{Feed: "user:lucy", Limit: 25, Watch: true}
	assert.Equal(t, true, a.SameQuery(b))

	b = &GetOrCreateFeedArgs{Feed: "user:lucy", Limit: 10, Watch: true}
	assert.Equal(t, false, a.SameQuery(b))

	a = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"type": "post"}}
	b = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"type": "post"}}
	assert.Equal(t, true, a.SameQuery(b))

	b = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"type": "photo"}}
	assert.Equal(t, false, a.SameQuery(b))

	b = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"kind": "post"}}
	assert.Equal(t, false, a.SameQuery(b))
}

func TestSameQueryStructuredFilter(t *testing.T) {
	// slice and map filter values are beyond shallow equality: they must
	// conflict, never panic in the interface comparison
	a := &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"tags": []string{"x"}}}
	b := &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"tags": []string{"x"}}}
	assert.Equal(t, false, a.SameQuery(b))

	a = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"range": map[string]any{"gte": 1}}}
	b = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"range": map[string]any{"gte": 1}}}
	assert.Equal(t, false, a.SameQuery(b))

	// a nil value only matches another nil
	a = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"type": nil}}
	b = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"type": nil}}
	assert.Equal(t, true, a.SameQuery(b))
	b = &GetOrCreateFeedArgs{Feed: "user:lucy", Filter: map[string]any{"type": "post"}}
	assert.Equal(t, false, a.SameQuery(b))
}

func TestPageUrl(t *testing.T) {
	assert.Equal(t, "https://api/feeds/user:lucy/followers",
		pageUrl("https://api/feeds/user:lucy/followers", 0, ""))
	assert.Equal(t, "https://api/feeds/user:lucy/followers?limit=25",
		pageUrl("https://api/feeds/user:lucy/followers", 25, ""))
	assert.Equal(t, "https://api/feeds/user:lucy/followers?limit=25&next=abc",
		pageUrl("https://api/feeds/user:lucy/followers", 25, "abc"))
}
