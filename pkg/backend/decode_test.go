package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"WorkoutMate/internal/certification"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"id": 42}`, "42"},
		{`{"id": 42.0}`, "42"},
		{`{"id": 1e3}`, "1000"},
		{`{"id": " u-1 "}`, "u-1"},
		{`{"id": null}`, ""},
		{`{"id": {"id": 7}}`, "7"},
		{`{}`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeID(gjson.Get(tt.raw, "id")), tt.raw)
	}
}

func TestDecodeCommunities(t *testing.T) {
	body := []byte(`[
		{"com_uuid": "c1", "com_name": "Run", "icon_url": "🏃", "cert_days": ["mon","wed"], "cert_time": "07:00:00"},
		{"com_id": 12, "com_name": "Lift", "cert_days": "['tue', 'thu']", "cert_time": "19:30"},
		{"community": {"id": "c3", "com_name": "Swim"}},
		{"com_name": "no id"}
	]`)

	communities := decodeCommunities(body)
	require.Len(t, communities, 3)

	assert.Equal(t, "c1", communities[0].ID)
	assert.True(t, communities[0].CertDays.IsList())
	assert.Equal(t, "mon, wed", certification.FormatDays(communities[0].Schedule().Days))
	assert.Equal(t, certification.Clock{Hour: 7}, communities[0].Schedule().Deadline)

	assert.Equal(t, "12", communities[1].ID)
	assert.False(t, communities[1].CertDays.IsList())
	assert.Equal(t, "tue, thu", certification.FormatDays(communities[1].Schedule().Days))

	assert.Equal(t, "c3", communities[2].ID)
	assert.Equal(t, "Swim", communities[2].Name)
	assert.False(t, certification.Scheduled(communities[2].Schedule().Days))
}

func TestDecodeCommunities_PaginatedEnvelope(t *testing.T) {
	body := []byte(`{"count": 1, "results": [{"com_uuid": "c1", "com_name": "Run"}]}`)

	communities := decodeCommunities(body)
	require.Len(t, communities, 1)
	assert.Equal(t, "Run", communities[0].Name)
}

func TestDecodePosts(t *testing.T) {
	body := []byte(`[
		{"id": 1, "user_id": 42, "image_url": "/m/1.jpg", "created_at": "2025-06-16T08:00:00+09:00"},
		{"post_id": "p2", "user": {"id": "u7", "user_name": "kim"}, "created_at": "2025-06-16 09:30:00"},
		{"id": 3, "author_id": "u8", "created_at": "garbage"}
	]`)

	posts := decodePosts(body)
	require.Len(t, posts, 3)

	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, "42", posts[0].AuthorID)
	assert.False(t, posts[0].CreatedAt.IsZero())

	assert.Equal(t, "p2", posts[1].ID)
	assert.Equal(t, "u7", posts[1].AuthorID)
	assert.Equal(t, "kim", posts[1].UserName)
	assert.Equal(t, time.Date(2025, 6, 16, 9, 30, 0, 0, time.Local), posts[1].CreatedAt)

	assert.Equal(t, "u8", posts[2].AuthorID)
	assert.True(t, posts[2].CreatedAt.IsZero())
}

func TestDecodeMembers(t *testing.T) {
	members := decodeMembers([]byte(`{"data": [{"user_id": 1, "user_name": "a"}, {"user": 2}]}`))
	require.Len(t, members, 2)
	assert.Equal(t, "1", members[0].UserID)
	assert.Equal(t, "2", members[1].UserID)
}

func TestStatusError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, &StatusError{Code: 401}, ErrUnauthorized)
	assert.ErrorIs(t, &StatusError{Code: 403}, ErrUnauthorized)
	assert.ErrorIs(t, &StatusError{Code: 404}, ErrNotFound)
	assert.ErrorIs(t, &StatusError{Code: 500}, ErrUnexpectedStatus)
}
