package backend

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"WorkoutMate/internal/certification"
)

// 后端不同接口对同一字段有多种命名，按顺序取第一个非空值
var (
	communityIDPaths = []string{"com_uuid", "com_id", "id"}
	postIDPaths      = []string{"id", "post_id"}
	authorIDPaths    = []string{"user_id", "author_id", "user.user_id", "user.id", "user"}
	userNamePaths    = []string{"user_name", "user.user_name", "nickname"}
)

var postTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeID 统一 id 的字符串形式：去掉空白，数字不带小数或指数
func NormalizeID(value gjson.Result) string {
	switch value.Type {
	case gjson.Null:
		return ""
	case gjson.JSON:
		// 嵌套对象里再找一次 id
		return NormalizeID(value.Get("id"))
	default:
		return strings.TrimSpace(value.String())
	}
}

func firstID(item gjson.Result, paths []string) string {
	for _, path := range paths {
		if id := NormalizeID(item.Get(path)); id != "" {
			return id
		}
	}
	return ""
}

func firstString(item gjson.Result, paths []string) string {
	for _, path := range paths {
		if v := item.Get(path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// listItems 兼容裸数组与分页包装 {"results": [...]} / {"data": [...]}
func listItems(body []byte) []gjson.Result {
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root.Array()
	}
	for _, key := range []string{"results", "data", "items"} {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// objectOf 兼容 {"data": {...}} 包装
func objectOf(body []byte) gjson.Result {
	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.IsObject() {
		return data
	}
	return root
}

func decodeCommunity(item gjson.Result) Community {
	// my_communities 可能返回成员关系 {"community": {...}}
	if nested := item.Get("community"); nested.IsObject() {
		item = nested
	}

	return Community{
		ID:          firstID(item, communityIDPaths),
		Name:        item.Get("com_name").String(),
		IconURL:     item.Get("icon_url").String(),
		Description: item.Get("description").String(),
		CertDays:    decodeCertDays(item.Get("cert_days")),
		CertTime:    item.Get("cert_time").String(),
		MemberCount: int(item.Get("member_count").Int()),
	}
}

func decodeCertDays(value gjson.Result) certification.WeekdaysInput {
	if value.IsArray() {
		var days []string
		value.ForEach(func(_, day gjson.Result) bool {
			days = append(days, day.String())
			return true
		})
		return certification.DaysFromList(days)
	}
	if value.Type == gjson.String {
		return certification.DaysFromText(value.Str)
	}
	return certification.DaysFromText("")
}

func decodeCommunities(body []byte) []Community {
	items := listItems(body)
	communities := make([]Community, 0, len(items))
	for _, item := range items {
		c := decodeCommunity(item)
		if c.ID == "" {
			continue
		}
		communities = append(communities, c)
	}
	return communities
}

func decodeMembers(body []byte) []Member {
	items := listItems(body)
	members := make([]Member, 0, len(items))
	for _, item := range items {
		members = append(members, Member{
			UserID:   firstID(item, authorIDPaths),
			UserName: firstString(item, userNamePaths),
		})
	}
	return members
}

func decodePosts(body []byte) []Post {
	items := listItems(body)
	posts := make([]Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, Post{
			ID:        firstID(item, postIDPaths),
			AuthorID:  firstID(item, authorIDPaths),
			UserName:  firstString(item, userNamePaths),
			ImageURL:  item.Get("image_url").String(),
			Content:   item.Get("content").String(),
			CreatedAt: parsePostTime(item.Get("created_at").String()),
		})
	}
	return posts
}

// parsePostTime 无时区的时间按本地时间解释，无法解析时返回零值
func parsePostTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range postTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
