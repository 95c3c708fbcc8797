package dto

import "time"

// ========== Community 相关 DTO ==========

// 图标类型
const (
	IconKindImage = "image"
	IconKindEmoji = "emoji"
)

// 认证状态
const (
	StatusLive        = "live"
	StatusUpcoming    = "upcoming"
	StatusUnscheduled = "unscheduled"
)

// 今日认证结果的来源
const (
	CompletionSourceServer = "server"
	CompletionSourceCache  = "cache"
)

type CommunityIcon struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// CertificationStatus 未排期时 state=unscheduled，两个描述字段都省略
type CertificationStatus struct {
	State            string     `json:"state"`
	TimeRemaining    string     `json:"time_remaining,omitempty"`
	NextOccurrence   string     `json:"next_occurrence,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	NextAt           *time.Time `json:"next_at,omitempty"`
}

// CommunityRow 首页的一行
type CommunityRow struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Icon              CommunityIcon       `json:"icon"`
	MemberCount       int                 `json:"member_count"`
	PostCount         int                 `json:"post_count"`
	Status            CertificationStatus `json:"status"`
	HasCertifiedToday bool                `json:"has_certified_today"`
	CompletionSource  string              `json:"completion_source"`
}

// HomeData 首页数据，Urgent 是 Communities 的子集
type HomeData struct {
	Communities []CommunityRow `json:"communities"`
	Urgent      []CommunityRow `json:"urgent"`
}

// CommunityDetail 社区资料页
type CommunityDetail struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Icon         CommunityIcon       `json:"icon"`
	Description  string              `json:"description"`
	CertDays     []string            `json:"cert_days"`
	CertDaysText string              `json:"cert_days_text"`
	CertTime     string              `json:"cert_time"`
	MemberCount  int                 `json:"member_count"`
	PostCount    int                 `json:"post_count"`
	Status       CertificationStatus `json:"status"`
}

// CommunitySummary 搜索结果
type CommunitySummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Icon        CommunityIcon `json:"icon"`
	Description string        `json:"description"`
	CertDays    []string      `json:"cert_days"`
	CertTime    string        `json:"cert_time"`
}

type SearchQuery struct {
	Q string `query:"q"`
}

// ========== Feed 相关 DTO ==========

type FeedPost struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	UserName  string     `json:"user_name,omitempty"`
	ImageURL  string     `json:"image_url"`
	Content   string     `json:"content,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	IsMine    bool       `json:"is_mine"`
}

// FeedData Locked 为 true 时客户端模糊处理图片，直到本人当天认证
type FeedData struct {
	CommunityID       string     `json:"community_id"`
	Posts             []FeedPost `json:"posts"`
	HasCertifiedToday bool       `json:"has_certified_today"`
	CompletionSource  string     `json:"completion_source"`
	Locked            bool       `json:"locked"`
}

// CompletionData 上传后的重新对账结果
type CompletionData struct {
	CommunityID       string `json:"community_id"`
	HasCertifiedToday bool   `json:"has_certified_today"`
	CacheHint         bool   `json:"cache_hint"`
	CacheCleared      bool   `json:"cache_cleared"`
}

// ========== Leaderboard 相关 DTO ==========

type LeaderboardQuery struct {
	Period string `query:"period"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Count    int    `json:"count"`
	Streak   int    `json:"streak"`
	IsMe     bool   `json:"is_me"`
}

type LeaderboardData struct {
	CommunityID string             `json:"community_id"`
	Period      string             `json:"period"`
	Entries     []LeaderboardEntry `json:"entries"`
}
