package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// Is 按错误码比较，便于 errors.Is 穿透 fmt.Errorf 包装
func (d Definition) Is(target error) bool {
	t, ok := target.(Definition)
	if !ok {
		return false
	}
	return t.Code == d.Code
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
	Internal        = Definition{Code: "INTERNAL_ERROR", Message: "Internal error"}
)

// 认证相关错误。
var (
	Unauthorized  = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
)

// 社区模块错误。
var (
	CommunityNotFound        = Definition{Code: "COMMUNITY_NOT_FOUND", Message: "Community not found"}
	CommunityListUnavailable = Definition{Code: "COMMUNITY_LIST_UNAVAILABLE", Message: "Community list unavailable"}
	BackendUnavailable       = Definition{Code: "BACKEND_UNAVAILABLE", Message: "Backend unavailable"}
	SearchQueryEmpty         = Definition{Code: "SEARCH_QUERY_EMPTY", Message: "Search query empty"}
	LeaderboardPeriodInvalid = Definition{Code: "LEADERBOARD_PERIOD_INVALID", Message: "Leaderboard period invalid"}
)

// 截止提醒模块错误。
var (
	ReminderUnscheduled = Definition{Code: "REMINDER_UNSCHEDULED", Message: "Community has no certification schedule"}
	ReminderNotFound    = Definition{Code: "REMINDER_NOT_FOUND", Message: "Reminder subscription not found"}
)

// 内部哨兵错误，不直接返回给客户端。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
)

// SkipMessageError 表示消息已处理过，消费者应直接 ack 而不是重新入队
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:           InvalidRequest,
	TooManyRequests.Code:          TooManyRequests,
	Internal.Code:                 Internal,
	Unauthorized.Code:             Unauthorized,
	InvalidUserID.Code:            InvalidUserID,
	CommunityNotFound.Code:        CommunityNotFound,
	CommunityListUnavailable.Code: CommunityListUnavailable,
	BackendUnavailable.Code:       BackendUnavailable,
	SearchQueryEmpty.Code:         SearchQueryEmpty,
	LeaderboardPeriodInvalid.Code: LeaderboardPeriodInvalid,
	ReminderUnscheduled.Code:      ReminderUnscheduled,
	ReminderNotFound.Code:         ReminderNotFound,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// AsDefinition 从错误链中取出业务错误
func AsDefinition(err error) (Definition, bool) {
	var def Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}
