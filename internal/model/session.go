package model

// Session 由认证中间件从 JWT 中解析，显式传给 service，不保存在任何全局状态里
type Session struct {
	UserID string
	Token  string
}

// Authenticated 未登录时 UserID 为空
func (s Session) Authenticated() bool {
	return s.UserID != ""
}
