package middleware

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"WorkoutMate/internal/model"
	"WorkoutMate/pkg/errors"
	"WorkoutMate/pkg/response"
	"WorkoutMate/pkg/token"
)

const (
	IdentityKey = token.IdentityKey
	sessionKey  = "session"
)

var authMiddleware *jwt.HertzJWTMiddleware

func initAuthMiddleware() error {
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "WorkoutMate API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: sharedGenerator.IdentityKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			uid, err := token.UserIDFromClaims(jwt.ExtractClaims(ctx, c))
			if err != nil {
				return nil
			}
			return uid
		},

		// 没有用户标识的 token 不放行；通过时在 c.Next 之前写入 Session
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			uid, ok := data.(string)
			if !ok || uid == "" {
				return false
			}
			SetSession(c, model.Session{
				UserID: uid,
				Token:  jwt.GetToken(ctx, c),
			})
			return true
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			response.Error(ctx, c, errors.Unauthorized)
		},

		TokenLookup:   "header: Authorization, query: token, cookie: jwt",
		TokenHeadName: "Bearer",
	})
	if err != nil {
		return fmt.Errorf("failed to build auth middleware: %w", err)
	}

	authMiddleware = mw
	return nil
}

// AuthMiddleware 校验 token，Session 由 Authorizator 写入请求上下文。
// jwt 中间件自己调用 c.Next，后续处理器在它返回前已执行完毕
func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// GetUserID 从请求上下文中获取用户ID
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	return id, ok && id != ""
}

func SetSession(c *app.RequestContext, session model.Session) {
	c.Set(sessionKey, session)
}

// GetSession 取出认证中间件写入的会话，未经认证的路由返回 false
func GetSession(c *app.RequestContext) (model.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return model.Session{}, false
	}
	session, ok := v.(model.Session)
	return session, ok && session.Authenticated()
}
