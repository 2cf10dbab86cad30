package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
	"taskhub/pkg/responses"
)

// AuthMiddleware 解析 Bearer Token 或 Cookie 中的令牌, 将 Principal 存入 context
func AuthMiddleware(resolver *identity.Resolver, cookieName string) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = constants.DefaultCookieName
	}
	return func(c *gin.Context) {
		token, err := tokenFrom(c, cookieName)
		if err != nil {
			responses.Error(c, err)
			c.Abort()
			return
		}

		p, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			responses.Error(c, err)
			c.Abort()
			return
		}

		c.Set(constants.ContextPrincipalKey, p)
		c.Next()
	}
}

// tokenFrom Authorization Header 优先, 其次 Cookie
func tokenFrom(c *gin.Context, cookieName string) (string, error) {
	if authHeader := c.GetHeader(constants.HeaderAuthorization); authHeader != "" {
		if !strings.HasPrefix(authHeader, constants.HeaderBearerPrefix) {
			return "", pkgErrors.Unauthenticated("Authorization格式错误")
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, constants.HeaderBearerPrefix))
		if token == "" {
			return "", pkgErrors.ErrUnauthorized
		}
		return token, nil
	}

	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token, nil
	}
	return "", pkgErrors.ErrUnauthorized
}

// PrincipalFrom 读取 AuthMiddleware 写入的身份
func PrincipalFrom(c *gin.Context) (*identity.Principal, bool) {
	v, ok := c.Get(constants.ContextPrincipalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*identity.Principal)
	return p, ok && p != nil
}
