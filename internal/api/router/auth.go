package router

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/api/middleware"
	"taskhub/internal/core/identity"
	pkgErrors "taskhub/pkg/errors"
	"taskhub/pkg/responses"
)

// PrincipalWrapper 把认证中间件解析出的 Principal 传给 handler
func PrincipalWrapper(handler func(c *gin.Context, p *identity.Principal)) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			responses.Error(c, pkgErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		handler(c, p)
	}
}
