package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/pkg/responses"
)

// bindJSON 绑定失败时直接写入 400 响应
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		responses.BadRequest(c, err)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		responses.BadRequest(c, err)
		return false
	}
	return true
}

func bindURI(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindUri(obj); err != nil {
		responses.BadRequest(c, err)
		return false
	}
	return true
}
