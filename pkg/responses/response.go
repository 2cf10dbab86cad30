package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgErrors "taskhub/pkg/errors"
	"taskhub/pkg/utils"
)

// Response 统一响应结构
type Response struct {
	Code    int                    `json:"code"`
	Kind    pkgErrors.Kind         `json:"kind,omitempty"`
	Message string                 `json:"message"`
	Detail  string                 `json:"detail,omitempty"` // 详细错误信息（可选）
	Details map[string]interface{} `json:"details,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
}

// PageData 分页数据
type PageData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    pkgErrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    pkgErrors.CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// PageSuccess 分页成功响应
func PageSuccess(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	Success(c, &PageData{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// Error 错误响应, HTTP 状态码按错误类别映射
func Error(c *gin.Context, err error) {
	var appErr *pkgErrors.AppError
	if pkgErrors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), Response{
			Code:    appErr.Code,
			Kind:    appErr.Kind,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, Response{
		Code:    pkgErrors.CodeInternalError,
		Kind:    pkgErrors.KindInternal,
		Message: err.Error(),
	})
}

// ErrorWithDetail 带详细信息的错误响应
func ErrorWithDetail(c *gin.Context, kind pkgErrors.Kind, message, detail string) {
	appErr := pkgErrors.New(kind, message)
	c.JSON(appErr.HTTPStatus(), Response{
		Code:    appErr.Code,
		Kind:    kind,
		Message: message,
		Detail:  detail,
	})
}

// BadRequest 参数绑定失败
func BadRequest(c *gin.Context, err error) {
	ErrorWithDetail(c, pkgErrors.KindValidationFailed, "请求参数错误", utils.FormatValidationError(err))
}
