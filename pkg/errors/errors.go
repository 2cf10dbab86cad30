package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别，调用方按 Kind 做分支判断
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindValidationFailed Kind = "validation_failed"
	KindConflict         Kind = "conflict"
	KindInternal         Kind = "internal"
)

// 错误码
const (
	CodeSuccess         = 200
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeInternalError   = 500
	CodeDatabaseError   = 501
	CodeAuthError       = 502
	CodeValidationError = 503
)

var kindCodes = map[Kind]int{
	KindUnauthenticated:  CodeUnauthorized,
	KindForbidden:        CodeForbidden,
	KindNotFound:         CodeNotFound,
	KindValidationFailed: CodeValidationError,
	KindConflict:         CodeConflict,
	KindInternal:         CodeInternalError,
}

var kindStatus = map[Kind]int{
	KindUnauthenticated:  http.StatusUnauthorized,
	KindForbidden:        http.StatusForbidden,
	KindNotFound:         http.StatusNotFound,
	KindValidationFailed: http.StatusBadRequest,
	KindConflict:         http.StatusConflict,
	KindInternal:         http.StatusInternalServerError,
}

// AppError 应用错误
type AppError struct {
	Code    int                    `json:"code"`
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WithDetail 附加结构化信息（计数、原因等），返回副本，不修改预定义错误
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// New 创建新错误
func New(kind Kind, message string) *AppError {
	return &AppError{
		Code:    kindCodes[kind],
		Kind:    kind,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    kindCodes[kind],
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func Unauthenticated(message string) *AppError { return New(KindUnauthenticated, message) }
func Forbidden(message string) *AppError { return New(KindForbidden, message) }
func NotFound(message string) *AppError { return New(KindNotFound, message) }
func Validation(message string) *AppError { return New(KindValidationFailed, message) }
func Conflict(message string) *AppError { return New(KindConflict, message) }

// Internal 存储/凭据服务等非调用方导致的错误
func Internal(message string, err error) *AppError {
	return Wrap(KindInternal, message, err)
}

// KindOf 提取错误类别，非 AppError 一律视为 internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于指定类别
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As 是标准库 errors.As 的转发，避免调用方同时导入两个 errors 包
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// 预定义错误
var (
	ErrUnauthorized     = Unauthenticated("未登录或登录已失效")
	ErrForbidden        = Forbidden("禁止访问")
	ErrNotFound         = NotFound("资源不存在")
	ErrRecordNotFound   = NotFound("记录不存在")
	ErrInvalidParams    = Validation("请求参数错误")
	ErrInvalidToken     = Unauthenticated("无效的Token")
	ErrTokenExpired     = Unauthenticated("Token已过期")
	ErrInvalidLogin     = Unauthenticated("邮箱或密码错误")
	ErrGuestNotAllowed  = Forbidden("访客无权执行该操作")
	ErrStatusConflict   = Conflict("数据已被其他请求修改，请刷新后重试")
	ErrDatabaseError    = Internal("数据库错误", nil)
	ErrCredentialFailed = Internal("凭据服务异常", nil)
)
