package http

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// 业务码
const (
	CodeSuccess      = 0
	CodeInvalidParam = 10001
	CodeUnauthorized = 10002
	CodeForbidden    = 10003
	CodeNotFound     = 10004
	CodeServerError  = 10005
	CodeConflict     = 10006 // 版本冲突
	CodeIllegal      = 10007 // 当前阶段不允许的操作
	CodeBusy         = 10008
)

type failure struct {
	status  int
	code    int
	message string
}

// statusTable grpc 状态码到 HTTP 状态与业务码
var statusTable = map[codes.Code]failure{
	codes.InvalidArgument:    {http.StatusBadRequest, CodeInvalidParam, "invalid parameters"},
	codes.Unauthenticated:    {http.StatusUnauthorized, CodeUnauthorized, "unauthorized"},
	codes.PermissionDenied:   {http.StatusForbidden, CodeForbidden, "forbidden"},
	codes.NotFound:           {http.StatusNotFound, CodeNotFound, "not found"},
	codes.AlreadyExists:      {http.StatusConflict, CodeConflict, "conflict"},
	codes.Aborted:            {http.StatusConflict, CodeConflict, "conflict"},
	codes.FailedPrecondition: {http.StatusUnprocessableEntity, CodeIllegal, "illegal action"},
	codes.ResourceExhausted:  {http.StatusTooManyRequests, CodeBusy, "too many requests"},
	codes.Unavailable:        {http.StatusServiceUnavailable, CodeBusy, "service unavailable"},
}

var internalFailure = failure{http.StatusInternalServerError, CodeServerError, "internal server error"}

func (c *Context) reply(status, code int, message string, data any) {
	c.JSON(status, &Response{Code: code, Message: message, Data: data})
}

func (c *Context) Success(data any) {
	c.reply(http.StatusOK, CodeSuccess, "success", data)
}

func (c *Context) SuccessWithMessage(message string, data any) {
	c.reply(http.StatusOK, CodeSuccess, message, data)
}

// Fail 按 grpc 状态码响应；message 为空时用默认文案
func (c *Context) Fail(code codes.Code, message string) {
	f, ok := statusTable[code]
	if !ok {
		f = internalFailure
	}
	if message == "" {
		message = f.message
	}
	c.reply(f.status, f.code, message, nil)
}

// FailStatus 未登记的状态码一律 500，并隐藏内部错误信息
func (c *Context) FailStatus(st *status.Status) {
	if _, ok := statusTable[st.Code()]; !ok {
		c.Fail(st.Code(), "")
		return
	}
	c.Fail(st.Code(), st.Message())
}

func (c *Context) BadRequest(message string) {
	c.Fail(codes.InvalidArgument, message)
}

func (c *Context) Unauthorized(message string) {
	c.Fail(codes.Unauthenticated, message)
}

func (c *Context) NotFound(message string) {
	c.Fail(codes.NotFound, message)
}

func (c *Context) InternalServerError(message string) {
	c.Fail(codes.Internal, message)
}
