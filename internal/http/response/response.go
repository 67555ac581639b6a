package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const successMsg = "success"

// Response 统一响应结构；HTTP 状态恒为 200，业务结果看 status_code（0 为成功）
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: successMsg, Data: data})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response:   Response{StatusCode: CodeOK, Msg: successMsg, Data: data},
		Pagination: pagination,
	})
}

// Error 错误响应，data 中带上 request_id 便于排查
func Error(c *gin.Context, statusCode int, msg string) {
	ErrorWithData(c, statusCode, msg, nil)
}

// ErrorWithData 带附加数据的错误响应（如校验失败字段）
func ErrorWithData(c *gin.Context, statusCode int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       attachRequestID(c, data),
	})
}

func attachRequestID(c *gin.Context, data interface{}) interface{} {
	if c == nil {
		return data
	}
	requestID := c.GetString("request_id")
	if requestID == "" {
		return data
	}
	switch v := data.(type) {
	case nil:
		return gin.H{"request_id": requestID}
	case gin.H:
		if _, ok := v["request_id"]; !ok {
			v["request_id"] = requestID
		}
		return v
	default:
		return gin.H{"request_id": requestID, "data": data}
	}
}
