package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anishthebud/look-at-me-2/internal/service"
)

// Response 统一响应格式
// 失败时 Error 携带可直接展示的原因,成功时 Data 携带结果
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	// Fields 校验失败时的字段级错误
	Fields []service.FieldError `json:"fields,omitempty"`
}

// PaginatedResponse 分页响应
type PaginatedResponse struct {
	Success    bool             `json:"success"`
	Data       interface{}      `json:"data"`
	Pagination service.PageInfo `json:"pagination"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   message,
	})
}

// Paginated 分页响应
func Paginated(c *gin.Context, data interface{}, pagination service.PageInfo) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	})
}
