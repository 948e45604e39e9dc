package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anishthebud/look-at-me-2/internal/service"
)

// renderServiceError 把服务层错误映射到 HTTP 状态码和统一响应
// 校验 400,找不到 404,状态不允许 409,数量上限 422,存储失败 500
func renderServiceError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   validationErr.Error(),
			Fields:  validationErr.Fields,
		})
		return
	}

	var notFoundErr *service.NotFoundError
	if errors.As(err, &notFoundErr) {
		Error(c, http.StatusNotFound, notFoundErr.Error())
		return
	}

	var stateErr *service.InvalidStateError
	if errors.As(err, &stateErr) {
		Error(c, http.StatusConflict, stateErr.Error())
		return
	}

	var limitErr *service.LimitExceededError
	if errors.As(err, &limitErr) {
		Error(c, http.StatusUnprocessableEntity, limitErr.Error())
		return
	}

	Error(c, http.StatusInternalServerError, err.Error())
}
