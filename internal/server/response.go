package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qaydhq/qayd/internal/common"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

// respondError maps application error codes onto HTTP statuses. Causes stay
// in the logs; clients only see the code and message.
func respondError(c *gin.Context, err error) {
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		appErr = common.NewAppError(common.CodeInternal, "unexpected error", err)
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case common.CodeInvalidInput, common.CodeValidation:
		status = http.StatusBadRequest
	case common.CodeNotFound:
		status = http.StatusNotFound
	case common.CodeUnauthorized:
		status = http.StatusUnauthorized
	}

	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: appErr.Code, Message: appErr.Message}})
}
