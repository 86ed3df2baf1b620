package tool

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/types"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}

// FastReturnAppError renders an AppError with its kind, guidance and the
// matching HTTP status. Non-AppError errors fall back to a plain 500.
func FastReturnAppError(c *gin.Context, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, FastReturnError(err.Error()))
		return
	}
	c.JSON(statusForKind(appErr.Kind), gin.H{
		"error":    appErr.Message,
		"kind":     appErr.Kind,
		"guidance": appErr.Guidance(),
	})
}

func statusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.ErrDuplicateSession:
		return http.StatusConflict
	case types.ErrSessionNotFound, types.ErrTransferNotFound:
		return http.StatusNotFound
	case types.ErrDeviceUnready:
		return http.StatusFailedDependency
	case types.ErrInvalidPath:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
