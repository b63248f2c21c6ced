package ginx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lvow2022/research-assistant/pkg/ginx/errors"
	"github.com/lvow2022/research-assistant/pkg/log"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WriteResponse renders data on success, or the business code of err.
func WriteResponse(ctx *gin.Context, err error, data any) {
	if err != nil {
		coder := errors.ParseCoder(err)
		if coder.HTTPStatus() >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", ctx.FullPath()).Error("request failed")
		}
		ctx.JSON(coder.HTTPStatus(), Response{
			Code:    coder.Code(),
			Message: errors.Message(err),
			Data:    data,
		})
		return
	}
	ctx.JSON(http.StatusOK, Response{Message: "ok", Data: data})
}
