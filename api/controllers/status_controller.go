package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/session"
	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/transfer"
)

type StatusController struct {
	registry *session.Registry
	queue    *transfer.Queue
}

func NewStatusController(registry *session.Registry, queue *transfer.Queue) *StatusController {
	return &StatusController{
		registry: registry,
		queue:    queue,
	}
}

// HandleStatus reports a small health blob for the UI status bar.
func (ctrl *StatusController) HandleStatus(c *gin.Context) {
	cfg := tool.GetCurrentConfig()
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"running":         true,
		"adbAvailable":    cfg.AdbPath != "",
		"scrcpyAvailable": cfg.ScrcpyPath != "",
		"sessions":        len(ctrl.registry.List("")),
		"activeTransfers": len(ctrl.queue.ListActive()),
	}))
}
