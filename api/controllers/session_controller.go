package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/session"
	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/types"
)

type SessionController struct {
	registry *session.Registry
}

func NewSessionController(registry *session.Registry) *SessionController {
	return &SessionController{
		registry: registry,
	}
}

type StartSessionRequest struct {
	DeviceID string               `json:"deviceId" binding:"required"`
	Mode     string               `json:"mode" binding:"required"`
	Options  types.SessionOptions `json:"options"`
}

type StopSessionRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
	Mode     string `json:"mode" binding:"required"`
}

// HandleStart starts a mirror or camera session for a device.
func (ctrl *SessionController) HandleStart(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if !types.ValidSessionMode(req.Mode) {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid mode, expected mirror or camera"))
		return
	}

	tool.DefaultLogger.Infof("[Server] Start %s session requested for %s", req.Mode, req.DeviceID)
	sess, err := ctrl.registry.Start(req.DeviceID, types.SessionMode(req.Mode), req.Options)
	if err != nil {
		tool.DefaultLogger.Errorf("[Server] Start session failed: %v", err)
		tool.FastReturnAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(sess))
}

// HandleStop stops the session for a device and mode.
func (ctrl *SessionController) HandleStop(c *gin.Context) {
	var req StopSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if !types.ValidSessionMode(req.Mode) {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid mode, expected mirror or camera"))
		return
	}

	if err := ctrl.registry.Stop(req.DeviceID, types.SessionMode(req.Mode)); err != nil {
		tool.DefaultLogger.Errorf("[Server] Stop session failed: %v", err)
		tool.FastReturnAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleList returns a snapshot of current sessions, optionally filtered
// by ?mode=mirror|camera.
func (ctrl *SessionController) HandleList(c *gin.Context) {
	mode := c.Query("mode")
	if mode != "" && !types.ValidSessionMode(mode) {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid mode, expected mirror or camera"))
		return
	}
	sessions := ctrl.registry.List(types.SessionMode(mode))
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(sessions))
}
