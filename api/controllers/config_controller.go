package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/tool"
)

// UserConfigGet returns the current settings.
func UserConfigGet(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(tool.GetCurrentConfig()))
}

type ConfigPatchRequest struct {
	AdbPath          *string `json:"adbPath"`
	ScrcpyPath       *string `json:"scrcpyPath"`
	DefaultDeviceDir *string `json:"defaultDeviceDir"`
	TransfersPerDev  *int    `json:"transfersPerDevice"`
	HistoryCapacity  *int    `json:"historyCapacity"`
}

// UserConfigPatch applies partial settings updates and persists them.
// Tool path changes apply to the next spawn; the listen port and worker
// wiring need a restart.
func UserConfigPatch(c *gin.Context) {
	var req ConfigPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}

	cfg := *tool.GetCurrentConfig()
	if req.AdbPath != nil {
		cfg.AdbPath = *req.AdbPath
	}
	if req.ScrcpyPath != nil {
		cfg.ScrcpyPath = *req.ScrcpyPath
	}
	if req.DefaultDeviceDir != nil {
		cfg.DefaultDeviceDir = *req.DefaultDeviceDir
	}
	if req.TransfersPerDev != nil {
		cfg.TransfersPerDev = *req.TransfersPerDev
	}
	if req.HistoryCapacity != nil {
		cfg.HistoryCapacity = *req.HistoryCapacity
	}
	tool.PersistAppConfig(&cfg)
	tool.DefaultLogger.Infof("[Server] Config updated")
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(tool.GetCurrentConfig()))
}
