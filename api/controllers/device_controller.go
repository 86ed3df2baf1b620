package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/adb"
	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/types"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

type DeviceController struct {
	adb *adb.Client
}

func NewDeviceController(client *adb.Client) *DeviceController {
	return &DeviceController{
		adb: client,
	}
}

// HandleList enumerates connected devices.
func (ctrl *DeviceController) HandleList(c *gin.Context) {
	devices, err := ctrl.adb.ListDevices()
	if err != nil {
		tool.DefaultLogger.Errorf("[Server] Device enumeration failed: %v", err)
		tool.FastReturnAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(devices))
}

// HandleFiles lists files and folders at a device-side path so the UI
// can browse for pull sources and push destinations.
// GET ?serial=RFCT80XXXXX&path=/sdcard/DCIM
func (ctrl *DeviceController) HandleFiles(c *gin.Context) {
	serial := c.Query("serial")
	if serial == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: serial"))
		return
	}
	files, err := ctrl.adb.ListFiles(serial, c.Query("path"))
	if err != nil {
		tool.DefaultLogger.Errorf("[Server] Device file listing failed: %v", err)
		tool.FastReturnAppError(c, err)
		return
	}
	if files == nil {
		files = []types.DeviceFile{}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(files))
}

// HandlePairQR returns a PNG QR code for wireless-debugging pairing.
// GET ?host=192.168.1.2&port=37123&code=123456&size=200
func (ctrl *DeviceController) HandlePairQR(c *gin.Context) {
	host := c.Query("host")
	code := c.Query("code")
	port, _ := strconv.Atoi(c.Query("port"))
	if host == "" || port <= 0 || code == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameters: host, port, code"))
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultQRSize)))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := adb.PairingQR(host, port, code, size)
	if err != nil {
		tool.FastReturnAppError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
