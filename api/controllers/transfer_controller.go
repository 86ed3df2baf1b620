package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/transfer"
	"github.com/moyoez/gesubridge-go/types"
)

type TransferController struct {
	queue   *transfer.Queue
	archive *transfer.Archive
}

// NewTransferController wires the queue and the optional history archive.
func NewTransferController(queue *transfer.Queue, archive *transfer.Archive) *TransferController {
	return &TransferController{
		queue:   queue,
		archive: archive,
	}
}

type SubmitTransferRequest struct {
	DeviceID  string           `json:"deviceId" binding:"required"`
	Direction string           `json:"direction" binding:"required"`
	Pairs     []types.PathPair `json:"pairs" binding:"required"`
}

type CancelTransferRequest struct {
	JobID string `json:"jobId" binding:"required"`
}

// HandleSubmit enqueues a batch of push/pull jobs and returns them as
// Queued; execution is asynchronous.
func (ctrl *TransferController) HandleSubmit(c *gin.Context) {
	var req SubmitTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if !types.ValidTransferDirection(req.Direction) {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid direction, expected push or pull"))
		return
	}

	tool.DefaultLogger.Infof("[Server] Submit %d %s transfer(s) for %s", len(req.Pairs), req.Direction, req.DeviceID)
	jobs, err := ctrl.queue.Submit(req.DeviceID, types.TransferDirection(req.Direction), req.Pairs)
	if err != nil {
		tool.DefaultLogger.Errorf("[Server] Submit transfer failed: %v", err)
		tool.FastReturnAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(jobs))
}

// HandleCancel cancels a job by id. Cancelling a terminal job succeeds
// with no state change.
func (ctrl *TransferController) HandleCancel(c *gin.Context) {
	var req CancelTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := ctrl.queue.Cancel(req.JobID); err != nil {
		tool.DefaultLogger.Errorf("[Server] Cancel transfer failed: %v", err)
		tool.FastReturnAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleActive returns non-terminal jobs in submission order.
func (ctrl *TransferController) HandleActive(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(ctrl.queue.ListActive()))
}

// HandleHistory returns terminal jobs, most recent first.
func (ctrl *TransferController) HandleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(ctrl.queue.ListHistory()))
}

// HandleArchive returns persisted history across restarts. This is
// collaborator data for display; it never feeds back into the queue.
func (ctrl *TransferController) HandleArchive(c *gin.Context) {
	if ctrl.archive == nil {
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData([]types.TransferJob{}))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := ctrl.archive.Recent(limit)
	if err != nil {
		tool.DefaultLogger.Errorf("[Server] Archive query failed: %v", err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to read archive"))
		return
	}
	if jobs == nil {
		jobs = []types.TransferJob{}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(jobs))
}
