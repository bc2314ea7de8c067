package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// AnalysisTaskHandler handles HTTP requests for recompute tasks
type AnalysisTaskHandler struct {
	service *service.AnalysisTaskService
}

// NewAnalysisTaskHandler creates a new analysis task handler
func NewAnalysisTaskHandler(service *service.AnalysisTaskService) *AnalysisTaskHandler {
	return &AnalysisTaskHandler{service: service}
}

// CreateTask creates a new analysis task
// POST /api/v1/analysis/tasks
func (h *AnalysisTaskHandler) CreateTask(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = "api"
	}

	task, err := h.service.CreateTask(c.Request.Context(), req)
	if err != nil {
		fail(c, "Failed to create task", err)
		return
	}
	response.Created(c, task)
}

// GetTask retrieves a task by ID
// GET /api/v1/analysis/tasks/:id
func (h *AnalysisTaskHandler) GetTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task ID", err)
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), id)
	if err != nil {
		fail(c, "Failed to get task", err)
		return
	}
	response.Success(c, task)
}

// ListTasks retrieves tasks, newest first
// GET /api/v1/analysis/tasks
func (h *AnalysisTaskHandler) ListTasks(c *gin.Context) {
	var filter models.TaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), filter)
	if err != nil {
		fail(c, "Failed to list tasks", err)
		return
	}

	response.Success(c, gin.H{
		"tasks":  tasks,
		"skills": h.service.Skills(),
		"offset": filter.Offset,
	})
}

// CancelTask cancels a pending or running task
// DELETE /api/v1/analysis/tasks/:id
func (h *AnalysisTaskHandler) CancelTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task ID", err)
		return
	}

	if err := h.service.CancelTask(c.Request.Context(), id); err != nil {
		fail(c, "Failed to cancel task", err)
		return
	}
	response.Success(c, gin.H{"message": "Task cancelled successfully"})
}

// TriggerChainRequest is the body of POST /api/v1/analysis/trigger-chain
type TriggerChainRequest struct {
	TaskType string `json:"task_type"` // INCREMENTAL or FULL_RECOMPUTE
}

// TriggerAnalysisChain runs the backfill and mileage recompute in order
// POST /api/v1/analysis/trigger-chain
func (h *AnalysisTaskHandler) TriggerAnalysisChain(c *gin.Context) {
	var req TriggerChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	if req.TaskType == "" {
		req.TaskType = models.TaskTypeIncremental
	}

	taskIDs, err := h.service.TriggerAnalysisChain(c.Request.Context(), req.TaskType, "api")
	if err != nil {
		fail(c, "Failed to trigger analysis chain", err)
		return
	}

	response.Success(c, gin.H{
		"message":  "Analysis chain triggered successfully",
		"task_ids": taskIDs,
	})
}
