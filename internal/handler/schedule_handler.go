package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/service"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// ScheduleHandler handles schedule and timesheet HTTP endpoints.
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// ListTasks handles GET /v1/admin/schedule/tasks
func (h *ScheduleHandler) ListTasks(c *gin.Context) {
	filter := &repository.TaskFilter{
		Status: c.Query("status"), // planned, in_progress, completed, cancelled
	}
	if v := c.Query("resource_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.ResourceID = &n
		}
	}
	if v := c.Query("from"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = &d
		}
	}
	if v := c.Query("to"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = &d
		}
	}

	tasks, err := h.scheduleService.ListTasks(filter)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve tasks")
		return
	}

	utils.Success(c, 200, "Tasks retrieved successfully", gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// GetTask handles GET /v1/admin/schedule/tasks/:id
func (h *ScheduleHandler) GetTask(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid task ID")
		return
	}

	task, err := h.scheduleService.GetTask(id)
	if err != nil {
		utils.Error(c, 404, "TASK_NOT_FOUND", "Task not found")
		return
	}

	utils.Success(c, 200, "Task retrieved", task)
}

// CreateTask handles POST /v1/admin/schedule/tasks
func (h *ScheduleHandler) CreateTask(c *gin.Context) {
	var req service.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "title, startDate and endDate are required")
		return
	}

	task, err := h.scheduleService.CreateTask(&req)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidDateRange) {
			utils.Error(c, 400, "INVALID_DATE_RANGE", "endDate must not precede startDate")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create task")
		return
	}

	utils.Success(c, 201, "Task created successfully", task)
}

// UpdateTask handles PUT /v1/admin/schedule/tasks/:id
func (h *ScheduleHandler) UpdateTask(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid task ID")
		return
	}

	var req service.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "title, startDate and endDate are required")
		return
	}

	task, err := h.scheduleService.UpdateTask(id, &req)
	if err != nil {
		if errors.Is(err, utils.ErrTaskNotFound) {
			utils.Error(c, 404, "TASK_NOT_FOUND", "Task not found")
			return
		}
		if errors.Is(err, utils.ErrInvalidDateRange) {
			utils.Error(c, 400, "INVALID_DATE_RANGE", "endDate must not precede startDate")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update task")
		return
	}

	utils.Success(c, 200, "Task updated successfully", task)
}

// DeleteTask handles DELETE /v1/admin/schedule/tasks/:id
func (h *ScheduleHandler) DeleteTask(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid task ID")
		return
	}

	if err := h.scheduleService.DeleteTask(id); err != nil {
		if errors.Is(err, utils.ErrTaskNotFound) {
			utils.Error(c, 404, "TASK_NOT_FOUND", "Task not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete task")
		return
	}

	utils.Success(c, 200, "Task deleted successfully", nil)
}

// CreateTimesheetEntry handles POST /v1/admin/schedule/timesheets
func (h *ScheduleHandler) CreateTimesheetEntry(c *gin.Context) {
	var req service.TimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "resourceId, workDate and endMinute are required")
		return
	}

	entry, err := h.scheduleService.CreateTimesheetEntry(&req)
	if err != nil {
		if errors.Is(err, utils.ErrTimesheetOverlap) {
			utils.Error(c, 409, "TIMESHEET_OVERLAP", "Entry overlaps an existing booking for this resource")
			return
		}
		if errors.Is(err, utils.ErrInvalidDateRange) {
			utils.Error(c, 400, "INVALID_TIME_RANGE", "Invalid work date or minute range")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create timesheet entry")
		return
	}

	utils.Success(c, 201, "Timesheet entry created successfully", entry)
}

// ListTimesheetEntries handles GET /v1/admin/schedule/timesheets
func (h *ScheduleHandler) ListTimesheetEntries(c *gin.Context) {
	resourceID, err := strconv.Atoi(c.Query("resource_id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "resource_id is required")
		return
	}
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "from is required, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "to is required, expected YYYY-MM-DD")
		return
	}

	entries, err := h.scheduleService.ListTimesheetEntries(resourceID, from, to)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidDateRange) {
			utils.Error(c, 400, "INVALID_DATE_RANGE", "to must not precede from")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve timesheet entries")
		return
	}

	utils.Success(c, 200, "Timesheet entries retrieved", gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}
