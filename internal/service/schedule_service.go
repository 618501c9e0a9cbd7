package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/pricing"
	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// ScheduleStore is the scheduling persistence surface the service needs.
type ScheduleStore interface {
	ListTasks(filter *repository.TaskFilter) ([]models.ScheduleTask, error)
	GetTaskByID(id int) (*models.ScheduleTask, error)
	CreateTask(t *models.ScheduleTask) error
	UpdateTask(t *models.ScheduleTask) error
	DeleteTask(id int) error
	CreateTimesheetEntry(e *models.TimesheetEntry) error
	ListTimesheetEntries(resourceID int, from, to time.Time) ([]models.TimesheetEntry, error)
	FindOverlapping(resourceID int, workDate time.Time, startMinute, endMinute int) ([]models.TimesheetEntry, error)
}

// ScheduleService implements schedule tasks and timesheet entries.
type ScheduleService struct {
	schedule ScheduleStore
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(schedule ScheduleStore) *ScheduleService {
	return &ScheduleService{schedule: schedule}
}

// ListTasks returns tasks matching the filter.
func (s *ScheduleService) ListTasks(filter *repository.TaskFilter) ([]models.ScheduleTask, error) {
	return s.schedule.ListTasks(filter)
}

// GetTask returns one task.
func (s *ScheduleService) GetTask(id int) (*models.ScheduleTask, error) {
	t, err := s.schedule.GetTaskByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// TaskRequest carries the fields to create or replace a task.
type TaskRequest struct {
	Title      string  `json:"title" binding:"required"`
	ResourceID *int    `json:"resourceId"`
	StartDate  string  `json:"startDate" binding:"required"` // YYYY-MM-DD
	EndDate    string  `json:"endDate" binding:"required"`   // YYYY-MM-DD
	Status     *string `json:"status"`
	Notes      *string `json:"notes"`
}

func (s *ScheduleService) taskFromRequest(req *TaskRequest, t *models.ScheduleTask) error {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return utils.ErrInvalidDateRange
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return utils.ErrInvalidDateRange
	}
	if end.Before(start) {
		return utils.ErrInvalidDateRange
	}

	t.Title = req.Title
	t.ResourceID = req.ResourceID
	t.StartDate = start
	t.EndDate = end
	t.Notes = req.Notes
	if req.Status != nil {
		t.Status = models.ScheduleTaskStatus(*req.Status)
	} else if t.Status == "" {
		t.Status = models.TaskStatusPlanned
	}
	return nil
}

// CreateTask creates a task. EndDate must not precede StartDate.
func (s *ScheduleService) CreateTask(req *TaskRequest) (*models.ScheduleTask, error) {
	t := &models.ScheduleTask{}
	if err := s.taskFromRequest(req, t); err != nil {
		return nil, err
	}
	if err := s.schedule.CreateTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTask replaces a task's fields.
func (s *ScheduleService) UpdateTask(id int, req *TaskRequest) (*models.ScheduleTask, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	if err := s.taskFromRequest(req, t); err != nil {
		return nil, err
	}
	if err := s.schedule.UpdateTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTask removes a task.
func (s *ScheduleService) DeleteTask(id int) error {
	if err := s.schedule.DeleteTask(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrTaskNotFound
		}
		return err
	}
	return nil
}

// TimesheetRequest books a resource for a span of one day, in minutes from
// midnight.
type TimesheetRequest struct {
	ResourceID  int     `json:"resourceId" binding:"required"`
	WorkDate    string  `json:"workDate" binding:"required"` // YYYY-MM-DD
	StartMinute int     `json:"startMinute"`
	EndMinute   int     `json:"endMinute" binding:"required"`
	TaskID      *int    `json:"taskId"`
	Notes       *string `json:"notes"`
}

// CreateTimesheetEntry creates an entry, rejecting any that overlaps an
// existing booking for the same resource on the same day.
func (s *ScheduleService) CreateTimesheetEntry(req *TimesheetRequest) (*models.TimesheetEntry, error) {
	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		return nil, utils.ErrInvalidDateRange
	}
	if req.StartMinute < 0 || req.EndMinute > 24*60 || req.EndMinute <= req.StartMinute {
		return nil, utils.ErrInvalidDateRange
	}

	workDate = pricing.Day(workDate)
	overlapping, err := s.schedule.FindOverlapping(req.ResourceID, workDate, req.StartMinute, req.EndMinute)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, utils.ErrTimesheetOverlap
	}

	e := &models.TimesheetEntry{
		ResourceID:  req.ResourceID,
		WorkDate:    workDate,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		TaskID:      req.TaskID,
		Notes:       req.Notes,
	}
	if err := s.schedule.CreateTimesheetEntry(e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListTimesheetEntries returns a resource's entries within the inclusive
// date range.
func (s *ScheduleService) ListTimesheetEntries(resourceID int, from, to time.Time) ([]models.TimesheetEntry, error) {
	if to.Before(from) {
		return nil, utils.ErrInvalidDateRange
	}
	return s.schedule.ListTimesheetEntries(resourceID, pricing.Day(from), pricing.Day(to))
}
